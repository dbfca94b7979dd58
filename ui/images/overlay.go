package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/detect"
	"github.com/soocke/pixel-overlay-go/domain/engine"
)

// BoxLabel is drawn above every detection box.
const BoxLabel = "Target"

const (
	boxStroke     = 2
	crosshairHalf = 8
	textMargin    = 6
)

var (
	ColorBox      = color.RGBA{0, 255, 0, 255}
	ColorTarget   = color.RGBA{255, 0, 0, 255}
	ColorText     = color.RGBA{255, 255, 255, 255}
	colorShadow   = color.RGBA{0, 0, 0, 255}
	colorArmed    = color.RGBA{255, 200, 0, 255}
	colorDisarmed = color.RGBA{160, 160, 160, 255}
)

// Compose converts f to RGBA and draws the annotations on it: every box with
// its label, a crosshair on the selected target, the FPS and the detection
// and trigger status. It returns nil for a nil frame. The result does not
// alias f.
func Compose(f *capture.Frame, ann engine.Annotations) *image.RGBA {
	if f == nil {
		return nil
	}
	img := f.ToRGBA()
	b := img.Bounds()

	for _, box := range ann.Boxes {
		r := BoxRect(box).Intersect(b)
		if r.Empty() {
			continue
		}
		StrokeRect(img, r, boxStroke, ColorBox)
		ly := r.Min.Y - 4
		if ly < 13 {
			ly = r.Min.Y + 13
		}
		DrawText(img, BoxLabel, r.Min.X, ly, ColorBox)
	}
	if ann.HasTarget {
		cx, cy := ann.Target.Center()
		Crosshair(img, image.Pt(int(math.Round(cx)), int(math.Round(cy))), crosshairHalf, ColorTarget)
	}

	DrawText(img, fmt.Sprintf("FPS: %.1f", ann.FPS), textMargin+1, 17, colorShadow)
	DrawText(img, fmt.Sprintf("FPS: %.1f", ann.FPS), textMargin, 16, ColorText)

	status, c := StatusText(ann)
	DrawText(img, status, textMargin+1, 33, colorShadow)
	DrawText(img, status, textMargin, 32, c)
	return img
}

// StatusText returns the overlay status line and its color.
func StatusText(ann engine.Annotations) (string, color.RGBA) {
	switch {
	case !ann.Active:
		return "Detection: off", colorDisarmed
	case ann.Armed:
		return fmt.Sprintf("Detection: on | %d boxes | ARMED", len(ann.Boxes)), colorArmed
	default:
		return fmt.Sprintf("Detection: on | %d boxes", len(ann.Boxes)), ColorText
	}
}

// BoxRect rounds a detection box to an integer rectangle. Coordinates are
// canonicalized so a swapped box still draws.
func BoxRect(b detect.Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	)
}

// StrokeRect draws the outline of r with the given stroke width, inside r.
func StrokeRect(img draw.Image, r image.Rectangle, width int, c color.Color) {
	if width < 1 {
		width = 1
	}
	src := image.NewUniform(c)
	fill := func(rr image.Rectangle) { draw.Draw(img, rr.Intersect(r), src, image.Point{}, draw.Src) }
	fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width))
	fill(image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y))
	fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y))
	fill(image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y))
}

// Crosshair draws a 2px plus sign centered on p.
func Crosshair(img draw.Image, p image.Point, half int, c color.Color) {
	src := image.NewUniform(c)
	b := img.Bounds()
	draw.Draw(img, image.Rect(p.X-half, p.Y-1, p.X+half+1, p.Y+1).Intersect(b), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(p.X-1, p.Y-half, p.X+1, p.Y+half+1).Intersect(b), src, image.Point{}, draw.Src)
}

// DrawText draws s with its baseline at (x, y) using the 7x13 bitmap face.
func DrawText(img draw.Image, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
