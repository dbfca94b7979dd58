package capture

import (
	"errors"
	"image"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

var (
	// ErrInvalidRegion is returned when a capture rectangle has no area or
	// lies entirely off screen.
	ErrInvalidRegion = errors.New("capture: invalid region")
)

// Frame is a captured pixel buffer stored as blue-green-red triplets, row
// major, Stride = 3*Width. A nil *Frame means "no frame"; a Frame is never
// zero-sized. Origin is the screen position of pixel (0, 0); it is the zero
// point for frames that do not come from the screen.
type Frame struct {
	Pix        []byte
	Width      int
	Height     int
	Stride     int
	Origin     image.Point
	CapturedAt time.Time
}

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// BGRAt returns the pixel at (x, y).
func (f *Frame) BGRAt(x, y int) (b, g, r uint8) {
	i := y*f.Stride + x*3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Source produces a frame for the screen region covered by the overlay
// window. It returns nil when no frame is available and never panics.
type Source interface {
	Capture(g geometry.Geometry) *Frame
}

// Grabber is the OS screen acquisition primitive. Grab returns a pooled
// frame covering r, which the caller has already clipped to the desktop.
type Grabber interface {
	Grab(r image.Rectangle) (*Frame, error)
}

// Insets describes the fixed window decoration compensation applied when
// mapping window geometry to a capture rectangle.
type Insets struct {
	TitleBar    int // added to y
	ControlArea int // removed from height (buttons below the capture area)
}

// EffectiveRegion maps window geometry to the screen rectangle to capture.
// ok is false when the resulting width or height is not positive.
func EffectiveRegion(g geometry.Geometry, in Insets) (r image.Rectangle, ok bool) {
	w := g.Width
	h := g.Height - in.ControlArea
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	y := g.Y + in.TitleBar
	return image.Rect(g.X, y, g.X+w, y+h), true
}
