package images

import (
	"errors"
	"image"
	"image/draw"
)

// ExtractROI returns a square region of side size centered at c, clamped to
// the frame bounds and never smaller than 1x1. The ROI is copied so it stays
// valid after frame is reused. The returned rectangle is relative to frame.
func ExtractROI(frame *image.RGBA, c image.Point, size int) (*image.RGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	if size < 1 {
		size = 1
	}
	b := frame.Bounds()
	half := size / 2
	x0 := max(c.X-half, b.Min.X)
	y0 := max(c.Y-half, b.Min.Y)
	w := max(min(size, b.Max.X-x0), 1)
	h := max(min(size, b.Max.Y-y0), 1)
	roi := image.Rect(x0, y0, x0+w, y0+h)
	out := image.NewRGBA(image.Rect(0, 0, roi.Dx(), roi.Dy()))
	draw.Draw(out, out.Bounds(), frame, roi.Min, draw.Src)
	return out, roi, nil
}
