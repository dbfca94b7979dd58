//go:build !windows

package capture

import (
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

type screenshotGrabber struct{}

// NewSystemGrabber returns a grabber backed by the portable screenshot
// library (X11 on Linux, CoreGraphics on macOS).
func NewSystemGrabber() Grabber { return screenshotGrabber{} }

func (screenshotGrabber) Grab(r image.Rectangle) (*Frame, error) {
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, r)
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture rect %v: %w", r, err)
	}
	f := FrameFromImage(img)
	if f == nil {
		return nil, fmt.Errorf("%w: empty image for %v", ErrInvalidRegion, r)
	}
	return f, nil
}
