package capture

import (
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

// ImageSource replays a single static image as every frame. Window geometry
// is ignored; the image is decoded once at construction.
type ImageSource struct {
	path string
	base *Frame
}

// LoadImageSource decodes path (PNG, JPEG, BMP, TIFF or GIF) into an image
// source.
func LoadImageSource(path string) (*ImageSource, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return NewImageSource(path, img)
}

// NewImageSource wraps an already decoded image.
func NewImageSource(name string, img image.Image) (*ImageSource, error) {
	f := FrameFromImage(img)
	if f == nil {
		return nil, fmt.Errorf("%w: image %s has no pixels", ErrInvalidRegion, name)
	}
	// The base frame is owned by the source and never recycled.
	base := &Frame{Pix: append([]byte(nil), f.Pix...), Width: f.Width, Height: f.Height, Stride: f.Stride}
	RecycleFrame(f)
	return &ImageSource{path: name, base: base}, nil
}

// Path returns the image path the source was loaded from.
func (s *ImageSource) Path() string { return s.path }

// Size returns the image dimensions.
func (s *ImageSource) Size() (w, h int) { return s.base.Width, s.base.Height }

// Capture returns a fresh copy of the image so the caller may recycle it.
func (s *ImageSource) Capture(geometry.Geometry) *Frame {
	f := s.base.Clone()
	f.CapturedAt = time.Now()
	return f
}
