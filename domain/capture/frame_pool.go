package capture

import (
	"image"
	"sync"
)

// Reusable BGR frame pool. Every iteration of the control loop converts the
// screenshot library's freshly allocated RGBA image into a BGR frame; pooling
// the BGR backing slices keeps a steady-state loop from allocating a new
// buffer per tick. Frames are returned with RecycleFrame once the overlay
// has been composed. Consumers that never recycle simply fall back to
// per-frame allocation.

var framePool sync.Pool // stores *Frame

// acquireFrame returns a frame sized w x h whose Pix length is exactly
// w*h*3. Contents are undefined.
func acquireFrame(w, h int) *Frame {
	needed := w * h * 3
	var f *Frame
	if v := framePool.Get(); v != nil {
		f = v.(*Frame)
	}
	if f == nil || cap(f.Pix) < needed {
		return &Frame{Pix: make([]byte, needed), Width: w, Height: h, Stride: w * 3}
	}
	f.Pix = f.Pix[:needed]
	f.Width, f.Height, f.Stride = w, h, w*3
	f.Origin = image.Point{}
	return f
}

// RecycleFrame returns the frame to the pool. The frame must no longer be
// accessed by the caller after invoking RecycleFrame.
func RecycleFrame(f *Frame) {
	if f == nil || f.Pix == nil {
		return
	}
	framePool.Put(f)
}

// FrameFromImage converts img into a pooled BGR frame. It returns nil for an
// empty image.
func FrameFromImage(img image.Image) *Frame {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	f := acquireFrame(w, h)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			src := rgba.Pix[(y+b.Min.Y-rgba.Rect.Min.Y)*rgba.Stride+(b.Min.X-rgba.Rect.Min.X)*4:]
			dst := f.Pix[y*f.Stride:]
			for x := 0; x < w; x++ {
				dst[x*3+0] = src[x*4+2]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+0]
			}
		}
		return f
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*f.Stride + x*3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = uint8(bl>>8), uint8(g>>8), uint8(r>>8)
		}
	}
	return f
}

// ToRGBA converts the frame into a newly allocated opaque RGBA image.
func (f *Frame) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < f.Width; x++ {
			out[x*4+0] = src[x*3+2]
			out[x*4+1] = src[x*3+1]
			out[x*4+2] = src[x*3+0]
			out[x*4+3] = 0xFF
		}
	}
	return dst
}

// Clone returns a pooled deep copy of f.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := acquireFrame(f.Width, f.Height)
	copy(out.Pix, f.Pix)
	out.Origin = f.Origin
	out.CapturedAt = f.CapturedAt
	return out
}
