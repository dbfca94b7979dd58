package detect

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/soocke/pixel-overlay-go/domain/capture"
)

// TemplateOptions configures reference-image matching.
type TemplateOptions struct {
	Threshold float64 // minimum NCC score for a match (default 0.80)
	MinScale  float64 // e.g. 0.75
	MaxScale  float64 // e.g. 1.25
	ScaleStep float64 // e.g. 0.05
	Stride    int     // coarse scan stride; >1 adds a refinement pass
}

func (o TemplateOptions) normalized() TemplateOptions {
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = 0.80
	}
	if o.MinScale <= 0 || o.MaxScale < o.MinScale || o.ScaleStep <= 0 {
		o.MinScale, o.MaxScale, o.ScaleStep = 0.75, 1.25, 0.05
	}
	if o.Stride <= 0 {
		o.Stride = 1
	}
	return o
}

// scales lists the factors from MinScale to MaxScale, capped at 200 entries.
func (o TemplateOptions) scales() []float64 {
	n := 1 + int((o.MaxScale-o.MinScale)/o.ScaleStep+0.5)
	n = min(n, 200)
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, o.MinScale+float64(i)*o.ScaleStep)
	}
	return out
}

// grayTemplate is one scaled reference image prepared for masked NCC.
// Transparent pixels are excluded through offs.
type grayTemplate struct {
	scale float64
	w, h  int
	offs  []int     // y*w+x of every opaque pixel
	zero  []float64 // template values minus their mean, aligned with offs
	norm  float64   // sqrt(sum(zero^2))
}

// Template finds a single reference image in each frame using masked
// normalized cross-correlation over a range of scales. It reports at most
// one box per frame: the best-scoring window at or above the threshold.
type Template struct {
	opts   TemplateOptions
	tmpls  []grayTemplate
	logger *slog.Logger
}

// LoadTemplate decodes the reference image at path.
func LoadTemplate(path string, opts TemplateOptions, logger *slog.Logger) (*Template, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %v", ErrDetectorUnavailable, path, err)
	}
	return NewTemplate(img, opts, logger)
}

// NewTemplate prepares every scale of img up front.
func NewTemplate(img image.Image, opts TemplateOptions, logger *slog.Logger) (*Template, error) {
	opts = opts.normalized()
	src := imaging.Clone(img)
	b := src.Bounds()
	t := &Template{opts: opts, logger: logger}
	for _, s := range opts.scales() {
		w, h := int(float64(b.Dx())*s), int(float64(b.Dy())*s)
		if w < 2 || h < 2 {
			continue
		}
		scaled := src
		if w != b.Dx() || h != b.Dy() {
			scaled = image.NewNRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)
		}
		if gt, ok := prepareTemplate(scaled, s); ok {
			t.tmpls = append(t.tmpls, gt)
		}
	}
	if len(t.tmpls) == 0 {
		return nil, fmt.Errorf("%w: template has no usable scale or no contrast", ErrDetectorUnavailable)
	}
	if logger != nil {
		logger.Info("template detector loaded", "size", b.Size().String(), "scales", len(t.tmpls), "threshold", opts.Threshold)
	}
	return t, nil
}

func prepareTemplate(img *image.NRGBA, scale float64) (grayTemplate, bool) {
	b := img.Bounds()
	gt := grayTemplate{scale: scale, w: b.Dx(), h: b.Dy()}
	var vals []float64
	var sum float64
	for y := 0; y < gt.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < gt.w; x++ {
			p := row[x*4 : x*4+4]
			if p[3] == 0 {
				continue
			}
			v := luma(p[0], p[1], p[2])
			gt.offs = append(gt.offs, y*gt.w+x)
			vals = append(vals, v)
			sum += v
		}
	}
	if len(vals) == 0 {
		return gt, false
	}
	mean := sum / float64(len(vals))
	gt.zero = make([]float64, len(vals))
	var ss float64
	for i, v := range vals {
		d := v - mean
		gt.zero[i] = d
		ss += d * d
	}
	// A flat template correlates with nothing.
	if ss <= 1e-9 {
		return gt, false
	}
	gt.norm = math.Sqrt(ss)
	return gt, true
}

func luma(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// grayPlane converts a BGR frame to luma.
func grayPlane(f *capture.Frame) []float64 {
	out := make([]float64, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			out[y*f.Width+x] = luma(row[x*3+2], row[x*3+1], row[x*3])
		}
	}
	return out
}

type match struct {
	x, y  int
	score float64
	t     *grayTemplate
}

// Detect implements Detector. Scales are scored concurrently.
func (t *Template) Detect(ctx context.Context, f *capture.Frame) ([]Box, error) {
	if f == nil {
		return nil, nil
	}
	gray := grayPlane(f)

	results := make([]match, len(t.tmpls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	for i := range t.tmpls {
		i := i
		gt := &t.tmpls[i]
		if gt.w > f.Width || gt.h > f.Height {
			results[i].score = -1
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = t.scan(ctx, gray, f.Width, f.Height, gt)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := match{score: -1}
	for _, m := range results {
		if m.t != nil && m.score > best.score {
			best = m
		}
	}
	if best.t == nil || best.score < t.opts.Threshold {
		return nil, nil
	}
	return []Box{{
		X1:    float64(best.x),
		Y1:    float64(best.y),
		X2:    float64(best.x + best.t.w),
		Y2:    float64(best.y + best.t.h),
		Score: best.score,
	}}, nil
}

// scan slides gt over the frame with the configured stride and refines
// around the best coarse window.
func (t *Template) scan(ctx context.Context, gray []float64, fw, fh int, gt *grayTemplate) match {
	best := match{score: -1, t: gt}
	stride := t.opts.Stride
	for y := 0; y <= fh-gt.h; y += stride {
		if ctx.Err() != nil {
			return best
		}
		for x := 0; x <= fw-gt.w; x += stride {
			if s := ncc(gray, fw, x, y, gt); s > best.score {
				best.x, best.y, best.score = x, y, s
			}
		}
	}
	if stride > 1 && best.score > -1 {
		x0, x1 := max(0, best.x-stride), min(fw-gt.w, best.x+stride)
		y0, y1 := max(0, best.y-stride), min(fh-gt.h, best.y+stride)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if s := ncc(gray, fw, x, y, gt); s > best.score {
					best.x, best.y, best.score = x, y, s
				}
			}
		}
	}
	return best
}

// ncc scores the window at (x, y). Flat windows score -1.
func ncc(gray []float64, fw, x, y int, gt *grayTemplate) float64 {
	var sum, sum2, dot float64
	base := y*fw + x
	for i, off := range gt.offs {
		v := gray[base+(off/gt.w)*fw+off%gt.w]
		sum += v
		sum2 += v * v
		dot += v * gt.zero[i]
	}
	n := float64(len(gt.offs))
	ss := sum2 - sum*sum/n
	if ss <= 1e-9 {
		return -1
	}
	return dot / (math.Sqrt(ss) * gt.norm)
}

// Close implements Detector.
func (t *Template) Close() error { return nil }
