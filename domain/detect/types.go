package detect

import (
	"context"
	"errors"
	"math"

	"github.com/soocke/pixel-overlay-go/domain/capture"
)

var (
	// ErrDetectorUnavailable marks a detection backend that cannot be loaded.
	// It is fatal at startup.
	ErrDetectorUnavailable = errors.New("detect: detector unavailable")
	// ErrClosed is returned by Detect after Close.
	ErrClosed = errors.New("detect: detector closed")
)

// Box is an axis-aligned bounding box in frame pixel coordinates. Consumers
// assume X1<X2 and Y1<Y2; the producer does not enforce it.
type Box struct {
	X1, Y1, X2, Y2 float64
	Score          float64 // confidence, zero when the backend does not report it
}

// Center returns the box midpoint.
func (b Box) Center() (x, y float64) { return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2 }

// BoxFromCoords builds a box from a detector coordinate tuple
// [x1, y1, x2, y2, (score)]. ok is false for tuples shorter than four values
// or containing NaN/Inf.
func BoxFromCoords(c []float64) (Box, bool) {
	if len(c) < 4 {
		return Box{}, false
	}
	for _, v := range c[:4] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Box{}, false
		}
	}
	b := Box{X1: c[0], Y1: c[1], X2: c[2], Y2: c[3]}
	if len(c) > 4 && !math.IsNaN(c[4]) && !math.IsInf(c[4], 0) {
		b.Score = c[4]
	}
	return b, true
}

// ParseBoxes converts raw coordinate tuples, skipping degenerate entries
// without failing the batch.
func ParseBoxes(raw [][]float64) []Box {
	out := make([]Box, 0, len(raw))
	for _, c := range raw {
		if b, ok := BoxFromCoords(c); ok {
			out = append(out, b)
		}
	}
	return out
}

// Detector is the object detection capability. Detect must not retain f.
type Detector interface {
	Detect(ctx context.Context, f *capture.Frame) ([]Box, error)
	Close() error
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, f *capture.Frame) ([]Box, error)

func (fn DetectorFunc) Detect(ctx context.Context, f *capture.Frame) ([]Box, error) {
	return fn(ctx, f)
}

func (DetectorFunc) Close() error { return nil }
