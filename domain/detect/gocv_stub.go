//go:build !gocv

package detect

import (
	"fmt"
	"log/slog"
)

// NewGoCV reports ErrDetectorUnavailable in builds without the gocv tag.
func NewGoCV(path string, _, _ float64, _ *slog.Logger) (Detector, error) {
	return nil, fmt.Errorf("%w: gocv backend not compiled in (build with -tags gocv) for model %s", ErrDetectorUnavailable, path)
}
