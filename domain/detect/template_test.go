package detect

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/pixel-overlay-go/domain/capture"
)

func patternValue(x, y int) uint8 { return uint8((x*37 + y*91 + x*y*5) % 251) }

func patternTemplate(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := patternValue(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	// Transparent corner is ignored by the matcher.
	img.SetNRGBA(0, 0, color.NRGBA{})
	return img
}

// frameWithPatch renders a noisy background and pastes the pattern at at.
func frameWithPatch(w, h int, at image.Point, pw, ph int) *capture.Frame {
	f := testFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*13 ^ y*29) % 256)
			px, py := x-at.X, y-at.Y
			if px >= 0 && py >= 0 && px < pw && py < ph {
				v = patternValue(px, py)
			}
			i := y*f.Stride + x*3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = v, v, v
		}
	}
	return f
}

func TestTemplate_FindsPatch(t *testing.T) {
	tm, err := NewTemplate(patternTemplate(12, 10), TemplateOptions{Threshold: 0.9, MinScale: 1, MaxScale: 1, ScaleStep: 0.05}, discardLogger())
	require.NoError(t, err)
	defer tm.Close()

	boxes, err := tm.Detect(context.Background(), frameWithPatch(80, 60, image.Pt(30, 20), 12, 10))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, Box{X1: 30, Y1: 20, X2: 42, Y2: 30, Score: boxes[0].Score}, boxes[0])
	assert.InDelta(t, 1.0, boxes[0].Score, 1e-6)
}

func TestTemplate_StrideStillLandsOnPatch(t *testing.T) {
	tm, err := NewTemplate(patternTemplate(12, 10), TemplateOptions{Threshold: 0.9, MinScale: 1, MaxScale: 1, ScaleStep: 0.05, Stride: 2}, nil)
	require.NoError(t, err)
	boxes, err := tm.Detect(context.Background(), frameWithPatch(80, 60, image.Pt(30, 20), 12, 10))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	x, y := boxes[0].Center()
	assert.Equal(t, 36.0, x)
	assert.Equal(t, 25.0, y)
}

func TestTemplate_FlatFrameHasNoMatch(t *testing.T) {
	tm, err := NewTemplate(patternTemplate(12, 10), TemplateOptions{}, nil)
	require.NoError(t, err)
	boxes, err := tm.Detect(context.Background(), testFrame(64, 48))
	require.NoError(t, err)
	assert.Empty(t, boxes)

	boxes, err = tm.Detect(context.Background(), testFrame(4, 4))
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestTemplate_FlatTemplateIsUnavailable(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	_, err := NewTemplate(img, TemplateOptions{}, nil)
	assert.ErrorIs(t, err, ErrDetectorUnavailable)
}

func TestTemplate_CancelledContext(t *testing.T) {
	tm, err := NewTemplate(patternTemplate(12, 10), TemplateOptions{MinScale: 1, MaxScale: 1, ScaleStep: 0.1}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tm.Detect(ctx, frameWithPatch(80, 60, image.Pt(5, 5), 12, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemplateOptions_Scales(t *testing.T) {
	s := TemplateOptions{MinScale: 0.8, MaxScale: 1.2, ScaleStep: 0.1}.normalized().scales()
	require.Len(t, s, 5)
	assert.InDelta(t, 0.8, s[0], 1e-9)
	assert.InDelta(t, 1.2, s[4], 1e-9)
	assert.Len(t, TemplateOptions{}.normalized().scales(), 11)
}
