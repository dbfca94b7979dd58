//go:build gocv

package detect

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/soocke/pixel-overlay-go/domain/capture"
)

const yoloInputSize = 640

// GoCV runs a YOLO ONNX export in-process through OpenCV's DNN module.
// Built only with -tags gocv since it needs a local OpenCV install.
type GoCV struct {
	mu     sync.Mutex
	net    gocv.Net
	conf   float32
	iou    float32
	logger *slog.Logger
	closed bool
}

// NewGoCV loads the ONNX model at path.
func NewGoCV(path string, conf, iou float64, logger *slog.Logger) (Detector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrDetectorUnavailable, path, err)
	}
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot load ONNX model %s", ErrDetectorUnavailable, path)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	if logger != nil {
		logger.Info("gocv detector loaded", "model", path)
	}
	return &GoCV{net: net, conf: float32(conf), iou: float32(iou), logger: logger}, nil
}

func (d *GoCV) Detect(ctx context.Context, f *capture.Frame) ([]Box, error) {
	if f == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	img, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return decodeYOLO(data, dims[1], dims[2], f.Width, f.Height, d.conf, d.iou), nil
}

// decodeYOLO reads a channel-major [channels, n] YOLOv8/11 head: cx, cy, w,
// h followed by one score per class.
func decodeYOLO(data []float32, channels, n, frameW, frameH int, conf, iou float32) []Box {
	sx := float64(frameW) / yoloInputSize
	sy := float64(frameH) / yoloInputSize
	var (
		rects  []image.Rectangle
		scores []float32
		boxes  []Box
	)
	for i := 0; i < n; i++ {
		var best float32
		for c := 4; c < channels; c++ {
			if s := data[c*n+i]; s > best {
				best = s
			}
		}
		if best < conf {
			continue
		}
		cx, cy := float64(data[i]), float64(data[n+i])
		w, h := float64(data[2*n+i]), float64(data[3*n+i])
		b := Box{
			X1:    (cx - w/2) * sx,
			Y1:    (cy - h/2) * sy,
			X2:    (cx + w/2) * sx,
			Y2:    (cy + h/2) * sy,
			Score: float64(best),
		}
		boxes = append(boxes, b)
		rects = append(rects, image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)))
		scores = append(scores, best)
	}
	if len(boxes) == 0 {
		return nil
	}
	keep := gocv.NMSBoxes(rects, scores, conf, iou)
	out := make([]Box, 0, len(keep))
	for _, k := range keep {
		out = append(out, boxes[k])
	}
	return out
}

func (d *GoCV) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
