package view

import (
	"image"

	"github.com/soocke/pixel-overlay-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the annotated frame and the target close-up. It owns
// two LabelWidgets and provides methods to update or reset them.
type CapturePreview interface {
	UpdateCapture(img image.Image)
	UpdateTarget(img image.Image)
	Reset()
}

type capturePreview struct {
	captureLabel *LabelWidget
	targetLabel  *LabelWidget
	maxW, maxH   int
	// Previous photos are deleted before replacement so Tk does not keep
	// every frame alive.
	capturePhoto *Img
	targetPhoto  *Img
}

const (
	previewW = 400
	previewH = 300
	zoomSide = 96
)

// NewCapturePreview creates the preview labels inside parent at row.
// Layout: annotated frame spans columns 0-2; the close-up sits at column 3.
func NewCapturePreview(parent *FrameWidget, row int) CapturePreview {
	v := &capturePreview{maxW: previewW, maxH: previewH}
	v.capturePhoto = placeholder(previewW/2, previewH/2)
	v.targetPhoto = placeholder(zoomSide, zoomSide)
	v.captureLabel = parent.Label(Image(v.capturePhoto), Borderwidth(1), Relief("sunken"))
	v.targetLabel = parent.Label(Image(v.targetPhoto), Borderwidth(1), Relief("sunken"))
	Grid(v.captureLabel, Row(row), Column(0), Columnspan(3), Sticky("nw"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.targetLabel, Row(row), Column(3), Sticky("nw"), Padx("0.4m"), Pady("0.4m"))
	return v
}

func placeholder(w, h int) *Img {
	return NewPhoto(Data(images.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))))
}

func (v *capturePreview) UpdateCapture(img image.Image) {
	if v.captureLabel == nil || img == nil {
		return
	}
	scaled := images.ScaleToFit(img, v.maxW, v.maxH)
	if v.capturePhoto != nil {
		v.capturePhoto.Delete()
	}
	v.capturePhoto = NewPhoto(Data(images.EncodePNG(scaled)))
	v.captureLabel.Configure(Image(v.capturePhoto))
}

func (v *capturePreview) UpdateTarget(img image.Image) {
	if v.targetLabel == nil {
		return
	}
	if v.targetPhoto != nil {
		v.targetPhoto.Delete()
	}
	if img == nil {
		v.targetPhoto = placeholder(zoomSide, zoomSide)
	} else {
		v.targetPhoto = NewPhoto(Data(images.EncodePNG(img)))
	}
	v.targetLabel.Configure(Image(v.targetPhoto))
}

func (v *capturePreview) Reset() {
	if v.captureLabel != nil {
		if v.capturePhoto != nil {
			v.capturePhoto.Delete()
		}
		v.capturePhoto = placeholder(previewW/2, previewH/2)
		v.captureLabel.Configure(Image(v.capturePhoto))
	}
	v.UpdateTarget(nil)
}
