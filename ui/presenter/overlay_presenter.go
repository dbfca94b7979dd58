package presenter

import (
	"image"
	"log/slog"

	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

// PointerLocator reports the pointer position in screen coordinates.
type PointerLocator interface {
	Location() (x, y int, err error)
}

// OverlayView is the overlay window surface driven by pointer input.
type OverlayView interface {
	SetGeometry(g geometry.Geometry)
	SetPointerFeedback(edge geometry.Edge, moving bool)
}

// OverlayPresenter turns pointer events on the overlay window into damped
// geometry updates. Tk callbacks carry no coordinates we rely on; the
// pointer is read from the OS in screen space, the same space the geometry
// lives in. All methods run on the Tk thread.
type OverlayPresenter struct {
	ctrl        *geometry.Controller
	pointer     PointerLocator
	view        OverlayView
	controlArea int
	logger      *slog.Logger

	hover geometry.Edge
}

// NewOverlayPresenter binds ctrl to view. Presses inside the bottom
// controlArea pixels (the buttons) start no drag unless they hit an edge.
func NewOverlayPresenter(ctrl *geometry.Controller, pointer PointerLocator, view OverlayView, controlArea int, logger *slog.Logger) *OverlayPresenter {
	return &OverlayPresenter{ctrl: ctrl, pointer: pointer, view: view, controlArea: controlArea, logger: logger}
}

func (p *OverlayPresenter) locate() (image.Point, bool) {
	if p == nil || p.pointer == nil {
		return image.Point{}, false
	}
	x, y, err := p.pointer.Location()
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("pointer location", "error", err)
		}
		return image.Point{}, false
	}
	return image.Pt(x, y), true
}

// Press handles a primary button press.
func (p *OverlayPresenter) Press() {
	if pt, ok := p.locate(); ok {
		p.PressAt(pt)
	}
}

// Drag handles pointer motion with the primary button held.
func (p *OverlayPresenter) Drag() {
	if pt, ok := p.locate(); ok {
		p.DragTo(pt)
	}
}

// Hover handles pointer motion without a button held.
func (p *OverlayPresenter) Hover() {
	if pt, ok := p.locate(); ok {
		p.HoverAt(pt)
	}
}

// PressAt starts a resize when pt is on an edge, otherwise a move.
func (p *OverlayPresenter) PressAt(pt image.Point) {
	if p == nil || p.ctrl == nil {
		return
	}
	g := p.ctrl.Snapshot()
	if p.ctrl.Classify(pt) == geometry.EdgeNone && p.controlArea > 0 && pt.Y >= g.Y+g.Height-p.controlArea {
		return
	}
	edge := p.ctrl.Press(pt)
	p.feedback(edge, edge == geometry.EdgeNone)
}

// DragTo applies one damped step toward pt and pushes the new geometry.
func (p *OverlayPresenter) DragTo(pt image.Point) {
	if p == nil || p.ctrl == nil {
		return
	}
	if g, changed := p.ctrl.Drag(pt); changed && p.view != nil {
		p.view.SetGeometry(g)
	}
}

// Release ends the drag.
func (p *OverlayPresenter) Release() {
	if p == nil || p.ctrl == nil {
		return
	}
	p.ctrl.Release()
	p.hover = geometry.EdgeNone
	p.feedback(geometry.EdgeNone, false)
}

// HoverAt updates cursor and border feedback for the edge under pt.
func (p *OverlayPresenter) HoverAt(pt image.Point) {
	if p == nil || p.ctrl == nil {
		return
	}
	if _, dragging := p.ctrl.Active(); dragging {
		return
	}
	if edge := p.ctrl.Classify(pt); edge != p.hover {
		p.hover = edge
		p.feedback(edge, false)
	}
}

// Moved adopts a geometry reported by the window manager (e.g. the user
// moved the window by other means). Ignored while a drag is in progress.
func (p *OverlayPresenter) Moved(g geometry.Geometry) {
	if p == nil || p.ctrl == nil {
		return
	}
	if _, dragging := p.ctrl.Active(); dragging {
		return
	}
	if g != p.ctrl.Snapshot() {
		p.ctrl.Set(g)
	}
}

func (p *OverlayPresenter) feedback(edge geometry.Edge, moving bool) {
	if p.view != nil {
		p.view.SetPointerFeedback(edge, moving)
	}
}
