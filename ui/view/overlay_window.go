package view

import (
	"runtime"
	"strconv"

	"github.com/soocke/pixel-overlay-go/domain/geometry"
	"github.com/soocke/pixel-overlay-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// OverlayHandlers are the callbacks wired to the overlay window.
type OverlayHandlers struct {
	OnPress   func()
	OnDrag    func()
	OnRelease func()
	OnHover   func()
	OnMoved   func(g geometry.Geometry)
	OnToggle  func()
	OnQuit    func()
}

// OverlayWindow is the topmost, see-through window whose geometry defines
// the capture region. The bottom control area holds the detection toggle and
// Quit buttons.
type OverlayWindow struct {
	win       *ToplevelWidget
	toggleBtn *ButtonWidget
	border    string
	cursor    string
}

// NewOverlayWindow builds the window at g. controlArea is the height of the
// bottom button strip.
func NewOverlayWindow(g geometry.Geometry, controlArea int, h OverlayHandlers) *OverlayWindow {
	v := &OverlayWindow{border: theme.ColorBorder, cursor: "arrow"}
	win := App.Toplevel(Background(theme.ColorBorder))
	win.WmTitle("Pixel Overlay")
	v.win = win
	WmGeometry(win.Window, g.String())
	WmAttributes(win.Window, "-topmost", 1)
	if runtime.GOOS == "windows" {
		WmAttributes(win.Window, "-transparentcolor", theme.ColorTransparent)
	} else {
		WmAttributes(win.Window, "-alpha", 0.35)
	}
	GridRowConfigure(win.Window, 0, Weight(1))
	GridRowConfigure(win.Window, 1, Weight(0))
	GridColumnConfigure(win.Window, 0, Weight(1))

	bw := strconv.Itoa(theme.BorderWidth)
	interior := win.Frame(Background(theme.ColorTransparent))
	Grid(interior, Row(0), Column(0), Sticky("nsew"), Padx(bw), Pady(bw))

	controls := win.Frame(Height(controlArea), Background(theme.ColorSurface))
	Grid(controls, Row(1), Column(0), Sticky("we"), Padx(bw), Pady(bw))
	GridColumnConfigure(controls.Window, 0, Weight(1))
	GridColumnConfigure(controls.Window, 1, Weight(1))
	text, color := theme.DetectionButton(false)
	v.toggleBtn = controls.Button(Txt(text), Background(color), Foreground("white"), Command(handler(h.OnToggle)))
	Grid(v.toggleBtn, Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	quit := controls.Button(Txt("Quit"), Background(theme.ColorStop), Foreground("white"), Command(handler(h.OnQuit)))
	Grid(quit, Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	Bind(win, "<ButtonPress-1>", Command(handler(h.OnPress)))
	Bind(win, "<B1-Motion>", Command(handler(h.OnDrag)))
	Bind(win, "<ButtonRelease-1>", Command(handler(h.OnRelease)))
	Bind(win, "<Motion>", Command(handler(h.OnHover)))
	if h.OnMoved != nil {
		Bind(win, "<Configure>", Command(func() {
			if g, ok := geometry.Parse(WmGeometry(win.Window)); ok {
				h.OnMoved(g)
			}
		}))
	}
	WmProtocol(win.Window, "WM_DELETE_WINDOW", handler(h.OnQuit))
	return v
}

func handler(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}

// SetGeometry moves and resizes the window.
func (v *OverlayWindow) SetGeometry(g geometry.Geometry) {
	if v == nil || v.win == nil {
		return
	}
	WmGeometry(v.win.Window, g.String())
}

// SetPointerFeedback updates the cursor shape and border color for the
// hovered or dragged edge.
func (v *OverlayWindow) SetPointerFeedback(edge geometry.Edge, moving bool) {
	if v == nil || v.win == nil {
		return
	}
	if c := cursorFor(edge, moving); c != v.cursor {
		v.cursor = c
		v.win.Configure(Cursor(c))
	}
	if b := theme.BorderColor(edge, moving); b != v.border {
		v.border = b
		v.win.Configure(Background(b))
	}
}

// SetDetectionButton shows "Stop Detection" (red) while active and "Start
// Detection" (green) otherwise.
func (v *OverlayWindow) SetDetectionButton(active bool) {
	if v == nil || v.toggleBtn == nil {
		return
	}
	text, color := theme.DetectionButton(active)
	v.toggleBtn.Configure(Txt(text), Background(color))
}

// Destroy closes the window.
func (v *OverlayWindow) Destroy() {
	if v != nil && v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

// cursorFor maps an edge tag to a Tk cursor name.
func cursorFor(edge geometry.Edge, moving bool) string {
	switch edge {
	case geometry.EdgeLeft, geometry.EdgeRight:
		return "sb_h_double_arrow"
	case geometry.EdgeTop, geometry.EdgeBottom:
		return "sb_v_double_arrow"
	case geometry.EdgeTopLeft:
		return "top_left_corner"
	case geometry.EdgeTopRight:
		return "top_right_corner"
	case geometry.EdgeBottomLeft:
		return "bottom_left_corner"
	case geometry.EdgeBottomRight:
		return "bottom_right_corner"
	}
	if moving {
		return "fleur"
	}
	return "arrow"
}
