package view

import (
	"fmt"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/engine"
	"github.com/soocke/pixel-overlay-go/ui/presenter"
	"github.com/soocke/pixel-overlay-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ResultsWindow is the root window: it shows the annotated detection
// preview, the loop state and session counters, and a pause button.
type ResultsWindow struct {
	Session     SessionStats
	CapturePrev CapturePreview

	StateLabel *TLabelWidget
	TargetInfo *LabelWidget
	pauseBtn   *ButtonWidget
}

// NewResultsWindow returns an unbuilt window.
func NewResultsWindow() *ResultsWindow { return &ResultsWindow{} }

// Build constructs the layout on the Tk root. Handlers are invoked on user
// actions.
func (rv *ResultsWindow) Build(title string, onPause func(), onExit func()) {
	if rv == nil {
		return
	}
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", handler(onExit))

	top := App.Frame()
	Grid(top, Row(0), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.StateLabel = top.TLabel(Txt("State: idle"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(0), Column(0), Sticky("w"), Padx("0.2m"))
	rv.pauseBtn = top.Button(Txt("Pause Capture"), Command(handler(onPause)))
	Grid(rv.pauseBtn, Row(0), Column(1), Sticky("e"), Padx("0.2m"))
	exitBtn := top.Button(Txt("Exit"), Command(handler(onExit)))
	Grid(exitBtn, Row(0), Column(2), Sticky("e"), Padx("0.2m"))
	rv.Session = NewSessionStats(top, 1, 0)

	body := App.Frame()
	Grid(body, Row(1), Column(0), Sticky("nsew"), Padx("0.4m"), Pady("0.3m"))
	rv.CapturePrev = NewCapturePreview(body, 0)
	rv.TargetInfo = body.Label(Txt("Target: <none>"), Anchor("w"))
	Grid(rv.TargetInfo, Row(1), Column(0), Columnspan(4), Sticky("w"))
}

// SetStateLabel updates the state label text.
func (rv *ResultsWindow) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetSession updates the session and total durations.
func (rv *ResultsWindow) SetSession(session, total time.Duration) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetSession(session, total)
	}
}

// SetStats updates the loop counters.
func (rv *ResultsWindow) SetStats(s engine.Stats) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetStats(s)
	}
}

// UpdatePreview shows a rendered frame and its target close-up.
func (rv *ResultsWindow) UpdatePreview(r *presenter.Rendered) {
	if rv == nil || rv.CapturePrev == nil || r == nil {
		return
	}
	rv.CapturePrev.UpdateCapture(r.Image)
	rv.CapturePrev.UpdateTarget(r.Target)
	if rv.TargetInfo == nil {
		return
	}
	if r.Ann.HasTarget {
		cx, cy := r.Ann.Target.Center()
		rv.TargetInfo.Configure(Txt(fmt.Sprintf("Target: (%.0f, %.0f) score %.2f", cx, cy, r.Ann.Target.Score)))
	} else {
		rv.TargetInfo.Configure(Txt("Target: <none>"))
	}
}

// PreviewReset clears the preview.
func (rv *ResultsWindow) PreviewReset() {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.Reset()
	}
	if rv != nil && rv.TargetInfo != nil {
		rv.TargetInfo.Configure(Txt("Target: <none>"))
	}
}

// SetPaused flips the pause button caption.
func (rv *ResultsWindow) SetPaused(paused bool) {
	if rv == nil || rv.pauseBtn == nil {
		return
	}
	if paused {
		rv.pauseBtn.Configure(Txt("Resume Capture"))
		return
	}
	rv.pauseBtn.Configure(Txt("Pause Capture"))
}
