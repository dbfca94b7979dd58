// Package shell runs the Tk user interface around a built container: the
// results window, the overlay window and the periodic UI refresh.
package shell

import (
	"context"
	"sync"
	"time"

	"github.com/soocke/pixel-overlay-go/app"
	"github.com/soocke/pixel-overlay-go/domain/geometry"
	"github.com/soocke/pixel-overlay-go/ui/model"
	"github.com/soocke/pixel-overlay-go/ui/presenter"
	"github.com/soocke/pixel-overlay-go/ui/theme"
	"github.com/soocke/pixel-overlay-go/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const uiTick = 33 * time.Millisecond

type shell struct {
	ctx     context.Context
	c       *app.Container
	results *view.ResultsWindow
	overlay *view.OverlayWindow
	capture *presenter.CapturePresenter
	loop    *presenter.Loop
	afterID string

	quitOnce sync.Once
}

// captureView fans capture presenter updates out to both windows.
type captureView struct {
	overlay *view.OverlayWindow
	results *view.ResultsWindow
}

func (v captureView) SetDetectionButton(active bool) { v.overlay.SetDetectionButton(active) }
func (v captureView) SetPaused(paused bool)          { v.results.SetPaused(paused) }
func (v captureView) PreviewReset()                  { v.results.PreviewReset() }

// Run builds both windows, starts the control loop and blocks in the Tk
// event loop until the user quits or ctx is cancelled. It must be called
// from the main goroutine.
func Run(ctx context.Context, c *app.Container, title string) error {
	s := &shell{ctx: ctx, c: c}
	theme.InitStyles()

	s.results = view.NewResultsWindow()
	s.results.Build(title, s.togglePause, s.quit)

	var op *presenter.OverlayPresenter
	s.overlay = view.NewOverlayWindow(c.Geometry.Snapshot(), c.Config.ControlAreaHeight, view.OverlayHandlers{
		OnPress:   func() { op.Press() },
		OnDrag:    func() { op.Drag() },
		OnRelease: func() { op.Release() },
		OnHover:   func() { op.Hover() },
		OnMoved:   func(g geometry.Geometry) { op.Moved(g) },
		OnToggle:  s.toggleDetection,
		OnQuit:    s.quit,
	})
	op = presenter.NewOverlayPresenter(c.Geometry, c.Pointer, s.overlay, c.Config.ControlAreaHeight, c.Logger.With("component", "overlay"))

	s.capture = presenter.NewCapturePresenter(c.Engine, captureView{overlay: s.overlay, results: s.results})
	state := presenter.NewStatePresenter(s.results)
	c.Engine.AddListener(state.OnState)
	sess := presenter.NewSessionPresenter(model.NewSessionModel(), c.Engine, c.Engine, s.results)
	s.loop = presenter.NewLoop(state, sess, c.Sink, s.results, s.schedule)

	if err := c.Start(ctx); err != nil {
		s.overlay.Destroy()
		Destroy(App)
		return err
	}
	c.Logger.Info("overlay running", "run_id", c.Engine.RunID(), "geometry", c.Geometry.Snapshot().String())
	s.schedule()
	App.Wait()
	return c.Shutdown()
}

func (s *shell) schedule() {
	s.afterID = TclAfter(uiTick, s.update)
}

func (s *shell) update() {
	if s.ctx.Err() != nil {
		s.quit()
		return
	}
	select {
	case <-s.c.Engine.Done():
		s.quit()
		return
	default:
	}
	s.loop.Tick()
}

func (s *shell) toggleDetection() { s.capture.Toggle() }

func (s *shell) togglePause() { s.capture.TogglePause() }

// quit stops the control loop, then tears down the windows. Repeated calls
// (button plus window close) are ignored.
func (s *shell) quit() {
	s.quitOnce.Do(func() {
		if s.afterID != "" {
			TclAfterCancel(s.afterID)
		}
		if err := s.c.Shutdown(); err != nil {
			s.c.Logger.Warn("shutdown", "error", err)
		}
		s.overlay.Destroy()
		Destroy(App)
	})
}
