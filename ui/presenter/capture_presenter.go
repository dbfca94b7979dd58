package presenter

import (
	"github.com/soocke/pixel-overlay-go/domain/engine"
)

// DetectionControl narrows what the presenter needs from the control loop.
type DetectionControl interface {
	State() engine.State
	Enable() bool
	Disable() bool
	Pause() bool
	Resume() bool
}

// CaptureView updates UI elements affected by detection and capture toggling.
type CaptureView interface {
	SetDetectionButton(active bool)
	SetPaused(paused bool)
	PreviewReset()
}

// CapturePresenter owns presentation logic for switching detection on and
// off and for pausing capture.
type CapturePresenter struct {
	loop DetectionControl
	view CaptureView
}

func NewCapturePresenter(loop DetectionControl, view CaptureView) *CapturePresenter {
	return &CapturePresenter{loop: loop, view: view}
}

// Enable switches detection on. Idempotent.
func (c *CapturePresenter) Enable() {
	if c == nil || c.loop == nil || c.view == nil {
		return
	}
	if c.loop.State() == engine.StateActive {
		return
	}
	if c.loop.Enable() {
		c.view.SetDetectionButton(true)
	}
}

// Disable switches detection off. Idempotent.
func (c *CapturePresenter) Disable() {
	if c == nil || c.loop == nil || c.view == nil {
		return
	}
	if c.loop.State() != engine.StateActive {
		return
	}
	if c.loop.Disable() {
		c.view.SetDetectionButton(false)
	}
}

// Toggle flips detection delegating to Enable/Disable. While paused it
// resumes capture first.
func (c *CapturePresenter) Toggle() {
	if c == nil || c.loop == nil || c.view == nil {
		return
	}
	switch c.loop.State() {
	case engine.StateActive:
		c.Disable()
	case engine.StateIdle:
		c.TogglePause()
		c.Enable()
	default:
		c.Enable()
	}
}

// TogglePause stops or restarts capture; detection is switched off while
// paused.
func (c *CapturePresenter) TogglePause() {
	if c == nil || c.loop == nil || c.view == nil {
		return
	}
	if c.loop.State() == engine.StateIdle {
		if c.loop.Resume() {
			c.view.SetPaused(false)
		}
		return
	}
	if c.loop.Pause() {
		c.view.SetPaused(true)
		c.view.SetDetectionButton(false)
		c.view.PreviewReset()
	}
}
