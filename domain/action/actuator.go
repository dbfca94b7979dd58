package action

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/detect"
)

// Outcome reports what a Tick did.
type Outcome int

const (
	Skipped Outcome = iota
	Moved
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Mover relocates the OS cursor to (x, y), spreading the motion over d.
type Mover interface {
	MoveTo(ctx context.Context, x, y int, d time.Duration) error
}

// MoverFunc adapts a function to Mover.
type MoverFunc func(ctx context.Context, x, y int, d time.Duration) error

func (f MoverFunc) MoveTo(ctx context.Context, x, y int, d time.Duration) error {
	return f(ctx, x, y, d)
}

// ActuatorOptions configures an Actuator.
type ActuatorOptions struct {
	MoveDuration time.Duration
}

// Actuator turns an armed trigger plus a selected target into exactly one
// damped cursor move. The trigger is consumed when the move is issued, so a
// press that arrives while the cursor is travelling arms the next move. A
// failed move is not retried.
type Actuator struct {
	trigger  Trigger
	mover    Mover
	opts     ActuatorOptions
	logger   *slog.Logger
	busy     atomic.Bool
	moves    atomic.Uint64
	failures atomic.Uint64
}

// NewActuator constructs an actuator around mover.
func NewActuator(mover Mover, opts ActuatorOptions, logger *slog.Logger) *Actuator {
	return &Actuator{mover: mover, opts: opts, logger: logger}
}

// Arm sets the one-shot trigger. Safe to call from any goroutine; arming an
// armed actuator is a no-op.
func (a *Actuator) Arm() {
	if a.trigger.Arm() && a.logger != nil {
		a.logger.Debug("actuator armed")
	}
}

// Armed reports whether the trigger is set.
func (a *Actuator) Armed() bool { return a.trigger.Armed() }

// Moves reports the number of cursor moves issued (successful or not).
func (a *Actuator) Moves() uint64 { return a.moves.Load() }

// Failures reports how many issued moves failed.
func (a *Actuator) Failures() uint64 { return a.failures.Load() }

// ScreenPoint maps a frame-local target to screen coordinates. origin is the
// screen position of the frame's top-left pixel, which for an unclipped
// capture is the window origin plus the title bar offset.
func ScreenPoint(target detect.Box, origin image.Point) image.Point {
	cx, cy := target.Center()
	return image.Pt(origin.X+int(math.Round(cx)), origin.Y+int(math.Round(cy)))
}

// Tick consumes the trigger when it is armed and a target exists, then moves
// the cursor to the target. Calls while a move is in flight are skipped and
// leave the trigger untouched.
func (a *Actuator) Tick(ctx context.Context, target detect.Box, found bool, origin image.Point) Outcome {
	if !found || !a.trigger.Armed() {
		return Skipped
	}
	if !a.busy.CompareAndSwap(false, true) {
		return Skipped
	}
	defer a.busy.Store(false)
	if !a.trigger.Clear() {
		return Skipped
	}

	p := ScreenPoint(target, origin)
	a.moves.Add(1)
	if err := a.mover.MoveTo(ctx, p.X, p.Y, a.opts.MoveDuration); err != nil {
		a.failures.Add(1)
		if a.logger != nil {
			a.logger.Error("cursor move", "x", p.X, "y", p.Y, "error", err)
		}
		return Failed
	}
	if a.logger != nil {
		a.logger.Info("cursor moved to target", "x", p.X, "y", p.Y)
	}
	return Moved
}
