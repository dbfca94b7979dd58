package app

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/trigger"
)

// CursorTest exercises the trigger and cursor movement without capture or
// detection: every press of Key moves the cursor to Target. A press of
// ExitKey, when set, ends the run.
type CursorTest struct {
	Keys     trigger.Source
	Mover    action.Mover
	Key      string
	ExitKey  string
	Target   image.Point
	Duration time.Duration
	Logger   *slog.Logger
}

// Run listens until ctx is done or ExitKey is pressed and returns the number
// of moves made.
func (t CursorTest) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	presses := make(chan struct{}, 1)
	l := trigger.NewListener(t.Keys, t.Key, false, func() {
		select {
		case presses <- struct{}{}:
		default:
		}
	}, t.Logger)
	if err := l.Start(); err != nil {
		return 0, err
	}
	defer l.Stop()
	if t.ExitKey != "" {
		exit := trigger.NewListener(t.Keys, t.ExitKey, false, cancel, t.Logger)
		if err := exit.Start(); err != nil {
			return 0, err
		}
		defer exit.Stop()
	}
	if t.Logger != nil {
		t.Logger.Info("cursor test ready", "key", trigger.NormalizeKey(t.Key), "exit_key", trigger.NormalizeKey(t.ExitKey), "target", t.Target.String())
	}

	moves := 0
	for {
		select {
		case <-ctx.Done():
			return moves, nil
		case <-presses:
		}
		if err := t.Mover.MoveTo(ctx, t.Target.X, t.Target.Y, t.Duration); err != nil {
			if ctx.Err() != nil {
				return moves, nil
			}
			if t.Logger != nil {
				t.Logger.Error("cursor move", "error", err)
			}
			continue
		}
		moves++
		if t.Logger != nil {
			t.Logger.Info("cursor moved", "x", t.Target.X, "y", t.Target.Y, "moves", moves)
		}
	}
}
