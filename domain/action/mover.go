package action

import (
	"context"
	"fmt"
	"math"
	"time"
)

const defaultMoveStep = 5 * time.Millisecond

// Pointer is the raw OS cursor primitive.
type Pointer interface {
	Location() (x, y int, err error)
	SetPosition(x, y int) error
}

// EaseOutMover walks the cursor to its destination in small steps following
// an ease-out curve: fast at first, slowing on approach.
type EaseOutMover struct {
	pointer Pointer
	step    time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewEaseOutMover returns a mover driving pointer.
func NewEaseOutMover(pointer Pointer) *EaseOutMover {
	return &EaseOutMover{pointer: pointer, step: defaultMoveStep, sleep: sleepCtx}
}

// MoveTo moves to (x, y) over d. A zero duration jumps directly. The final
// position is always set exactly; cancellation stops the walk early.
func (m *EaseOutMover) MoveTo(ctx context.Context, x, y int, d time.Duration) error {
	sx, sy, err := m.pointer.Location()
	if err != nil || d <= 0 {
		return m.set(x, y)
	}
	n := int(d / m.step)
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		e := easeOutQuad(float64(i) / float64(n))
		px := sx + int(math.Round(float64(x-sx)*e))
		py := sy + int(math.Round(float64(y-sy)*e))
		if err := m.set(px, py); err != nil {
			return err
		}
		if i < n {
			if err := m.sleep(ctx, m.step); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *EaseOutMover) set(x, y int) error {
	if err := m.pointer.SetPosition(x, y); err != nil {
		return fmt.Errorf("set cursor (%d,%d): %w", x, y, err)
	}
	return nil
}

func easeOutQuad(t float64) float64 { return t * (2 - t) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
