package action

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/pixel-overlay-go/domain/detect"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recordingMover struct {
	mu    sync.Mutex
	calls []image.Point
	delay time.Duration
	err   error
}

func (m *recordingMover) MoveTo(ctx context.Context, x, y int, d time.Duration) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.calls = append(m.calls, image.Pt(x, y))
	m.mu.Unlock()
	return m.err
}

func (m *recordingMover) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var target = detect.Box{X1: 100, Y1: 100, X2: 110, Y2: 110}

func newActuator(m Mover) *Actuator {
	return NewActuator(m, ActuatorOptions{MoveDuration: 200 * time.Millisecond}, discardLogger())
}

func TestTrigger_CoalescesAndClearsOnce(t *testing.T) {
	var tr Trigger
	assert.True(t, tr.Arm())
	assert.False(t, tr.Arm(), "second arm before consumption is a no-op")
	assert.True(t, tr.Armed())
	assert.True(t, tr.Clear())
	assert.False(t, tr.Clear())
	assert.False(t, tr.Armed())
}

func TestActuator_SkipsWhenUnarmedOrNoTarget(t *testing.T) {
	m := &recordingMover{}
	a := newActuator(m)
	assert.Equal(t, Skipped, a.Tick(context.Background(), target, true, image.Pt(0, 0)))

	a.Arm()
	assert.Equal(t, Skipped, a.Tick(context.Background(), detect.Box{}, false, image.Pt(0, 0)))
	assert.True(t, a.Armed(), "no target leaves the trigger armed")
	assert.Zero(t, m.count())
}

func TestActuator_OneMovePerArm(t *testing.T) {
	m := &recordingMover{}
	a := newActuator(m)
	a.Arm()
	a.Arm()
	assert.Equal(t, Moved, a.Tick(context.Background(), target, true, image.Pt(100, 100)))
	assert.Equal(t, Skipped, a.Tick(context.Background(), target, true, image.Pt(100, 100)))
	assert.Equal(t, Skipped, a.Tick(context.Background(), target, true, image.Pt(100, 100)))
	require.Equal(t, 1, m.count())
	assert.Equal(t, image.Pt(205, 205), m.calls[0])
	assert.False(t, a.Armed())

	a.Arm()
	assert.Equal(t, Moved, a.Tick(context.Background(), target, true, image.Pt(0, 0)))
	assert.Equal(t, 2, m.count())
}

func TestActuator_ConcurrentTicksDuringMoveIssueOneMove(t *testing.T) {
	m := &recordingMover{delay: 50 * time.Millisecond}
	a := newActuator(m)
	a.Arm()

	var moved atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Tick(context.Background(), target, true, image.Pt(0, 0)) == Moved {
				moved.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), moved.Load())
	assert.Equal(t, 1, m.count())
}

func TestActuator_FailureClearsTrigger(t *testing.T) {
	m := &recordingMover{err: errors.New("no display")}
	a := newActuator(m)
	a.Arm()
	assert.Equal(t, Failed, a.Tick(context.Background(), target, true, image.Pt(0, 0)))
	assert.False(t, a.Armed(), "a failed move must not retry")
	assert.Equal(t, Skipped, a.Tick(context.Background(), target, true, image.Pt(0, 0)))
	assert.Equal(t, uint64(1), a.Moves())
	assert.Equal(t, uint64(1), a.Failures())
}

func TestScreenPoint_RoundsCenterFromFrameOrigin(t *testing.T) {
	p := ScreenPoint(detect.Box{X1: 0, Y1: 0, X2: 5, Y2: 3}, image.Pt(10, 20))
	assert.Equal(t, image.Pt(13, 22), p) // center (2.5,1.5) rounds half away from zero
}

// gateMover blocks each move until released.
type gateMover struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (m *gateMover) MoveTo(ctx context.Context, x, y int, d time.Duration) error {
	m.calls.Add(1)
	m.started <- struct{}{}
	<-m.release
	return nil
}

func TestActuator_PressDuringMoveArmsNextMove(t *testing.T) {
	m := &gateMover{started: make(chan struct{}, 1), release: make(chan struct{})}
	a := newActuator(m)
	a.Arm()

	done := make(chan Outcome, 1)
	go func() { done <- a.Tick(context.Background(), target, true, image.Pt(0, 0)) }()
	<-m.started
	assert.False(t, a.Armed(), "trigger is consumed when the move is issued")

	a.Arm()
	assert.Equal(t, Skipped, a.Tick(context.Background(), target, true, image.Pt(0, 0)), "no overlapping move")
	assert.True(t, a.Armed(), "a skipped tick keeps the new press")
	close(m.release)
	require.Equal(t, Moved, <-done)

	assert.True(t, a.Armed(), "press during the move survives it")
	assert.Equal(t, Moved, a.Tick(context.Background(), target, true, image.Pt(0, 0)))
	assert.Equal(t, int32(2), m.calls.Load())
	assert.Equal(t, uint64(2), a.Moves())
}

type fakePointer struct {
	x, y    int
	path    []image.Point
	failLoc bool
}

func (p *fakePointer) Location() (int, int, error) {
	if p.failLoc {
		return 0, 0, errors.New("no pointer")
	}
	return p.x, p.y, nil
}

func (p *fakePointer) SetPosition(x, y int) error {
	p.x, p.y = x, y
	p.path = append(p.path, image.Pt(x, y))
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestEaseOutMover_ReachesTargetWithDeceleratingSteps(t *testing.T) {
	p := &fakePointer{}
	m := NewEaseOutMover(p)
	m.sleep = noSleep
	require.NoError(t, m.MoveTo(context.Background(), 400, 200, 200*time.Millisecond))

	require.Len(t, p.path, 40)
	assert.Equal(t, image.Pt(400, 200), p.path[len(p.path)-1])
	first := p.path[0].X
	last := p.path[len(p.path)-1].X - p.path[len(p.path)-2].X
	assert.Greater(t, first, last, "ease-out should decelerate")
	for i := 1; i < len(p.path); i++ {
		assert.GreaterOrEqual(t, p.path[i].X, p.path[i-1].X)
	}
}

func TestEaseOutMover_ZeroDurationOrUnknownStartJumps(t *testing.T) {
	p := &fakePointer{}
	m := NewEaseOutMover(p)
	require.NoError(t, m.MoveTo(context.Background(), 7, 9, 0))
	assert.Equal(t, []image.Point{{7, 9}}, p.path)

	p = &fakePointer{failLoc: true}
	m = NewEaseOutMover(p)
	require.NoError(t, m.MoveTo(context.Background(), 3, 4, time.Second))
	assert.Equal(t, []image.Point{{3, 4}}, p.path)
}

func TestEaseOutMover_CancelStopsEarly(t *testing.T) {
	p := &fakePointer{}
	m := NewEaseOutMover(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.MoveTo(ctx, 100, 100, 200*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, p.path, 1)
}
