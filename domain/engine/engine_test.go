package engine

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

	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/detect"
	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixedGeometry geometry.Geometry

func (g fixedGeometry) Snapshot() geometry.Geometry { return geometry.Geometry(g) }

// frameSource emits synthetic w x h frames, or nil when empty is set.
type frameSource struct {
	w, h  int
	empty atomic.Bool
	calls atomic.Int64
}

// Frames sit 30px below the window origin, as under a title bar.
func (s *frameSource) Capture(g geometry.Geometry) *capture.Frame {
	s.calls.Add(1)
	if s.empty.Load() {
		return nil
	}
	return &capture.Frame{
		Pix:    make([]byte, s.w*s.h*3),
		Width:  s.w,
		Height: s.h,
		Stride: s.w * 3,
		Origin: image.Pt(g.X, g.Y+30),
	}
}

// blankGrabber returns zeroed frames covering the requested rectangle.
type blankGrabber struct{}

func (blankGrabber) Grab(r image.Rectangle) (*capture.Frame, error) {
	return &capture.Frame{Pix: make([]byte, r.Dx()*r.Dy()*3), Width: r.Dx(), Height: r.Dy(), Stride: r.Dx() * 3}, nil
}

type recordingSink struct {
	mu   sync.Mutex
	anns []Annotations
}

func (s *recordingSink) Present(f *capture.Frame, ann Annotations) {
	s.mu.Lock()
	s.anns = append(s.anns, ann)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.anns)
}

func (s *recordingSink) last() Annotations {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anns[len(s.anns)-1]
}

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error { c.n.Add(1); return nil }

type recordingMover struct {
	mu    sync.Mutex
	calls []image.Point
}

func (m *recordingMover) MoveTo(_ context.Context, x, y int, _ time.Duration) error {
	m.mu.Lock()
	m.calls = append(m.calls, image.Pt(x, y))
	m.mu.Unlock()
	return nil
}

func (m *recordingMover) snapshot() []image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Point(nil), m.calls...)
}

// sequenceDetector returns boxes[i] on call i, repeating the last entry.
func sequenceDetector(seq ...[]detect.Box) detect.Detector {
	var i atomic.Int64
	return detect.DetectorFunc(func(context.Context, *capture.Frame) ([]detect.Box, error) {
		n := int(i.Add(1)) - 1
		if n >= len(seq) {
			n = len(seq) - 1
		}
		return seq[n], nil
	})
}

var windowGeom = geometry.Geometry{X: 100, Y: 100, Width: 400, Height: 300}

func newTestEngine(t *testing.T, deps Deps, opts Options) *Engine {
	t.Helper()
	if deps.Geometry == nil {
		deps.Geometry = fixedGeometry(windowGeom)
	}
	if deps.Logger == nil {
		deps.Logger = discardLogger()
	}
	if opts.IdleDelay == 0 {
		opts.IdleDelay = time.Millisecond
	}
	e, err := New(deps, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = New(Deps{Geometry: fixedGeometry(windowGeom), Source: &frameSource{w: 1, h: 1}, Sink: &recordingSink{}}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency, "detector is required")
}

func TestEngine_EndToEndSingleActuation(t *testing.T) {
	src := &frameSource{w: 400, h: 250}
	sink := &recordingSink{}
	mover := &recordingMover{}
	act := action.NewActuator(mover, action.ActuatorOptions{}, discardLogger())
	boxes := []detect.Box{{X1: 0, Y1: 0, X2: 10, Y2: 10}, {X1: 190, Y1: 120, X2: 210, Y2: 130}}
	e := newTestEngine(t, Deps{
		Source:   src,
		Detector: sequenceDetector(nil, boxes),
		Actuator: act,
		Sink:     sink,
	}, Options{})

	require.NoError(t, e.Start(context.Background()))
	require.True(t, e.Enable())
	act.Arm()

	waitFor(t, func() bool { return len(mover.snapshot()) == 1 }, "actuation")
	before := sink.count()
	waitFor(t, func() bool { return sink.count() > before+20 }, "more frames")

	calls := mover.snapshot()
	require.Len(t, calls, 1, "one arm must produce exactly one move")
	// origin (100,100) + title bar (0,30) + center (200,125)
	assert.Equal(t, image.Pt(300, 255), calls[0])
	assert.Equal(t, uint64(1), e.Stats().Actuations)

	last := sink.last()
	assert.True(t, last.Active)
	assert.True(t, last.HasTarget)
	assert.Equal(t, boxes[1], last.Target)
	assert.False(t, last.Armed)
	require.NoError(t, e.Stop())
	assert.Equal(t, StateStopped, e.State())
}

func TestEngine_ClippedWindowActuatesAtGrabbedPixels(t *testing.T) {
	// The window hangs 100px off the left of the desktop, so the grab starts
	// at x=0 and frame pixel (15,15) is screen (15,145).
	src := capture.NewScreenSource(blankGrabber{}, capture.Insets{TitleBar: 30, ControlArea: 50}, discardLogger(),
		capture.WithDesktopBounds(func() image.Rectangle { return image.Rect(0, 0, 1920, 1080) }))
	mover := &recordingMover{}
	act := action.NewActuator(mover, action.ActuatorOptions{}, discardLogger())
	sink := &recordingSink{}
	e := newTestEngine(t, Deps{
		Geometry: fixedGeometry(geometry.Geometry{X: -100, Y: 100, Width: 400, Height: 300}),
		Source:   src,
		Detector: sequenceDetector([]detect.Box{{X1: 10, Y1: 10, X2: 20, Y2: 20}}),
		Actuator: act,
		Sink:     sink,
	}, Options{})

	require.NoError(t, e.Start(context.Background()))
	require.True(t, e.Enable())
	act.Arm()

	waitFor(t, func() bool { return len(mover.snapshot()) == 1 }, "actuation")
	assert.Equal(t, image.Pt(15, 145), mover.snapshot()[0])
	require.NoError(t, e.Stop())
}

func TestEngine_CapturingStateSkipsDetection(t *testing.T) {
	var detects atomic.Int32
	det := detect.DetectorFunc(func(context.Context, *capture.Frame) ([]detect.Box, error) {
		detects.Add(1)
		return nil, nil
	})
	sink := &recordingSink{}
	e := newTestEngine(t, Deps{Source: &frameSource{w: 10, h: 10}, Detector: det, Sink: sink}, Options{})
	require.NoError(t, e.Start(context.Background()))
	waitFor(t, func() bool { return sink.count() > 5 }, "frames")
	assert.Zero(t, detects.Load())
	assert.False(t, sink.last().Active)
}

func TestEngine_ConcurrentStopReleasesOnce(t *testing.T) {
	closer := &countingCloser{}
	e := newTestEngine(t, Deps{
		Source:   &frameSource{w: 8, h: 8},
		Detector: sequenceDetector(nil),
		Sink:     &recordingSink{},
		Closers:  []io.Closer{closer},
	}, Options{})
	require.NoError(t, e.Start(context.Background()))
	e.Enable()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Stop()
		}(i)
	}
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	<-e.Done()
	assert.Equal(t, int32(1), closer.n.Load())
	assert.NoError(t, e.Stop())
	assert.Equal(t, int32(1), closer.n.Load())
	assert.ErrorIs(t, e.Start(context.Background()), ErrStopped)
}

func TestEngine_StopBeforeStartReleases(t *testing.T) {
	closer := &countingCloser{}
	e := newTestEngine(t, Deps{Source: &frameSource{w: 1, h: 1}, Detector: sequenceDetector(nil), Sink: &recordingSink{}, Closers: []io.Closer{closer}}, Options{})
	require.NoError(t, e.Stop())
	<-e.Done()
	assert.Equal(t, int32(1), closer.n.Load())
	assert.ErrorIs(t, e.Start(context.Background()), ErrStopped)
}

func TestEngine_DetectorFaultsAreContained(t *testing.T) {
	var n atomic.Int32
	det := detect.DetectorFunc(func(context.Context, *capture.Frame) ([]detect.Box, error) {
		switch n.Add(1) % 3 {
		case 0:
			panic("inference crashed")
		case 1:
			return nil, errors.New("worker died")
		default:
			return []detect.Box{{X1: 1, Y1: 1, X2: 2, Y2: 2}}, nil
		}
	})
	sink := &recordingSink{}
	e := newTestEngine(t, Deps{Source: &frameSource{w: 16, h: 16}, Detector: det, Sink: sink}, Options{})
	require.NoError(t, e.Start(context.Background()))
	e.Enable()
	waitFor(t, func() bool { return e.Stats().DetectFaults >= 4 }, "detector faults")
	assert.Equal(t, StateActive, e.State())
	assert.GreaterOrEqual(t, sink.count(), 5, "frames still presented on detector faults")
}

func TestEngine_NoFrameIsSkippedNotPresented(t *testing.T) {
	src := &frameSource{w: 4, h: 4}
	src.empty.Store(true)
	sink := &recordingSink{}
	e := newTestEngine(t, Deps{Source: src, Detector: sequenceDetector(nil), Sink: sink}, Options{})
	require.NoError(t, e.Start(context.Background()))
	waitFor(t, func() bool { return e.Stats().Skipped > 3 }, "skips")
	assert.Zero(t, sink.count())

	src.empty.Store(false)
	waitFor(t, func() bool { return sink.count() > 0 }, "frames after recovery")
}

func TestEngine_PanickingSinkDoesNotStopLoop(t *testing.T) {
	var n atomic.Int32
	sink := SinkFunc(func(*capture.Frame, Annotations) {
		if n.Add(1) == 1 {
			panic("render failure")
		}
	})
	e := newTestEngine(t, Deps{Source: &frameSource{w: 4, h: 4}, Detector: sequenceDetector(nil), Sink: sink}, Options{})
	require.NoError(t, e.Start(context.Background()))
	waitFor(t, func() bool { return n.Load() > 3 }, "presents after panic")
	assert.Equal(t, uint64(1), e.Stats().Faults)
}

func TestEngine_Transitions(t *testing.T) {
	e := newTestEngine(t, Deps{Source: &frameSource{w: 2, h: 2}, Detector: sequenceDetector(nil), Sink: &recordingSink{}}, Options{})
	var mu sync.Mutex
	var seen []string
	e.AddListener(func(prev, next State) {
		mu.Lock()
		seen = append(seen, prev.String()+">"+next.String())
		mu.Unlock()
	})

	assert.Equal(t, StateIdle, e.State())
	assert.False(t, e.Enable(), "cannot enable before start")
	assert.Equal(t, StateIdle, e.Toggle())
	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, StateActive, e.Toggle())
	assert.Equal(t, StateCapturing, e.Toggle())
	assert.True(t, e.Pause())
	assert.Equal(t, StateIdle, e.State())
	assert.True(t, e.Resume())
	assert.True(t, e.Enable())
	assert.False(t, e.Enable())
	require.NoError(t, e.Stop())
	assert.Equal(t, StateStopped, e.Toggle())
	assert.False(t, e.Resume())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"idle>capturing",
		"capturing>active",
		"active>capturing",
		"capturing>idle",
		"idle>capturing",
		"capturing>active",
		"active>stopped",
	}, seen)
}

func TestEngine_StopIsBoundedWhenDetectorStalls(t *testing.T) {
	entered := make(chan struct{}, 1)
	det := detect.DetectorFunc(func(ctx context.Context, _ *capture.Frame) ([]detect.Box, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	closer := &countingCloser{}
	e := newTestEngine(t, Deps{Source: &frameSource{w: 4, h: 4}, Detector: det, Sink: &recordingSink{}, Closers: []io.Closer{closer}},
		Options{ShutdownTimeout: 50 * time.Millisecond})
	require.NoError(t, e.Start(context.Background()))
	e.Enable()
	<-entered

	start := time.Now()
	err := e.Stop()
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancellation")
	}
	assert.Equal(t, int32(1), closer.n.Load())
}

func TestEngine_FPSFromIterationClock(t *testing.T) {
	var tick atomic.Int64
	base := time.Unix(0, 0)
	now := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * 100 * time.Millisecond) }
	sink := &recordingSink{}
	e := newTestEngine(t, Deps{Source: &frameSource{w: 2, h: 2}, Detector: sequenceDetector(nil), Sink: sink}, Options{Now: now})
	require.NoError(t, e.Start(context.Background()))
	waitFor(t, func() bool { return sink.count() > 3 }, "frames")
	require.NoError(t, e.Stop())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Zero(t, sink.anns[0].FPS, "first iteration has no previous start")
	assert.InDelta(t, 10.0, sink.anns[1].FPS, 1e-9)
	assert.InDelta(t, 10.0, sink.anns[2].FPS, 1e-9)
}
