package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/detect"
)

const (
	defaultIdleDelay       = 10 * time.Millisecond
	defaultShutdownTimeout = 2 * time.Second
	statsLogInterval       = 5 * time.Second
)

// Deps are the collaborators of the control loop. Actuator may be nil (no
// actuation, e.g. static image mode). Closers are released exactly once,
// in reverse order, after the loop has exited.
type Deps struct {
	Geometry GeometrySource
	Source   capture.Source
	Detector detect.Detector
	Actuator Actuator
	Sink     Sink
	Closers  []io.Closer
	Logger   *slog.Logger
}

// Options tune loop timing.
type Options struct {
	// IdleDelay is slept when paused or when no frame was produced.
	IdleDelay time.Duration
	// FramePacing, when positive, is the minimum duration of a producing
	// iteration.
	FramePacing time.Duration
	// ShutdownTimeout bounds how long Stop waits for the in-flight iteration.
	ShutdownTimeout time.Duration
	// Now is the iteration clock (tests).
	Now func() time.Time
}

// Engine runs the capture/detect/select/actuate loop on its own goroutine.
type Engine struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	runID  string

	state     atomic.Int32
	started   atomic.Bool
	lifeMu    sync.Mutex // serializes Start and Stop
	mu        sync.Mutex // guards listeners
	listeners []StateListener

	stopOnce    sync.Once
	stopErr     error
	stopCh      chan struct{}
	done        chan struct{}
	cancel      context.CancelFunc
	releaseOnce sync.Once

	iterations   atomic.Uint64
	frames       atomic.Uint64
	skipped      atomic.Uint64
	detectFaults atomic.Uint64
	faults       atomic.Uint64
	actuations   atomic.Uint64
	iterNanos    atomic.Uint64
	lastFPS      atomic.Uint64 // math.Float64bits
}

// New validates deps and returns an idle engine.
func New(deps Deps, opts Options) (*Engine, error) {
	switch {
	case deps.Geometry == nil:
		return nil, fmt.Errorf("%w: geometry", ErrMissingDependency)
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: frame source", ErrMissingDependency)
	case deps.Detector == nil:
		return nil, fmt.Errorf("%w: detector", ErrMissingDependency)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingDependency)
	}
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = defaultIdleDelay
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runID := uuid.NewString()
	return &Engine{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "engine", "run_id", runID),
		runID:  runID,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// RunID identifies this engine instance in logs.
func (e *Engine) RunID() string { return e.runID }

// State returns the current state.
func (e *Engine) State() State { return State(e.state.Load()) }

// AddListener registers a transition callback.
func (e *Engine) AddListener(l StateListener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Start launches the loop in StateCapturing. It fails if the engine was
// already started or stopped.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.State() == StateStopped {
		e.lifeMu.Unlock()
		return ErrStopped
	}
	if e.started.Load() {
		e.lifeMu.Unlock()
		return ErrAlreadyStarted
	}
	e.started.Store(true)
	e.state.Store(int32(StateCapturing))
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.run(loopCtx)
	e.lifeMu.Unlock()

	e.notify(StateIdle, StateCapturing)
	e.logger.Info("control loop started")
	return nil
}

// Enable switches Capturing to Active.
func (e *Engine) Enable() bool { return e.cas(StateCapturing, StateActive) }

// Disable switches Active back to Capturing.
func (e *Engine) Disable() bool { return e.cas(StateActive, StateCapturing) }

// Toggle flips Capturing and Active and returns the resulting state. Other
// states are left unchanged.
func (e *Engine) Toggle() State {
	for {
		switch s := e.State(); s {
		case StateCapturing:
			if e.cas(StateCapturing, StateActive) {
				return StateActive
			}
		case StateActive:
			if e.cas(StateActive, StateCapturing) {
				return StateCapturing
			}
		default:
			return s
		}
	}
}

// Pause stops capturing without stopping the loop.
func (e *Engine) Pause() bool {
	if !e.started.Load() {
		return false
	}
	return e.cas(StateCapturing, StateIdle) || e.cas(StateActive, StateIdle)
}

// Resume restarts capturing after Pause.
func (e *Engine) Resume() bool {
	if !e.started.Load() {
		return false
	}
	return e.cas(StateIdle, StateCapturing)
}

// Stop moves to StateStopped from any state and waits, bounded by the
// shutdown timeout, for the in-flight iteration to finish. It is safe to
// call repeatedly and concurrently; every caller gets the same result. When
// the timeout elapses the loop context is cancelled and ErrStopTimeout is
// returned; resources are released once the loop exits.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() {
		e.lifeMu.Lock()
		prev := State(e.state.Swap(int32(StateStopped)))
		close(e.stopCh)
		started := e.started.Load()
		e.started.Store(true) // a later Start must fail
		cancel := e.cancel
		e.lifeMu.Unlock()

		if prev != StateStopped {
			e.notify(prev, StateStopped)
		}
		if !started {
			e.release()
			close(e.done)
			return
		}
		t := time.NewTimer(e.opts.ShutdownTimeout)
		defer t.Stop()
		select {
		case <-e.done:
		case <-t.C:
			e.stopErr = ErrStopTimeout
			e.logger.Warn("shutdown timed out waiting for iteration", "timeout", e.opts.ShutdownTimeout)
		}
		cancel()
	})
	return e.stopErr
}

// Done is closed once the loop goroutine has exited and released resources.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Stats returns loop counters.
func (e *Engine) Stats() Stats {
	n := e.iterations.Load()
	var avg time.Duration
	if total := e.iterNanos.Load(); n > 0 {
		avg = time.Duration(total / n)
	}
	return Stats{
		Iterations:   n,
		Frames:       e.frames.Load(),
		Skipped:      e.skipped.Load(),
		DetectFaults: e.detectFaults.Load(),
		Faults:       e.faults.Load(),
		Actuations:   e.actuations.Load(),
		LastFPS:      math.Float64frombits(e.lastFPS.Load()),
		AvgIteration: avg,
	}
}

func (e *Engine) cas(from, to State) bool {
	if !e.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	e.logger.Debug("engine state transition", "from", from.String(), "to", to.String())
	e.notify(from, to)
	return true
}

func (e *Engine) notify(prev, next State) {
	e.mu.Lock()
	ls := append([]StateListener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range ls {
		func() {
			defer recoverLog(e.logger, "state listener panic")
			l(prev, next)
		}()
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer e.release()

	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	var prev time.Time
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		if e.State() == StateIdle {
			prev = time.Time{}
			e.sleep(e.opts.IdleDelay)
			continue
		}

		start := e.opts.Now()
		var fps float64
		if !prev.IsZero() {
			if dt := start.Sub(prev).Seconds(); dt > 0 {
				fps = 1 / dt
			}
		}
		prev = start
		e.lastFPS.Store(math.Float64bits(fps))

		wall := time.Now()
		produced := e.iterate(ctx, fps)
		elapsed := time.Since(wall)
		e.iterations.Add(1)
		e.iterNanos.Add(uint64(elapsed.Nanoseconds()))

		switch {
		case !produced:
			e.sleep(e.opts.IdleDelay)
		case e.opts.FramePacing > elapsed:
			e.sleep(e.opts.FramePacing - elapsed)
		}

		select {
		case <-statsTicker.C:
			e.logStats()
		default:
		}
	}
}

// iterate runs one capture/detect/select/actuate/present pass. It reports
// whether a frame was produced. Faults are logged and never escape.
func (e *Engine) iterate(ctx context.Context, fps float64) (produced bool) {
	defer func() {
		if r := recover(); r != nil {
			e.faults.Add(1)
			e.logger.Error("iteration panic", "error", r, "stack", string(debug.Stack()))
		}
	}()

	g := e.deps.Geometry.Snapshot()
	frame := e.deps.Source.Capture(g)
	if frame == nil {
		e.skipped.Add(1)
		return false
	}
	defer capture.RecycleFrame(frame)
	e.frames.Add(1)

	ann := Annotations{FPS: fps, Geometry: g}
	if e.State() == StateActive {
		boxes, err := e.safeDetect(ctx, frame)
		if err != nil {
			e.detectFaults.Add(1)
			e.logger.Warn("detector fault", "error", err)
			boxes = nil
		}
		target, ok := detect.Select(boxes, frame.Width, frame.Height)
		ann.Boxes, ann.Target, ann.HasTarget = boxes, target, ok
		if e.deps.Actuator != nil {
			ann.Outcome = e.deps.Actuator.Tick(ctx, target, ok, frame.Origin)
			if ann.Outcome != action.Skipped {
				e.actuations.Add(1)
			}
		}
		ann.Active = true
	}
	if e.deps.Actuator != nil {
		ann.Armed = e.deps.Actuator.Armed()
	}
	e.deps.Sink.Present(frame, ann)
	return true
}

func (e *Engine) safeDetect(ctx context.Context, f *capture.Frame) (boxes []detect.Box, err error) {
	defer func() {
		if r := recover(); r != nil {
			boxes, err = nil, fmt.Errorf("detector panic: %v", r)
		}
	}()
	return e.deps.Detector.Detect(ctx, f)
}

func (e *Engine) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.stopCh:
	case <-t.C:
	}
}

func (e *Engine) release() {
	e.releaseOnce.Do(func() {
		for i := len(e.deps.Closers) - 1; i >= 0; i-- {
			c := e.deps.Closers[i]
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				e.logger.Warn("release resource", "error", err)
			}
		}
		e.logger.Info("control loop stopped", "iterations", e.iterations.Load(), "frames", e.frames.Load(), "actuations", e.actuations.Load())
	})
}

func (e *Engine) logStats() {
	s := e.Stats()
	e.logger.Debug("engine.stats",
		"iterations", s.Iterations,
		"frames", s.Frames,
		"skipped", s.Skipped,
		"detect_faults", s.DetectFaults,
		"actuations", s.Actuations,
		"fps", s.LastFPS,
		"avg_iteration", s.AvgIteration,
	)
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil && logger != nil {
		logger.Error(msg, "error", r)
	}
}
