package engine

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/detect"
	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

var (
	ErrAlreadyStarted    = errors.New("engine: already started")
	ErrStopped           = errors.New("engine: stopped")
	ErrStopTimeout       = errors.New("engine: in-flight iteration did not finish before shutdown timeout")
	ErrMissingDependency = errors.New("engine: missing dependency")
)

// State enumerates control loop states.
type State int32

const (
	// StateIdle: not capturing. Before Start, or paused.
	StateIdle State = iota
	// StateCapturing: frames are captured and presented; detection and
	// actuation are disabled.
	StateCapturing
	// StateActive: capturing, detecting and eligible to actuate.
	StateActive
	// StateStopped is terminal; resources are released.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StateListener is called after each successful transition, on the goroutine
// that caused it.
type StateListener func(prev, next State)

// Annotations describe what the overlay should draw on a frame.
type Annotations struct {
	Boxes     []detect.Box
	Target    detect.Box
	HasTarget bool
	FPS       float64
	Active    bool
	Armed     bool
	Outcome   action.Outcome
	Geometry  geometry.Geometry
}

// Sink receives every produced frame. Present must not retain f past the
// call; the loop recycles it afterwards.
type Sink interface {
	Present(f *capture.Frame, ann Annotations)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f *capture.Frame, ann Annotations)

func (fn SinkFunc) Present(f *capture.Frame, ann Annotations) { fn(f, ann) }

// GeometrySource supplies a consistent window geometry snapshot.
type GeometrySource interface {
	Snapshot() geometry.Geometry
}

// Actuator consumes the one-shot trigger. origin is the screen position of
// the frame's top-left pixel. Implemented by *action.Actuator.
type Actuator interface {
	Tick(ctx context.Context, target detect.Box, found bool, origin image.Point) action.Outcome
	Armed() bool
}

// Stats summarises loop behaviour for instrumentation.
type Stats struct {
	Iterations   uint64
	Frames       uint64
	Skipped      uint64
	DetectFaults uint64
	Faults       uint64
	Actuations   uint64
	LastFPS      float64
	AvgIteration time.Duration
}
