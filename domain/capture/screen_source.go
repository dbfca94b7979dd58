package capture

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	displays "github.com/kbinani/screenshot"

	"github.com/soocke/pixel-overlay-go/domain/geometry"
)

const desktopRefreshInterval = 5 * time.Second

// DesktopBounds returns the union of all active display bounds, or an empty
// rectangle when no display is reported.
func DesktopBounds() image.Rectangle {
	n := displays.NumActiveDisplays()
	if n <= 0 {
		return image.Rectangle{}
	}
	union := displays.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(displays.GetDisplayBounds(i))
	}
	return union
}

// PrimaryDisplay returns the bounds of display 0.
func PrimaryDisplay() (image.Rectangle, error) {
	if displays.NumActiveDisplays() <= 0 {
		return image.Rectangle{}, fmt.Errorf("capture: no active displays")
	}
	return displays.GetDisplayBounds(0), nil
}

// ScreenSource captures the live screen region beneath the overlay window.
// Capture never panics and never returns an error: every fault is logged and
// surfaces as a nil frame.
type ScreenSource struct {
	grabber Grabber
	insets  Insets
	desktop func() image.Rectangle
	logger  *slog.Logger

	desk      atomic.Pointer[image.Rectangle]
	deskAt    atomic.Int64
	captures  atomic.Uint64
	skipped   atomic.Uint64
	faults    atomic.Uint64
	grabNanos atomic.Uint64
}

// ScreenOption customises a ScreenSource.
type ScreenOption func(*ScreenSource)

// WithDesktopBounds overrides display enumeration (tests, headless runs).
func WithDesktopBounds(fn func() image.Rectangle) ScreenOption {
	return func(s *ScreenSource) { s.desktop = fn }
}

// NewScreenSource constructs a screen source around grabber.
func NewScreenSource(grabber Grabber, insets Insets, logger *slog.Logger, opts ...ScreenOption) *ScreenSource {
	s := &ScreenSource{grabber: grabber, insets: insets, desktop: DesktopBounds, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Capture grabs the effective region for g: title bar offset added to y and
// the control area removed from the height, clipped to the desktop. The
// frame's Origin is the clipped rectangle's top-left corner.
func (s *ScreenSource) Capture(g geometry.Geometry) (f *Frame) {
	defer func() {
		if r := recover(); r != nil {
			s.faults.Add(1)
			if s.logger != nil {
				s.logger.Error("capture panic", "panic", r, "geometry", g.String())
			}
			f = nil
		}
	}()

	r, ok := EffectiveRegion(g, s.insets)
	if !ok {
		s.skipped.Add(1)
		return nil
	}
	if desk := s.desktopBounds(); !desk.Empty() {
		r = r.Intersect(desk)
		if r.Empty() {
			s.skipped.Add(1)
			return nil
		}
	}

	start := time.Now()
	f, err := s.grabber.Grab(r)
	if err != nil {
		s.faults.Add(1)
		if s.logger != nil {
			s.logger.Error("capture region", "rect", r.String(), "error", err)
		}
		return nil
	}
	if f == nil {
		s.skipped.Add(1)
		return nil
	}
	s.grabNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)
	f.Origin = r.Min
	f.CapturedAt = time.Now()
	return f
}

func (s *ScreenSource) desktopBounds() image.Rectangle {
	now := time.Now().UnixNano()
	if p := s.desk.Load(); p != nil && now-s.deskAt.Load() < int64(desktopRefreshInterval) {
		return *p
	}
	var r image.Rectangle
	if s.desktop != nil {
		r = s.desktop()
	}
	s.desk.Store(&r)
	s.deskAt.Store(now)
	return r
}

// Stats returns capture counters.
func (s *ScreenSource) Stats() Stats {
	captures := s.captures.Load()
	var avg time.Duration
	if total := s.grabNanos.Load(); captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	return Stats{
		Captures: captures,
		Skipped:  s.skipped.Load(),
		Faults:   s.faults.Load(),
		AvgGrab:  avg,
	}
}

// Stats summarises capture behaviour for instrumentation.
type Stats struct {
	Captures uint64
	Skipped  uint64
	Faults   uint64
	AvgGrab  time.Duration
}
