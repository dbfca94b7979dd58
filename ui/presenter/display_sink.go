package presenter

import (
	"image"
	"math"
	"sync/atomic"

	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/engine"
	"github.com/soocke/pixel-overlay-go/ui/images"
)

// targetZoomPx is the side of the close-up cut around the selected target.
const targetZoomPx = 96

// Rendered is one composed overlay frame ready for display.
type Rendered struct {
	Image  *image.RGBA
	Target *image.RGBA // close-up around the target; nil without one
	Ann    engine.Annotations
	Seq    uint64
}

// DisplaySink is the control loop's engine.Sink. Present composes the
// annotated image on the loop goroutine and leaves it in a single-slot
// mailbox; the Tk thread takes the newest one with Take. Frames that are
// never taken are overwritten, so a slow UI drops frames instead of
// stalling the loop.
type DisplaySink struct {
	latest    atomic.Pointer[Rendered]
	seq       atomic.Uint64
	presented atomic.Uint64
	dropped   atomic.Uint64
}

// NewDisplaySink returns an empty sink.
func NewDisplaySink() *DisplaySink { return &DisplaySink{} }

// Present implements engine.Sink. It does not retain f.
func (s *DisplaySink) Present(f *capture.Frame, ann engine.Annotations) {
	img := images.Compose(f, ann)
	if img == nil {
		return
	}
	r := &Rendered{Image: img, Ann: ann, Seq: s.seq.Add(1)}
	if ann.HasTarget {
		cx, cy := ann.Target.Center()
		c := image.Pt(int(math.Round(cx)), int(math.Round(cy)))
		if roi, _, err := images.ExtractROI(img, c, targetZoomPx); err == nil {
			r.Target = roi
		}
	}
	s.presented.Add(1)
	if prev := s.latest.Swap(r); prev != nil {
		s.dropped.Add(1)
	}
}

// Take returns the newest rendered frame and empties the mailbox.
func (s *DisplaySink) Take() (*Rendered, bool) {
	r := s.latest.Swap(nil)
	return r, r != nil
}

// Counts returns how many frames were presented and how many were
// overwritten before display.
func (s *DisplaySink) Counts() (presented, dropped uint64) {
	return s.presented.Load(), s.dropped.Load()
}
