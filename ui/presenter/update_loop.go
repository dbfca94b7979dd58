package presenter

import "time"

// PreviewView shows the composed overlay frame and the target close-up.
type PreviewView interface {
	UpdatePreview(r *Rendered)
}

// Loop aggregates feature presenters and drives periodic updates on the Tk
// thread. It calls Tick on the sub-presenters, moves the newest rendered
// frame from the sink to the preview and invokes a scheduler callback. The
// zero value is usable (methods are nil-safe).
type Loop struct {
	State    *StatePresenter
	Session  *SessionPresenter
	Sink     *DisplaySink
	Preview  PreviewView
	Schedule func()

	lastSeq uint64
}

func NewLoop(state *StatePresenter, sess *SessionPresenter, sink *DisplaySink, preview PreviewView, schedule func()) *Loop {
	return &Loop{State: state, Session: sess, Sink: sink, Preview: preview, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.State != nil {
		l.State.Tick()
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Sink != nil && l.Preview != nil {
		if r, ok := l.Sink.Take(); ok && r.Seq > l.lastSeq {
			l.lastSeq = r.Seq
			l.Preview.UpdatePreview(r)
		}
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
