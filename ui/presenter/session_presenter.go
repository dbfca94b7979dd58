package presenter

import (
	"time"

	"github.com/soocke/pixel-overlay-go/domain/engine"
	"github.com/soocke/pixel-overlay-go/ui/model"
)

// StateSource reports the control loop state.
type StateSource interface{ State() engine.State }

// SessionView displays active detection time and loop counters.
type SessionView interface {
	SetSession(session, total time.Duration)
	SetStats(s engine.Stats)
}

// StatsSource supplies loop counters; optional.
type StatsSource interface{ Stats() engine.Stats }

// SessionPresenter advances the session model from the loop state and pushes
// durations and counters to the view.
type SessionPresenter struct {
	sess  *model.SessionModel
	loop  StateSource
	stats StatsSource
	view  SessionView
}

// NewSessionPresenter returns a new SessionPresenter. stats may be nil.
func NewSessionPresenter(sess *model.SessionModel, loop StateSource, stats StatsSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, loop: loop, stats: stats, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.loop == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.loop.State() == engine.StateActive, now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
	if p.stats != nil {
		p.view.SetStats(p.stats.Stats())
	}
}
