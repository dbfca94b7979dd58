package model

import (
	"time"
)

// SessionModel accounts for time spent with detection active. The current
// session restarts whenever detection is switched on; the total accumulates
// across sessions. Presenters advance it from the UI tick and poll Values.
// The zero value is ready to use.
type SessionModel struct {
	active   bool
	started  time.Time
	last     time.Duration
	total    time.Duration
	sessions int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick records whether detection is active at now.
func (m *SessionModel) OnTick(active bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case active && !m.active:
		m.active = true
		m.started = now
		m.last = 0
		m.sessions++
	case active:
		m.last = now.Sub(m.started)
	case m.active:
		m.last = now.Sub(m.started)
		m.total += m.last
		m.active = false
	}
}

// Values returns the latest session duration and the total including the
// ongoing session.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session, total = m.last, m.total
	if m.active {
		total += session
	}
	return session, total
}

// Sessions returns how many times detection was switched on.
func (m *SessionModel) Sessions() int {
	if m == nil {
		return 0
	}
	return m.sessions
}
