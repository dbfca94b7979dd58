package model

import (
	"testing"
	"time"
)

func TestSessionModel_AccumulatesActiveTime(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)

	m.OnTick(true, base)
	m.OnTick(true, base.Add(5*time.Second))
	if s, total := m.Values(); s != 5*time.Second || total != 5*time.Second {
		t.Fatalf("running: session=%v total=%v", s, total)
	}

	m.OnTick(false, base.Add(6*time.Second))
	m.OnTick(false, base.Add(9*time.Second))
	if s, total := m.Values(); s != 6*time.Second || total != 6*time.Second {
		t.Fatalf("after stop: session=%v total=%v", s, total)
	}

	m.OnTick(true, base.Add(10*time.Second))
	if s, _ := m.Values(); s != 0 {
		t.Fatalf("new session should restart at 0, got %v", s)
	}
	m.OnTick(true, base.Add(13*time.Second))
	if s, total := m.Values(); s != 3*time.Second || total != 9*time.Second {
		t.Fatalf("second session: session=%v total=%v", s, total)
	}
	if m.Sessions() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Sessions())
	}
}

func TestSessionModel_NilSafe(t *testing.T) {
	var m *SessionModel
	m.OnTick(true, time.Now())
	if s, total := m.Values(); s != 0 || total != 0 || m.Sessions() != 0 {
		t.Fatalf("nil model should report zeros")
	}
}
