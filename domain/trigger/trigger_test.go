package trigger

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSource struct {
	mu       sync.Mutex
	subs     int
	cancels  int
	fn       func()
	key      string
	suppress bool
	failNext error
}

func (s *fakeSource) Subscribe(key string, suppress bool, onDown func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	s.subs++
	s.fn, s.key, s.suppress = onDown, key, suppress
	return func() {
		s.mu.Lock()
		s.cancels++
		s.mu.Unlock()
	}, nil
}

func (s *fakeSource) press() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	fn()
}

func TestListener_StartStopIdempotent(t *testing.T) {
	src := &fakeSource{}
	var armed atomic.Int32
	l := NewListener(src, " T ", true, func() { armed.Add(1) }, discardLogger())

	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if src.subs != 1 || src.key != "t" || !src.suppress {
		t.Fatalf("unexpected subscription %+v", src)
	}
	src.press()
	src.press()
	if armed.Load() != 2 || l.Presses() != 2 {
		t.Fatalf("expected 2 arms, got %d", armed.Load())
	}
	l.Stop()
	l.Stop()
	if src.cancels != 1 || l.Running() {
		t.Fatalf("expected single cancel, got %d", src.cancels)
	}
}

func TestListener_StartErrorLeavesStopped(t *testing.T) {
	src := &fakeSource{failNext: errors.New("hook denied")}
	l := NewListener(src, "t", false, func() {}, discardLogger())
	if err := l.Start(); err == nil {
		t.Fatalf("expected error")
	}
	if l.Running() {
		t.Fatalf("listener should not be running")
	}
	if err := l.Start(); err != nil {
		t.Fatalf("retry start: %v", err)
	}
}

func TestParseVK(t *testing.T) {
	cases := map[string]uint16{
		"t":     0x54,
		"T":     0x54,
		"a":     0x41,
		"0":     0x30,
		"9":     0x39,
		"F1":    0x70,
		"f3":    0x72,
		"F12":   0x7B,
		"f24":   0x87,
		"space": 0x20,
		"Esc":   0x1B,
	}
	for in, want := range cases {
		got, err := ParseVK(in)
		if err != nil || got != want {
			t.Errorf("ParseVK(%q) = %#x, %v; want %#x", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "f0", "f25", "ctrl+t", "??"} {
		if _, err := ParseVK(bad); err == nil {
			t.Errorf("ParseVK(%q) should fail", bad)
		}
	}
}

func TestKeyMatcher_FiresOncePerPress(t *testing.T) {
	m, err := newKeyMatcher("t")
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	code := hook.Keycode["t"]
	other := hook.Keycode["q"]
	seq := []hook.Event{
		{Kind: hook.KeyHold, Keycode: code},
		{Kind: hook.KeyDown, Keycode: code}, // typed event for the same press
		{Kind: hook.KeyHold, Keycode: code}, // auto-repeat
		{Kind: hook.KeyHold, Keycode: other},
		{Kind: hook.KeyUp, Keycode: code},
		{Kind: hook.KeyHold, Keycode: code},
	}
	fired := 0
	for _, ev := range seq {
		if m.handle(ev) {
			fired++
		}
	}
	if fired != 2 {
		t.Fatalf("expected 2 presses, got %d", fired)
	}
}

func TestGohookSource_DeliversAndCancels(t *testing.T) {
	events := make(chan hook.Event, 8)
	var ended atomic.Bool
	src := &gohookSource{
		start:  func() chan hook.Event { return events },
		end:    func() { ended.Store(true); close(events) },
		logger: discardLogger(),
	}
	var presses atomic.Int32
	cancel, err := src.Subscribe("t", true, func() { presses.Add(1) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	code := hook.Keycode["t"]
	events <- hook.Event{Kind: hook.KeyHold, Keycode: code}
	events <- hook.Event{Kind: hook.KeyUp, Keycode: code}
	events <- hook.Event{Kind: hook.KeyHold, Keycode: code}

	deadline := time.Now().Add(2 * time.Second)
	for presses.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if presses.Load() != 2 {
		t.Fatalf("expected 2 presses, got %d", presses.Load())
	}
	cancel()
	cancel()
	if !ended.Load() {
		t.Fatalf("hook not ended")
	}

	events = make(chan hook.Event)
	if c, err := src.Subscribe("t", false, func() {}); err != nil {
		t.Fatalf("resubscribe after cancel: %v", err)
	} else {
		c()
	}
}

func TestGohookSource_SharesOneHookAcrossKeys(t *testing.T) {
	events := make(chan hook.Event, 8)
	var starts, ends atomic.Int32
	src := &gohookSource{
		start:  func() chan hook.Event { starts.Add(1); return events },
		end:    func() { ends.Add(1); close(events) },
		logger: discardLogger(),
	}
	var trig, exit atomic.Int32
	cancelTrig, err := src.Subscribe("t", false, func() { trig.Add(1) })
	if err != nil {
		t.Fatalf("subscribe t: %v", err)
	}
	cancelExit, err := src.Subscribe("esc", false, func() { exit.Add(1) })
	if err != nil {
		t.Fatalf("subscribe esc: %v", err)
	}
	if starts.Load() != 1 {
		t.Fatalf("expected one hook start, got %d", starts.Load())
	}

	events <- hook.Event{Kind: hook.KeyHold, Keycode: hook.Keycode["t"]}
	events <- hook.Event{Kind: hook.KeyHold, Keycode: hook.Keycode["esc"]}
	deadline := time.Now().Add(2 * time.Second)
	for (trig.Load() < 1 || exit.Load() < 1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if trig.Load() != 1 || exit.Load() != 1 {
		t.Fatalf("expected one press each, got t=%d esc=%d", trig.Load(), exit.Load())
	}

	cancelExit()
	if ends.Load() != 0 {
		t.Fatalf("hook ended while a subscription is live")
	}
	cancelTrig()
	if ends.Load() != 1 {
		t.Fatalf("expected hook end after last cancel, got %d", ends.Load())
	}
}
