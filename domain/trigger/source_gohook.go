package trigger

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	hook "github.com/robotn/gohook"
)

// gohookSource listens through libuiohook. It observes keys but cannot
// suppress them. One hook serves every live subscription; it starts with the
// first and ends with the last.
type gohookSource struct {
	start  func() chan hook.Event
	end    func()
	logger *slog.Logger

	life sync.Mutex // serialises hook start and end
	mu   sync.Mutex // guards subs and the matchers' state
	subs map[*gohookSub]struct{}
	done chan struct{}
}

type gohookSub struct {
	m      *keyMatcher
	onDown func()
}

// NewGohookSource returns the portable global key source.
func NewGohookSource(logger *slog.Logger) Source {
	return &gohookSource{start: hook.Start, end: hook.End, logger: logger}
}

// keyMatcher fires once per press and ignores auto-repeat until key up.
type keyMatcher struct {
	code    uint16
	hasCode bool
	raw     uint16
	held    bool
}

func newKeyMatcher(key string) (*keyMatcher, error) {
	m := &keyMatcher{}
	if code, ok := hook.Keycode[key]; ok {
		m.code, m.hasCode = code, true
	}
	// Windows reports virtual-key codes as raw codes.
	if runtime.GOOS == "windows" {
		if vk, err := ParseVK(key); err == nil {
			m.raw = vk
		}
	}
	if !m.hasCode && m.raw == 0 {
		return nil, fmt.Errorf("trigger: unsupported key %q", key)
	}
	return m, nil
}

func (m *keyMatcher) matches(ev hook.Event) bool {
	return (m.hasCode && ev.Keycode == m.code) || (m.raw != 0 && ev.Rawcode == m.raw)
}

func (m *keyMatcher) handle(ev hook.Event) (fire bool) {
	switch ev.Kind {
	case hook.KeyHold, hook.KeyDown:
		if !m.matches(ev) || m.held {
			return false
		}
		m.held = true
		return true
	case hook.KeyUp:
		if m.matches(ev) {
			m.held = false
		}
	}
	return false
}

func (s *gohookSource) Subscribe(key string, suppress bool, onDown func()) (func(), error) {
	m, err := newKeyMatcher(NormalizeKey(key))
	if err != nil {
		return nil, err
	}
	if suppress && s.logger != nil {
		s.logger.Warn("trigger key will not be suppressed", "key", key, "error", ErrSuppressUnsupported)
	}

	sub := &gohookSub{m: m, onDown: onDown}
	s.life.Lock()
	defer s.life.Unlock()
	s.mu.Lock()
	first := len(s.subs) == 0
	if s.subs == nil {
		s.subs = make(map[*gohookSub]struct{})
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	if first {
		events := s.start()
		if events == nil {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			return nil, errors.New("trigger: hook start returned no event channel")
		}
		s.done = make(chan struct{})
		go s.dispatch(events, s.done)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(sub) })
	}, nil
}

func (s *gohookSource) unsubscribe(sub *gohookSub) {
	s.life.Lock()
	defer s.life.Unlock()
	s.mu.Lock()
	delete(s.subs, sub)
	last := len(s.subs) == 0
	s.mu.Unlock()
	if last {
		s.end()
		<-s.done
	}
}

// dispatch fans hook events out to the subscriptions whose key was pressed.
// Callbacks run outside the lock.
func (s *gohookSource) dispatch(events chan hook.Event, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error("trigger hook panic", "panic", r)
		}
	}()
	var fire []func()
	for ev := range events {
		fire = fire[:0]
		s.mu.Lock()
		for sub := range s.subs {
			if sub.m.handle(ev) {
				fire = append(fire, sub.onDown)
			}
		}
		s.mu.Unlock()
		for _, fn := range fire {
			fn()
		}
	}
}
