package trigger

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrSuppressUnsupported is logged when the platform hook cannot swallow the
// trigger key; the listener still arms, but other applications see the key.
var ErrSuppressUnsupported = errors.New("trigger: key suppression unsupported on this platform")

// Source is a process-wide key event source. onDown runs once per physical
// press (auto-repeat is filtered) on the source's own goroutine and must
// return quickly.
type Source interface {
	Subscribe(key string, suppress bool, onDown func()) (cancel func(), err error)
}

// Listener wires a Source to an arm callback for a single key.
type Listener struct {
	src      Source
	key      string
	suppress bool
	arm      func()
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  func()
	presses atomic.Uint64
}

// NewListener returns a stopped listener.
func NewListener(src Source, key string, suppress bool, arm func(), logger *slog.Logger) *Listener {
	return &Listener{src: src, key: NormalizeKey(key), suppress: suppress, arm: arm, logger: logger}
}

// Start subscribes to the key. Calling Start on a running listener is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return nil
	}
	cancel, err := l.src.Subscribe(l.key, l.suppress, l.onDown)
	if err != nil {
		return err
	}
	l.cancel = cancel
	if l.logger != nil {
		l.logger.Info("trigger listener started", "key", l.key, "suppress", l.suppress)
	}
	return nil
}

// Stop unsubscribes. Safe to call repeatedly.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if l.logger != nil {
		l.logger.Info("trigger listener stopped", "presses", l.presses.Load())
	}
}

// Running reports whether the listener is subscribed.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Presses returns the number of key presses observed.
func (l *Listener) Presses() uint64 { return l.presses.Load() }

func (l *Listener) onDown() {
	l.presses.Add(1)
	if l.arm != nil {
		l.arm()
	}
}
