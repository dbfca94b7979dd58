package presenter

import (
	"sync"

	"github.com/soocke/pixel-overlay-go/domain/engine"
)

// StateView sets the state label in the view.
type StateView interface{ SetStateLabel(string) }

// StatePresenter receives engine transitions from any goroutine and reflects
// the most recent one on the next Tk tick.
type StatePresenter struct {
	view StateView

	mu      sync.Mutex
	pending []engine.State
	latest  engine.State
	shown   bool
}

func NewStatePresenter(view StateView) *StatePresenter {
	return &StatePresenter{view: view}
}

// OnState queues a transition. Register it with engine.AddListener.
func (p *StatePresenter) OnState(_, next engine.State) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick flushes queued states and updates the label when the newest differs
// from what is shown.
func (p *StatePresenter) Tick() {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	last := p.pending[len(p.pending)-1]
	p.pending = p.pending[:0]
	p.mu.Unlock()

	if p.shown && last == p.latest {
		return
	}
	p.latest, p.shown = last, true
	p.view.SetStateLabel("State: " + last.String())
}
