package action

import "sync/atomic"

// Trigger is the single-slot one-shot flag that authorizes the next
// actuation. Contract: one writer (the key-event goroutine calls Arm) and one
// reader/clearer (the control loop calls Armed and Clear). Arming an armed
// trigger is a no-op, so rapid presses coalesce instead of queueing.
type Trigger struct {
	armed atomic.Bool
}

// Arm sets the flag. It reports whether the flag was previously clear.
func (t *Trigger) Arm() bool { return t.armed.CompareAndSwap(false, true) }

// Armed reports whether the flag is set.
func (t *Trigger) Armed() bool { return t.armed.Load() }

// Clear resets the flag and reports whether it was set.
func (t *Trigger) Clear() bool { return t.armed.CompareAndSwap(true, false) }
