//go:build windows

package trigger

import "log/slog"

// NewSystemSource returns the low-level keyboard hook when suppression is
// requested (it can swallow the key) and the portable hook otherwise.
func NewSystemSource(suppress bool, logger *slog.Logger) Source {
	if suppress {
		return newLLHookSource(logger)
	}
	return NewGohookSource(logger)
}
