//go:build !windows

package trigger

import "log/slog"

// NewSystemSource returns the portable hook. Suppression is not available
// outside Windows; the source logs a warning when it is requested.
func NewSystemSource(_ bool, logger *slog.Logger) Source {
	return NewGohookSource(logger)
}
