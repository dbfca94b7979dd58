//go:build !windows

package action

import "github.com/go-vgo/robotgo"

// robotgoPointer drives the cursor through robotgo (X11 / Quartz).
type robotgoPointer struct{}

// NewSystemPointer returns the robotgo cursor backend.
func NewSystemPointer() Pointer { return robotgoPointer{} }

func (robotgoPointer) Location() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (robotgoPointer) SetPosition(x, y int) error {
	robotgo.Move(x, y)
	return nil
}
