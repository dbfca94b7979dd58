//go:build windows

package action

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procSetCursorPos = user32.NewProc("SetCursorPos")
	procGetCursorPos = user32.NewProc("GetCursorPos")
)

type point struct{ X, Y int32 }

// win32Pointer drives the cursor through SetCursorPos/GetCursorPos.
type win32Pointer struct{}

// NewSystemPointer returns the Win32 cursor backend.
func NewSystemPointer() Pointer { return win32Pointer{} }

func (win32Pointer) Location() (int, int, error) {
	var p point
	r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	if r == 0 {
		return 0, 0, fmt.Errorf("GetCursorPos: %w", err)
	}
	return int(p.X), int(p.Y), nil
}

func (win32Pointer) SetPosition(x, y int) error {
	r, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y)))
	if r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}
