//go:build windows

package trigger

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// llHookSource installs a WH_KEYBOARD_LL hook on a dedicated locked thread.
// Returning non-zero from the hook procedure swallows the key, which is how
// suppression works.
type llHookSource struct {
	logger *slog.Logger
}

func newLLHookSource(logger *slog.Logger) Source { return &llHookSource{logger: logger} }

func (s *llHookSource) Subscribe(key string, suppress bool, onDown func()) (func(), error) {
	vk, err := ParseVK(key)
	if err != nil {
		return nil, err
	}
	ready := make(chan error, 1)
	done := make(chan struct{})
	var tid uintptr

	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		tid, _, _ = procGetCurrentThreadId.Call()

		held := false
		cb := windows.NewCallback(func(nCode int, wParam uintptr, lParam uintptr) uintptr {
			if nCode >= 0 {
				kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
				if kb.VkCode == uint32(vk) {
					switch wParam {
					case wmKeyDown, wmSysKeyDown:
						if !held {
							held = true
							onDown()
						}
					case wmKeyUp, wmSysKeyUp:
						held = false
					}
					if suppress {
						return 1
					}
				}
			}
			r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
			return r
		})
		h, _, herr := procSetWindowsHookExW.Call(whKeyboardLL, cb, 0, 0)
		if h == 0 {
			ready <- fmt.Errorf("trigger: SetWindowsHookExW: %w", herr)
			return
		}
		defer procUnhookWindowsHookEx.Call(h)
		ready <- nil

		var m winMsg
		for {
			r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 { // WM_QUIT or error
				return
			}
		}
	}()

	if err := <-ready; err != nil {
		<-done
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("keyboard hook installed", "vk", vk, "suppress", suppress)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			procPostThreadMessageW.Call(tid, wmQuit, 0, 0)
			<-done
		})
	}, nil
}
