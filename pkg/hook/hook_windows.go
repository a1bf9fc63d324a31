//go:build windows

package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012
)

type kbdllHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Only one low-level hook exists per process. The callback pointer is
// created once because windows.NewCallback never frees its trampoline.
var (
	activeEngine atomic.Pointer[Engine]
	callbackOnce sync.Once
	callbackPtr  uintptr
)

func hookCallback() uintptr {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(lowLevelKeyboardProc)
	})
	return callbackPtr
}

func lowLevelKeyboardProc(code, wparam, lparam uintptr) uintptr {
	if dispatchKeyEvent(code, wparam, lparam) {
		return 1
	}
	ret, _, _ := procCallNextHookEx.Call(0, code, wparam, lparam)
	return ret
}

// dispatchKeyEvent must never let a panic escape into the OS hook chain;
// a crash here takes down keyboard input for every application.
func dispatchKeyEvent(code, wparam, lparam uintptr) (swallow bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("keyboard hook panic recovered", "panic", r)
			swallow = false
		}
	}()

	if int32(code) < 0 {
		return false
	}
	e := activeEngine.Load()
	if e == nil {
		return false
	}

	var down bool
	switch wparam {
	case wmKeyDown, wmSysKeyDown:
		down = true
	case wmKeyUp, wmSysKeyUp:
		down = false
	default:
		return false
	}

	k := (*kbdllHookStruct)(unsafe.Pointer(lparam))
	return e.OnKeyEvent(k.VkCode, down)
}

// Hook is an installed low-level keyboard hook with its own message pump
// thread. Events flow out through the Engine passed to Install.
type Hook struct {
	threadID uint32
	done     chan struct{}
}

// Install registers the keyboard hook on a dedicated OS thread and starts
// its message pump. Returns once the hook is live or failed to register.
func Install(e *Engine) (*Hook, error) {
	if !activeEngine.CompareAndSwap(nil, e) {
		return nil, errors.New("hook: already installed")
	}

	h := &Hook{done: make(chan struct{})}
	ready := make(chan error, 1)

	go func() {
		// Low-level hooks are dispatched to the thread that installed
		// them, so the registration and the pump share one locked thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(h.done)

		handle, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookCallback(), 0, 0)
		if handle == 0 {
			activeEngine.Store(nil)
			ready <- fmt.Errorf("hook: SetWindowsHookEx: %w", callErr)
			return
		}
		h.threadID = windows.GetCurrentThreadId()
		ready <- nil

		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if ret == 0 || int32(ret) == -1 {
				break
			}
		}

		_, _, _ = procUnhookWindowsHookEx.Call(handle)
		activeEngine.Store(nil)
	}()

	if err := <-ready; err != nil {
		return nil, err
	}
	slog.Debug("keyboard hook installed", "thread", h.threadID)
	return h, nil
}

// Uninstall asks the pump thread to quit and waits for it to unhook.
func (h *Hook) Uninstall() error {
	ret, _, callErr := procPostThreadMessageW.Call(uintptr(h.threadID), wmQuit, 0, 0)
	if ret == 0 {
		return fmt.Errorf("hook: post quit: %w", callErr)
	}
	select {
	case <-h.done:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("hook: pump thread did not exit")
	}
}
