//go:build windows

package afk

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	Size uint32
	Time uint32
}

// Idle returns how long ago the last keyboard or mouse input happened.
// Tick counts wrap every 49.7 days; the uint32 subtraction handles that.
func Idle() (time.Duration, error) {
	info := lastInputInfo{Size: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ret, _, callErr := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("afk: GetLastInputInfo: %w", callErr)
	}
	now, _, _ := procGetTickCount.Call()
	elapsed := uint32(now) - info.Time
	return time.Duration(elapsed) * time.Millisecond, nil
}
