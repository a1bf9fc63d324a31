//go:build windows

package feedback

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	procBeep = kernel32.NewProc("Beep")
)

// systemBeep plays a tone through the system speaker and blocks for its
// duration.
func systemBeep(freq, durationMS uint32) error {
	ret, _, callErr := procBeep.Call(uintptr(freq), uintptr(durationMS))
	if ret == 0 {
		return fmt.Errorf("feedback: beep: %w", callErr)
	}
	return nil
}
