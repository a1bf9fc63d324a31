//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

// raiseProcessPriority bumps the process to high priority so hook
// callbacks stay responsive under load. Best effort.
func raiseProcessPriority() {
	if err := windows.SetPriorityClass(windows.CurrentProcess(), windows.HIGH_PRIORITY_CLASS); err != nil {
		slog.Debug("could not raise process priority", "error", err)
	}
}
