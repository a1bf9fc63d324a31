//go:build !windows

package hook

import "errors"

// Hook is unavailable off Windows; the application runs without hotkeys.
type Hook struct{}

func Install(e *Engine) (*Hook, error) {
	return nil, errors.New("hook: global keyboard hook requires windows")
}

func (h *Hook) Uninstall() error { return nil }
