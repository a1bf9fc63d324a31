//go:build !windows

package feedback

import "time"

func systemBeep(freq, durationMS uint32) error {
	time.Sleep(time.Duration(durationMS) * time.Millisecond)
	return nil
}
