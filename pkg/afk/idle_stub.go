//go:build !windows

package afk

import (
	"errors"
	"time"
)

func Idle() (time.Duration, error) {
	return 0, errors.New("afk: idle detection requires windows")
}
