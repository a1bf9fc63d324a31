// Package afk implements idle auto-mute: when the user has produced no
// input for the configured timeout, the microphone is muted. The check is
// timer-driven rather than polled; each evaluation tells the caller when
// the next check is due.
package afk

import "time"

// rescheduleFloor keeps the timer from spinning when the deadline is near.
const rescheduleFloor = time.Second

// Decision is the outcome of one idle check.
type Decision struct {
	// Mute is set when the idle timeout has been crossed.
	Mute bool
	// Next is how long to wait before the next check. Meaningless when
	// Stop is set.
	Next time.Duration
	// Stop is set when auto-mute is disabled and the timer should die.
	Stop bool
}

// Evaluate computes the auto-mute decision for the current idle duration.
// After the timeout is crossed the check keeps firing every second so the
// mute reasserts if something unmutes while the user is still away.
func Evaluate(enabled bool, timeout, idle time.Duration) Decision {
	if !enabled {
		return Decision{Stop: true}
	}
	remaining := timeout - idle
	if remaining <= 0 {
		return Decision{Mute: true, Next: rescheduleFloor}
	}
	// Wake just past the deadline; earlier input pushes it out again.
	next := remaining + 100*time.Millisecond
	if next < rescheduleFloor {
		next = rescheduleFloor
	}
	return Decision{Next: next}
}
