// Package meter samples a capture device's peak level and reports voice
// activity flips. One Worker serves one device for one visibility span;
// changing device or sensitivity range means stopping it and starting a
// fresh one.
package meter

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const sampleInterval = 50 * time.Millisecond

// Source reads instantaneous peak levels in [0, 1].
type Source interface {
	ReadPeak() (float64, error)
	Close() error
}

// Worker polls a Source and emits a value on Activity whenever the signal
// crosses the sensitivity threshold in either direction. The source is
// opened, polled, and closed on the worker's own OS-locked thread.
type Worker struct {
	open        func() (Source, error)
	sensitivity atomic.Uint64

	activity chan bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker prepares a worker; Start launches it. The open callback runs
// on the worker thread.
func NewWorker(open func() (Source, error), sensitivity float64) *Worker {
	w := &Worker{
		open:     open,
		activity: make(chan bool, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.sensitivity.Store(math.Float64bits(sensitivity))
	return w
}

// SetSensitivity adjusts the threshold; the next sample sees it.
func (w *Worker) SetSensitivity(s float64) {
	w.sensitivity.Store(math.Float64bits(s))
}

func (w *Worker) threshold() float64 {
	return math.Float64frombits(w.sensitivity.Load())
}

// Activity delivers voice-activity transitions: true on the first sample
// above the threshold, false on the first back below.
func (w *Worker) Activity() <-chan bool { return w.activity }

// Done is closed when the worker has exited, whether stopped or failed.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) Start() { go w.run() }

// Stop asks the worker to exit and waits briefly for its thread to wind
// down the source.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		slog.Warn("meter worker did not stop in time")
	}
}

func (w *Worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	src, err := w.open()
	if err != nil {
		slog.Warn("meter unavailable", "error", err)
		return
	}
	defer func() { _ = src.Close() }()

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	active := false
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			peak, err := src.ReadPeak()
			if err != nil {
				// Device vanished mid-session; leave the indicator off.
				if active {
					w.emit(false)
				}
				slog.Warn("meter read failed", "error", err)
				return
			}
			now := peak > w.threshold()
			if now != active {
				active = now
				w.emit(now)
			}
		}
	}
}

func (w *Worker) emit(v bool) {
	select {
	case w.activity <- v:
	case <-w.stop:
	}
}
