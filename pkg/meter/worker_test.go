package meter_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"micmute/pkg/meter"
)

// fakeSource serves a fixed peak sequence, then errors.
type fakeSource struct {
	peaks  []float64
	idx    int
	closed atomic.Bool
}

func (f *fakeSource) ReadPeak() (float64, error) {
	if f.idx >= len(f.peaks) {
		return 0, errors.New("no more samples")
	}
	p := f.peaks[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func collect(t *testing.T, w *meter.Worker) []bool {
	t.Helper()
	var out []bool
	for {
		select {
		case v := <-w.Activity():
			out = append(out, v)
		case <-w.Done():
			// Drain anything emitted just before exit.
			for {
				select {
				case v := <-w.Activity():
					out = append(out, v)
				default:
					return out
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not finish")
		}
	}
}

func TestWorkerEmitsOnlyThresholdCrossings(t *testing.T) {
	src := &fakeSource{peaks: []float64{0.05, 0.05, 0.15, 0.15, 0.05}}
	w := meter.NewWorker(func() (meter.Source, error) { return src, nil }, 0.10)
	w.Start()

	got := collect(t, w)
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("activity = %v, want [true false]", got)
	}
	if !src.closed.Load() {
		t.Fatal("source not closed on exit")
	}
}

func TestWorkerTurnsIndicatorOffOnDeviceLoss(t *testing.T) {
	src := &fakeSource{peaks: []float64{0.5}}
	w := meter.NewWorker(func() (meter.Source, error) { return src, nil }, 0.10)
	w.Start()

	got := collect(t, w)
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("activity = %v, want [true false] around device loss", got)
	}
}

func TestWorkerStop(t *testing.T) {
	src := &fakeSource{peaks: make([]float64, 10000)}
	w := meter.NewWorker(func() (meter.Source, error) { return src, nil }, 0.10)
	w.Start()

	time.Sleep(120 * time.Millisecond)
	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Fatal("Stop returned before the worker exited")
	}
	if !src.closed.Load() {
		t.Fatal("source not closed after Stop")
	}
}

func TestWorkerOpenFailure(t *testing.T) {
	w := meter.NewWorker(func() (meter.Source, error) { return nil, errors.New("no device") }, 0.10)
	w.Start()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after open failure")
	}
	if got := collect(t, w); len(got) != 0 {
		t.Fatalf("activity = %v, want none", got)
	}
}
