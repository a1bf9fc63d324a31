package mute_test

import (
	"errors"
	"testing"

	"micmute/pkg/mute"
)

type fakeGateway struct {
	states   map[string]bool
	getErr   map[string]error
	setErr   map[string]error
	setCalls []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		states: map[string]bool{},
		getErr: map[string]error{},
		setErr: map[string]error{},
	}
}

func (g *fakeGateway) GetMute(id string) (bool, error) {
	if err := g.getErr[id]; err != nil {
		return false, err
	}
	return g.states[id], nil
}

func (g *fakeGateway) SetMute(id string, muted bool) error {
	g.setCalls = append(g.setCalls, id)
	if err := g.setErr[id]; err != nil {
		return err
	}
	g.states[id] = muted
	return nil
}

type fakeFeedback struct {
	transitions []bool
	failures    int
}

func (f *fakeFeedback) Transition(muted bool) { f.transitions = append(f.transitions, muted) }
func (f *fakeFeedback) Failure()              { f.failures++ }

func TestToggleFlipsMasterAndNotifies(t *testing.T) {
	gw := newFakeGateway()
	fb := &fakeFeedback{}
	c := mute.NewController(gw, fb)
	c.SetMaster("master")

	var notified []bool
	c.OnChange(func(muted bool) { notified = append(notified, muted) })

	c.Toggle()
	if !gw.states["master"] {
		t.Fatal("master not muted after toggle")
	}
	c.Toggle()
	if gw.states["master"] {
		t.Fatal("master still muted after second toggle")
	}

	if len(fb.transitions) != 2 || !fb.transitions[0] || fb.transitions[1] {
		t.Fatalf("transitions = %v, want [true false]", fb.transitions)
	}
	if len(notified) != 2 || !notified[0] || notified[1] {
		t.Fatalf("onChange = %v, want [true false]", notified)
	}
}

func TestSetMuteIdempotentStaysSilent(t *testing.T) {
	gw := newFakeGateway()
	gw.states["master"] = true
	fb := &fakeFeedback{}
	c := mute.NewController(gw, fb)
	c.SetMaster("master")

	notified := 0
	c.OnChange(func(bool) { notified++ })

	c.SetMute(true)
	if len(fb.transitions) != 0 {
		t.Fatalf("transitions = %v, want none for no-op command", fb.transitions)
	}
	if notified != 0 {
		t.Fatal("onChange fired for no-op command")
	}
}

func TestSetMuteFansOutToSyncDevices(t *testing.T) {
	gw := newFakeGateway()
	fb := &fakeFeedback{}
	c := mute.NewController(gw, fb)
	c.SetMaster("master")
	c.SetSyncIDs([]string{"a", "master", "", "b"})

	c.SetMute(true)

	if !gw.states["a"] || !gw.states["b"] {
		t.Fatalf("sync states = a:%v b:%v, want both muted", gw.states["a"], gw.states["b"])
	}
	// The master is written once; it must not be re-written by the fan-out.
	masterWrites := 0
	for _, id := range gw.setCalls {
		if id == "master" {
			masterWrites++
		}
	}
	if masterWrites != 1 {
		t.Fatalf("master written %d times, want 1", masterWrites)
	}
}

func TestSyncFailureDoesNotBlockOthers(t *testing.T) {
	gw := newFakeGateway()
	fb := &fakeFeedback{}
	gw.setErr["a"] = errors.New("unplugged")
	c := mute.NewController(gw, fb)
	c.SetMaster("master")
	c.SetSyncIDs([]string{"a", "b"})

	notified := 0
	c.OnChange(func(bool) { notified++ })

	c.SetMute(true)

	if !gw.states["b"] {
		t.Fatal("healthy sync device skipped after a failing one")
	}
	if fb.failures != 0 {
		t.Fatal("sync failure reported as a hard failure")
	}
	if notified != 1 {
		t.Fatalf("onChange fired %d times, want 1", notified)
	}
}

func TestMasterReadFailureSkipsEverything(t *testing.T) {
	gw := newFakeGateway()
	fb := &fakeFeedback{}
	gw.getErr["master"] = errors.New("gone")
	c := mute.NewController(gw, fb)
	c.SetMaster("master")
	c.SetSyncIDs([]string{"a"})

	c.Toggle()

	if len(gw.setCalls) != 0 {
		t.Fatalf("writes happened despite master read failure: %v", gw.setCalls)
	}
	if fb.failures != 1 {
		t.Fatalf("failures = %d, want 1", fb.failures)
	}
}

func TestMasterWriteFailureSkipsSync(t *testing.T) {
	gw := newFakeGateway()
	fb := &fakeFeedback{}
	gw.setErr["master"] = errors.New("gone")
	c := mute.NewController(gw, fb)
	c.SetMaster("master")
	c.SetSyncIDs([]string{"a"})

	c.SetMute(true)

	if gw.states["a"] {
		t.Fatal("sync device written despite master write failure")
	}
	if fb.failures != 1 {
		t.Fatalf("failures = %d, want 1", fb.failures)
	}
}

func TestIdempotentCommandStillResyncsSlaves(t *testing.T) {
	gw := newFakeGateway()
	gw.states["master"] = true
	fb := &fakeFeedback{}
	c := mute.NewController(gw, fb)
	c.SetMaster("master")
	c.SetSyncIDs([]string{"a"})

	c.SetMute(true)

	if !gw.states["a"] {
		t.Fatal("slave not re-synced on no-op command")
	}
}
