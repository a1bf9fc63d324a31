package afk_test

import (
	"testing"
	"time"

	"micmute/pkg/afk"
)

func TestEvaluateBeforeDeadline(t *testing.T) {
	d := afk.Evaluate(true, 60*time.Second, 45*time.Second)
	if d.Mute || d.Stop {
		t.Fatalf("decision = %+v, want plain reschedule", d)
	}
	if want := 15*time.Second + 100*time.Millisecond; d.Next != want {
		t.Fatalf("next = %v, want %v", d.Next, want)
	}
}

func TestEvaluateCrossedDeadline(t *testing.T) {
	d := afk.Evaluate(true, 60*time.Second, 65*time.Second)
	if !d.Mute {
		t.Fatal("deadline crossed but no mute")
	}
	if d.Next != time.Second {
		t.Fatalf("next = %v, want 1s reassert interval", d.Next)
	}
}

func TestEvaluateExactDeadline(t *testing.T) {
	d := afk.Evaluate(true, 60*time.Second, 60*time.Second)
	if !d.Mute {
		t.Fatal("idle equal to timeout should mute")
	}
}

func TestEvaluateNearDeadlineFloorsReschedule(t *testing.T) {
	d := afk.Evaluate(true, 60*time.Second, 59*time.Second+950*time.Millisecond)
	if d.Mute {
		t.Fatal("muted before the deadline")
	}
	if d.Next != time.Second {
		t.Fatalf("next = %v, want floor of 1s", d.Next)
	}
}

func TestEvaluateDisabledStopsTimer(t *testing.T) {
	d := afk.Evaluate(false, 60*time.Second, 2*time.Hour)
	if !d.Stop {
		t.Fatalf("decision = %+v, want Stop", d)
	}
	if d.Mute {
		t.Fatal("disabled evaluation must not mute")
	}
}
