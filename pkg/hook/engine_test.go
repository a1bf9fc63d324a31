package hook_test

import (
	"testing"

	"micmute/pkg/hook"
)

func drainActions(e *hook.Engine) []hook.Action {
	var out []hook.Action
	for {
		select {
		case a := <-e.Actions():
			out = append(out, a)
		default:
			return out
		}
	}
}

func press(e *hook.Engine, vk uint32) (downSwallowed, upSwallowed bool) {
	downSwallowed = e.OnKeyEvent(vk, true)
	upSwallowed = e.OnKeyEvent(vk, false)
	return
}

func TestToggleKeyEmitsOncePerPress(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 0xB3})

	down, up := press(e, 0xB3)
	if !down || !up {
		t.Fatalf("toggle key swallow = (%v, %v), want both true", down, up)
	}
	got := drainActions(e)
	if len(got) != 1 || got[0] != hook.ActionToggle {
		t.Fatalf("actions = %v, want [toggle]", got)
	}
}

func TestUnboundKeyPassesThrough(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 0xB3})

	if e.OnKeyEvent('Q', true) {
		t.Fatal("unbound key down was swallowed")
	}
	if e.OnKeyEvent('Q', false) {
		t.Fatal("unbound key up was swallowed")
	}
	if got := drainActions(e); len(got) != 0 {
		t.Fatalf("actions = %v, want none", got)
	}
}

func TestSeparateKeysPreserveOrder(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeSeparate, MuteVK: 'M', UnmuteVK: 'U'})

	press(e, 'M')
	press(e, 'U')
	press(e, 'M')

	want := []hook.Action{hook.ActionMute, hook.ActionUnmute, hook.ActionMute}
	got := drainActions(e)
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("actions = %v, want %v", got, want)
		}
	}
}

func TestSeparateSameKeyDegradesToToggle(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeSeparate, MuteVK: 'M', UnmuteVK: 'M'})

	press(e, 'M')
	press(e, 'M')

	got := drainActions(e)
	if len(got) != 2 || got[0] != hook.ActionToggle || got[1] != hook.ActionToggle {
		t.Fatalf("actions = %v, want [toggle toggle]", got)
	}
}

func TestRecordingCapturesNextPress(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 0xB3})
	e.StartRecording()

	// The bound key is captured instead of matched while recording.
	if !e.OnKeyEvent(0xB3, true) {
		t.Fatal("captured key down was not swallowed")
	}
	select {
	case vk := <-e.Recorded():
		if vk != 0xB3 {
			t.Fatalf("recorded vk = %#x, want 0xB3", vk)
		}
	default:
		t.Fatal("no key was recorded")
	}
	if got := drainActions(e); len(got) != 0 {
		t.Fatalf("actions during recording = %v, want none", got)
	}
	if e.Recording() {
		t.Fatal("recording still armed after capture")
	}

	// Matching resumes immediately afterwards.
	e.OnKeyEvent(0xB3, false)
	press(e, 0xB3)
	if got := drainActions(e); len(got) != 1 || got[0] != hook.ActionToggle {
		t.Fatalf("actions after recording = %v, want [toggle]", got)
	}
}

func TestBothAltsFireToggleOnce(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 0xB3})

	if e.OnKeyEvent(0xA4, true) {
		t.Fatal("left alt was swallowed")
	}
	e.OnKeyEvent(0xA5, true)
	if got := drainActions(e); len(got) != 1 || got[0] != hook.ActionToggle {
		t.Fatalf("actions = %v, want [toggle]", got)
	}

	// One-shot: a repeated right-alt down alone must not refire.
	e.OnKeyEvent(0xA5, true)
	if got := drainActions(e); len(got) != 0 {
		t.Fatalf("chord refired on single alt: %v", got)
	}

	// Both keys seen down again fires again.
	e.OnKeyEvent(0xA4, true)
	if got := drainActions(e); len(got) != 1 || got[0] != hook.ActionToggle {
		t.Fatalf("actions after rearm = %v, want [toggle]", got)
	}
}

func TestDroppedCountsDiscardedActions(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 'A'})

	// The action queue holds 16; anything past that is counted, not queued.
	for i := 0; i < 20; i++ {
		press(e, 'A')
	}
	if got := e.Dropped(); got != 4 {
		t.Fatalf("dropped = %d, want 4", got)
	}
	if got := drainActions(e); len(got) != 16 {
		t.Fatalf("queued actions = %d, want 16", len(got))
	}
}

func TestSetBindingsTakesEffect(t *testing.T) {
	e := hook.NewEngine(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 'A'})
	e.SetBindings(hook.Bindings{Mode: hook.ModeToggle, ToggleVK: 'B'})

	press(e, 'A')
	if got := drainActions(e); len(got) != 0 {
		t.Fatalf("old binding still live: %v", got)
	}
	press(e, 'B')
	if got := drainActions(e); len(got) != 1 || got[0] != hook.ActionToggle {
		t.Fatalf("new binding inactive: %v", got)
	}
}

func TestKeyNames(t *testing.T) {
	cases := []struct {
		vk   uint32
		want string
	}{
		{0xB3, "Play/Pause"},
		{'A', "A"},
		{'7', "7"},
		{0x75, "F6"},
		{0x64, "Numpad 4"},
		{0xE9, "Key 0xE9"},
	}
	for _, c := range cases {
		if got := hook.KeyName(c.vk); got != c.want {
			t.Errorf("KeyName(%#x) = %q, want %q", c.vk, got, c.want)
		}
	}
}
