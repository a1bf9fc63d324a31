// Package hook captures global keyboard events and classifies them into
// microphone actions. The platform layer feeds raw virtual-key events into
// an Engine, which decides per event whether to swallow it and which
// action, if any, to emit.
package hook

// Action is a microphone command produced by a matched hotkey.
type Action int

const (
	ActionToggle Action = iota
	ActionMute
	ActionUnmute
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionMute:
		return "mute"
	case ActionUnmute:
		return "unmute"
	}
	return "unknown"
}

// Mode selects between a single toggle key and a mute/unmute key pair.
type Mode int

const (
	ModeToggle Mode = iota
	ModeSeparate
)

// Bindings describes the configured hotkeys. A zero VK means unbound.
type Bindings struct {
	Mode     Mode
	ToggleVK uint32
	MuteVK   uint32
	UnmuteVK uint32
}

// compiled is a bindings snapshot with the mute/unmute collision resolved:
// when both separate keys are the same key, that key degrades to a toggle.
type compiled struct {
	toggleVK uint32
	muteVK   uint32
	unmuteVK uint32
}

func compile(b Bindings) *compiled {
	c := &compiled{}
	switch b.Mode {
	case ModeSeparate:
		if b.MuteVK != 0 && b.MuteVK == b.UnmuteVK {
			c.toggleVK = b.MuteVK
		} else {
			c.muteVK = b.MuteVK
			c.unmuteVK = b.UnmuteVK
		}
	default:
		c.toggleVK = b.ToggleVK
	}
	return c
}
