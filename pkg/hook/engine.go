package hook

import (
	"sync/atomic"
)

const (
	vkLeftAlt  = 0xA4
	vkRightAlt = 0xA5
)

// Engine turns raw key events into actions. OnKeyEvent is called from the
// OS hook thread and must never block, so matched actions go out through a
// buffered channel with a drop counter; everything else on the Engine is
// safe to call from any goroutine.
type Engine struct {
	bindings  atomic.Pointer[compiled]
	recording atomic.Bool

	actions  chan Action
	recorded chan uint32
	dropped  atomic.Uint64

	// Alt-chord state, touched only by the hook thread.
	lAlt, rAlt bool
}

func NewEngine(b Bindings) *Engine {
	e := &Engine{
		actions:  make(chan Action, 16),
		recorded: make(chan uint32, 1),
	}
	e.bindings.Store(compile(b))
	return e
}

// SetBindings swaps the hotkey bindings; the next key event sees them.
func (e *Engine) SetBindings(b Bindings) {
	e.bindings.Store(compile(b))
}

// Actions delivers the matched hotkey actions in press order.
func (e *Engine) Actions() <-chan Action { return e.actions }

// Recorded delivers the key captured by the most recent StartRecording.
func (e *Engine) Recorded() <-chan uint32 { return e.recorded }

// StartRecording arms capture mode: the next key press is reported on
// Recorded instead of being matched, then capture disarms itself.
func (e *Engine) StartRecording() { e.recording.Store(true) }

// StopRecording disarms capture mode without capturing anything.
func (e *Engine) StopRecording() { e.recording.Store(false) }

// Recording reports whether capture mode is armed.
func (e *Engine) Recording() bool { return e.recording.Load() }

// Dropped returns how many actions were discarded because the consumer
// fell behind.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// OnKeyEvent classifies one key transition and reports whether the event
// should be swallowed before the rest of the system sees it. Must be
// called from a single goroutine (the hook thread).
func (e *Engine) OnKeyEvent(vk uint32, down bool) bool {
	if e.recording.Load() {
		if !down {
			return false
		}
		e.recording.Store(false)
		select {
		case e.recorded <- vk:
		default:
		}
		return true
	}

	b := e.bindings.Load()
	switch {
	case b.toggleVK != 0 && vk == b.toggleVK:
		if down {
			e.emit(ActionToggle)
		}
		return true
	case b.muteVK != 0 && vk == b.muteVK:
		if down {
			e.emit(ActionMute)
		}
		return true
	case b.unmuteVK != 0 && vk == b.unmuteVK:
		if down {
			e.emit(ActionUnmute)
		}
		return true
	case vk == vkLeftAlt || vk == vkRightAlt:
		// Legacy both-Alts chord, one-shot: fires once, then both keys
		// must be seen down again.
		if vk == vkLeftAlt {
			e.lAlt = down
		} else {
			e.rAlt = down
		}
		if e.lAlt && e.rAlt {
			e.lAlt, e.rAlt = false, false
			e.emit(ActionToggle)
		}
	}
	return false
}

func (e *Engine) emit(a Action) {
	select {
	case e.actions <- a:
	default:
		e.dropped.Add(1)
	}
}
