// Package feedback plays the audible cues for mute transitions: either
// generated beep sequences or user-supplied WAV files, with a fallback
// chain that always ends in a sound the user can hear.
package feedback

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"micmute/pkg/config"
)

// Settings is the slice of the configuration the dispatcher acts on.
type Settings struct {
	Enabled bool
	Mode    string
	Beeps   config.Beeps
	Sounds  config.Sounds
}

// SettingsFrom extracts the feedback settings from a full configuration.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Enabled: cfg.BeepEnabled,
		Mode:    cfg.AudioMode,
		Beeps:   cfg.BeepConfig,
		Sounds:  cfg.SoundConfig,
	}
}

// Options wires the dispatcher's collaborators. Zero fields get real
// implementations; tests inject fakes.
type Options struct {
	// Beep plays one tone and blocks for its duration.
	Beep func(freq, durationMS uint32) error
	// Play plays a decoded clip at the given volume and blocks.
	Play func(clip *Clip, volume int) error
	// ExternalDir is searched first for cue files named in the config.
	ExternalDir string
	// Embedded resolves a cue file name to built-in data.
	Embedded func(name string) ([]byte, bool)
	// OnHeal is called when a configured cue file is unusable and the
	// built-in default was substituted, so the config can be rewritten.
	OnHeal func(mute bool, spec config.SoundSpec)
}

// Dispatcher turns state transitions into audible cues. Transition and
// Failure return immediately; playback happens on a background goroutine,
// serialized so overlapping transitions never mix cues.
type Dispatcher struct {
	mu  sync.Mutex
	set Settings

	beep     func(uint32, uint32) error
	play     func(*Clip, int) error
	external string
	embedded func(string) ([]byte, bool)
	onHeal   func(bool, config.SoundSpec)

	playMu sync.Mutex
}

func NewDispatcher(set Settings, opts Options) *Dispatcher {
	d := &Dispatcher{
		set:      set,
		beep:     opts.Beep,
		play:     opts.Play,
		external: opts.ExternalDir,
		embedded: opts.Embedded,
		onHeal:   opts.OnHeal,
	}
	if d.beep == nil {
		d.beep = systemBeep
	}
	if d.play == nil {
		d.play = playClip
	}
	if d.embedded == nil {
		d.embedded = func(string) ([]byte, bool) { return nil, false }
	}
	return d
}

// Apply swaps the feedback settings; the next transition sees them.
func (d *Dispatcher) Apply(set Settings) {
	d.mu.Lock()
	d.set = set
	d.mu.Unlock()
}

// Transition plays the cue for entering the given mute state.
func (d *Dispatcher) Transition(muted bool) {
	d.mu.Lock()
	set := d.set
	d.mu.Unlock()

	if !set.Enabled {
		return
	}
	go func() {
		d.playMu.Lock()
		defer d.playMu.Unlock()
		if set.Mode == config.AudioModeCustom {
			if d.playCustom(muted, set) {
				return
			}
		}
		d.playBeeps(pickBeep(muted, set.Beeps))
	}()
}

// Failure plays the error tone for a command that could not be applied.
func (d *Dispatcher) Failure() {
	d.mu.Lock()
	enabled := d.set.Enabled
	d.mu.Unlock()
	if !enabled {
		return
	}
	go func() {
		d.playMu.Lock()
		defer d.playMu.Unlock()
		if err := d.beep(200, 500); err != nil {
			slog.Debug("error beep failed", "error", err)
		}
	}()
}

func pickBeep(muted bool, b config.Beeps) config.BeepSpec {
	if muted {
		return b.Mute
	}
	return b.Unmute
}

func pickSound(muted bool, s config.Sounds) config.SoundSpec {
	if muted {
		return s.Mute
	}
	return s.Unmute
}

func (d *Dispatcher) playBeeps(spec config.BeepSpec) {
	for i := 0; i < spec.Count; i++ {
		if err := d.beep(uint32(spec.Freq), uint32(spec.Duration)); err != nil {
			slog.Debug("beep failed", "error", err)
			return
		}
	}
}

// playCustom resolves and plays the configured cue file. Resolution order:
// the external sound directory, then the embedded cue of the same name,
// then the embedded default for the transition. When the configured file
// is unusable the config is healed to point at the default. Returns false
// when nothing could be played, so the caller falls back to beeps.
func (d *Dispatcher) playCustom(muted bool, set Settings) bool {
	spec := pickSound(muted, set.Sounds)
	defaultName := "unmute.wav"
	if muted {
		defaultName = "mute.wav"
	}

	if spec.File != "" {
		name := filepath.Base(spec.File)
		if d.external != "" {
			if data, err := os.ReadFile(filepath.Join(d.external, name)); err == nil {
				if d.tryPlay(data, spec.Volume) {
					return true
				}
				slog.Warn("cue file unplayable", "file", name)
			}
		}
		if data, ok := d.embedded(name); ok {
			if d.tryPlay(data, spec.Volume) {
				return true
			}
		}
	}

	// The configured cue is gone or broken; substitute the built-in
	// default and persist the substitution.
	if data, ok := d.embedded(defaultName); ok {
		if d.tryPlay(data, spec.Volume) {
			if spec.File != defaultName && d.onHeal != nil {
				healed := config.SoundSpec{File: defaultName, Volume: spec.Volume}
				slog.Info("cue file reset to default", "was", spec.File, "now", defaultName)
				d.onHeal(muted, healed)
			}
			return true
		}
	}
	return false
}

func (d *Dispatcher) tryPlay(data []byte, volume int) bool {
	clip, err := DecodeWAV(data)
	if err != nil {
		slog.Debug("decode cue failed", "error", err)
		return false
	}
	if err := d.play(clip, volume); err != nil {
		slog.Debug("play cue failed", "error", err)
		return false
	}
	return true
}
