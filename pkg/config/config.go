// Package config defines the persisted MicMute configuration and its JSON
// store. The on-disk document is forward-compatible: unknown keys are
// ignored and missing or invalid sections fall back to their defaults.
package config

import (
	"os"
	"path/filepath"
)

// Audio feedback modes.
const (
	AudioModeBeep   = "beep"
	AudioModeCustom = "custom"
)

// Hotkey modes.
const (
	HotkeyModeToggle   = "toggle"
	HotkeyModeSeparate = "separate"
)

// BeepSpec describes one generated tone sequence.
type BeepSpec struct {
	Freq     int `json:"freq" validate:"min=37,max=32767"`
	Duration int `json:"duration" validate:"min=10,max=5000"`
	Count    int `json:"count" validate:"min=1,max=10"`
}

// SoundSpec describes one custom cue file. Volume is a percentage of the
// nominal level, up to a 2x boost.
type SoundSpec struct {
	File   string `json:"file"`
	Volume int    `json:"volume" validate:"min=0,max=200"`
}

// Beeps holds the tone sequences for both transitions.
type Beeps struct {
	Mute   BeepSpec `json:"mute"`
	Unmute BeepSpec `json:"unmute"`
}

// Sounds holds the cue files for both transitions.
type Sounds struct {
	Mute   SoundSpec `json:"mute"`
	Unmute SoundSpec `json:"unmute"`
}

// Binding is one hotkey assignment: a Windows virtual-key code plus a
// display name. VK 0 means unbound.
type Binding struct {
	VK   uint32 `json:"vk" validate:"max=255"`
	Name string `json:"name"`
}

// Hotkey configures the global hotkeys. In toggle mode only Toggle is used;
// in separate mode Mute and Unmute each force a state.
type Hotkey struct {
	Mode   string  `json:"mode" validate:"oneof=toggle separate"`
	Toggle Binding `json:"toggle"`
	Mute   Binding `json:"mute"`
	Unmute Binding `json:"unmute"`
}

// AFK configures idle auto-mute. Timeout is in seconds.
type AFK struct {
	Enabled bool `json:"enabled"`
	Timeout int  `json:"timeout" validate:"min=5,max=86400"`
}

// Overlay configures the voice-activity indicator. Sensitivity is a
// percentage; the meter reports activity when the sampled peak exceeds
// Sensitivity/100. DeviceID empty means "same device as the master".
type Overlay struct {
	Enabled     bool   `json:"enabled"`
	ShowVU      bool   `json:"show_vu"`
	Sensitivity int    `json:"sensitivity" validate:"min=0,max=100"`
	DeviceID    string `json:"device_id"`
}

// Config is the full persisted configuration.
//
// DeviceID empty means "follow the OS default capture device". SyncIDs are
// devices whose mute state mirrors the master after every change; the
// master's own id is excluded at sync time, not on insert.
type Config struct {
	DeviceID    string   `json:"device_id"`
	SyncIDs     []string `json:"sync_ids"`
	BeepEnabled bool     `json:"beep_enabled"`
	AudioMode   string   `json:"audio_mode" validate:"oneof=beep custom"`
	BeepConfig  Beeps    `json:"beep_config"`
	SoundConfig Sounds   `json:"sound_config"`
	Hotkey      Hotkey   `json:"hotkey"`
	AFK         AFK      `json:"afk"`
	Overlay     Overlay  `json:"overlay"`
}

// VK_MEDIA_PLAY_PAUSE, the factory toggle key.
const defaultToggleVK = 0xB3

// Default returns the factory configuration.
func Default() *Config {
	return &Config{
		SyncIDs:     []string{},
		BeepEnabled: true,
		AudioMode:   AudioModeBeep,
		BeepConfig: Beeps{
			Mute:   BeepSpec{Freq: 650, Duration: 180, Count: 2},
			Unmute: BeepSpec{Freq: 700, Duration: 200, Count: 1},
		},
		SoundConfig: Sounds{
			Mute:   SoundSpec{File: "mute.wav", Volume: 100},
			Unmute: SoundSpec{File: "unmute.wav", Volume: 100},
		},
		Hotkey: Hotkey{
			Mode:   HotkeyModeToggle,
			Toggle: Binding{VK: defaultToggleVK, Name: "Media Play/Pause"},
			Mute:   Binding{VK: 0, Name: "None"},
			Unmute: Binding{VK: 0, Name: "None"},
		},
		AFK:     AFK{Enabled: false, Timeout: 60},
		Overlay: Overlay{Enabled: false, ShowVU: false, Sensitivity: 5},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.SyncIDs = append([]string(nil), c.SyncIDs...)
	return &cp
}

// Dir returns the per-user configuration directory
// (%LocalAppData%\MicMute on Windows, ~/.local/share equivalent elsewhere).
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "MicMute")
}

// SoundDir returns the directory searched for user-supplied cue files.
func SoundDir() string {
	return filepath.Join(Dir(), "micmute_sounds")
}
