package config

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode parses a raw JSON config document into a Config, normalizing the
// legacy shapes older releases wrote:
//
//   - sound_config entries that are a bare filename string instead of a
//     {file, volume} object
//   - a flat hotkey object {vk, name} instead of {mode, toggle, mute, unmute}
//
// Unknown keys are ignored and missing keys keep their defaults. After
// migration each section is validated independently; a section that fails
// validation is reset to its default rather than failing the whole load.
func Decode(data []byte) (*Config, error) {
	var raw struct {
		DeviceID    *string         `json:"device_id"`
		SyncIDs     []string        `json:"sync_ids"`
		BeepEnabled *bool           `json:"beep_enabled"`
		AudioMode   *string         `json:"audio_mode"`
		BeepConfig  json.RawMessage `json:"beep_config"`
		SoundConfig json.RawMessage `json:"sound_config"`
		Hotkey      json.RawMessage `json:"hotkey"`
		AFK         json.RawMessage `json:"afk"`
		Overlay     json.RawMessage `json:"overlay"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := Default()
	if raw.DeviceID != nil {
		cfg.DeviceID = *raw.DeviceID
	}
	if raw.SyncIDs != nil {
		cfg.SyncIDs = raw.SyncIDs
	}
	if raw.BeepEnabled != nil {
		cfg.BeepEnabled = *raw.BeepEnabled
	}
	if raw.AudioMode != nil {
		cfg.AudioMode = *raw.AudioMode
	}
	if len(raw.BeepConfig) > 0 {
		if err := json.Unmarshal(raw.BeepConfig, &cfg.BeepConfig); err != nil {
			slog.Warn("config: unreadable beep_config, keeping defaults", "err", err)
		}
	}
	if len(raw.SoundConfig) > 0 {
		migrateSounds(raw.SoundConfig, &cfg.SoundConfig)
	}
	if len(raw.Hotkey) > 0 {
		migrateHotkey(raw.Hotkey, &cfg.Hotkey)
	}
	if len(raw.AFK) > 0 {
		if err := json.Unmarshal(raw.AFK, &cfg.AFK); err != nil {
			slog.Warn("config: unreadable afk section, keeping defaults", "err", err)
		}
	}
	if len(raw.Overlay) > 0 {
		if err := json.Unmarshal(raw.Overlay, &cfg.Overlay); err != nil {
			slog.Warn("config: unreadable overlay section, keeping defaults", "err", err)
		}
	}

	normalize(cfg)
	return cfg, nil
}

// migrateSounds accepts both the current {file, volume} objects and the
// legacy bare-string form.
func migrateSounds(data json.RawMessage, dst *Sounds) {
	var current Sounds
	if err := json.Unmarshal(data, &current); err == nil {
		*dst = current
		fillSoundDefaults(dst)
		return
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		slog.Warn("config: unreadable sound_config, keeping defaults", "err", err)
		return
	}
	for key, val := range legacy {
		var spec SoundSpec
		if err := json.Unmarshal(val, &spec); err != nil {
			var file string
			if err := json.Unmarshal(val, &file); err != nil {
				continue
			}
			spec = SoundSpec{File: file, Volume: 100}
		}
		switch key {
		case "mute":
			dst.Mute = spec
		case "unmute":
			dst.Unmute = spec
		}
	}
	fillSoundDefaults(dst)
}

func fillSoundDefaults(s *Sounds) {
	if s.Mute.File == "" {
		s.Mute.File = "mute.wav"
	}
	if s.Unmute.File == "" {
		s.Unmute.File = "unmute.wav"
	}
}

// migrateHotkey accepts both the current sectioned form and the legacy flat
// {vk, name} object, which described a single toggle binding.
func migrateHotkey(data json.RawMessage, dst *Hotkey) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		slog.Warn("config: unreadable hotkey section, keeping defaults", "err", err)
		return
	}
	if _, flat := probe["vk"]; flat {
		var b Binding
		if err := json.Unmarshal(data, &b); err == nil {
			dst.Mode = HotkeyModeToggle
			dst.Toggle = b
			if dst.Toggle.Name == "" {
				dst.Toggle.Name = "Unknown"
			}
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("config: unreadable hotkey section, keeping defaults", "err", err)
	}
}

// normalize resets any section that fails validation to its default so a
// partially damaged file never prevents startup.
func normalize(cfg *Config) {
	def := Default()

	if err := validate.Var(cfg.AudioMode, "oneof=beep custom"); err != nil {
		slog.Warn("config: invalid audio_mode, resetting", "mode", cfg.AudioMode)
		cfg.AudioMode = def.AudioMode
	}
	if err := validate.Struct(cfg.BeepConfig); err != nil {
		slog.Warn("config: invalid beep_config, resetting", "err", err)
		cfg.BeepConfig = def.BeepConfig
	}
	if err := validate.Struct(cfg.SoundConfig); err != nil {
		slog.Warn("config: invalid sound_config, resetting", "err", err)
		cfg.SoundConfig = def.SoundConfig
	}
	if err := validate.Struct(cfg.Hotkey); err != nil {
		slog.Warn("config: invalid hotkey section, resetting", "err", err)
		cfg.Hotkey = def.Hotkey
	}
	if err := validate.Struct(cfg.AFK); err != nil {
		slog.Warn("config: invalid afk section, resetting", "err", err)
		cfg.AFK = def.AFK
	}
	if err := validate.Struct(cfg.Overlay); err != nil {
		slog.Warn("config: invalid overlay section, resetting", "err", err)
		cfg.Overlay = def.Overlay
	}
	if cfg.SyncIDs == nil {
		cfg.SyncIDs = []string{}
	}
}
