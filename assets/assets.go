// Package assets holds the built-in tray icons and audio cues.
package assets

import (
	"embed"
	"path"
)

//go:embed mic.ico mic_mute.ico mute.wav unmute.wav
var files embed.FS

// IconLive is the tray icon shown while the microphone is live.
func IconLive() []byte { return mustRead("mic.ico") }

// IconMuted is the tray icon shown while the microphone is muted.
func IconMuted() []byte { return mustRead("mic_mute.ico") }

// Sound returns the built-in cue with the given file name.
func Sound(name string) ([]byte, bool) {
	data, err := files.ReadFile(path.Base(name))
	if err != nil {
		return nil, false
	}
	return data, true
}

func mustRead(name string) []byte {
	data, err := files.ReadFile(name)
	if err != nil {
		panic("assets: missing " + name)
	}
	return data
}
