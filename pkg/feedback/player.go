package feedback

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const playbackFrameSize = 512

// playClip writes a clip to the default output device and blocks until it
// has fully played. PortAudio is initialized per call; cues are short and
// rare enough that holding the library open between them buys nothing.
func playClip(clip *Clip, volume int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("feedback: init portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	out, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("feedback: no output device: %w", err)
	}

	params := portaudio.LowLatencyParameters(nil, out)
	params.Output.Channels = clip.Channels
	params.Input.Device = nil
	params.Input.Channels = 0
	params.SampleRate = clip.SampleRate
	params.FramesPerBuffer = playbackFrameSize

	buffer := make([]int16, playbackFrameSize*clip.Channels)
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return fmt.Errorf("feedback: open playback stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("feedback: start playback: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	samples := clip.scaled(volume)
	for off := 0; off < len(samples); off += len(buffer) {
		n := copy(buffer, samples[off:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("feedback: write frame: %w", err)
		}
	}
	return nil
}
