package feedback

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Clip is a decoded PCM sound ready for playback.
type Clip struct {
	SampleRate float64
	Channels   int
	Samples    []int16
}

var errBadWAV = errors.New("feedback: not a 16-bit PCM WAV file")

// DecodeWAV parses a RIFF/WAVE file containing 16-bit PCM. Anything else
// (float, ADPCM, truncated files) is rejected so a bad cue file degrades
// to beeps instead of playing noise.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errBadWAV
	}

	var clip Clip
	haveFmt := false

	// Walk the chunk list; chunks are word-aligned.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("%w: truncated %q chunk", errBadWAV, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", errBadWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 || channels == 0 {
				return nil, fmt.Errorf("%w: format %d, %d-bit", errBadWAV, format, bits)
			}
			clip.SampleRate = float64(rate)
			clip.Channels = int(channels)
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data before fmt", errBadWAV)
			}
			n := size / 2
			clip.Samples = make([]int16, n)
			for i := 0; i < n; i++ {
				clip.Samples[i] = int16(binary.LittleEndian.Uint16(data[body+2*i : body+2*i+2]))
			}
			return &clip, nil
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	return nil, fmt.Errorf("%w: no data chunk", errBadWAV)
}

// scaled returns the clip's samples with a volume factor applied, where
// 100 is unity gain and 200 doubles the amplitude with clipping.
func (c *Clip) scaled(volume int) []int16 {
	if volume == 100 {
		return c.Samples
	}
	out := make([]int16, len(c.Samples))
	for i, s := range c.Samples {
		v := int32(s) * int32(volume) / 100
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
