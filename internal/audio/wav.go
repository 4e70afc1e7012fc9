package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Profile describes the PCM format the transcription engine expects.
type Profile struct {
	SampleRate  int // samples per second
	SampleWidth int // bytes per sample
	Channels    int
}

// DefaultProfile is 16 kHz, 16-bit, mono signed PCM.
func DefaultProfile() Profile {
	return Profile{SampleRate: 16000, SampleWidth: 2, Channels: 1}
}

// BytesPerSecond returns the raw byte rate of the profile.
func (p Profile) BytesPerSecond() int {
	return p.SampleRate * p.SampleWidth * p.Channels
}

func (p Profile) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", p.SampleRate, p.SampleWidth*8, p.Channels)
}

const pcmFormat = 1

// Probe parses a RIFF/WAVE header and returns the embedded format together
// with the raw sample payload. The payload is a sub-slice of wav, not a copy.
func Probe(wav []byte) (Profile, []byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Profile{}, nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		profile Profile
		data    []byte
		haveFmt bool
	)

	// Walk the chunk list. Chunks are padded to even sizes.
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if body+size > len(wav) {
			return Profile{}, nil, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Profile{}, nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(wav[body : body+2])
			if format != pcmFormat {
				return Profile{}, nil, fmt.Errorf("unsupported WAV encoding: %d", format)
			}
			profile = Profile{
				Channels:    int(binary.LittleEndian.Uint16(wav[body+2 : body+4])),
				SampleRate:  int(binary.LittleEndian.Uint32(wav[body+4 : body+8])),
				SampleWidth: int(binary.LittleEndian.Uint16(wav[body+14:body+16])) / 8,
			}
			haveFmt = true
		case "data":
			data = wav[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return Profile{}, nil, fmt.Errorf("missing fmt chunk")
	}
	if data == nil {
		return Profile{}, nil, fmt.Errorf("missing data chunk")
	}
	return profile, data, nil
}

// MakeWAV wraps raw PCM audio in a WAV container for the given profile.
func MakeWAV(pcm []byte, p Profile) []byte {
	var buf bytes.Buffer

	byteRate := p.BytesPerSecond()
	blockAlign := p.Channels * p.SampleWidth
	dataSize := len(pcm)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(p.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(p.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(p.SampleWidth*8))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes()
}
