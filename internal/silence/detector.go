package silence

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

// Detector inspects audio chunks and reports the end of a voice command.
// Start arms the detector for a new session; after it has fired once it
// stays quiet until the next Start.
type Detector interface {
	Start()
	Stop()
	ProcessChunk(chunk []byte) (bool, error)
}

// Config tunes the energy detector.
type Config struct {
	Threshold    float64       // normalized RMS energy above this counts as speech
	MinSpeech    time.Duration // voiced time required before silence can end the command
	SilenceAfter time.Duration // trailing silence that ends the command
	Profile      audio.Profile
}

func DefaultConfig() Config {
	return Config{
		Threshold:    0.03,
		MinSpeech:    300 * time.Millisecond,
		SilenceAfter: 500 * time.Millisecond,
		Profile:      audio.DefaultProfile(),
	}
}

// Disabled never reports an end of command. Sessions end only on an
// explicit stop.
type Disabled struct{}

func (Disabled) Start() {}
func (Disabled) Stop()  {}
func (Disabled) ProcessChunk(_ []byte) (bool, error) { return false, nil }

// EnergyDetector is an RMS-energy voice activity detector with
// speech/silence hysteresis.
type EnergyDetector struct {
	cfg Config

	mu      sync.Mutex
	running bool
	fired   bool
	speech  time.Duration // accumulated voiced time
	silence time.Duration // trailing silence after enough speech
}

func NewEnergyDetector(cfg Config) *EnergyDetector {
	return &EnergyDetector{cfg: cfg}
}

// Start arms the detector and resets all accumulated state.
func (d *EnergyDetector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.fired = false
	d.speech = 0
	d.silence = 0
}

// Stop disarms the detector. Chunks processed while stopped are ignored.
func (d *EnergyDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
}

// ProcessChunk feeds one chunk of raw PCM. Returns true exactly once per
// Start, when enough speech has been followed by enough silence.
func (d *EnergyDetector) ProcessChunk(chunk []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.fired {
		return false, nil
	}

	energy, err := rmsEnergy(chunk, d.cfg.Profile.SampleWidth)
	if err != nil {
		return false, err
	}

	dur := chunkDuration(len(chunk), d.cfg.Profile)
	if energy >= d.cfg.Threshold {
		d.speech += dur
		d.silence = 0
		return false, nil
	}

	if d.speech >= d.cfg.MinSpeech {
		d.silence += dur
		if d.silence >= d.cfg.SilenceAfter {
			d.fired = true
			return true, nil
		}
	}
	return false, nil
}

// rmsEnergy computes the RMS energy of a PCM chunk, normalized to 0..1.
// Only 16-bit samples are supported; other widths fall back to byte energy.
func rmsEnergy(chunk []byte, sampleWidth int) (float64, error) {
	if len(chunk) == 0 {
		return 0, nil
	}

	if sampleWidth != 2 {
		var sum float64
		for _, b := range chunk {
			v := float64(int(b) - 128)
			sum += v * v
		}
		return math.Sqrt(sum/float64(len(chunk))) / 128, nil
	}

	if len(chunk)%2 != 0 {
		return 0, fmt.Errorf("odd chunk length %d for 16-bit audio", len(chunk))
	}

	var sum float64
	samples := len(chunk) / 2
	for i := 0; i < len(chunk); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(chunk[i : i+2])))
		sum += v * v
	}
	return math.Sqrt(sum/float64(samples)) / 32768, nil
}

func chunkDuration(n int, p audio.Profile) time.Duration {
	rate := p.BytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(rate) * float64(time.Second))
}
