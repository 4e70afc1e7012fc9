package silence

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

func testConfig() Config {
	return Config{
		Threshold:    0.03,
		MinSpeech:    100 * time.Millisecond,
		SilenceAfter: 100 * time.Millisecond,
		Profile:      audio.Profile{SampleRate: 16000, SampleWidth: 2, Channels: 1},
	}
}

// chunk builds 100 ms of 16-bit mono PCM at a constant amplitude.
func chunk(amplitude int16) []byte {
	samples := 1600
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(amplitude))
	}
	return out
}

func loud() []byte  { return chunk(8000) }
func quiet() []byte { return chunk(10) }

func feed(t *testing.T, d Detector, chunks ...[]byte) bool {
	t.Helper()
	for i, c := range chunks {
		end, err := d.ProcessChunk(c)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if end {
			if i != len(chunks)-1 {
				t.Fatalf("detector fired early, on chunk %d of %d", i, len(chunks))
			}
			return true
		}
	}
	return false
}

func TestDetectorFiresAfterSpeechThenSilence(t *testing.T) {
	d := NewEnergyDetector(testConfig())
	d.Start()

	if !feed(t, d, loud(), quiet()) {
		t.Error("expected end of command after speech followed by silence")
	}
}

func TestDetectorNeedsMinimumSpeech(t *testing.T) {
	d := NewEnergyDetector(testConfig())
	d.Start()

	// Silence alone must never end the command.
	if feed(t, d, quiet(), quiet(), quiet(), quiet()) {
		t.Error("detector fired without any speech")
	}
}

func TestDetectorSpeechResetsSilence(t *testing.T) {
	cfg := testConfig()
	cfg.SilenceAfter = 200 * time.Millisecond
	d := NewEnergyDetector(cfg)
	d.Start()

	// Speech, half the required silence, then speech again: the trailing
	// silence counter starts over.
	if feed(t, d, loud(), quiet(), loud(), quiet()) {
		t.Error("detector fired before the full trailing silence elapsed")
	}
	if !feed(t, d, quiet()) {
		t.Error("expected end of command once the trailing silence completed")
	}
}

func TestDetectorFiresOncePerStart(t *testing.T) {
	d := NewEnergyDetector(testConfig())
	d.Start()

	if !feed(t, d, loud(), quiet()) {
		t.Fatal("expected first fire")
	}
	if feed(t, d, loud(), quiet()) {
		t.Error("detector fired twice within one session")
	}

	// A new Start re-arms it.
	d.Start()
	if !feed(t, d, loud(), quiet()) {
		t.Error("expected fire after re-arm")
	}
}

func TestStoppedDetectorIsQuiet(t *testing.T) {
	d := NewEnergyDetector(testConfig())
	d.Start()
	d.Stop()

	if feed(t, d, loud(), quiet()) {
		t.Error("stopped detector reported end of command")
	}
}

func TestDetectorOddChunkLength(t *testing.T) {
	d := NewEnergyDetector(testConfig())
	d.Start()

	if _, err := d.ProcessChunk([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for an odd-length 16-bit chunk")
	}
}

func TestRMSEnergy(t *testing.T) {
	if e, err := rmsEnergy(nil, 2); err != nil || e != 0 {
		t.Errorf("empty chunk: energy %v, err %v", e, err)
	}

	silenceEnergy, err := rmsEnergy(quiet(), 2)
	if err != nil {
		t.Fatal(err)
	}
	speechEnergy, err := rmsEnergy(loud(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if speechEnergy <= silenceEnergy {
		t.Errorf("speech energy %v should exceed silence energy %v", speechEnergy, silenceEnergy)
	}
	if speechEnergy > 1 || silenceEnergy > 1 {
		t.Error("energies must be normalized to 0..1")
	}
}

func TestDisabledDetector(t *testing.T) {
	var d Detector = Disabled{}
	d.Start()
	if end, err := d.ProcessChunk(loud()); end || err != nil {
		t.Errorf("disabled detector returned (%v, %v)", end, err)
	}
	d.Stop()
}
