package audio

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingConverter struct {
	calls  int
	target Profile
	out    []byte
	err    error
}

func (c *recordingConverter) Convert(_ context.Context, _ []byte, target Profile) ([]byte, error) {
	c.calls++
	c.target = target
	return c.out, c.err
}

func TestNormalizePassThrough(t *testing.T) {
	profile := DefaultProfile()
	conv := &recordingConverter{}
	n := NewNormalizer(profile, conv)

	pcm := []byte{10, 20, 30, 40}
	wav := MakeWAV(pcm, profile)

	out, err := n.Normalize(context.Background(), wav)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !bytes.Equal(out, pcm) {
		t.Errorf("got %v, want %v", out, pcm)
	}
	if conv.calls != 0 {
		t.Errorf("converter called %d times for a matching frame, want 0", conv.calls)
	}
}

func TestNormalizeConvertsMismatch(t *testing.T) {
	target := DefaultProfile()
	conv := &recordingConverter{out: []byte{1, 1}}
	n := NewNormalizer(target, conv)

	// 44.1 kHz stereo frame against a 16 kHz mono target.
	wav := MakeWAV([]byte{0, 0, 0, 0}, Profile{SampleRate: 44100, SampleWidth: 2, Channels: 2})

	out, err := n.Normalize(context.Background(), wav)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !bytes.Equal(out, []byte{1, 1}) {
		t.Errorf("got %v, want converter output", out)
	}
	if conv.calls != 1 {
		t.Errorf("converter called %d times, want 1", conv.calls)
	}
	if conv.target != target {
		t.Errorf("converter target = %+v, want %+v", conv.target, target)
	}
}

func TestNormalizeConverterError(t *testing.T) {
	conv := &recordingConverter{err: errors.New("sox exploded")}
	n := NewNormalizer(DefaultProfile(), conv)

	wav := MakeWAV([]byte{0, 0}, Profile{SampleRate: 8000, SampleWidth: 2, Channels: 1})
	if _, err := n.Normalize(context.Background(), wav); err == nil {
		t.Error("expected the converter error to propagate")
	}
}

func TestNormalizeBadFrame(t *testing.T) {
	conv := &recordingConverter{}
	n := NewNormalizer(DefaultProfile(), conv)

	if _, err := n.Normalize(context.Background(), []byte("not audio")); err == nil {
		t.Error("expected an error for a malformed frame")
	}
	if conv.calls != 0 {
		t.Error("converter must not run on unparseable frames")
	}
}

func TestSoxArgs(t *testing.T) {
	got := soxArgs(Profile{SampleRate: 16000, SampleWidth: 2, Channels: 1})
	want := []string{
		"-t", "wav", "-",
		"-r", "16000",
		"-e", "signed-integer",
		"-b", "16",
		"-c", "1",
		"-t", "raw", "-",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("soxArgs = %v, want %v", got, want)
	}
}
