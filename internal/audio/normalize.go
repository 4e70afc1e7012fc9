package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Converter reformats WAV audio into raw PCM of a target profile.
type Converter interface {
	Convert(ctx context.Context, wav []byte, target Profile) ([]byte, error)
}

// Normalizer verifies inbound WAV frames against the required profile and
// converts the ones that do not match.
type Normalizer struct {
	profile   Profile
	converter Converter
}

func NewNormalizer(profile Profile, converter Converter) *Normalizer {
	return &Normalizer{profile: profile, converter: converter}
}

// Normalize returns the frame's raw sample payload in the required profile.
// Frames already in the profile pass through without copy or transform.
func (n *Normalizer) Normalize(ctx context.Context, wav []byte) ([]byte, error) {
	profile, data, err := Probe(wav)
	if err != nil {
		return nil, fmt.Errorf("probe frame: %w", err)
	}
	if profile == n.profile {
		return data, nil
	}
	out, err := n.converter.Convert(ctx, wav, n.profile)
	if err != nil {
		return nil, fmt.Errorf("convert frame from %s to %s: %w", profile, n.profile, err)
	}
	return out, nil
}

// SoxConverter shells out to sox for format conversion.
type SoxConverter struct {
	Path string // sox binary, defaults to "sox" on PATH
}

func (c *SoxConverter) Convert(ctx context.Context, wav []byte, target Profile) ([]byte, error) {
	path := c.Path
	if path == "" {
		path = "sox"
	}

	cmd := exec.CommandContext(ctx, path, soxArgs(target)...)
	cmd.Stdin = bytes.NewReader(wav)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("sox failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// soxArgs builds the argument list for a WAV-on-stdin to raw-on-stdout
// conversion into the target profile.
func soxArgs(target Profile) []string {
	return []string{
		"-t", "wav", "-",
		"-r", strconv.Itoa(target.SampleRate),
		"-e", "signed-integer",
		"-b", strconv.Itoa(target.SampleWidth * 8),
		"-c", strconv.Itoa(target.Channels),
		"-t", "raw", "-",
	}
}
