package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

// ExecTranscriber runs an external decoder binary (kaldi online2 decoder,
// whisper-cli, or anything that reads a WAV file and prints the transcript).
type ExecTranscriber struct {
	command  string
	model    string
	language string
	threads  int
}

func NewExecTranscriber(command, model, language string, threads int) *ExecTranscriber {
	return &ExecTranscriber{
		command:  command,
		model:    model,
		language: language,
		threads:  threads,
	}
}

func (t *ExecTranscriber) TranscribeStream(ctx context.Context, frames <-chan []byte, profile audio.Profile) (Result, error) {
	pcm, err := drain(ctx, frames)
	if err != nil {
		return Result{}, err
	}
	if len(pcm) == 0 {
		return Result{}, nil
	}

	path, err := exec.LookPath(t.command)
	if err != nil {
		// Missing binary cannot heal between sessions.
		return Result{}, NewFatalTranscriptionError(fmt.Errorf("decoder not found: %s", t.command))
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("asr-hermes-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmpFile, audio.MakeWAV(pcm, profile), 0600); err != nil {
		return Result{}, fmt.Errorf("write temp file: %w", err)
	}
	defer os.Remove(tmpFile)

	cmd := exec.CommandContext(ctx, path, t.args(tmpFile)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Error("exec transcriber: decoder failed", "command", t.command, "elapsed", elapsed, "err", err, "stderr", stderr.String())
		return Result{}, fmt.Errorf("%s failed: %w", t.command, err)
	}

	text := strings.TrimSpace(stdout.String())
	log.Debug("exec transcriber: stream decoded", "bytes", len(pcm), "elapsed", elapsed, "text", text)

	result := Result{Text: text, Seconds: elapsed.Seconds()}
	if text != "" {
		result.Likelihood = 1
	}
	return result, nil
}

func (t *ExecTranscriber) args(wavPath string) []string {
	args := []string{}
	if t.model != "" {
		args = append(args, "-m", t.model)
	}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	if t.threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", t.threads))
	}
	// no timestamps, no progress: we want the bare transcript on stdout
	args = append(args, "-nt", "-np", "-f", wavPath)
	return args
}
