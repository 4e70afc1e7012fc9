package transcriber

import (
	"context"
	"fmt"
	"os"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

// Result is the outcome of transcribing one session's audio stream.
type Result struct {
	Text       string
	Likelihood float64
	Seconds    float64
}

// Transcriber turns a stream of raw PCM chunks into a transcription.
// TranscribeStream consumes frames until the channel is closed, then
// finalizes the stream into a single Result.
type Transcriber interface {
	TranscribeStream(ctx context.Context, frames <-chan []byte, profile audio.Profile) (Result, error)
}

// Factory constructs a Transcriber. Workers call it lazily so that engine
// construction cost is paid once per worker, not per session.
type Factory func() (Transcriber, error)

// Config selects and configures a transcription backend.
type Config struct {
	Provider string // "exec" or "openai"
	Command  string // decoder binary for the exec provider
	Model    string
	Language string
	APIKey   string
	Threads  int
}

func DefaultConfig() Config {
	return Config{
		Provider: "exec",
		Command:  "kaldi-decode",
	}
}

// New creates a transcriber for the configured provider.
func New(config Config) (Transcriber, error) {
	switch config.Provider {
	case "exec":
		if config.Command == "" {
			return nil, fmt.Errorf("exec provider requires a command")
		}
		return NewExecTranscriber(config.Command, config.Model, config.Language, config.Threads), nil

	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAITranscriber(config.APIKey, config.Model, config.Language), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// NewDefaultTranscriber builds a transcriber from the default config, with
// the API key taken from the environment.
func NewDefaultTranscriber() (Transcriber, error) {
	config := DefaultConfig()
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.APIKey = apiKey
	}
	return New(config)
}

// drain collects the remaining frames of a stream in arrival order.
func drain(ctx context.Context, frames <-chan []byte) ([]byte, error) {
	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return pcm, nil
			}
			pcm = append(pcm, frame...)
		}
	}
}
