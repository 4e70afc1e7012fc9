package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

// OpenAITranscriber sends the finished stream to the OpenAI Whisper API.
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAITranscriber(apiKey, model, language string) *OpenAITranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{
		client:   openai.NewClient(apiKey),
		model:    model,
		language: language,
	}
}

func (t *OpenAITranscriber) TranscribeStream(ctx context.Context, frames <-chan []byte, profile audio.Profile) (Result, error) {
	pcm, err := drain(ctx, frames)
	if err != nil {
		return Result{}, err
	}
	if len(pcm) == 0 {
		return Result{}, nil
	}

	req := openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio.MakeWAV(pcm, profile)),
		FilePath: "audio.wav",
		Language: t.language,
	}

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("openai transcriber: API call failed", "elapsed", elapsed, "err", err)
		return Result{}, fmt.Errorf("openai transcription: %w", err)
	}

	log.Debug("openai transcriber: stream transcribed", "bytes", len(pcm), "elapsed", elapsed, "text", resp.Text)

	result := Result{Text: resp.Text, Seconds: elapsed.Seconds()}
	if resp.Text != "" {
		result.Likelihood = 1
	}
	return result, nil
}
