package transcriber

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
)

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "exec provider",
			config: Config{Provider: "exec", Command: "kaldi-decode"},
		},
		{
			name:    "exec without command",
			config:  Config{Provider: "exec"},
			wantErr: true,
		},
		{
			name:   "openai provider",
			config: Config{Provider: "openai", APIKey: "sk-test"},
		},
		{
			name:    "openai without key",
			config:  Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if tr == nil {
				t.Error("New returned a nil transcriber")
			}
		})
	}
}

func TestExecArgs(t *testing.T) {
	tests := []struct {
		name string
		tr   *ExecTranscriber
		want []string
	}{
		{
			name: "bare command",
			tr:   NewExecTranscriber("decode", "", "", 0),
			want: []string{"-nt", "-np", "-f", "/tmp/x.wav"},
		},
		{
			name: "full options",
			tr:   NewExecTranscriber("decode", "base.en", "en", 4),
			want: []string{"-m", "base.en", "-l", "en", "-t", "4", "-nt", "-np", "-f", "/tmp/x.wav"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.args("/tmp/x.wav")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecEmptyStreamSkipsDecoder(t *testing.T) {
	tr := NewExecTranscriber("definitely-not-installed", "", "", 0)

	frames := make(chan []byte)
	close(frames)

	// An empty stream returns the canonical empty result without even
	// looking for the binary.
	result, err := tr.TranscribeStream(context.Background(), frames, audio.DefaultProfile())
	if err != nil {
		t.Fatalf("TranscribeStream failed: %v", err)
	}
	if result.Text != "" || result.Likelihood != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestExecMissingBinaryIsFatal(t *testing.T) {
	tr := NewExecTranscriber("definitely-not-installed", "", "", 0)

	frames := make(chan []byte, 1)
	frames <- []byte{0, 0, 0, 0}
	close(frames)

	_, err := tr.TranscribeStream(context.Background(), frames, audio.DefaultProfile())
	if err == nil {
		t.Fatal("expected an error for a missing decoder")
	}
	if !IsFatalTranscriptionError(err) {
		t.Errorf("missing binary should be fatal, got %v", err)
	}
}

func TestDrainCollectsInOrder(t *testing.T) {
	frames := make(chan []byte, 3)
	frames <- []byte{1, 2}
	frames <- []byte{3}
	frames <- []byte{4, 5, 6}
	close(frames)

	pcm, err := drain(context.Background(), frames)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(pcm, want) {
		t.Errorf("drain = %v, want %v", pcm, want)
	}
}

func TestDrainHonorsContext(t *testing.T) {
	frames := make(chan []byte) // never closed

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := drain(ctx, frames); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestFatalTranscriptionError(t *testing.T) {
	base := fmt.Errorf("model file corrupt")
	err := NewFatalTranscriptionError(base)

	if !IsFatalTranscriptionError(err) {
		t.Error("expected fatal classification")
	}
	if !errors.Is(err, base) {
		t.Error("expected the cause to unwrap")
	}
	if IsFatalTranscriptionError(fmt.Errorf("transient")) {
		t.Error("plain errors must not classify as fatal")
	}
	if wrapped := fmt.Errorf("serve: %w", err); !IsFatalTranscriptionError(wrapped) {
		t.Error("fatal classification must survive wrapping")
	}
	if NewFatalTranscriptionError(nil) != nil {
		t.Error("nil cause should produce a nil error")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Provider != "exec" {
		t.Errorf("default provider = %q, want exec", config.Provider)
	}
	if config.Command == "" {
		t.Error("default command is empty")
	}
}
