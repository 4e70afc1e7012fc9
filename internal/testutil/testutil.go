package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/config"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		MQTT: config.MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "asr-test",
		},
		ASR: config.ASRConfig{
			Provider:      "exec",
			Command:       "kaldi-decode",
			Enabled:       true,
			ResultTimeout: time.Second,
		},
		Audio: config.AudioConfig{
			SampleRate:  16000,
			SampleWidth: 2,
			Channels:    1,
			SoxPath:     "sox",
		},
		Silence: config.SilenceConfig{
			Enabled:      true,
			Threshold:    0.03,
			MinSpeech:    300 * time.Millisecond,
			SilenceAfter: 500 * time.Millisecond,
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
			Listen:  "localhost:9102",
		},
	}
}

// TestConfigWithInvalidValues returns a config with invalid values for testing validation
func TestConfigWithInvalidValues() *config.Config {
	return &config.Config{
		MQTT: config.MQTTConfig{
			Broker: "", // Invalid
		},
		ASR: config.ASRConfig{
			Provider:      "", // Invalid
			ResultTimeout: 0,  // Invalid
		},
		Audio: config.AudioConfig{
			SampleRate:  0, // Invalid
			SampleWidth: 3, // Invalid
			Channels:    0, // Invalid
		},
		Silence: config.SilenceConfig{
			Enabled:   true,
			Threshold: 0, // Invalid
		},
	}
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
