package config

import (
	"fmt"
	"strings"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/language"
)

func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("invalid mqtt.broker: empty")
	}
	if !strings.Contains(c.MQTT.Broker, "://") {
		return fmt.Errorf("invalid mqtt.broker: %s (expected a URL like tcp://localhost:1883)", c.MQTT.Broker)
	}

	switch c.ASR.Provider {
	case "exec":
		if c.ASR.Command == "" {
			return fmt.Errorf("invalid asr.command: empty (required for the exec provider)")
		}

	case "openai":
		if c.ASR.APIKey == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (asr.api_key) or environment variable (OPENAI_API_KEY)")
		}
		if !language.IsValidCode(c.ASR.Language) {
			return fmt.Errorf("invalid asr.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.ASR.Language)
		}

	default:
		return fmt.Errorf("unsupported asr.provider: %s (must be exec or openai)", c.ASR.Provider)
	}

	if c.ASR.ResultTimeout <= 0 {
		return fmt.Errorf("invalid asr.result_timeout: %v", c.ASR.ResultTimeout)
	}
	for _, siteID := range c.ASR.SiteIDs {
		if siteID == "" {
			return fmt.Errorf("invalid asr.site_ids: empty site id")
		}
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid audio.sample_rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.SampleWidth != 1 && c.Audio.SampleWidth != 2 && c.Audio.SampleWidth != 4 {
		return fmt.Errorf("invalid audio.sample_width: %d (must be 1, 2, or 4 bytes)", c.Audio.SampleWidth)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("invalid audio.channels: %d", c.Audio.Channels)
	}
	if c.Audio.SoxPath == "" {
		return fmt.Errorf("invalid audio.sox_path: empty")
	}

	if c.Silence.Enabled {
		if c.Silence.Threshold <= 0 || c.Silence.Threshold >= 1 {
			return fmt.Errorf("invalid silence.threshold: %v (must be between 0 and 1)", c.Silence.Threshold)
		}
		if c.Silence.MinSpeech <= 0 {
			return fmt.Errorf("invalid silence.min_speech: %v", c.Silence.MinSpeech)
		}
		if c.Silence.SilenceAfter <= 0 {
			return fmt.Errorf("invalid silence.silence_after: %v", c.Silence.SilenceAfter)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("invalid metrics.listen: empty (required when metrics.enabled = true)")
	}

	return nil
}
