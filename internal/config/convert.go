package config

import (
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/asr"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/mqtt"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/silence"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/transcriber"
)

func (c *Config) ToAudioProfile() audio.Profile {
	return audio.Profile{
		SampleRate:  c.Audio.SampleRate,
		SampleWidth: c.Audio.SampleWidth,
		Channels:    c.Audio.Channels,
	}
}

func (c *Config) ToServiceConfig() asr.Config {
	return asr.Config{
		Profile:       c.ToAudioProfile(),
		ResultTimeout: c.ASR.ResultTimeout,
		Enabled:       c.ASR.Enabled,
		SiteIDs:       c.ASR.SiteIDs,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider: c.ASR.Provider,
		Command:  c.ASR.Command,
		Model:    c.ASR.Model,
		Language: c.ASR.Language,
		APIKey:   c.ASR.APIKey,
		Threads:  c.ASR.Threads,
	}
}

func (c *Config) ToSilenceConfig() silence.Config {
	return silence.Config{
		Threshold:    c.Silence.Threshold,
		MinSpeech:    c.Silence.MinSpeech,
		SilenceAfter: c.Silence.SilenceAfter,
		Profile:      c.ToAudioProfile(),
	}
}

func (c *Config) ToTransportConfig() mqtt.Config {
	return mqtt.Config{
		Broker:   c.MQTT.Broker,
		Username: c.MQTT.Username,
		Password: c.MQTT.Password,
		ClientID: c.MQTT.ClientID,
		SiteIDs:  c.ASR.SiteIDs,
	}
}
