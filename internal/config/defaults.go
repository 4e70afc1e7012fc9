package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "rhasspy-asr-kaldi-hermes",
		},
		ASR: ASRConfig{
			Provider:      "exec",
			Command:       "kaldi-decode",
			Enabled:       true,
			ResultTimeout: time.Second,
		},
		Audio: AudioConfig{
			SampleRate:  16000,
			SampleWidth: 2,
			Channels:    1,
			SoxPath:     "sox",
		},
		Silence: SilenceConfig{
			Enabled:      true,
			Threshold:    0.03,
			MinSpeech:    300 * time.Millisecond,
			SilenceAfter: 500 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "localhost:9102",
		},
	}
}
