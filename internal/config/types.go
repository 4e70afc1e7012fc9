package config

import "time"

type Config struct {
	MQTT    MQTTConfig    `toml:"mqtt"`
	ASR     ASRConfig     `toml:"asr"`
	Audio   AudioConfig   `toml:"audio"`
	Silence SilenceConfig `toml:"silence"`
	Metrics MetricsConfig `toml:"metrics"`
}

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	ClientID string `toml:"client_id"`
}

// ASRConfig selects the transcription backend and scopes the service to a
// set of sites. An empty site_ids list serves every site on the broker.
type ASRConfig struct {
	Provider      string        `toml:"provider"` // "exec" or "openai"
	Command       string        `toml:"command"`
	Model         string        `toml:"model"`
	Language      string        `toml:"language"`
	APIKey        string        `toml:"api_key"`
	Threads       int           `toml:"threads"` // CPU threads for the exec provider (0 = auto: NumCPU-1)
	Enabled       bool          `toml:"enabled"`
	SiteIDs       []string      `toml:"site_ids"`
	ResultTimeout time.Duration `toml:"result_timeout"`
}

// AudioConfig is the PCM profile every inbound frame is normalized to.
type AudioConfig struct {
	SampleRate  int    `toml:"sample_rate"`
	SampleWidth int    `toml:"sample_width"`
	Channels    int    `toml:"channels"`
	SoxPath     string `toml:"sox_path"`
}

// SilenceConfig tunes the end-of-command detector. With enabled = false
// sessions end only on an explicit stop.
type SilenceConfig struct {
	Enabled      bool          `toml:"enabled"`
	Threshold    float64       `toml:"threshold"`
	MinSpeech    time.Duration `toml:"min_speech"`
	SilenceAfter time.Duration `toml:"silence_after"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}
