package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	serviceDir := filepath.Join(configDir, "rhasspy-asr-kaldi-hermes")
	if err := os.MkdirAll(serviceDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(serviceDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run the configure command", ErrConfigNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Debug("loading configuration", "path", configPath)
	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyThreadsDefault()
	config.applyAPIKeyDefault()

	return &config, nil
}

// LoadOrDefault loads the config, falling back to a freshly written default
// file when none exists yet.
func LoadOrDefault() (*Config, error) {
	config, err := Load()
	if errors.Is(err, ErrConfigNotFound) {
		log.Info("no config file found, creating defaults")
		if err := SaveDefaultConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return Load()
	}
	return config, err
}

// Save writes the config back to the config path.
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applyThreadsDefault sets default threads for the exec provider if not
// explicitly set.
func (c *Config) applyThreadsDefault() {
	if c.ASR.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.ASR.Threads = threads
	}
}

// applyAPIKeyDefault falls back to the environment for the OpenAI key.
func (c *Config) applyAPIKeyDefault() {
	if c.ASR.Provider == "openai" && c.ASR.APIKey == "" {
		c.ASR.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	configContent := `# rhasspy-asr-kaldi-hermes configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied immediately without a restart.

# MQTT Broker Connection
[mqtt]
  broker = "tcp://localhost:1883"      # Broker URL
  username = ""                        # Broker username (empty = anonymous)
  password = ""                        # Broker password
  client_id = "rhasspy-asr-kaldi-hermes"

# Speech Recognition Configuration
[asr]
  provider = "exec"                    # Transcription backend ("exec" or "openai")
  command = "kaldi-decode"             # Decoder binary for the exec provider
  model = ""                           # Model name or path (provider specific)
  language = ""                        # Language code (empty for auto-detect, "en", "de", etc.)
  api_key = ""                         # OpenAI API key (or set OPENAI_API_KEY environment variable)
  threads = 0                          # CPU threads for exec provider (0 = auto)
  enabled = true                       # Start with recognition enabled
  site_ids = []                        # Sites to serve (empty = all sites)
  result_timeout = "1s"                # Bounded wait for a transcription result at session end

# Audio Normalization
[audio]
  sample_rate = 16000                  # Target sample rate in Hz (16000 recommended for speech)
  sample_width = 2                     # Bytes per sample (2 = 16-bit signed integers)
  channels = 1                         # Number of channels (1 = mono)
  sox_path = "sox"                     # External converter for mismatched frames

# End-of-Command Detection
[silence]
  enabled = true                       # Detect the end of a voice command automatically
  threshold = 0.03                     # Normalized RMS energy above this counts as speech
  min_speech = "300ms"                 # Voiced time required before silence can end the command
  silence_after = "500ms"              # Trailing silence that ends the command

# Prometheus Metrics
[metrics]
  enabled = false                      # Serve /metrics over HTTP
  listen = "localhost:9102"            # Metrics listen address
`

	if _, err := file.WriteString(configContent); err != nil {
		return fmt.Errorf("failed to write config content: %w", err)
	}

	return nil
}
