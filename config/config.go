// Package config handles daemon configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appName        = "voxd"
	configFileName = "config.json"
)

// Config represents the daemon configuration.
type Config struct {
	Hotkey  HotkeyConfig  `json:"hotkey"`
	Audio   AudioConfig   `json:"audio"`
	Whisper WhisperConfig `json:"whisper"`
	Output  OutputConfig  `json:"output"`
	History HistoryConfig `json:"history"`

	// StateFile is a plain-text file mirroring the daemon state
	// ("idle", "recording", "transcribing") for external status
	// displays. Empty disables the state file entirely.
	StateFile string `json:"state_file,omitempty"`
}

// HotkeyConfig configures the push-to-talk key.
type HotkeyConfig struct {
	// Key is the key name as understood by the hotkey listener,
	// e.g. "f12" or "space".
	Key string `json:"key"`
}

// AudioConfig configures microphone capture.
type AudioConfig struct {
	SampleRate      int `json:"sample_rate"`
	MaxDurationSecs int `json:"max_duration_secs"`

	// SaveDir, when set, receives a WAV dump of every accepted
	// utterance before transcription. Debug aid, empty disables.
	SaveDir string `json:"save_dir,omitempty"`
}

// WhisperConfig configures transcription.
type WhisperConfig struct {
	// Backend selects the transcriber variant: "subprocess" (default),
	// "inprocess" or "api".
	Backend   string `json:"backend"`
	Model     string `json:"model"`
	ModelDir  string `json:"model_dir,omitempty"`
	Language  string `json:"language"`
	Translate bool   `json:"translate,omitempty"`
	Threads   int    `json:"threads,omitempty"`

	// API variant only.
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// OutputConfig configures text delivery.
type OutputConfig struct {
	// Mode selects the primary backend: "paste", "clipboard" or "stdout".
	Mode         string             `json:"mode"`
	Notification NotificationConfig `json:"notification"`
}

// NotificationConfig gates desktop notifications.
type NotificationConfig struct {
	OnRecordingStart bool `json:"on_recording_start"`
	OnRecordingStop  bool `json:"on_recording_stop"`
}

// HistoryConfig configures the dictation history store.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{Key: "f12"},
		Audio: AudioConfig{
			SampleRate:      16000,
			MaxDurationSecs: 60,
		},
		Whisper: WhisperConfig{
			Backend:  "subprocess",
			Model:    "base",
			Language: "auto",
		},
		Output: OutputConfig{Mode: "clipboard"},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration from path, or from the default location
// when path is empty. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to path, or to the default location
// when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func (c *Config) validate() error {
	switch c.Whisper.Backend {
	case "", "subprocess", "inprocess", "api":
	default:
		return fmt.Errorf("unknown whisper backend: %q", c.Whisper.Backend)
	}
	switch c.Output.Mode {
	case "", "paste", "clipboard", "stdout":
	default:
		return fmt.Errorf("unknown output mode: %q", c.Output.Mode)
	}
	if c.Audio.SampleRate < 0 || c.Audio.MaxDurationSecs < 0 {
		return fmt.Errorf("audio settings must not be negative")
	}
	return nil
}

// ResolveModelPath turns the configured model name into a file path.
// Absolute paths and paths with separators are used as-is; bare names
// resolve to ggml-<name>.bin under the model directory.
func (w WhisperConfig) ResolveModelPath() (string, error) {
	if strings.ContainsRune(w.Model, os.PathSeparator) {
		return w.Model, nil
	}

	dir := w.ModelDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", appName, "models")
	}
	return filepath.Join(dir, fmt.Sprintf("ggml-%s.bin", w.Model)), nil
}

// ResolveHistoryDir returns the history database directory.
func (h HistoryConfig) ResolveHistoryDir() (string, error) {
	if h.Dir != "" {
		return h.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get user cache dir: %w", err)
	}
	return filepath.Join(dir, appName, "history"), nil
}
