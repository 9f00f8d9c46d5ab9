package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Server connection (required for online sessions)
	Server ServerConfig `koanf:"server"`

	// This client's identity towards the server and cast receivers
	Device DeviceConfig `koanf:"device"`

	// Session behavior tuning
	Playback PlaybackConfig `koanf:"playback"`

	// Cast receiver settings
	Cast CastConfig `koanf:"cast"`
}

// ServerConfig holds the media server connection settings.
type ServerConfig struct {
	URL    string `koanf:"url"`     // e.g., "http://localhost:8096"
	Token  string `koanf:"token"`   // API token
	UserID string `koanf:"user_id"` // user the sessions are reported for
	ID     string `koanf:"id"`      // server id stamped onto cast commands
}

// DeviceConfig identifies this client.
type DeviceConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// PlaybackConfig holds session behavior settings.
type PlaybackConfig struct {
	SyncAdjacent        *bool `koanf:"sync_adjacent"`         // mirror selection changes to queued neighbors (default: true)
	ProgressDebounceMS  int   `koanf:"progress_debounce_ms"`  // scrub report settle window (default: 700)
	JumpBackwardSeconds int   `koanf:"jump_backward_seconds"` // skip-back step (default: 15)
	JumpForwardSeconds  int   `koanf:"jump_forward_seconds"`  // skip-forward step (default: 15)
	ResumeOffset        bool  `koanf:"resume_offset"`         // rewind slightly when resuming partially watched media
	ConfirmClose        bool  `koanf:"confirm_close"`         // require confirmation before closing an active session
}

// CastConfig holds cast receiver settings.
type CastConfig struct {
	ApplicationID string `koanf:"application_id"` // receiver app to launch on the device
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Normalize server URL (remove trailing slash)
	cfg.Server.URL = strings.TrimSuffix(cfg.Server.URL, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/playhead/config.toml
		filepath.Join(xdg.ConfigHome, "playhead", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

// HasServerConfig returns true if the server connection is configured.
func (c *Config) HasServerConfig() bool {
	return c.Server.URL != "" && c.Server.Token != "" && c.Server.UserID != ""
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	cfg := c.Playback

	if cfg.SyncAdjacent == nil {
		enabled := true
		cfg.SyncAdjacent = &enabled
	}
	if cfg.ProgressDebounceMS <= 0 {
		cfg.ProgressDebounceMS = 700
	}
	if cfg.JumpBackwardSeconds <= 0 {
		cfg.JumpBackwardSeconds = 15
	}
	if cfg.JumpForwardSeconds <= 0 {
		cfg.JumpForwardSeconds = 15
	}

	return cfg
}

// ProgressWindow returns the scrub settle window as a duration.
func (p PlaybackConfig) ProgressWindow() time.Duration {
	return time.Duration(p.ProgressDebounceMS) * time.Millisecond
}
