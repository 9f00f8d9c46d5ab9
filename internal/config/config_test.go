package config

import (
	"testing"
	"time"
)

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml (highest priority)
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}
}

func TestHasServerConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want bool
	}{
		{
			name: "fully configured",
			cfg:  ServerConfig{URL: "http://localhost:8096", Token: "t", UserID: "u"},
			want: true,
		},
		{
			name: "missing token",
			cfg:  ServerConfig{URL: "http://localhost:8096", UserID: "u"},
			want: false,
		},
		{
			name: "missing user",
			cfg:  ServerConfig{URL: "http://localhost:8096", Token: "t"},
			want: false,
		},
		{
			name: "empty",
			cfg:  ServerConfig{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Server: tt.cfg}
			if got := c.HasServerConfig(); got != tt.want {
				t.Errorf("HasServerConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetPlaybackConfigDefaults(t *testing.T) {
	c := &Config{}
	got := c.GetPlaybackConfig()

	if got.SyncAdjacent == nil || !*got.SyncAdjacent {
		t.Error("SyncAdjacent default should be true")
	}
	if got.ProgressDebounceMS != 700 {
		t.Errorf("ProgressDebounceMS = %d, want 700", got.ProgressDebounceMS)
	}
	if got.ProgressWindow() != 700*time.Millisecond {
		t.Errorf("ProgressWindow() = %v, want 700ms", got.ProgressWindow())
	}
	if got.JumpBackwardSeconds != 15 {
		t.Errorf("JumpBackwardSeconds = %d, want 15", got.JumpBackwardSeconds)
	}
	if got.JumpForwardSeconds != 15 {
		t.Errorf("JumpForwardSeconds = %d, want 15", got.JumpForwardSeconds)
	}
	if got.ResumeOffset {
		t.Error("ResumeOffset default should be false")
	}
	if got.ConfirmClose {
		t.Error("ConfirmClose default should be false")
	}
}

func TestGetPlaybackConfigKeepsExplicitValues(t *testing.T) {
	disabled := false
	c := &Config{Playback: PlaybackConfig{
		SyncAdjacent:        &disabled,
		ProgressDebounceMS:  250,
		JumpBackwardSeconds: 10,
		JumpForwardSeconds:  30,
	}}
	got := c.GetPlaybackConfig()

	if *got.SyncAdjacent {
		t.Error("explicit sync_adjacent=false should be kept")
	}
	if got.ProgressWindow() != 250*time.Millisecond {
		t.Errorf("ProgressWindow() = %v, want 250ms", got.ProgressWindow())
	}
	if got.JumpBackwardSeconds != 10 || got.JumpForwardSeconds != 30 {
		t.Errorf("jump steps = %d/%d, want 10/30",
			got.JumpBackwardSeconds, got.JumpForwardSeconds)
	}
}
