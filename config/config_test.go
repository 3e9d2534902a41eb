package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := Load(v)

	if cfg.Port != 8908 {
		t.Errorf("port = %d, want 8908", cfg.Port)
	}
	if !cfg.HTTPS {
		t.Error("https should default to true")
	}
	if cfg.RealtimeModel != "gpt-4o-realtime-preview-2024-12-17" {
		t.Errorf("unexpected model %q", cfg.RealtimeModel)
	}
	if cfg.RealtimeVoice != "sage" {
		t.Errorf("unexpected voice %q", cfg.RealtimeVoice)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Errorf("unexpected transcription model %q", cfg.TranscriptionModel)
	}
	if cfg.Transport != "webrtc" {
		t.Errorf("unexpected transport %q", cfg.Transport)
	}
	if cfg.Mode != "interpreter" {
		t.Errorf("unexpected mode %q", cfg.Mode)
	}
	if cfg.ReconnectGrace != 500*time.Millisecond {
		t.Errorf("reconnect grace = %s", cfg.ReconnectGrace)
	}
	if cfg.SwitchTimeout != 4*time.Second {
		t.Errorf("switch timeout = %s", cfg.SwitchTimeout)
	}
	if cfg.RecordPath != "" {
		t.Errorf("record path should default empty, got %q", cfg.RecordPath)
	}
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("port", 9999)
	v.Set("transport", "websocket")
	v.Set("mode", "qa")

	cfg := Load(v)
	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Port)
	}
	if cfg.Transport != "websocket" {
		t.Errorf("transport = %q", cfg.Transport)
	}
	if cfg.Mode != "qa" {
		t.Errorf("mode = %q", cfg.Mode)
	}
}
