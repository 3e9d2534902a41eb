package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults installs the documented defaults; everything is overridable
// through config.yaml, environment variables, or flags bound in main.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8908)
	v.SetDefault("https", true)
	v.SetDefault("cert_file", "./certs/cert.pem")
	v.SetDefault("key_file", "./certs/key.pem")
	v.SetDefault("static_dir", "./client/dist/client")

	v.SetDefault("realtime_base_url", "https://api.openai.com/v1/realtime")
	v.SetDefault("realtime_model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("realtime_voice", "sage")
	v.SetDefault("transcription_model", "whisper-1")
	v.SetDefault("transcription_language", "")
	v.SetDefault("turn_detection", "server_vad")

	v.SetDefault("broker_url", "http://localhost:8908")
	v.SetDefault("transport", "webrtc")
	v.SetDefault("mode", "interpreter")

	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffplay_path", "ffplay")
	v.SetDefault("audio_input_format", "pulse")
	v.SetDefault("audio_input_device", "default")
	v.SetDefault("record_path", "")

	v.SetDefault("gather_timeout", 5*time.Second)
	v.SetDefault("reconnect_grace", 500*time.Millisecond)
	v.SetDefault("switch_timeout", 4*time.Second)
}

type Config struct {
	OpenAIAPIKey string
	Port         int
	HTTPS        bool
	CertFile     string
	KeyFile      string
	StaticDir    string

	RealtimeBaseURL       string
	RealtimeModel         string
	RealtimeVoice         string
	TranscriptionModel    string
	TranscriptionLanguage string
	TurnDetection         string

	BrokerURL string
	Transport string
	Mode      string

	FFmpegPath       string
	FFplayPath       string
	AudioInputFormat string
	AudioInputDevice string
	RecordPath       string

	GatherTimeout  time.Duration
	ReconnectGrace time.Duration
	SwitchTimeout  time.Duration
}

func Load(v *viper.Viper) Config {
	return Config{
		OpenAIAPIKey: v.GetString("openai_api_key"),
		Port:         v.GetInt("port"),
		HTTPS:        v.GetBool("https"),
		CertFile:     v.GetString("cert_file"),
		KeyFile:      v.GetString("key_file"),
		StaticDir:    v.GetString("static_dir"),

		RealtimeBaseURL:       v.GetString("realtime_base_url"),
		RealtimeModel:         v.GetString("realtime_model"),
		RealtimeVoice:         v.GetString("realtime_voice"),
		TranscriptionModel:    v.GetString("transcription_model"),
		TranscriptionLanguage: v.GetString("transcription_language"),
		TurnDetection:         v.GetString("turn_detection"),

		BrokerURL: v.GetString("broker_url"),
		Transport: v.GetString("transport"),
		Mode:      v.GetString("mode"),

		FFmpegPath:       v.GetString("ffmpeg_path"),
		FFplayPath:       v.GetString("ffplay_path"),
		AudioInputFormat: v.GetString("audio_input_format"),
		AudioInputDevice: v.GetString("audio_input_device"),
		RecordPath:       v.GetString("record_path"),

		GatherTimeout:  v.GetDuration("gather_timeout"),
		ReconnectGrace: v.GetDuration("reconnect_grace"),
		SwitchTimeout:  v.GetDuration("switch_timeout"),
	}
}
