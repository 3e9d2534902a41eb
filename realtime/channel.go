package realtime

import (
	"context"
	"time"

	"juru.id/audio"
)

// Session is one live connection to the model. Events arrive on Events
// until the session ends, at which point the channel closes. Opened is
// closed once the control channel is ready for outbound traffic.
type Session interface {
	Send(ev *Event) error
	Events() <-chan *Event
	Opened() <-chan struct{}
	SetMicEnabled(enabled bool)
	Close() error
}

// Dialer establishes sessions. The peer dialer carries media; the socket
// dialer is control-channel only.
type Dialer interface {
	Dial(ctx context.Context, cred Credential, cfg DialConfig) (Session, error)
}

// DialConfig is everything a transport needs beyond the credential.
type DialConfig struct {
	BaseURL       string
	Model         string
	GatherTimeout time.Duration

	Capture    audio.CaptureOptions
	FFplayPath string
	RecordPath string
}

// ModelFor prefers the credential's model when the token endpoint named
// one, falling back to the configured default.
func (cfg DialConfig) ModelFor(cred Credential) string {
	if cred.Model != "" {
		return cred.Model
	}
	return cfg.Model
}
