package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"juru.id/etc"
)

// SocketDialer is the control-channel-only transport. No media flows;
// it exists for headless use and for environments where a peer
// connection cannot be established.
type SocketDialer struct {
	Log *log.Logger
}

func (d *SocketDialer) Dial(ctx context.Context, cred Credential, cfg DialConfig) (Session, error) {
	url := wsURL(cfg.BaseURL) + "?model=" + cfg.ModelFor(cred)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Secret)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, res, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		return nil, &NegotiationError{Stage: "websocket", Status: status, Err: err}
	}

	s := &SocketSession{
		conn:   conn,
		events: make(chan *Event, 64),
		opened: make(chan struct{}),
		done:   make(chan struct{}),
		log:    d.Log,
	}
	// No handshake beyond the upgrade; the channel is usable at once.
	close(s.opened)
	go s.readPump()
	return s, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

type SocketSession struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	events  chan *Event
	opened  chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	log       *log.Logger
}

func (s *SocketSession) Send(ev *Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (s *SocketSession) Events() <-chan *Event { return s.events }

func (s *SocketSession) Opened() <-chan struct{} { return s.opened }

// SetMicEnabled is a no-op; this transport carries no media.
func (s *SocketSession) SetMicEnabled(bool) {}

func (s *SocketSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
	return nil
}

func (s *SocketSession) readPump() {
	defer close(s.events)
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Debug("Socket read ended", "error", err)
			}
			return
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			s.log.Warn("Dropping malformed event", "error", err)
			continue
		}
		ev.Timestamp = etc.Stamp(time.Now())
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
