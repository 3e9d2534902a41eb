package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"juru.id/audio"
	"juru.id/etc"
)

// PeerDialer negotiates a WebRTC peer connection with the realtime API:
// a sending microphone track, a receiving model-voice track, and an
// "oai-events" data channel for the JSON protocol.
type PeerDialer struct {
	HTTP *http.Client
	Log  *log.Logger
}

func (d *PeerDialer) Dial(ctx context.Context, cred Credential, cfg DialConfig) (Session, error) {
	httpClient := d.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// The microphone comes up first so a missing device fails the whole
	// attempt before any network traffic.
	capture, err := audio.StartCapture(ctx, cfg.Capture)
	if err != nil {
		return nil, &DeviceError{Err: err}
	}

	encoder, err := audio.NewEncoder()
	if err != nil {
		_ = capture.Close()
		return nil, &DeviceError{Err: err}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		_ = capture.Close()
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	s := &PeerSession{
		pc:      pc,
		capture: capture,
		events:  make(chan *Event, 64),
		inbox:   make(chan *Event, 64),
		opened:  make(chan struct{}),
		done:    make(chan struct{}),
		log:     d.Log,
	}

	fail := func(err error) (Session, error) {
		_ = capture.Close()
		_ = pc.Close()
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: audio.SampleRate,
			Channels:  audio.Channels,
		},
		"audio", "juru-mic",
	)
	if err != nil {
		return fail(fmt.Errorf("create mic track: %w", err))
	}
	if _, err := pc.AddTrack(track); err != nil {
		return fail(fmt.Errorf("add mic track: %w", err))
	}

	pc.OnTrack(s.handleRemoteTrack)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debug("Peer connection state", "state", state)
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			go s.Close()
		}
	})

	// The data channel has to exist before the offer so its m-line is
	// part of the negotiated SDP.
	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		return fail(fmt.Errorf("create data channel: %w", err))
	}
	s.dc = dc

	dc.OnOpen(func() {
		s.openOnce.Do(func() { close(s.opened) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		ev, err := DecodeEvent(msg.Data)
		if err != nil {
			s.log.Warn("Dropping malformed event", "error", err)
			return
		}
		ev.Timestamp = etc.Stamp(time.Now())
		select {
		case s.inbox <- ev:
		case <-s.done:
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(&NegotiationError{Stage: "offer", Err: err})
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(&NegotiationError{Stage: "offer", Err: err})
	}

	if err := awaitGathering(ctx, gathered, cfg.GatherTimeout); err != nil {
		return fail(err)
	}

	answer, err := exchangeSDP(ctx, httpClient, cred, cfg, pc.LocalDescription().SDP)
	if err != nil {
		return fail(err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return fail(&NegotiationError{Stage: "answer", Err: err})
	}

	// Playback and recording are conveniences; a missing ffplay or an
	// unwritable record path must not take the session down.
	if playback, err := audio.StartPlayback(audio.PlaybackOptions{FFplayPath: cfg.FFplayPath}); err != nil {
		s.log.Warn("Playback unavailable", "error", err)
	} else {
		s.playback = playback
	}
	if cfg.RecordPath != "" {
		if recorder, err := audio.NewRecorder(cfg.RecordPath, s.log); err != nil {
			s.log.Warn("Recording unavailable", "path", cfg.RecordPath, "error", err)
		} else {
			s.recorder = recorder
		}
	}

	go s.pumpEvents()
	go s.pumpMic(track, encoder)
	return s, nil
}

// awaitGathering blocks until candidate gathering reaches its terminal
// state. Non-trickle negotiation requires a complete offer; a timeout is a
// failed start, never a partial POST.
func awaitGathering(ctx context.Context, gathered <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-gathered:
		return nil
	case <-time.After(timeout):
		return &NegotiationError{Stage: "gather", Err: fmt.Errorf("candidate gathering did not complete within %s", timeout)}
	case <-ctx.Done():
		return &NegotiationError{Stage: "gather", Err: ctx.Err()}
	}
}

func exchangeSDP(ctx context.Context, client *http.Client, cred Credential, cfg DialConfig, offerSDP string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", cfg.BaseURL, cfg.ModelFor(cred))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", &NegotiationError{Stage: "answer", Err: err}
	}
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	res, err := client.Do(req)
	if err != nil {
		return "", &NegotiationError{Stage: "answer", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", &NegotiationError{Stage: "answer", Status: res.StatusCode, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &NegotiationError{Stage: "answer", Status: res.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

// PeerSession is a live WebRTC session. All remote media and protocol
// traffic flows through it until Close.
type PeerSession struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	capture  io.ReadCloser
	playback *audio.Playback
	recorder *audio.Recorder

	events chan *Event
	inbox  chan *Event
	opened chan struct{}
	done   chan struct{}

	micEnabled atomic.Bool
	openOnce   sync.Once
	closeOnce  sync.Once

	log *log.Logger
}

func (s *PeerSession) Send(ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.dc.Send(data)
}

func (s *PeerSession) Events() <-chan *Event { return s.events }

func (s *PeerSession) Opened() <-chan struct{} { return s.opened }

func (s *PeerSession) SetMicEnabled(enabled bool) {
	s.micEnabled.Store(enabled)
}

func (s *PeerSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.capture != nil {
			_ = s.capture.Close()
		}
		if s.dc != nil {
			_ = s.dc.Close()
		}
		if s.pc != nil {
			_ = s.pc.Close()
		}
		if s.playback != nil {
			_ = s.playback.Close()
		}
		if s.recorder != nil {
			_ = s.recorder.Close()
		}
	})
	return nil
}

// pumpEvents is the sole sender on the events channel, so closing it on
// shutdown cannot race the data channel callback.
func (s *PeerSession) pumpEvents() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.inbox:
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

// pumpMic keeps draining the capture pipe even while muted so ffmpeg
// never blocks; muted frames are simply discarded.
func (s *PeerSession) pumpMic(track *webrtc.TrackLocalStaticSample, enc *audio.Encoder) {
	frame := make([]byte, audio.FrameBytes)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if _, err := io.ReadFull(s.capture, frame); err != nil {
			// A dead microphone means a dead uplink; tear the whole
			// session down so the loss is reported, not silent.
			select {
			case <-s.done:
			default:
				s.log.Warn("Capture ended, closing session", "error", err)
				_ = s.Close()
			}
			return
		}
		if !s.micEnabled.Load() {
			continue
		}

		pkt, err := enc.Encode(audio.BytesToPCM(frame))
		if err != nil {
			s.log.Warn("Encode failed", "error", err)
			continue
		}
		if err := track.WriteSample(media.Sample{Data: pkt, Duration: 20 * time.Millisecond}); err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("Track write failed, closing session", "error", err)
				_ = s.Close()
			}
			return
		}
	}
}

func (s *PeerSession) handleRemoteTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	decoder, err := audio.NewDecoder()
	if err != nil {
		s.log.Error("Remote audio decoder unavailable", "error", err)
		return
	}

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if s.recorder != nil {
			if err := s.recorder.WriteRTP(pkt); err != nil {
				s.log.Warn("Recording write failed", "error", err)
			}
		}
		if s.playback == nil {
			continue
		}
		pcm, err := decoder.Decode(pkt.Payload)
		if err != nil {
			s.log.Debug("Skipping undecodable packet", "error", err)
			continue
		}
		if _, err := s.playback.Write(audio.PCMToBytes(pcm)); err != nil {
			return
		}
	}
}
