package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status is the console activity indicator, derived purely from the most
// recent relevant event.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusListening  Status = "listening"
	StatusProcessing Status = "processing"
	StatusSpeaking   Status = "speaking"
)

// ErrSessionEnded reports a session that closed without the user asking.
var ErrSessionEnded = errors.New("session ended unexpectedly")

const eventLogLimit = 200

// Options configure a Client.
type Options struct {
	Log         *log.Logger
	Dialer      Dialer
	Credentials func(ctx context.Context) (Credential, error)
	Dial        DialConfig

	Mode               Mode
	Voice              string
	TranscriptionModel string
	InputLanguage      string
	TurnDetection      string

	ReconnectGrace time.Duration
	SwitchTimeout  time.Duration
}

// Client owns the full console state: the live session, the turn
// controller, the transcript logs, and the status indicator. All state
// changes funnel through its mutex, and every change pokes the Updates
// channel so the UI can re-render.
type Client struct {
	log  *log.Logger
	opts Options

	mu         sync.Mutex
	sess       Session
	gen        int
	configured bool
	connecting bool
	switching  bool
	switchSeq  int
	micMuted   bool
	mode       Mode
	status     Status
	lastErr    error
	rec        *Reconciler
	turn       *TurnController
	eventLog   []string

	updates chan struct{}
}

func NewClient(opts Options) *Client {
	if opts.Log == nil {
		opts.Log = log.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeInterpreter
	}
	c := &Client{
		log:      opts.Log,
		opts:     opts,
		mode:     opts.Mode,
		status:   StatusIdle,
		micMuted: true,
		rec:      NewReconciler(),
		updates:  make(chan struct{}, 1),
	}
	c.turn = NewTurnController(opts.Mode,
		func() {
			if c.sess != nil {
				if err := c.sess.Send(ResponseCreate()); err != nil {
					c.log.Warn("Response request failed", "error", err)
				}
			}
		},
		func(responseID string) {
			if c.sess != nil {
				c.log.Debug("Out-of-turn response", "error", &TurnViolation{ResponseID: responseID})
				if err := c.sess.Send(ResponseCancel(responseID)); err != nil {
					c.log.Warn("Response cancel failed", "error", err)
				}
			}
		},
	)
	return c
}

// Updates delivers a coalesced signal whenever any visible state changed.
func (c *Client) Updates() <-chan struct{} { return c.updates }

func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Start tears down any live session and establishes a fresh one. The
// credential comes first, so a broker failure never touches the device.
func (c *Client) Start(ctx context.Context) error {
	c.Stop()

	c.mu.Lock()
	c.connecting = true
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()

	cred, err := c.opts.Credentials(ctx)
	if err != nil {
		c.failStart(err)
		return err
	}
	sess, err := c.opts.Dialer.Dial(ctx, cred, c.opts.Dial)
	if err != nil {
		c.failStart(err)
		return err
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.sess = sess
	c.connecting = false
	c.configured = false
	c.micMuted = true
	c.status = StatusIdle
	c.rec.Clear()
	c.turn.SetMode(c.mode)
	c.mu.Unlock()
	c.notify()

	go c.pump(sess, gen)
	return nil
}

func (c *Client) failStart(err error) {
	c.log.Error("Session start failed", "error", err)
	c.mu.Lock()
	c.connecting = false
	c.lastErr = err
	c.mu.Unlock()
	c.notify()
}

// Stop closes the live session if there is one. Safe to call repeatedly
// and with no session at all.
func (c *Client) Stop() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.gen++
	c.configured = false
	c.connecting = false
	c.status = StatusIdle
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	c.notify()
}

// Reconnect is a full teardown and rebuild with a short settling pause in
// between so the capture device is released before it is reopened.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Stop()
	time.Sleep(c.opts.ReconnectGrace)
	return c.Start(ctx)
}

// SwitchMode changes the conversation mode. With a live session that
// means a complete rebuild; the switching flag bridges the gap so the UI
// can show the transition, and a watchdog clears it if the rebuild wedges.
func (c *Client) SwitchMode(ctx context.Context, target Mode) error {
	c.mu.Lock()
	if c.mode == target {
		c.mu.Unlock()
		return nil
	}
	live := c.sess != nil || c.connecting
	if !live {
		c.mode = target
		c.turn.SetMode(target)
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.switching = true
	c.switchSeq++
	seq := c.switchSeq
	c.mu.Unlock()
	c.notify()

	if c.opts.SwitchTimeout > 0 {
		time.AfterFunc(c.opts.SwitchTimeout, func() {
			c.mu.Lock()
			stuck := c.switchSeq == seq && c.switching
			if stuck {
				c.switching = false
				c.lastErr = fmt.Errorf("mode switch to %s timed out", target)
			}
			c.mu.Unlock()
			if stuck {
				c.notify()
			}
		})
	}

	c.Stop()
	time.Sleep(c.opts.ReconnectGrace)

	c.mu.Lock()
	c.mode = target
	c.turn.SetMode(target)
	c.mu.Unlock()

	err := c.Start(ctx)

	c.mu.Lock()
	if c.switchSeq == seq {
		c.switching = false
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// Clear wipes both transcripts, the pending buffer, and all turn state.
// The session itself stays up.
func (c *Client) Clear() {
	c.mu.Lock()
	c.rec.Clear()
	c.turn.Reset()
	c.status = StatusIdle
	c.mu.Unlock()
	c.notify()
}

// SendText submits typed text as a completed user utterance, subject to
// the same turn policy as speech.
func (c *Client) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || !c.configured {
		return errors.New("no active session")
	}
	if err := c.sess.Send(UserText(text)); err != nil {
		return err
	}
	c.status = StatusProcessing
	c.turn.UtteranceCompleted()
	c.notify()
	return nil
}

// SetMuted gates the uplink. The session keeps running either way.
func (c *Client) SetMuted(muted bool) {
	c.mu.Lock()
	c.micMuted = muted
	sess := c.sess
	c.mu.Unlock()
	if sess != nil {
		sess.SetMicEnabled(!muted)
	}
	c.notify()
}

// View is an immutable snapshot for rendering.
type View struct {
	Mode       Mode
	Status     Status
	Active     bool
	Connecting bool
	Switching  bool
	MicMuted   bool
	Source     []Entry
	Target     []Entry
	Pending    string
	Turn       TurnState
	Err        error
	Events     []string
}

func (c *Client) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, len(c.eventLog))
	copy(events, c.eventLog)
	return View{
		Mode:       c.mode,
		Status:     c.status,
		Active:     c.sess != nil && c.configured,
		Connecting: c.connecting,
		Switching:  c.switching,
		MicMuted:   c.micMuted,
		Source:     c.rec.Source(),
		Target:     c.rec.Target(),
		Pending:    c.rec.Pending(),
		Turn:       c.turn.State(),
		Err:        c.lastErr,
		Events:     events,
	}
}

func (c *Client) pump(sess Session, gen int) {
	opened := sess.Opened()
	for {
		select {
		case <-opened:
			c.configure(sess, gen)
			opened = nil
		case ev, ok := <-sess.Events():
			if !ok {
				c.sessionEnded(gen)
				return
			}
			c.handleEvent(gen, ev)
		}
	}
}

// configure runs once per session, as soon as the control channel opens:
// push the mode's session parameters and declare the console active.
func (c *Client) configure(sess Session, gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	mode := c.mode
	params := SessionParams{
		Instructions:          mode.Instructions(),
		Voice:                 c.opts.Voice,
		TranscriptionModel:    c.opts.TranscriptionModel,
		TranscriptionLanguage: c.opts.InputLanguage,
		TurnDetection:         c.opts.TurnDetection,
	}
	c.configured = true
	c.status = StatusIdle
	c.mu.Unlock()

	if err := sess.Send(SessionUpdate(params)); err != nil {
		c.log.Warn("Session configuration failed", "error", err)
	}
	c.log.Info("Session configured", "mode", mode)
	c.notify()
}

func (c *Client) sessionEnded(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.sess = nil
	c.configured = false
	c.status = StatusIdle
	c.lastErr = ErrSessionEnded
	c.mu.Unlock()
	c.log.Warn("Session ended unexpectedly")
	c.notify()
}

func (c *Client) handleEvent(gen int, ev *Event) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.logEvent(ev)

	switch ev.Kind() {
	case KindSpeechStarted:
		c.status = StatusListening
	case KindSpeechStopped:
		c.status = StatusProcessing
	case KindUserUtteranceDone:
		obs := c.rec.Observe(ev)
		if obs.SourceAppended && ev.EndsSpokenUtterance() {
			c.status = StatusProcessing
			c.turn.UtteranceCompleted()
		}
	case KindResponseCreated:
		c.rec.Observe(ev)
		c.turn.ResponseCreated(ev.ResponseID())
	case KindTargetDelta:
		c.rec.Observe(ev)
		c.status = StatusSpeaking
	case KindTargetDone:
		c.rec.Observe(ev)
	case KindResponseDone:
		c.turn.ResponseDone()
		c.status = StatusIdle
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Client) logEvent(ev *Event) {
	line := ev.Timestamp + "  " + ev.Type
	c.eventLog = append(c.eventLog, line)
	if len(c.eventLog) > eventLogLimit {
		c.eventLog = c.eventLog[len(c.eventLog)-eventLogLimit:]
	}
}
