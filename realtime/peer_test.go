package realtime

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestAwaitGatheringCompletes(t *testing.T) {
	gathered := make(chan struct{})
	close(gathered)
	if err := awaitGathering(context.Background(), gathered, time.Second); err != nil {
		t.Fatalf("completed gathering must not error: %v", err)
	}
}

func TestAwaitGatheringTimeoutFailsStart(t *testing.T) {
	gathered := make(chan struct{})
	err := awaitGathering(context.Background(), gathered, 5*time.Millisecond)

	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("err = %v, want NegotiationError", err)
	}
	if negErr.Stage != "gather" {
		t.Errorf("stage = %q", negErr.Stage)
	}
}

func TestAwaitGatheringHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := awaitGathering(ctx, make(chan struct{}), time.Minute)
	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("err = %v, want NegotiationError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation cause not preserved: %v", err)
	}
}

type brokenMic struct{}

func (brokenMic) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (brokenMic) Close() error             { return nil }

func TestCaptureDeathClosesSession(t *testing.T) {
	s := &PeerSession{
		capture: brokenMic{},
		events:  make(chan *Event, 1),
		inbox:   make(chan *Event, 1),
		opened:  make(chan struct{}),
		done:    make(chan struct{}),
		log:     log.New(io.Discard),
	}
	go s.pumpEvents()

	s.pumpMic(nil, nil)

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("session not torn down after capture death")
	}
	select {
	case _, ok := <-s.events:
		if ok {
			t.Fatal("unexpected event after teardown")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel never closed")
	}
}

func TestPartialSessionCloseIsSafe(t *testing.T) {
	s := &PeerSession{
		capture: brokenMic{},
		events:  make(chan *Event),
		inbox:   make(chan *Event),
		opened:  make(chan struct{}),
		done:    make(chan struct{}),
		log:     log.New(io.Discard),
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close of partial session: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
