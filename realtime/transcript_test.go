package realtime

import "testing"

func inbound(t *testing.T, raw string) *Event {
	t.Helper()
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	ev.Timestamp = "12:00:00"
	return ev
}

func TestUserUtteranceAppendsToSource(t *testing.T) {
	r := NewReconciler()

	obs := r.Observe(inbound(t, `{"type":"conversation.item.input_audio_transcription.completed","transcript":"Apa kabar?"}`))
	if !obs.SourceAppended {
		t.Fatal("expected source append")
	}

	source := r.Source()
	if len(source) != 1 || source[0].Text != "Apa kabar?" {
		t.Fatalf("unexpected source log: %v", source)
	}
	if source[0].Timestamp != "12:00:00" {
		t.Errorf("missing receipt stamp: %q", source[0].Timestamp)
	}
}

func TestDeltasAccumulateThenFlush(t *testing.T) {
	r := NewReconciler()

	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"你好"}`))
	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"嗎？"}`))
	if r.Pending() != "你好嗎？" {
		t.Fatalf("pending = %q", r.Pending())
	}
	if len(r.Target()) != 0 {
		t.Fatal("nothing should be flushed yet")
	}

	obs := r.Observe(inbound(t, `{"type":"response.audio_transcript.done"}`))
	if !obs.TargetFlushed {
		t.Fatal("expected target flush")
	}
	target := r.Target()
	if len(target) != 1 || target[0].Text != "你好嗎？" {
		t.Fatalf("unexpected target log: %v", target)
	}
	if r.Pending() != "" {
		t.Errorf("pending not cleared: %q", r.Pending())
	}
}

func TestExplicitFinalPreferredOverBuffer(t *testing.T) {
	r := NewReconciler()

	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"partial"}`))
	r.Observe(inbound(t, `{"type":"response.audio_transcript.done","transcript":"corrected final"}`))

	target := r.Target()
	if len(target) != 1 || target[0].Text != "corrected final" {
		t.Fatalf("expected explicit final text, got %v", target)
	}
}

func TestSecondCompletionWithoutDeltasAppendsNothing(t *testing.T) {
	r := NewReconciler()

	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"你好嗎？"}`))
	r.Observe(inbound(t, `{"type":"response.audio_transcript.done","transcript":"你好嗎？"}`))
	// The text stream's completion for the same turn carries its own copy.
	r.Observe(inbound(t, `{"type":"response.text.done","text":"你好嗎？"}`))

	if got := len(r.Target()); got != 1 {
		t.Fatalf("expected exactly one target entry, got %d", got)
	}
}

func TestDeltaFreeTurnFlushesAfterEarlierTurn(t *testing.T) {
	r := NewReconciler()

	// First turn streams normally and flushes.
	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"你好"}`))
	r.Observe(inbound(t, `{"type":"response.audio_transcript.done","transcript":"你好"}`))

	// The next turn's transcript arrives only in the completion event.
	r.Observe(inbound(t, `{"type":"response.created","response":{"id":"resp_2"}}`))
	obs := r.Observe(inbound(t, `{"type":"response.audio_transcript.done","transcript":"謝謝"}`))
	if !obs.TargetFlushed {
		t.Fatal("delta-free turn must still flush its final transcript")
	}

	target := r.Target()
	if len(target) != 2 || target[1].Text != "謝謝" {
		t.Fatalf("unexpected target log: %v", target)
	}
}

func TestModalityLatchRejectsParallelStream(t *testing.T) {
	r := NewReconciler()

	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"你好"}`))
	obs := r.Observe(inbound(t, `{"type":"response.text.delta","delta":"INTERLEAVED"}`))
	if obs.Changed {
		t.Fatal("text delta must be ignored while latched to audio")
	}
	if r.Pending() != "你好" {
		t.Fatalf("pending corrupted: %q", r.Pending())
	}

	// After the flush the latch releases and the next turn may be text.
	r.Observe(inbound(t, `{"type":"response.audio_transcript.done"}`))
	obs = r.Observe(inbound(t, `{"type":"response.text.delta","delta":"next turn"}`))
	if !obs.Changed {
		t.Fatal("latch should release after completion")
	}
}

func TestCompletionWithNoTextAppendsNothing(t *testing.T) {
	r := NewReconciler()

	obs := r.Observe(inbound(t, `{"type":"response.text.done"}`))
	if obs.TargetFlushed {
		t.Fatal("empty completion must not flush")
	}
	if len(r.Target()) != 0 {
		t.Fatal("target log should stay empty")
	}
}

func TestUserTranscriptFallbackChain(t *testing.T) {
	r := NewReconciler()

	// Typed text comes back echoed inside the created item's content.
	r.Observe(inbound(t, `{"type":"conversation.item.created","item":{"content":[{"type":"input_text","text":"Selamat pagi"}]}}`))

	source := r.Source()
	if len(source) != 1 || source[0].Text != "Selamat pagi" {
		t.Fatalf("unexpected source log: %v", source)
	}
}

func TestClearWipesEverything(t *testing.T) {
	r := NewReconciler()

	r.Observe(inbound(t, `{"type":"conversation.item.input_audio_transcription.completed","transcript":"Apa kabar?"}`))
	r.Observe(inbound(t, `{"type":"response.audio_transcript.delta","delta":"你好"}`))
	r.Clear()

	if len(r.Source()) != 0 || len(r.Target()) != 0 || r.Pending() != "" {
		t.Fatal("clear left state behind")
	}

	// A fresh turn works normally after clearing mid-stream.
	r.Observe(inbound(t, `{"type":"response.text.delta","delta":"baru"}`))
	r.Observe(inbound(t, `{"type":"response.text.done"}`))
	target := r.Target()
	if len(target) != 1 || target[0].Text != "baru" {
		t.Fatalf("post-clear flush broken: %v", target)
	}
}
