package realtime

import "strings"

// Entry is one finalized transcript line.
type Entry struct {
	Text      string
	Timestamp string
}

// Observation tells the caller what an event changed.
type Observation struct {
	SourceAppended bool
	TargetFlushed  bool
	Changed        bool
}

// Reconciler folds the raw event stream into two append-only transcript logs
// plus one in-progress buffer for the response currently streaming. Ordering
// is by arrival; nothing is ever rewritten after it lands in a log.
type Reconciler struct {
	source []Entry
	target []Entry

	buffer      strings.Builder
	bufferStamp string
	latch       Modality
	flushed     bool
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Observe dispatches one inbound event. Unrecognized kinds fall through
// untouched; they are part of the protocol's open vocabulary, not errors.
func (r *Reconciler) Observe(ev *Event) Observation {
	switch ev.Kind() {
	case KindUserUtteranceDone:
		text := ev.UserTranscript()
		if text == "" {
			return Observation{}
		}
		r.source = append(r.source, Entry{Text: text, Timestamp: ev.Timestamp})
		return Observation{SourceAppended: true, Changed: true}

	case KindTargetDelta:
		delta := ev.DeltaText()
		if delta == "" {
			return Observation{}
		}
		modality := ev.DeltaModality()
		if r.latch == ModalityNone {
			r.latch = modality
		} else if r.latch != modality {
			// The peer streams audio-transcript and text in parallel for one
			// turn; rendering both would interleave garbage.
			return Observation{}
		}
		if r.buffer.Len() == 0 {
			r.bufferStamp = ev.Timestamp
		}
		r.buffer.WriteString(delta)
		r.flushed = false
		return Observation{Changed: true}

	case KindResponseCreated:
		// A new response opens a fresh turn; its completion must flush
		// even when the transcript arrives with no deltas at all.
		r.flushed = false
		return Observation{}

	case KindTargetDone:
		// The peer emits a done event per stream; once a turn has flushed,
		// later completions without fresh deltas add nothing.
		if r.flushed && r.buffer.Len() == 0 {
			return Observation{}
		}
		text := ev.FinalText()
		if text == "" {
			text = r.buffer.String()
		}
		r.buffer.Reset()
		r.latch = ModalityNone
		r.flushed = true
		if text == "" {
			return Observation{}
		}
		stamp := ev.Timestamp
		if stamp == "" {
			stamp = r.bufferStamp
		}
		r.bufferStamp = ""
		r.target = append(r.target, Entry{Text: text, Timestamp: stamp})
		return Observation{TargetFlushed: true, Changed: true}
	}
	return Observation{}
}

// Pending is the in-progress target text, shown as a transient typing
// indicator and never persisted until a completion event flushes it.
func (r *Reconciler) Pending() string {
	return r.buffer.String()
}

// Source returns a copy of the source-language log.
func (r *Reconciler) Source() []Entry {
	out := make([]Entry, len(r.source))
	copy(out, r.source)
	return out
}

// Target returns a copy of the target-language log.
func (r *Reconciler) Target() []Entry {
	out := make([]Entry, len(r.target))
	copy(out, r.target)
	return out
}

// Clear wipes both logs, the pending buffer, and the modality latch.
func (r *Reconciler) Clear() {
	r.source = nil
	r.target = nil
	r.buffer.Reset()
	r.bufferStamp = ""
	r.latch = ModalityNone
	r.flushed = false
}
