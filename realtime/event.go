package realtime

import (
	"encoding/json"
	"fmt"
	"maps"

	"juru.id/etc"
)

// Event is one message on the event channel. The protocol vocabulary is
// open-ended; Kind folds the tags this program understands into a closed set
// and everything else lands on KindUnrecognized, which consumers ignore.
type Event struct {
	Type      string
	EventID   string
	Timestamp string // receipt stamp, assigned locally, never sent

	payload map[string]any
}

type Kind int

const (
	KindUnrecognized Kind = iota
	KindUserUtteranceDone
	KindResponseCreated
	KindResponseDone
	KindTargetDelta
	KindTargetDone
	KindSpeechStarted
	KindSpeechStopped
)

// Modality tags which of the remote peer's parallel transcript streams a
// delta belongs to. One logical turn may carry both an audio-transcript
// stream and a text stream; only one may be rendered.
type Modality int

const (
	ModalityNone Modality = iota
	ModalityAudio
	ModalityText
)

const typeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"

var userDoneTags = map[string]bool{
	typeTranscriptionCompleted:  true,
	"conversation.item.created": true,
	"conversation.item.updated": true,
}

// EndsSpokenUtterance reports whether this event marks the completion of a
// spoken utterance's transcription. Only these events begin a turn; the
// created/updated item echoes contribute transcript text but must not
// trigger a second response request.
func (e *Event) EndsSpokenUtterance() bool {
	return e.Type == typeTranscriptionCompleted
}

var deltaModality = map[string]Modality{
	"response.audio_transcript.delta":        ModalityAudio,
	"response.output_audio_transcript.delta": ModalityAudio,
	"response.text.delta":                    ModalityText,
	"response.output_text.delta":             ModalityText,
}

var doneTags = map[string]bool{
	"response.audio_transcript.done":        true,
	"response.output_audio_transcript.done": true,
	"response.text.done":                    true,
	"response.output_text.done":             true,
}

func (e *Event) Kind() Kind {
	switch {
	case userDoneTags[e.Type]:
		return KindUserUtteranceDone
	case deltaModality[e.Type] != ModalityNone:
		return KindTargetDelta
	case doneTags[e.Type]:
		return KindTargetDone
	case e.Type == "response.created":
		return KindResponseCreated
	case e.Type == "response.done":
		return KindResponseDone
	case e.Type == "input_audio_buffer.speech_started":
		return KindSpeechStarted
	case e.Type == "input_audio_buffer.speech_stopped":
		return KindSpeechStopped
	}
	return KindUnrecognized
}

func (e *Event) DeltaModality() Modality {
	return deltaModality[e.Type]
}

// DecodeEvent parses one inbound message. A message without a type string is
// a protocol anomaly; the caller drops it and carries on.
func DecodeEvent(data []byte) (*Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ProtocolAnomaly{Raw: data, Err: err}
	}
	typ, _ := payload["type"].(string)
	if typ == "" {
		return nil, &ProtocolAnomaly{Raw: data, Err: fmt.Errorf("missing type field")}
	}
	id, _ := payload["event_id"].(string)
	return &Event{Type: typ, EventID: id, payload: payload}, nil
}

// MarshalJSON emits the payload with type and event_id folded in. The receipt
// timestamp is local bookkeeping and stays out of the wire form.
func (e *Event) MarshalJSON() ([]byte, error) {
	m := maps.Clone(e.payload)
	if m == nil {
		m = map[string]any{}
	}
	m["type"] = e.Type
	if e.EventID != "" {
		m["event_id"] = e.EventID
	}
	delete(m, "timestamp")
	return json.Marshal(m)
}

func (e *Event) str(path ...string) string {
	var cur any = e.payload
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

// UserTranscript extracts the completed source-language transcript. The
// remote peer exposes it in several payload shapes; the first non-empty
// candidate wins.
func (e *Event) UserTranscript() string {
	if s := e.str("transcript"); s != "" {
		return s
	}
	if s := e.str("item", "input_audio_transcription", "transcript"); s != "" {
		return s
	}
	if content, ok := e.payload["item"].(map[string]any); ok {
		if items, ok := content["content"].([]any); ok {
			for _, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					continue
				}
				if s, _ := m["transcript"].(string); s != "" {
					return s
				}
			}
			for _, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					continue
				}
				if s, _ := m["text"].(string); s != "" {
					return s
				}
			}
		}
	}
	return e.str("item", "input_audio_transcription", "text")
}

// DeltaText extracts the streamed fragment from a delta event.
func (e *Event) DeltaText() string {
	if s := e.str("delta"); s != "" {
		return s
	}
	for _, path := range [][]string{
		{"response", "audio_transcript", "delta"},
		{"response", "text", "delta"},
		{"output_audio_transcript", "delta"},
		{"output_text", "delta"},
	} {
		if s := e.str(path...); s != "" {
			return s
		}
	}
	return ""
}

// FinalText extracts the explicit final transcript from a completion event.
// Empty means the caller should fall back to its accumulated buffer.
func (e *Event) FinalText() string {
	if s := e.str("transcript"); s != "" {
		return s
	}
	if s := e.str("text"); s != "" {
		return s
	}
	for _, path := range [][]string{
		{"response", "audio_transcript", "text"},
		{"response", "text", "text"},
		{"output_audio_transcript", "text"},
		{"output_text", "text"},
	} {
		if s := e.str(path...); s != "" {
			return s
		}
	}
	return ""
}

// ResponseID extracts the remote response identifier from a response.created
// (or response.done) payload.
func (e *Event) ResponseID() string {
	if s := e.str("response", "id"); s != "" {
		return s
	}
	return e.str("response_id")
}

// SessionParams is the remote session configuration applied on channel open
// and after every rebuild.
type SessionParams struct {
	Instructions          string
	Voice                 string
	TranscriptionModel    string
	TranscriptionLanguage string
	TurnDetection         string
}

func outbound(typ string, payload map[string]any) *Event {
	return &Event{Type: typ, EventID: etc.NewFreshID(), payload: payload}
}

func SessionUpdate(p SessionParams) *Event {
	transcription := map[string]any{"model": p.TranscriptionModel}
	if p.TranscriptionLanguage != "" {
		transcription["language"] = p.TranscriptionLanguage
	}
	return outbound("session.update", map[string]any{
		"session": map[string]any{
			"instructions":              p.Instructions,
			"voice":                     p.Voice,
			"input_audio_transcription": transcription,
			"turn_detection":            map[string]any{"type": p.TurnDetection},
		},
	})
}

func UserText(text string) *Event {
	return outbound("conversation.item.create", map[string]any{
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []any{
				map[string]any{"type": "input_text", "text": text},
			},
		},
	})
}

func ResponseCreate() *Event {
	return outbound("response.create", map[string]any{
		"response": map[string]any{
			"modalities": []any{"text", "audio"},
		},
	})
}

func ResponseCancel(responseID string) *Event {
	payload := map[string]any{}
	if responseID != "" {
		payload["response_id"] = responseID
	}
	return outbound("response.cancel", payload)
}
