package realtime

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEventRejectsMalformedPayloads(t *testing.T) {
	cases := []string{
		`not json at all`,
		`{"delta":"missing type"}`,
		`{"type":42}`,
	}
	for _, raw := range cases {
		_, err := DecodeEvent([]byte(raw))
		var anomaly *ProtocolAnomaly
		if !errors.As(err, &anomaly) {
			t.Errorf("DecodeEvent(%q) err = %v, want ProtocolAnomaly", raw, err)
		}
	}
}

func TestKindMapping(t *testing.T) {
	cases := map[string]Kind{
		"conversation.item.input_audio_transcription.completed": KindUserUtteranceDone,
		"conversation.item.created":                             KindUserUtteranceDone,
		"response.created":                                      KindResponseCreated,
		"response.done":                                         KindResponseDone,
		"response.audio_transcript.delta":                       KindTargetDelta,
		"response.output_text.delta":                            KindTargetDelta,
		"response.text.done":                                    KindTargetDone,
		"input_audio_buffer.speech_started":                     KindSpeechStarted,
		"input_audio_buffer.speech_stopped":                     KindSpeechStopped,
		"rate_limits.updated":                                   KindUnrecognized,
	}
	for typ, want := range cases {
		ev := &Event{Type: typ}
		if got := ev.Kind(); got != want {
			t.Errorf("Kind(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestResponseIDFallback(t *testing.T) {
	ev, _ := DecodeEvent([]byte(`{"type":"response.created","response":{"id":"resp_42"}}`))
	if got := ev.ResponseID(); got != "resp_42" {
		t.Errorf("nested id = %q", got)
	}
	ev, _ = DecodeEvent([]byte(`{"type":"response.created","response_id":"resp_43"}`))
	if got := ev.ResponseID(); got != "resp_43" {
		t.Errorf("flat id = %q", got)
	}
}

func TestDeltaTextFallbackChain(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"type":"response.text.delta","delta":"a"}`, "a"},
		{`{"type":"response.text.delta","response":{"text":{"delta":"b"}}}`, "b"},
		{`{"type":"response.output_text.delta","output_text":{"delta":"c"}}`, "c"},
	}
	for _, tc := range cases {
		ev, _ := DecodeEvent([]byte(tc.raw))
		if got := ev.DeltaText(); got != tc.want {
			t.Errorf("DeltaText(%s) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestOutboundEventsCarryFreshIDs(t *testing.T) {
	a := ResponseCreate()
	b := ResponseCreate()
	if a.EventID == "" || a.EventID == b.EventID {
		t.Errorf("event ids must be unique and non-empty: %q, %q", a.EventID, b.EventID)
	}
}

func TestMarshalFoldsTypeAndOmitsTimestamp(t *testing.T) {
	ev := ResponseCancel("resp_1")
	ev.Timestamp = "12:00:00"

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if wire["type"] != "response.cancel" {
		t.Errorf("type = %v", wire["type"])
	}
	if wire["response_id"] != "resp_1" {
		t.Errorf("response_id = %v", wire["response_id"])
	}
	if _, ok := wire["timestamp"]; ok {
		t.Error("receipt timestamp leaked onto the wire")
	}
	if wire["event_id"] == "" {
		t.Error("missing event_id")
	}
}

func TestSessionUpdateShape(t *testing.T) {
	ev := SessionUpdate(SessionParams{
		Instructions:       "translate",
		Voice:              "sage",
		TranscriptionModel: "whisper-1",
		TurnDetection:      "server_vad",
	})
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var wire struct {
		Session struct {
			Instructions  string `json:"instructions"`
			Voice         string `json:"voice"`
			Transcription struct {
				Model string `json:"model"`
			} `json:"input_audio_transcription"`
			TurnDetection struct {
				Type string `json:"type"`
			} `json:"turn_detection"`
		} `json:"session"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if wire.Session.Voice != "sage" || wire.Session.Transcription.Model != "whisper-1" {
		t.Errorf("unexpected session payload: %s", data)
	}
	if wire.Session.TurnDetection.Type != "server_vad" {
		t.Errorf("turn_detection = %q", wire.Session.TurnDetection.Type)
	}
}
