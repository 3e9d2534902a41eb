package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
)

// Broker mints short-lived realtime session credentials so the API key
// never leaves the server. The client only ever sees the ephemeral token.
type Broker struct {
	client      *http.Client
	logger      *log.Logger
	apiKey      string
	sessionsURL string
	model       string
	voice       string
}

func NewBroker(client *http.Client, logger *log.Logger, apiKey, sessionsURL, model, voice string) *Broker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Broker{
		client:      client,
		logger:      logger,
		apiKey:      apiKey,
		sessionsURL: sessionsURL,
		model:       model,
		voice:       voice,
	}
}

func (b *Broker) HandleToken(w http.ResponseWriter, r *http.Request) {
	if b.apiKey == "" {
		b.logger.Error("No API key configured")
		http.Error(w, `{"error":"server is not configured with an API key"}`, http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(map[string]any{
		"model": b.model,
		"voice": b.voice,
	})
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, b.sessionsURL, bytes.NewReader(body))
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("Session mint failed", "error", err)
		http.Error(w, `{"error":"upstream unreachable"}`, http.StatusBadGateway)
		return
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error":"upstream read failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// Upstream failures are relayed as-is so the client can show the
	// real status instead of a generic broker error.
	if res.StatusCode < 200 || res.StatusCode > 299 {
		b.logger.Error("Session mint rejected", "status", res.StatusCode)
		w.WriteHeader(res.StatusCode)
		_, _ = w.Write(payload)
		return
	}

	// The token response does not always echo the model; splice it in so
	// the client knows which model the credential was minted for.
	var minted map[string]any
	if err := json.Unmarshal(payload, &minted); err == nil {
		if _, ok := minted["model"]; !ok {
			minted["model"] = b.model
		}
		if out, err := json.Marshal(minted); err == nil {
			payload = out
		}
	}
	_, _ = w.Write(payload)
}
