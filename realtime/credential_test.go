package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchCredential(t *testing.T) {
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"client_secret":{"value":"ek_test"},"model":"gpt-4o-realtime-preview-2024-12-17"}`))
	}))
	defer broker.Close()

	cred, err := FetchCredential(context.Background(), broker.Client(), broker.URL)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Secret != "ek_test" {
		t.Errorf("secret = %q", cred.Secret)
	}
	if cred.Model != "gpt-4o-realtime-preview-2024-12-17" {
		t.Errorf("model = %q", cred.Model)
	}
}

func TestFetchCredentialFlatShape(t *testing.T) {
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":"ek_flat"}`))
	}))
	defer broker.Close()

	cred, err := FetchCredential(context.Background(), broker.Client(), broker.URL)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Secret != "ek_flat" {
		t.Errorf("secret = %q", cred.Secret)
	}
}

func TestFetchCredentialUpstreamError(t *testing.T) {
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"upstream down"}`, http.StatusInternalServerError)
	}))
	defer broker.Close()

	_, err := FetchCredential(context.Background(), broker.Client(), broker.URL)
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("err = %v, want CredentialError", err)
	}
	if credErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", credErr.Status)
	}
}

func TestFetchCredentialMissingSecret(t *testing.T) {
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_at":12345}`))
	}))
	defer broker.Close()

	_, err := FetchCredential(context.Background(), broker.Client(), broker.URL)
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("err = %v, want CredentialError", err)
	}
}
