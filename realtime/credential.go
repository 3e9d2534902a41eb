package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Credential is the short-lived session credential minted by the broker,
// together with the model the broker configured server-side.
type Credential struct {
	Secret string
	Model  string
}

type tokenResponse struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
	Value string `json:"value"`
	Model string `json:"model"`
}

// FetchCredential performs the one opaque broker call. Any failure here is
// fatal to session start and happens before any device or network handle is
// acquired.
func FetchCredential(ctx context.Context, client *http.Client, brokerURL string) (Credential, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimRight(brokerURL, "/") + "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Credential{}, &CredentialError{Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, &CredentialError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, &CredentialError{Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Credential{}, &CredentialError{Err: err}
	}
	secret := tr.ClientSecret.Value
	if secret == "" {
		secret = tr.Value
	}
	if secret == "" {
		return Credential{}, &CredentialError{Status: resp.StatusCode, Body: "token response missing client_secret.value"}
	}
	return Credential{Secret: secret, Model: tr.Model}, nil
}
