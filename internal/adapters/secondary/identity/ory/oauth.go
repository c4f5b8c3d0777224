package ory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// OAuthAdapter implements port.OAuthClientAdmin against Hydra's admin API.
type OAuthAdapter struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

// NewOAuthAdapter creates an OAuthAdapter.
func NewOAuthAdapter(cfg config.OAuthConfig) *OAuthAdapter {
	return &OAuthAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createClientRequest struct {
	GrantTypes []string          `json:"grant_types"`
	Metadata   map[string]string `json:"metadata"`
}

type createClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (a *OAuthAdapter) MintClientCredentialsClient(ctx context.Context, metadata map[string]string) (string, string, error) {
	body, err := json.Marshal(createClientRequest{
		GrantTypes: []string{"client_credentials"},
		Metadata:   metadata,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshaling client request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.AdminURL+"/admin/clients", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("building client request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("calling authorization server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("authorization server returned status %d", resp.StatusCode)
	}

	var decoded createClientResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("decoding client response: %w", err)
	}
	return decoded.ClientID, decoded.ClientSecret, nil
}

type clientMetadataResponse struct {
	Metadata map[string]string `json:"metadata"`
}

func (a *OAuthAdapter) GetClientMetadata(ctx context.Context, clientID string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.AdminURL+"/admin/clients/"+clientID, nil)
	if err != nil {
		return nil, fmt.Errorf("building client metadata request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling authorization server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authorization server returned status %d", resp.StatusCode)
	}

	var decoded clientMetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding client metadata response: %w", err)
	}
	return decoded.Metadata, nil
}

var _ port.OAuthClientAdmin = (*OAuthAdapter)(nil)
