// Package ory implements port.IdentityAdmin and port.OAuthClientAdmin
// against Ory Kratos's and Ory Hydra's admin APIs. Each adapter is built
// from its config section (NewIdentityAdapter, NewOAuthAdapter; neither
// returns an error) and uses net/http with per-call context.
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

// IdentityAdapter implements port.IdentityAdmin against Kratos's admin API.
type IdentityAdapter struct {
	cfg        config.IdentityConfig
	httpClient *http.Client
}

// NewIdentityAdapter creates an IdentityAdapter.
func NewIdentityAdapter(cfg config.IdentityConfig) *IdentityAdapter {
	return &IdentityAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type kratosTraits struct {
	PublicKey   string `json:"public_key"`
	VoucherCode string `json:"voucher_code"`
}

type createIdentityRequest struct {
	SchemaID string       `json:"schema_id"`
	Traits   kratosTraits `json:"traits"`
}

type createIdentityResponse struct {
	ID string `json:"id"`
}

func (a *IdentityAdapter) CreateIdentity(ctx context.Context, traits port.IdentityTraits) (string, error) {
	body, err := json.Marshal(createIdentityRequest{
		SchemaID: "agent",
		Traits: kratosTraits{
			PublicKey:   traits.PublicKey,
			VoucherCode: traits.VoucherCode,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling identity traits: %w", err)
	}

	req, err := a.newRequest(ctx, http.MethodPost, "/admin/identities", body)
	if err != nil {
		return "", err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling identity store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("identity store returned status %d", resp.StatusCode)
	}

	var decoded createIdentityResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding identity response: %w", err)
	}
	return decoded.ID, nil
}

func (a *IdentityAdapter) DeleteIdentity(ctx context.Context, identityID string) error {
	req, err := a.newRequest(ctx, http.MethodDelete, "/admin/identities/"+identityID, nil)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("identity store returned status %d", resp.StatusCode)
	}
	return nil
}

type recoveryCodeRequest struct {
	IdentityID string `json:"identity_id"`
}

type recoveryCodeResponse struct {
	RecoveryCode string `json:"recovery_code"`
	RecoveryLink string `json:"recovery_link"`
}

func (a *IdentityAdapter) MintRecoveryCode(ctx context.Context, identityID string) (string, string, error) {
	body, err := json.Marshal(recoveryCodeRequest{IdentityID: identityID})
	if err != nil {
		return "", "", fmt.Errorf("marshaling recovery code request: %w", err)
	}

	req, err := a.newRequest(ctx, http.MethodPost, "/admin/recovery/code", body)
	if err != nil {
		return "", "", err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("calling identity store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("identity store returned status %d", resp.StatusCode)
	}

	var decoded recoveryCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("decoding recovery code response: %w", err)
	}
	return decoded.RecoveryCode, decoded.RecoveryLink, nil
}

func (a *IdentityAdapter) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.AdminURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building identity store request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.ActionAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.ActionAPIKey)
	}
	return req, nil
}

var _ port.IdentityAdmin = (*IdentityAdapter)(nil)
