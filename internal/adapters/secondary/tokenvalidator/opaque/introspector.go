// Package opaque validates Ory-style opaque bearer tokens (ory_at_/ory_ht_
// prefixed) via RFC 7662 introspection: typed Config, New, per-call context.
package opaque

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// Introspector validates opaque tokens against an OAuth2 introspection
// endpoint, enriching the result with OAuth2 client metadata.
type Introspector struct {
	cfg        *config.AuthConfig
	httpClient *http.Client
	clients    port.OAuthClientAdmin
}

// New creates an Introspector.
func New(cfg *config.AuthConfig, clients port.OAuthClientAdmin) *Introspector {
	return &Introspector{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clients:    clients,
	}
}

type introspectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// Validate introspects bearer and, if active, constructs an AuthContext
// enriched from the token's owning client's metadata.
func (i *Introspector) Validate(ctx context.Context, bearer string) (*entity.AuthContext, error) {
	form := url.Values{"token": {bearer}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.cfg.IntrospectionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if i.cfg.IntrospectionClientID != "" {
		req.SetBasicAuth(i.cfg.IntrospectionClientID, i.cfg.IntrospectionSecret)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: introspection request: %v", entity.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: introspection returned %d", entity.ErrUpstream, resp.StatusCode)
	}

	var result introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding introspection response: %v", entity.ErrUpstream, err)
	}

	if !result.Active {
		return nil, entity.ErrUnauthorized
	}
	if result.ClientID == "" {
		return nil, entity.ErrMissingClientID
	}

	ac := &entity.AuthContext{ClientID: result.ClientID}
	if result.Scope != "" {
		ac.Scopes = strings.Fields(result.Scope)
	}

	meta, err := i.clients.GetClientMetadata(ctx, result.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching client metadata: %v", entity.ErrUnauthorized, err)
	}
	ac.IdentityID = meta["identity_id"]
	ac.PublicKey = meta["public_key"]
	ac.Fingerprint = meta["fingerprint"]

	return ac, nil
}

var _ port.TokenValidator = (*Introspector)(nil)
