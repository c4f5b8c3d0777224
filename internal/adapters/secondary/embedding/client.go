// Package embedding implements port.EmbeddingService against a
// process-external, OpenAI-compatible embeddings endpoint, following the
// provider shape (typed Config, validated dimensions, purpose-tagged
// prefixing) of the statelessagent reference's embedding providers.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/infra/config"
)

const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// Client is a process-wide lazily-initialized embedding client: the model
// connection is a singleton, warmed on first use and reused by every
// subsequent call. The lazy part is the warm connectivity check against
// ServiceURL; singleflight collapses concurrent first-callers onto one
// check instead of racing N HTTP round trips.
type Client struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client

	initOnce  sync.Once
	initErr   error
	initGroup singleflight.Group
}

// New constructs a Client. It does not contact ServiceURL until the first
// Embed call.
func New(cfg config.EmbeddingConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

func (c *Client) Dimensions() int {
	if c.cfg.Dimensions <= 0 {
		return 384
	}
	return c.cfg.Dimensions
}

func (c *Client) EmbedPassage(ctx context.Context, content string) ([]float32, error) {
	return c.embed(ctx, passagePrefix+content)
}

func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.embed(ctx, queryPrefix+query)
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.ensureWarm(ctx); err != nil {
		return nil, err
	}

	vec, err := c.requestEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	return normalize(vec, c.Dimensions()), nil
}

// ensureWarm runs the one-time startup check exactly once across however
// many goroutines call Embed* concurrently before it completes.
func (c *Client) ensureWarm(ctx context.Context) error {
	c.initOnce.Do(func() {
		_, err, _ := c.initGroup.Do("warm", func() (any, error) {
			return nil, c.ping(ctx)
		})
		c.initErr = err
	})
	return c.initErr
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ServiceURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building embedding service health check: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

type embeddingRequest struct {
	Input string `json:"input"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *Client) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	return decoded.Embedding, nil
}

// normalize L2-normalizes vec to the expected dimension count: a longer input
// is truncated and a shorter one zero-padded before normalizing. It is
// zero-vector safe: an all-zero result stays all-zero rather than dividing by
// zero into NaN.
func normalize(vec []float32, dims int) []float32 {
	out := make([]float32, dims)
	n := len(vec)
	if n > dims {
		n = dims
	}
	copy(out, vec[:n])

	var sumSq float64
	for _, v := range out {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return out
	}

	norm := float32(math.Sqrt(sumSq))
	for i := range out {
		out[i] /= norm
	}
	return out
}

var _ port.EmbeddingService = (*Client)(nil)
