package port

import "context"

// EmbeddingService is the process-external embedding model client, loaded
// lazily as a process-wide singleton on first use. Implementations must
// L2-normalize the returned vector and be zero-vector safe (zero in, zero
// out, no NaN).
type EmbeddingService interface {
	// EmbedPassage embeds document-side content, prefixed "passage: " to
	// match the asymmetric passage/query training scheme of the underlying
	// model.
	EmbedPassage(ctx context.Context, content string) ([]float32, error)
	// EmbedQuery embeds a search query, prefixed "query: " for the same reason.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
}
