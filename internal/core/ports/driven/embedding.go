package driven

import "context"

// EmbeddingService generates vector embeddings for content chunks.
// Enrichment is best-effort: callers must tolerate failures without
// rolling back item persistence.
type EmbeddingService interface {
	// Embed generates embeddings for the given texts
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// HealthCheck verifies the service is reachable
	HealthCheck(ctx context.Context) error

	// Close releases resources
	Close() error
}
