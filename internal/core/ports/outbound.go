package ports

import (
	"context"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

// Embedder encodes query text into a dense vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// DenseIndex performs semantic similarity search over the vector index at a
// hierarchy level implied by the filter.
type DenseIndex interface {
	Search(ctx context.Context, queryVector []float64, topK int, filter domain.SearchFilter) ([]domain.ScoredMatch, error)
}

// SparseIndex performs lexical (BM25) search over the patent-level index.
type SparseIndex interface {
	SearchBM25(ctx context.Context, queryText string, topK int, filter domain.SearchFilter) ([]domain.ScoredMatch, error)
}

// ChunkTextStore retrieves canonical chunk text in batch. Missing ids are
// simply absent from the result, never an error.
type ChunkTextStore interface {
	GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.ChunkDocument, error)
}

// TextGenerator produces model completions. Implementations own their retry
// budget; a returned error means the budget is exhausted.
type TextGenerator interface {
	GenerateText(ctx context.Context, instructions, prompt string) (string, error)
}

// EventPublisher emits pipeline telemetry events for offline analytics.
// Implementations must be safe to call fire-and-forget.
type EventPublisher interface {
	PublishQueryCompleted(ctx context.Context, event domain.QueryCompletedEvent) error
}
