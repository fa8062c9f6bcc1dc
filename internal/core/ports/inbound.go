package ports

import (
	"context"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

// PatentQueryService is the inbound contract exposed to the HTTP layer.
type PatentQueryService interface {
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	RetrieveOnly(ctx context.Context, req domain.QueryRequest, topK int) ([]domain.EvidenceItem, error)
}
