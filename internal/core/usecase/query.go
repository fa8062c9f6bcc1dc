package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
)

const (
	flatRetrievalTopK  = 50
	defaultRetrieveCap = 20

	noEvidenceAnswer = "No relevant patents found for your query."
)

// QueryUseCase sequences the full pipeline: encode -> hierarchical retrieval
// -> evidence assembly -> rerank -> top-N policy -> answer generation. All
// collaborators are injected; the use case holds no cross-request state.
type QueryUseCase struct {
	embedder  ports.Embedder
	retriever *HierarchicalRetriever
	dense     ports.DenseIndex
	chunks    ports.ChunkTextStore
	reranker  *Reranker
	generator ports.TextGenerator
	events    ports.EventPublisher
	policy    domain.RagPolicy
	observer  func(mode string, evidenceCount int, duration time.Duration)
}

// SetObserver registers a completion callback, used for metrics. Nil is
// allowed and disables observation.
func (uc *QueryUseCase) SetObserver(observer func(mode string, evidenceCount int, duration time.Duration)) {
	uc.observer = observer
}

func NewQueryUseCase(
	embedder ports.Embedder,
	retriever *HierarchicalRetriever,
	dense ports.DenseIndex,
	chunks ports.ChunkTextStore,
	reranker *Reranker,
	generator ports.TextGenerator,
	events ports.EventPublisher,
	policy domain.RagPolicy,
) *QueryUseCase {
	return &QueryUseCase{
		embedder:  embedder,
		retriever: retriever,
		dense:     dense,
		chunks:    chunks,
		reranker:  reranker,
		generator: generator,
		events:    events,
		policy:    policy.Normalize(),
	}
}

func (uc *QueryUseCase) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", fmt.Errorf("query text is required"))
	}
	mode := normalizeMode(req.Mode)

	evidence, reranked, err := uc.retrieveEvidence(ctx, query, req)
	if err != nil {
		return nil, err
	}
	evidence = truncateEvidence(evidence, uc.policy.FinalTopN)

	answer, err := uc.generateAnswer(ctx, query, mode, evidence)
	if err != nil {
		return nil, err
	}

	if uc.observer != nil {
		uc.observer(mode, len(evidence), time.Since(start))
	}
	uc.publishCompleted(ctx, domain.QueryCompletedEvent{
		EventID:       uuid.NewString(),
		Mode:          mode,
		Query:         query,
		EvidenceCount: len(evidence),
		Reranked:      reranked,
		DurationMS:    float64(time.Since(start).Microseconds()) / 1000.0,
		CompletedAt:   time.Now().UTC(),
	})

	return &domain.QueryResponse{
		Mode:     mode,
		Answer:   answer,
		Evidence: evidence,
	}, nil
}

// RetrieveOnly returns assembled evidence without answer generation. Useful
// for debugging retrieval quality and custom downstream processing.
func (uc *QueryUseCase) RetrieveOnly(ctx context.Context, req domain.QueryRequest, topK int) ([]domain.EvidenceItem, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("query text is required"))
	}
	if topK <= 0 {
		topK = defaultRetrieveCap
	}

	req.UseReranking = boolPtr(false)
	evidence, _, err := uc.retrieveEvidence(ctx, query, req)
	if err != nil {
		return nil, err
	}
	return truncateEvidence(evidence, topK), nil
}

func (uc *QueryUseCase) retrieveEvidence(ctx context.Context, query string, req domain.QueryRequest) ([]domain.EvidenceItem, bool, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embed query: %w", err)
	}

	var matches []domain.ScoredMatch
	if req.Hierarchical() {
		matches, err = uc.retriever.RetrieveClaims(ctx, queryVector, query, req.Filter)
	} else {
		matches, err = uc.dense.Search(ctx, queryVector, flatRetrievalTopK, req.Filter)
	}
	if err != nil {
		return nil, false, err
	}

	evidence, err := AssembleEvidence(ctx, matches, domain.SourceHybrid, uc.chunks)
	if err != nil {
		return nil, false, err
	}

	if !req.Reranking() || uc.reranker == nil || len(evidence) == 0 {
		return evidence, false, nil
	}
	evidence, err = uc.reranker.Rerank(ctx, query, evidence)
	if err != nil {
		return nil, false, fmt.Errorf("rerank evidence: %w", err)
	}
	return evidence, true, nil
}

func (uc *QueryUseCase) generateAnswer(ctx context.Context, query, mode string, evidence []domain.EvidenceItem) (string, error) {
	if len(evidence) == 0 {
		return noEvidenceAnswer, nil
	}
	answer, err := uc.generator.GenerateText(ctx, answerInstructions(mode), buildAnswerPrompt(query, evidence))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// publishCompleted emits the analytics event best-effort; a publisher
// failure never fails the already-computed response.
func (uc *QueryUseCase) publishCompleted(ctx context.Context, event domain.QueryCompletedEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishQueryCompleted(ctx, event); err != nil {
		slog.Warn("publish_query_completed_failed", "event_id", event.EventID, "error", err)
	}
}

func normalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case domain.ModePriorArt, domain.ModeInfringement, domain.ModeLandscape:
		return mode
	case "":
		return domain.ModePriorArt
	default:
		return mode
	}
}

func boolPtr(v bool) *bool {
	return &v
}
