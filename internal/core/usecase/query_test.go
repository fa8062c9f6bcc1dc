package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

type fakeEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakePublisher struct {
	events []domain.QueryCompletedEvent
	err    error
}

func (f *fakePublisher) PublishQueryCompleted(_ context.Context, event domain.QueryCompletedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func claimMatches(n int) []domain.ScoredMatch {
	out := make([]domain.ScoredMatch, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ScoredMatch{
			ID:    fmt.Sprintf("c%d", i+1),
			Score: 1.0 - float64(i)*0.01,
			Metadata: map[string]any{
				"patent_id": "US1",
				"level":     domain.LevelClaim,
				"text":      fmt.Sprintf("claim %d text", i+1),
			},
		})
	}
	return out
}

func newTestQueryUseCase(dense *fakeDenseIndex, gen *fakeGenerator, events *fakePublisher) *QueryUseCase {
	embedder := &fakeEmbedder{vec: []float64{0.1, 0.2}}
	retriever := NewHierarchicalRetriever(dense, nil, domain.DefaultHierarchicalConfig())
	store := &fakeChunkStore{docs: map[string]domain.ChunkDocument{}}
	reranker := NewReranker(gen, domain.DefaultRerankConfig())
	return NewQueryUseCase(embedder, retriever, dense, store, reranker, gen, events, domain.DefaultRagPolicy())
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	uc := newTestQueryUseCase(&fakeDenseIndex{}, &fakeGenerator{}, &fakePublisher{})

	_, err := uc.Query(context.Background(), domain.QueryRequest{Query: "   "})
	if err == nil {
		t.Fatal("expected error for blank query")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestQueryEndToEndTruncatesToFinalTopN(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {{ID: "p1", Score: 0.9, Metadata: map[string]any{"patent_id": "US1"}}},
		domain.LevelClaim:  claimMatches(12),
	}}
	gen := &fakeGenerator{response: "Synthesized answer."}
	events := &fakePublisher{}
	uc := newTestQueryUseCase(dense, gen, events)

	useReranking := false
	resp, err := uc.Query(context.Background(), domain.QueryRequest{
		Query:        "flexible display hinge",
		Mode:         domain.ModePriorArt,
		UseReranking: &useReranking,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "Synthesized answer." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Evidence) != domain.DefaultRagPolicy().FinalTopN {
		t.Fatalf("expected %d evidence items, got %d", domain.DefaultRagPolicy().FinalTopN, len(resp.Evidence))
	}
	if resp.Evidence[0].ChunkID != "c1" {
		t.Fatalf("expected retrieval order preserved, got %s first", resp.Evidence[0].ChunkID)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.EvidenceCount != len(resp.Evidence) || event.Mode != domain.ModePriorArt || event.Reranked {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestQueryNoEvidenceReturnsCannedAnswer(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{}}
	gen := &fakeGenerator{response: "should not be called"}
	uc := newTestQueryUseCase(dense, gen, &fakePublisher{})

	resp, err := uc.Query(context.Background(), domain.QueryRequest{Query: "unobtainium reactor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != noEvidenceAnswer {
		t.Fatalf("expected canned answer, got %q", resp.Answer)
	}
	if len(resp.Evidence) != 0 {
		t.Fatalf("expected no evidence, got %d", len(resp.Evidence))
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.calls)
	}
}

func TestQueryPublishFailureDoesNotFailResponse(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {{ID: "p1", Metadata: map[string]any{"patent_id": "US1"}}},
		domain.LevelClaim:  claimMatches(2),
	}}
	gen := &fakeGenerator{response: "Answer."}
	events := &fakePublisher{err: errors.New("broker down")}
	uc := newTestQueryUseCase(dense, gen, events)

	useReranking := false
	resp, err := uc.Query(context.Background(), domain.QueryRequest{
		Query:        "solar tracker",
		UseReranking: &useReranking,
	})
	if err != nil {
		t.Fatalf("expected publish failure to be swallowed, got %v", err)
	}
	if resp.Answer != "Answer." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
}

func TestQueryDefaultsToPriorArtMode(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{}}
	uc := newTestQueryUseCase(dense, &fakeGenerator{}, &fakePublisher{})

	resp, err := uc.Query(context.Background(), domain.QueryRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != domain.ModePriorArt {
		t.Fatalf("expected default mode %q, got %q", domain.ModePriorArt, resp.Mode)
	}
}

func TestQueryFlatModeSkipsHierarchy(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		"": claimMatches(3),
	}}
	gen := &fakeGenerator{response: "Answer."}
	uc := newTestQueryUseCase(dense, gen, &fakePublisher{})

	useHierarchical := false
	useReranking := false
	resp, err := uc.Query(context.Background(), domain.QueryRequest{
		Query:           "solar tracker",
		UseHierarchical: &useHierarchical,
		UseReranking:    &useReranking,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dense.calls) != 1 {
		t.Fatalf("expected a single flat dense search, got %d calls", len(dense.calls))
	}
	if dense.calls[0].Level != "" {
		t.Fatalf("expected no level restriction in flat mode, got %q", dense.calls[0].Level)
	}
	if len(resp.Evidence) != 3 {
		t.Fatalf("expected 3 evidence items, got %d", len(resp.Evidence))
	}
}

func TestRetrieveOnlySkipsRerankAndGeneration(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {{ID: "p1", Metadata: map[string]any{"patent_id": "US1"}}},
		domain.LevelClaim:  claimMatches(5),
	}}
	gen := &fakeGenerator{response: `{"ranked_ids": ["c5"]}`}
	uc := newTestQueryUseCase(dense, gen, &fakePublisher{})

	evidence, err := uc.RetrieveOnly(context.Background(), domain.QueryRequest{Query: "solar tracker"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evidence) != 3 {
		t.Fatalf("expected top_k truncation to 3, got %d", len(evidence))
	}
	if gen.calls != 0 {
		t.Fatalf("expected no model calls in retrieve-only mode, got %d", gen.calls)
	}
	if evidence[0].ChunkID != "c1" {
		t.Fatalf("expected retrieval order, got %s first", evidence[0].ChunkID)
	}
}
