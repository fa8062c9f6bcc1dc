package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

type fakeDenseIndex struct {
	calls   []domain.SearchFilter
	results map[string][]domain.ScoredMatch
	err     error
}

func (f *fakeDenseIndex) Search(_ context.Context, _ []float64, _ int, filter domain.SearchFilter) ([]domain.ScoredMatch, error) {
	f.calls = append(f.calls, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[filter.Level], nil
}

type fakeSparseIndex struct {
	calls   int
	queries []string
	results []domain.ScoredMatch
	err     error
}

func (f *fakeSparseIndex) SearchBM25(_ context.Context, queryText string, _ int, _ domain.SearchFilter) ([]domain.ScoredMatch, error) {
	f.calls++
	f.queries = append(f.queries, queryText)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestRetrieveClaimsEmptyPatentStageShortCircuits(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{}}
	sparse := &fakeSparseIndex{}
	retriever := NewHierarchicalRetriever(dense, sparse, domain.DefaultHierarchicalConfig())

	claims, err := retriever.RetrieveClaims(context.Background(), []float64{0.1}, "solar panel", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims) != 0 {
		t.Fatalf("expected empty claim set, got %d", len(claims))
	}
	// Only the patent-stage dense search should have run.
	if len(dense.calls) != 1 {
		t.Fatalf("expected 1 dense call, got %d", len(dense.calls))
	}
	if dense.calls[0].Level != domain.LevelPatent {
		t.Fatalf("expected patent-level filter, got %q", dense.calls[0].Level)
	}
}

func TestRetrieveClaimsFiltersClaimStageByFusedPatents(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {
			{ID: "p1", Score: 0.9, Metadata: map[string]any{"patent_id": "US1"}},
			{ID: "p2", Score: 0.8, Metadata: map[string]any{"patent_id": "US2"}},
		},
		domain.LevelClaim: {
			{ID: "c1", Score: 0.7, Metadata: map[string]any{"patent_id": "US1", "claim_no": 1}},
		},
	}}
	sparse := &fakeSparseIndex{results: []domain.ScoredMatch{
		{ID: "e1", Score: 12.0, Metadata: map[string]any{"patent_id": "US2"}},
	}}
	retriever := NewHierarchicalRetriever(dense, sparse, domain.DefaultHierarchicalConfig())

	base := domain.SearchFilter{YearFrom: 2015}
	claims, err := retriever.RetrieveClaims(context.Background(), []float64{0.1}, "solar panel", base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims) != 1 || claims[0].ID != "c1" {
		t.Fatalf("expected claim c1, got %+v", claims)
	}

	if len(dense.calls) != 2 {
		t.Fatalf("expected 2 dense calls, got %d", len(dense.calls))
	}
	claimFilter := dense.calls[1]
	if claimFilter.Level != domain.LevelClaim {
		t.Fatalf("expected claim-level filter, got %q", claimFilter.Level)
	}
	if claimFilter.YearFrom != 2015 {
		t.Fatalf("expected base filter to carry into claim stage, got %+v", claimFilter)
	}
	// US2 is in both lists, so it outranks US1 in the fused order.
	if len(claimFilter.PatentIDIn) != 2 || claimFilter.PatentIDIn[0] != "US2" || claimFilter.PatentIDIn[1] != "US1" {
		t.Fatalf("expected fused patent ids [US2 US1], got %v", claimFilter.PatentIDIn)
	}
	if sparse.calls != 1 {
		t.Fatalf("expected 1 sparse call, got %d", sparse.calls)
	}
}

func TestRetrieveClaimsSkipsSparseWithoutQueryText(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {{ID: "p1", Metadata: map[string]any{"patent_id": "US1"}}},
	}}
	sparse := &fakeSparseIndex{}
	retriever := NewHierarchicalRetriever(dense, sparse, domain.DefaultHierarchicalConfig())

	if _, err := retriever.RetrieveClaims(context.Background(), []float64{0.1}, "   ", domain.SearchFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sparse.calls != 0 {
		t.Fatalf("expected sparse search to be skipped, got %d calls", sparse.calls)
	}
}

func TestRetrieveClaimsSparseFailureIsFatal(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {{ID: "p1", Metadata: map[string]any{"patent_id": "US1"}}},
	}}
	sparse := &fakeSparseIndex{err: errors.New("index unreachable")}
	retriever := NewHierarchicalRetriever(dense, sparse, domain.DefaultHierarchicalConfig())

	if _, err := retriever.RetrieveClaims(context.Background(), []float64{0.1}, "solar panel", domain.SearchFilter{}); err == nil {
		t.Fatal("expected sparse failure to propagate")
	}
}

func TestRetrieveClaimsAllowlistModeRestrictsDense(t *testing.T) {
	dense := &fakeDenseIndex{results: map[string][]domain.ScoredMatch{
		domain.LevelPatent: {
			{ID: "p1", Score: 0.9, Metadata: map[string]any{"patent_id": "US1"}},
			{ID: "p2", Score: 0.8, Metadata: map[string]any{"patent_id": "US2"}},
		},
	}}
	sparse := &fakeSparseIndex{results: []domain.ScoredMatch{
		{ID: "e1", Score: 9.0, Metadata: map[string]any{"patent_id": "US2"}},
	}}
	cfg := domain.DefaultHierarchicalConfig()
	cfg.FusionMode = domain.FusionModeAllowlist
	retriever := NewHierarchicalRetriever(dense, sparse, cfg)

	if _, err := retriever.RetrieveClaims(context.Background(), []float64{0.1}, "widget", domain.SearchFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claimFilter := dense.calls[len(dense.calls)-1]
	if len(claimFilter.PatentIDIn) != 1 || claimFilter.PatentIDIn[0] != "US2" {
		t.Fatalf("expected allow-list to keep only US2, got %v", claimFilter.PatentIDIn)
	}
}
