package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

func TestSearchTranslatesFilterAndParsesResults(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/patent_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result": [
			{"id": "c1", "score": 0.91, "payload": {"patent_id": "US1", "level": "claim"}},
			{"id": 42, "score": 0.77, "payload": {"patent_id": "US2"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "patent_chunks")
	matches, err := client.Search(context.Background(), []float64{0.1, 0.2}, 5, domain.SearchFilter{
		Level:      domain.LevelClaim,
		PatentIDIn: []string{"US1", "US2"},
		YearFrom:   2010,
		YearTo:     2020,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["limit"] != float64(5) {
		t.Fatalf("expected limit 5, got %v", captured["limit"])
	}
	if captured["with_payload"] != true {
		t.Fatalf("expected with_payload true")
	}
	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("expected filter object, got %v", captured["filter"])
	}
	must, ok := filter["must"].([]any)
	if !ok || len(must) != 3 {
		t.Fatalf("expected 3 must clauses, got %v", filter["must"])
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "c1" || matches[0].Score != 0.91 {
		t.Fatalf("unexpected first match: %+v", matches[0])
	}
	// Integer point ids are normalized to strings.
	if matches[1].ID != "42" {
		t.Fatalf("expected integer id normalized to \"42\", got %q", matches[1].ID)
	}
}

func TestSearchRejectsInvalidArguments(t *testing.T) {
	client := New("http://unused", "patents")

	if _, err := client.Search(context.Background(), []float64{0.1}, 0, domain.SearchFilter{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for top_k=0, got %v", err)
	}
	if _, err := client.Search(context.Background(), nil, 5, domain.SearchFilter{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty vector, got %v", err)
	}
}

func TestSearchErrorIncludesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status": {"error": "collection not found"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "missing")
	_, err := client.Search(context.Background(), []float64{0.1}, 5, domain.SearchFilter{})
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if !strings.Contains(err.Error(), "collection not found") {
		t.Fatalf("expected body excerpt in error, got %v", err)
	}
}

func TestBuildMustClausesEmptyFilter(t *testing.T) {
	if clauses := buildMustClauses(domain.SearchFilter{}); len(clauses) != 0 {
		t.Fatalf("expected no clauses for zero filter, got %v", clauses)
	}
}
