package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

// Patent-level BM25 fields, title weighted highest. Claim-level lexical
// search is out of scope: this index only holds patent documents.
var defaultSearchFields = []string{"title^2", "abstract", "text", "claims", "patent_id"}

// Client is the sparse retrieval adapter over the Elasticsearch REST API.
type Client struct {
	baseURL    string
	index      string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, index, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SearchBM25(
	ctx context.Context,
	queryText string,
	topK int,
	filter domain.SearchFilter,
) ([]domain.ScoredMatch, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bm25 search", fmt.Errorf("query text is required"))
	}
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bm25 search", fmt.Errorf("top_k must be > 0, got %d", topK))
	}

	boolQuery := map[string]any{
		"must": []map[string]any{
			{
				"multi_match": map[string]any{
					"query":  queryText,
					"fields": defaultSearchFields,
					"type":   "best_fields",
				},
			},
		},
	}
	if clauses := buildFilterClauses(filter); len(clauses) > 0 {
		boolQuery["filter"] = clauses
	}

	body, err := json.Marshal(map[string]any{
		"size":  topK,
		"query": map[string]any{"bool": boolQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, fmt.Errorf("elasticsearch search status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("elasticsearch search status: %s", resp.Status)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.ScoredMatch, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		out = append(out, domain.ScoredMatch{
			ID:       hit.ID,
			Score:    hit.Score,
			Metadata: hit.Source,
		})
	}
	return out, nil
}

// buildFilterClauses translates the typed filter into bool filter context:
// equality -> term, set membership -> terms, year bounds -> range.
func buildFilterClauses(filter domain.SearchFilter) []map[string]any {
	clauses := make([]map[string]any, 0, 5)

	if filter.Level != "" {
		clauses = append(clauses, map[string]any{"term": map[string]any{"level": filter.Level}})
	}
	if len(filter.PatentIDIn) > 0 {
		clauses = append(clauses, map[string]any{"terms": map[string]any{"patent_id": filter.PatentIDIn}})
	}
	if len(filter.CPCIn) > 0 {
		clauses = append(clauses, map[string]any{"terms": map[string]any{"cpc": filter.CPCIn}})
	}
	if len(filter.AssigneeIn) > 0 {
		clauses = append(clauses, map[string]any{"terms": map[string]any{"assignee": filter.AssigneeIn}})
	}
	if filter.YearFrom > 0 || filter.YearTo > 0 {
		bounds := map[string]any{}
		if filter.YearFrom > 0 {
			bounds["gte"] = filter.YearFrom
		}
		if filter.YearTo > 0 {
			bounds["lte"] = filter.YearTo
		}
		clauses = append(clauses, map[string]any{"range": map[string]any{"filing_year": bounds}})
	}

	return clauses
}
