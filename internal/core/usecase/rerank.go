package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
)

// Reranker asks a generative model to reorder a bounded candidate set by
// relevance. Malformed model output never fails the pipeline: known ids are
// reordered, unmentioned candidates are appended in their original relative
// order, and fully unusable output falls back to the original order.
type Reranker struct {
	generator  ports.TextGenerator
	cfg        domain.RerankConfig
	onFallback func()
}

func NewReranker(generator ports.TextGenerator, cfg domain.RerankConfig) *Reranker {
	return &Reranker{
		generator: generator,
		cfg:       cfg.Normalize(),
	}
}

// SetFallbackHook registers a callback invoked whenever model output is
// unusable and the reranker falls back to the original order.
func (r *Reranker) SetFallbackHook(hook func()) {
	r.onFallback = hook
}

// Rerank returns at most cfg.TopN items. With zero or one candidate the
// input is returned unchanged without a model call. A transport failure of
// the generator propagates; only content-level failures fall back.
func (r *Reranker) Rerank(ctx context.Context, query string, items []domain.EvidenceItem) ([]domain.EvidenceItem, error) {
	candidates := make([]domain.EvidenceItem, len(items))
	copy(candidates, items)
	if len(candidates) > r.cfg.MaxCandidates {
		candidates = candidates[:r.cfg.MaxCandidates]
	}
	if len(candidates) <= 1 {
		return candidates, nil
	}

	raw, err := r.generator.GenerateText(ctx, rerankInstructions, buildRerankPrompt(query, candidates, r.cfg.SnippetChars))
	if err != nil {
		return nil, err
	}

	rankedIDs, parsed := parseRankedIDs(raw)
	if !parsed {
		r.fallback()
		return truncateEvidence(candidates, r.cfg.TopN), nil
	}

	byID := make(map[string]domain.EvidenceItem, len(candidates))
	for _, c := range candidates {
		byID[c.CandidateID()] = c
	}

	out := make([]domain.EvidenceItem, 0, len(candidates))
	placed := make(map[string]struct{}, len(candidates))
	for _, id := range rankedIDs {
		if _, dup := placed[id]; dup {
			continue
		}
		candidate, known := byID[id]
		if !known {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, candidate)
	}

	if len(out) == 0 {
		r.fallback()
		return truncateEvidence(candidates, r.cfg.TopN), nil
	}

	// Candidates the model never mentioned are appended, never dropped.
	for _, c := range candidates {
		if _, ok := placed[c.CandidateID()]; !ok {
			out = append(out, c)
		}
	}

	for i := range out {
		out[i].Source = domain.SourceReranked
	}
	return truncateEvidence(out, r.cfg.TopN), nil
}

func (r *Reranker) fallback() {
	if r.onFallback != nil {
		r.onFallback()
	}
}

func truncateEvidence(items []domain.EvidenceItem, limit int) []domain.EvidenceItem {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

type rankedIDsPayload struct {
	RankedIDs []string `json:"ranked_ids"`
}

// parseRankedIDs extracts the first top-level JSON object from the raw model
// response, tolerating surrounding prose, and parses it into the expected
// {"ranked_ids": [...]} shape. Any deviation is reported as unparsable
// rather than raised.
func parseRankedIDs(raw string) ([]string, bool) {
	objText, found := firstJSONObject(raw)
	if !found {
		return nil, false
	}

	var payload rankedIDsPayload
	if err := json.Unmarshal([]byte(objText), &payload); err != nil {
		return nil, false
	}
	if payload.RankedIDs == nil {
		return nil, false
	}

	out := make([]string, 0, len(payload.RankedIDs))
	for _, id := range payload.RankedIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// firstJSONObject scans for the first balanced top-level {...} block,
// skipping braces inside string literals.
func firstJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
