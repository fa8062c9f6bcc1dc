package usecase

import (
	"sort"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

const defaultRRFK = 60

type fusedEntry struct {
	id         string
	metadata   map[string]any
	score      float64
	fromSparse bool
}

// FuseRRF combines a dense and a sparse ranked list with Reciprocal Rank
// Fusion. The join key is the patent_id metadata field (falling back to the
// match id), so a patent surfacing in both lists under different surrogate
// ids is still merged. Each appearance contributes 1/(k+rank) with 1-based
// ranks. Output is deduplicated by join key, sorted by descending fused
// score with ties broken by first-seen order, and truncated to topK.
//
// The sparse list is treated as the metadata of record when a key appears in
// both lists: lexical hits are derived from the full stored document rather
// than a vector-index side payload.
func FuseRRF(dense, sparse []domain.ScoredMatch, k, topK int) []domain.ScoredMatch {
	if k <= 0 {
		k = defaultRRFK
	}

	acc := make(map[string]*fusedEntry, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))

	addList := func(matches []domain.ScoredMatch, isSparse bool) {
		for rank, match := range matches {
			key := fuseJoinKey(match)
			entry, seen := acc[key]
			if !seen {
				entry = &fusedEntry{id: match.ID, metadata: match.Metadata, fromSparse: isSparse}
				acc[key] = entry
				order = append(order, key)
			} else if isSparse && !entry.fromSparse {
				entry.id = match.ID
				entry.metadata = match.Metadata
				entry.fromSparse = true
			}
			entry.score += 1.0 / float64(k+rank+1)
		}
	}

	addList(dense, false)
	addList(sparse, true)

	out := make([]domain.ScoredMatch, 0, len(order))
	for _, key := range order {
		entry := acc[key]
		out = append(out, domain.ScoredMatch{
			ID:       entry.id,
			Score:    entry.score,
			Metadata: entry.metadata,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func fuseJoinKey(match domain.ScoredMatch) string {
	if patentID := match.MetadataString("patent_id"); patentID != "" {
		return patentID
	}
	return match.ID
}

// restrictToSparsePatents keeps only dense matches whose patent id already
// appears in the sparse list. This is the optional allow-list fusion mode;
// independent contribution is the default.
func restrictToSparsePatents(dense, sparse []domain.ScoredMatch) []domain.ScoredMatch {
	allowed := make(map[string]struct{}, len(sparse))
	for _, match := range sparse {
		allowed[fuseJoinKey(match)] = struct{}{}
	}

	out := make([]domain.ScoredMatch, 0, len(dense))
	for _, match := range dense {
		if _, ok := allowed[fuseJoinKey(match)]; ok {
			out = append(out, match)
		}
	}
	return out
}
