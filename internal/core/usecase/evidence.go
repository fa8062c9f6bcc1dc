package usecase

import (
	"context"
	"fmt"

	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
)

// AssembleEvidence hydrates retrieval matches, which carry only metadata and
// snippets, with canonical full text from the document store and maps them
// into the public evidence schema. All ids go to the store in one batch
// lookup. Missing store rows degrade to the match's own metadata text; a
// partially populated store is never fatal.
func AssembleEvidence(
	ctx context.Context,
	matches []domain.ScoredMatch,
	sourceLabel string,
	store ports.ChunkTextStore,
) ([]domain.EvidenceItem, error) {
	if len(matches) == 0 {
		return []domain.EvidenceItem{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, chunkIDForMatch(match))
	}

	var docs map[string]domain.ChunkDocument
	if store != nil {
		var err error
		docs, err = store.GetChunksByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch chunk texts: %w", err)
		}
	}

	items := make([]domain.EvidenceItem, 0, len(matches))
	for _, match := range matches {
		chunkID := chunkIDForMatch(match)
		doc, hydrated := docs[chunkID]

		item := domain.EvidenceItem{
			ChunkID:  chunkID,
			PatentID: match.MetadataString("patent_id"),
			Level:    match.MetadataString("level"),
			Title:    match.MetadataString("title"),
			ClaimNo:  metadataInt(match.Metadata, "claim_no"),
			Score:    match.Score,
			Source:   sourceLabel,
			Metadata: match.Metadata,
		}

		// Retrieval metadata is authoritative; the store document only
		// backfills fields the index did not carry.
		if hydrated {
			if item.PatentID == "" {
				item.PatentID = doc.PatentID
			}
			if item.Level == "" {
				item.Level = doc.Level
			}
			if item.Title == "" {
				item.Title = doc.Title
			}
			if item.ClaimNo == nil {
				item.ClaimNo = doc.ClaimNo
			}
		}
		if item.Level == "" {
			item.Level = domain.LevelClaim
		}

		switch {
		case hydrated && doc.Text != "":
			item.Text = doc.Text
		case match.MetadataString("text") != "":
			item.Text = match.MetadataString("text")
		default:
			item.Text = match.MetadataString("snippet")
		}

		items = append(items, item)
	}
	return items, nil
}

func chunkIDForMatch(match domain.ScoredMatch) string {
	if chunkID := match.MetadataString("chunk_id"); chunkID != "" {
		return chunkID
	}
	return match.ID
}

func metadataInt(metadata map[string]any, key string) *int {
	if metadata == nil {
		return nil
	}
	switch v := metadata[key].(type) {
	case int:
		return &v
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	default:
		return nil
	}
}
