package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
)

// HierarchicalRetriever runs the two-stage patent->claim search: dense and
// sparse patent retrieval fused with RRF to pick a candidate patent set,
// then dense claim retrieval restricted to that set. Claim-level lexical
// search is deliberately absent: claims are too short and numerous for
// useful BM25 discrimination at the corpus sizes this targets.
type HierarchicalRetriever struct {
	dense  ports.DenseIndex
	sparse ports.SparseIndex
	cfg    domain.HierarchicalConfig
}

func NewHierarchicalRetriever(
	dense ports.DenseIndex,
	sparse ports.SparseIndex,
	cfg domain.HierarchicalConfig,
) *HierarchicalRetriever {
	return &HierarchicalRetriever{
		dense:  dense,
		sparse: sparse,
		cfg:    cfg.Normalize(),
	}
}

// RetrieveClaims returns claim-level matches for the query. An empty result
// with a nil error is the "no matching patents" terminal state, not a
// failure. Either stage-one search failing is fatal for the invocation; the
// retriever never silently drops a signal.
func (r *HierarchicalRetriever) RetrieveClaims(
	ctx context.Context,
	denseQueryVec []float64,
	queryText string,
	base domain.SearchFilter,
) ([]domain.ScoredMatch, error) {
	patentFilter := base.WithLevel(domain.LevelPatent)

	var densePat, sparsePat []domain.ScoredMatch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := r.dense.Search(gctx, denseQueryVec, r.cfg.DenseTopK, patentFilter)
		if err != nil {
			return fmt.Errorf("dense patent search: %w", err)
		}
		densePat = matches
		return nil
	})
	if r.sparse != nil && strings.TrimSpace(queryText) != "" {
		g.Go(func() error {
			matches, err := r.sparse.SearchBM25(gctx, queryText, r.cfg.SparseTopK, patentFilter)
			if err != nil {
				return fmt.Errorf("sparse patent search: %w", err)
			}
			sparsePat = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.cfg.FusionMode == domain.FusionModeAllowlist && len(sparsePat) > 0 {
		densePat = restrictToSparsePatents(densePat, sparsePat)
	}

	fused := FuseRRF(densePat, sparsePat, r.cfg.RRFK, r.cfg.PatentTopK)
	patentIDs := distinctPatentIDs(fused)
	slog.Debug("patent_stage_complete",
		"dense", len(densePat),
		"sparse", len(sparsePat),
		"fused", len(fused),
		"patent_ids", len(patentIDs),
	)
	if len(patentIDs) == 0 {
		return []domain.ScoredMatch{}, nil
	}

	claimFilter := base.WithLevel(domain.LevelClaim).WithPatentIDs(patentIDs)
	claims, err := r.dense.Search(ctx, denseQueryVec, r.cfg.ClaimTopK, claimFilter)
	if err != nil {
		return nil, fmt.Errorf("dense claim search: %w", err)
	}
	slog.Debug("claim_stage_complete", "claims", len(claims))
	return claims, nil
}

// distinctPatentIDs extracts unique patent ids from fused matches,
// preserving fused rank order.
func distinctPatentIDs(matches []domain.ScoredMatch) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		patentID := match.MetadataString("patent_id")
		if patentID == "" {
			continue
		}
		if _, dup := seen[patentID]; dup {
			continue
		}
		seen[patentID] = struct{}{}
		out = append(out, patentID)
	}
	return out
}
