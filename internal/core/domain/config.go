package domain

// Fusion modes. Independent contribution is the default; allowlist restricts
// dense patent candidates to patent ids already present in the sparse list.
const (
	FusionModeIndependent = "independent"
	FusionModeAllowlist   = "allowlist"
)

// HierarchicalConfig tunes the two-stage patent->claim retrieval.
// Defaults are sized for a corpus of roughly a hundred patents and a few
// thousand claims.
type HierarchicalConfig struct {
	PatentTopK int
	ClaimTopK  int
	RRFK       int
	DenseTopK  int
	SparseTopK int
	FusionMode string
}

func DefaultHierarchicalConfig() HierarchicalConfig {
	return HierarchicalConfig{
		PatentTopK: 10,
		ClaimTopK:  30,
		RRFK:       30,
		DenseTopK:  20,
		SparseTopK: 20,
		FusionMode: FusionModeIndependent,
	}
}

// Normalize fills non-positive fields from defaults.
func (c HierarchicalConfig) Normalize() HierarchicalConfig {
	def := DefaultHierarchicalConfig()
	if c.PatentTopK <= 0 {
		c.PatentTopK = def.PatentTopK
	}
	if c.ClaimTopK <= 0 {
		c.ClaimTopK = def.ClaimTopK
	}
	if c.RRFK <= 0 {
		c.RRFK = def.RRFK
	}
	if c.DenseTopK <= 0 {
		c.DenseTopK = def.DenseTopK
	}
	if c.SparseTopK <= 0 {
		c.SparseTopK = def.SparseTopK
	}
	if c.FusionMode != FusionModeAllowlist {
		c.FusionMode = FusionModeIndependent
	}
	return c
}

// RerankConfig bounds reranker input size and prompt length.
type RerankConfig struct {
	MaxCandidates int
	TopN          int
	SnippetChars  int
}

func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		MaxCandidates: 50,
		TopN:          15,
		SnippetChars:  900,
	}
}

func (c RerankConfig) Normalize() RerankConfig {
	def := DefaultRerankConfig()
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = def.MaxCandidates
	}
	if c.TopN <= 0 {
		c.TopN = def.TopN
	}
	if c.SnippetChars <= 0 {
		c.SnippetChars = def.SnippetChars
	}
	return c
}

// RagPolicy governs how many evidence items survive to the answer stage.
type RagPolicy struct {
	FinalTopN int
}

func DefaultRagPolicy() RagPolicy {
	return RagPolicy{FinalTopN: 8}
}

func (p RagPolicy) Normalize() RagPolicy {
	if p.FinalTopN <= 0 {
		p.FinalTopN = DefaultRagPolicy().FinalTopN
	}
	return p
}
