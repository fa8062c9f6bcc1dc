package domain

import "strconv"

// Hierarchy levels of the patent corpus.
const (
	LevelPatent     = "patent"
	LevelClaim      = "claim"
	LevelLimitation = "limitation"
)

// Provenance labels for evidence items.
const (
	SourceDense    = "dense"
	SourceSparse   = "sparse"
	SourceHybrid   = "hybrid"
	SourceReranked = "reranked"
)

// Query modes supported by answer generation.
const (
	ModePriorArt     = "prior_art"
	ModeInfringement = "infringement"
	ModeLandscape    = "landscape"
)

// ScoredMatch is the unified result produced by every retrieval adapter and
// by rank fusion. ID is the join key between stages; Metadata carries at
// minimum patent_id and level.
type ScoredMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// MetadataString returns a metadata field as a string, empty when absent or
// not a string.
func (m ScoredMatch) MetadataString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	v, ok := m.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// EvidenceItem is the externally visible unit of evidence handed to answer
// generation. Text holds the canonical chunk text whenever the document
// store has it.
type EvidenceItem struct {
	ChunkID  string         `json:"chunk_id"`
	PatentID string         `json:"patent_id"`
	Level    string         `json:"level"`
	Title    string         `json:"title,omitempty"`
	ClaimNo  *int           `json:"claim_no,omitempty"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CandidateID is the synthetic identifier used to address an evidence item
// in reranker prompts: the chunk id, or patent_id:level:claim_no when the
// chunk id is absent.
func (e EvidenceItem) CandidateID() string {
	if e.ChunkID != "" {
		return e.ChunkID
	}
	claimNo := ""
	if e.ClaimNo != nil {
		claimNo = strconv.Itoa(*e.ClaimNo)
	}
	return e.PatentID + ":" + e.Level + ":" + claimNo
}

// ChunkDocument is a canonical chunk record from the document store.
type ChunkDocument struct {
	ChunkID  string `json:"chunk_id"`
	PatentID string `json:"patent_id"`
	Level    string `json:"level"`
	Title    string `json:"title"`
	ClaimNo  *int   `json:"claim_no"`
	Text     string `json:"text"`
}

// QueryResponse is the final pipeline output.
type QueryResponse struct {
	Mode     string         `json:"mode"`
	Answer   string         `json:"answer"`
	Evidence []EvidenceItem `json:"evidence"`
}
