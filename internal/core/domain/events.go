package domain

import "time"

// QueryCompletedEvent is published after a successful pipeline run so
// offline consumers can analyze retrieval quality.
type QueryCompletedEvent struct {
	EventID       string    `json:"event_id"`
	Mode          string    `json:"mode"`
	Query         string    `json:"query"`
	EvidenceCount int       `json:"evidence_count"`
	Reranked      bool      `json:"reranked"`
	DurationMS    float64   `json:"duration_ms"`
	CompletedAt   time.Time `json:"completed_at"`
}
