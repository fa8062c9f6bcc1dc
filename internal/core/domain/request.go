package domain

// QueryRequest is the pipeline input assembled by the HTTP layer.
type QueryRequest struct {
	Query           string
	Mode            string
	Filter          SearchFilter
	UseHierarchical *bool
	UseReranking    *bool
}

// Hierarchical reports whether two-stage retrieval is requested
// (the default when unset).
func (r QueryRequest) Hierarchical() bool {
	return r.UseHierarchical == nil || *r.UseHierarchical
}

// Reranking reports whether LLM reranking is requested
// (the default when unset).
func (r QueryRequest) Reranking() bool {
	return r.UseReranking == nil || *r.UseReranking
}
