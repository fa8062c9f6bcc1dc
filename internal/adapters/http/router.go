package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
)

const minQueryLength = 3

type Router struct {
	queryService ports.PatentQueryService
}

func NewRouter(queryService ports.PatentQueryService) *Router {
	return &Router{queryService: queryService}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryFilters struct {
	CPC       []string `json:"cpc"`
	Assignees []string `json:"assignees"`
	YearFrom  int      `json:"year_from"`
	YearTo    int      `json:"year_to"`
}

type queryRequestBody struct {
	Query           string       `json:"query"`
	Mode            string       `json:"mode"`
	Filters         queryFilters `json:"filters"`
	UseHierarchical *bool        `json:"use_hierarchical"`
	UseReranking    *bool        `json:"use_reranking"`
	TopK            int          `json:"top_k"`
}

func (b queryRequestBody) toDomain() domain.QueryRequest {
	return domain.QueryRequest{
		Query: b.Query,
		Mode:  b.Mode,
		Filter: domain.SearchFilter{
			CPCIn:      b.Filters.CPC,
			AssigneeIn: b.Filters.Assignees,
			YearFrom:   b.Filters.YearFrom,
			YearTo:     b.Filters.YearTo,
		},
		UseHierarchical: b.UseHierarchical,
		UseReranking:    b.UseReranking,
	}
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.decodeQueryBody(w, r)
	if !ok {
		return
	}

	response, err := rt.queryService.Query(r.Context(), body.toDomain())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.decodeQueryBody(w, r)
	if !ok {
		return
	}

	evidence, err := rt.queryService.RetrieveOnly(r.Context(), body.toDomain(), body.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": evidence})
}

func (rt *Router) decodeQueryBody(w http.ResponseWriter, r *http.Request) (queryRequestBody, bool) {
	var body queryRequestBody
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return body, false
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return body, false
	}
	if len(strings.TrimSpace(body.Query)) < minQueryLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query must be at least 3 characters"})
		return body, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
