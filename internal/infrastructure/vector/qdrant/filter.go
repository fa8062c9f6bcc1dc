package qdrant

import "github.com/patentscout/patent-discovery/internal/core/domain"

// buildMustClauses translates the typed search filter into qdrant payload
// filter conditions. Equality becomes a value match, set membership a
// match-any, and the year bounds a single range clause.
func buildMustClauses(filter domain.SearchFilter) []map[string]any {
	clauses := make([]map[string]any, 0, 5)

	if filter.Level != "" {
		clauses = append(clauses, matchValue("level", filter.Level))
	}
	if len(filter.PatentIDIn) > 0 {
		clauses = append(clauses, matchAny("patent_id", filter.PatentIDIn))
	}
	if len(filter.CPCIn) > 0 {
		clauses = append(clauses, matchAny("cpc", filter.CPCIn))
	}
	if len(filter.AssigneeIn) > 0 {
		clauses = append(clauses, matchAny("assignee", filter.AssigneeIn))
	}
	if filter.YearFrom > 0 || filter.YearTo > 0 {
		bounds := map[string]any{}
		if filter.YearFrom > 0 {
			bounds["gte"] = filter.YearFrom
		}
		if filter.YearTo > 0 {
			bounds["lte"] = filter.YearTo
		}
		clauses = append(clauses, map[string]any{
			"key":   "filing_year",
			"range": bounds,
		})
	}

	return clauses
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func matchAny(key string, values []string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"any": values},
	}
}
