package domain

// SearchFilter is the typed metadata filter threaded through both retrieval
// adapters. Each adapter translates the populated fields into its own
// backend's query language; zero values mean "no constraint".
type SearchFilter struct {
	Level      string
	PatentIDIn []string
	CPCIn      []string
	AssigneeIn []string
	YearFrom   int
	YearTo     int
}

// WithLevel returns a copy of the filter pinned to a hierarchy level.
func (f SearchFilter) WithLevel(level string) SearchFilter {
	f.Level = level
	return f
}

// WithPatentIDs returns a copy of the filter restricted to a patent id set.
func (f SearchFilter) WithPatentIDs(ids []string) SearchFilter {
	f.PatentIDIn = ids
	return f
}

// IsZero reports whether no constraint is set.
func (f SearchFilter) IsZero() bool {
	return f.Level == "" &&
		len(f.PatentIDIn) == 0 &&
		len(f.CPCIn) == 0 &&
		len(f.AssigneeIn) == 0 &&
		f.YearFrom == 0 &&
		f.YearTo == 0
}
