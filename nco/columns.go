package nco

import "sync"

// ColumnCandidates defines possible header names for auto-detecting lookup and survey columns.
type ColumnCandidates struct {
	Title []string `toml:"title" json:"title"`
	Code  []string `toml:"code" json:"code"`
	ID    []string `toml:"id" json:"id"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Title: []string{"occupation_title", "job_title", "occupation", "title", "designation"},
		Code:  []string{"nco_code", "nco", "code", "occupation_code"},
		ID:    []string{"id", "respondent_id", "record_id", "index", "no"},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// SetColumnCandidates updates the column detection candidates used during auto-detection.
// Fields left nil fall back to the built-in defaults.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Title: pickStrings(c.Title, defaults.Title),
		Code:  pickStrings(c.Code, defaults.Code),
		ID:    pickStrings(c.ID, defaults.ID),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Title: cloneStrings(c.Title),
		Code:  cloneStrings(c.Code),
		ID:    cloneStrings(c.ID),
	}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
