package app

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"yashubustudio/surveyx/nco"
)

var (
	errEmptyTitle  = errors.New("please enter a job title")
	errEmptyFilter = errors.New("please choose a column and enter a search value")
)

var searchHeader = []string{"occupation_title", "nco_code", "final_score"}

func checkQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errEmptyTitle
	}
	return nil
}

func checkFilter(column, value string) error {
	if strings.TrimSpace(column) == "" || strings.TrimSpace(value) == "" {
		return errEmptyFilter
	}
	return nil
}

// searchTable renders ranked candidates with a header row.
func searchTable(results []nco.ScoredCandidate) [][]string {
	out := make([][]string, 0, len(results)+1)
	out = append(out, searchHeader)
	for _, r := range results {
		out = append(out, []string{r.Entry.Label, r.Entry.Code, fmt.Sprintf("%.4f", r.FinalScore)})
	}
	return out
}

// datasetTable renders a dataset with its header as the first row.
func datasetTable(ds *nco.Dataset) [][]string {
	if ds == nil || len(ds.Columns) == 0 {
		return nil
	}
	out := make([][]string, 0, ds.Len()+1)
	out = append(out, ds.Columns)
	out = append(out, ds.Rows...)
	return out
}

func surveySummary(ds *nco.Dataset, err error) string {
	if err != nil {
		return "Survey data unavailable: " + err.Error()
	}
	return fmt.Sprintf("Total records: %d", ds.Len())
}

// sliderTopK converts the slider position to a top-k within [1, max].
func sliderTopK(v float64, max int) int {
	k := int(math.Round(v))
	if k < 1 {
		return 1
	}
	if max > 0 && k > max {
		return max
	}
	return k
}
