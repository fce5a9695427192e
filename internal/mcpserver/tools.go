package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"yashubustudio/surveyx/nco"
)

// SearchInput is the input schema for nco_search.
type SearchInput struct {
	Query string `json:"query" jsonschema:"free-text job title to classify"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of occupations to return (default 3)"`
}

// SearchOutput is the output schema for nco_search.
type SearchOutput struct {
	Results []Candidate `json:"results"`
	Count   int         `json:"count"`
}

// Candidate is one ranked occupation.
type Candidate struct {
	Code     string  `json:"nco_code"`
	Title    string  `json:"occupation_title"`
	Score    float32 `json:"final_score"`
	Semantic float32 `json:"semantic_score"`
	Lexical  float32 `json:"lexical_score"`
}

// MatchInput is the input schema for nco_match.
type MatchInput struct {
	Titles []string `json:"titles" jsonschema:"job titles to assign codes to"`
}

// MatchOutput is the output schema for nco_match.
type MatchOutput struct {
	Results   []nco.MatchResult `json:"results"`
	Matched   int               `json:"matched"`
	Threshold float64           `json:"threshold"`
}

// SurveySearchInput is the input schema for survey_search.
type SurveySearchInput struct {
	Column string `json:"column" jsonschema:"survey column name or #n for the n-th column"`
	Value  string `json:"value" jsonschema:"case-insensitive substring to look for"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of rows to return (default 50)"`
}

// SurveySearchOutput is the output schema for survey_search.
type SurveySearchOutput struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

const defaultSurveyLimit = 50

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "nco_search",
		Description: "Rank NCO occupations for a free-text job title using hybrid semantic and lexical scoring",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "nco_match",
		Description: "Assign the best NCO code to each job title when the fuzzy score reaches the threshold",
	}, s.handleMatch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "survey_search",
		Description: "Find survey rows whose column contains a value, ignoring case",
	}, s.handleSurveySearch)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.svc.Search(ctx, input.Query, input.TopK)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("nco search: %w", err)
	}
	out := SearchOutput{Results: make([]Candidate, len(results)), Count: len(results)}
	for i, r := range results {
		out.Results[i] = Candidate{
			Code:     r.Entry.Code,
			Title:    r.Entry.Label,
			Score:    r.FinalScore,
			Semantic: r.SemanticScore,
			Lexical:  r.LexicalScore,
		}
	}
	return nil, out, nil
}

func (s *Server) handleMatch(ctx context.Context, _ *mcp.CallToolRequest, input MatchInput) (*mcp.CallToolResult, MatchOutput, error) {
	rows := make([]nco.TitleRow, len(input.Titles))
	for i, title := range input.Titles {
		rows[i] = nco.TitleRow{ID: fmt.Sprint(i + 1), Title: title}
	}
	results, err := s.svc.MatchAll(ctx, rows)
	if err != nil {
		return nil, MatchOutput{}, fmt.Errorf("nco match: %w", err)
	}
	out := MatchOutput{Results: results, Threshold: s.svc.Config().Match.Threshold}
	for _, r := range results {
		if r.Matched {
			out.Matched++
		}
	}
	return nil, out, nil
}

func (s *Server) handleSurveySearch(_ context.Context, _ *mcp.CallToolRequest, input SurveySearchInput) (*mcp.CallToolResult, SurveySearchOutput, error) {
	ds, err := s.currentSurvey()
	if err != nil {
		return nil, SurveySearchOutput{}, fmt.Errorf("survey search: %w", err)
	}
	filtered, err := ds.FilterContains(input.Column, input.Value)
	if err != nil {
		return nil, SurveySearchOutput{}, fmt.Errorf("survey search: %w", err)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSurveyLimit
	}
	return nil, SurveySearchOutput{
		Columns: filtered.Columns,
		Rows:    filtered.Head(limit).Rows,
		Count:   filtered.Len(),
	}, nil
}
