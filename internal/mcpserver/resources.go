package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "surveyx://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "survey/columns",
		Name:        "survey-columns",
		Description: "Columns, row count and preview of the loaded survey dataset",
		MIMEType:    "application/json",
	}, s.handleSurveyColumnsResource)
}

type surveySummary struct {
	Columns []string   `json:"columns"`
	Count   int        `json:"count"`
	Preview [][]string `json:"preview"`
}

func (s *Server) handleSurveyColumnsResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	ds, err := s.currentSurvey()
	if err != nil {
		return nil, fmt.Errorf("survey columns: %w", err)
	}
	data, err := json.Marshal(surveySummary{
		Columns: ds.Columns,
		Count:   ds.Len(),
		Preview: ds.Head(10).Rows,
	})
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
