package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/surveyx/nco"
	"yashubustudio/surveyx/nco/mock"
)

func newTestServer(t *testing.T, survey *nco.Dataset) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var cfg nco.Config
	cfg.Embedder.Workers = 1
	svc, err := nco.NewService(mock.NewEmbedder(), cfg, logger)
	require.NoError(t, err)
	_, err = svc.LoadLookup(context.Background(), []nco.LookupEntry{
		{Code: "C001", Label: "Software Engineer"},
		{Code: "C002", Label: "Civil Engineer"},
		{Code: "C005", Label: "Taxi Driver"},
	})
	require.NoError(t, err)
	s, err := NewServer(svc, survey, logger)
	require.NoError(t, err)
	return s
}

func testSurvey() *nco.Dataset {
	return &nco.Dataset{
		Columns: []string{"id", "fruit"},
		Rows:    [][]string{{"1", "Apple"}, {"2", "banana"}, {"3", "Pineapple"}},
	}
}

func TestNewServer(t *testing.T) {
	s, err := NewServer(nil, nil, nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	t.Run("ranks occupations", func(t *testing.T) {
		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "software engg", TopK: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "C001", out.Results[0].Code)
		assert.Equal(t, "Software Engineer", out.Results[0].Title)
	})

	t.Run("default top_k", func(t *testing.T) {
		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "driver"})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Count)
	})

	t.Run("empty query", func(t *testing.T) {
		_, _, err := s.handleSearch(ctx, nil, SearchInput{Query: " "})
		assert.ErrorIs(t, err, nco.ErrEmptyQuery)
	})
}

func TestServer_handleMatch(t *testing.T) {
	s := newTestServer(t, nil)
	_, out, err := s.handleMatch(context.Background(), nil, MatchInput{
		Titles: []string{"taxi driver", "", "zzzz"},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 1, out.Matched)
	assert.Equal(t, 80.0, out.Threshold)
	assert.Equal(t, "1", out.Results[0].InputRowID)
	assert.Equal(t, "C005", out.Results[0].Code)
	assert.False(t, out.Results[1].Matched)
	assert.False(t, out.Results[2].Matched)
}

func TestServer_handleSurveySearch(t *testing.T) {
	ctx := context.Background()

	t.Run("filters rows", func(t *testing.T) {
		s := newTestServer(t, testSurvey())
		_, out, err := s.handleSurveySearch(ctx, nil, SurveySearchInput{Column: "fruit", Value: "APPLE"})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, [][]string{{"1", "Apple"}, {"3", "Pineapple"}}, out.Rows)
	})

	t.Run("limit caps rows but not count", func(t *testing.T) {
		s := newTestServer(t, testSurvey())
		_, out, err := s.handleSurveySearch(ctx, nil, SurveySearchInput{Column: "fruit", Value: "a", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Count)
		assert.Len(t, out.Rows, 1)
	})

	t.Run("unknown column", func(t *testing.T) {
		s := newTestServer(t, testSurvey())
		_, _, err := s.handleSurveySearch(ctx, nil, SurveySearchInput{Column: "colour", Value: "red"})
		assert.ErrorIs(t, err, nco.ErrColumnNotFound)
	})

	t.Run("no survey loaded", func(t *testing.T) {
		s := newTestServer(t, nil)
		_, _, err := s.handleSurveySearch(ctx, nil, SurveySearchInput{Column: "fruit", Value: "a"})
		assert.ErrorIs(t, err, nco.ErrDataNotFound)
	})
}

func TestServer_surveyColumnsResource(t *testing.T) {
	s := newTestServer(t, testSurvey())
	req := &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uriScheme + "survey/columns"}}
	res, err := s.handleSurveyColumnsResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var summary surveySummary
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &summary))
	assert.Equal(t, []string{"id", "fruit"}, summary.Columns)
	assert.Equal(t, 3, summary.Count)
}
