package nco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/surveyx/nco/mock"
)

func newTestService(t *testing.T, embedder *mock.Embedder) *Service {
	t.Helper()
	var cfg Config
	cfg.Embedder.Workers = 1
	svc, err := NewService(embedder, cfg, discardLogger())
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresEmbedder(t *testing.T) {
	_, err := NewService(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := Config{Search: SearchConfig{Weights: ScoreWeights{Semantic: 2}}}
	_, err := NewService(mock.NewEmbedder(), cfg, discardLogger())
	assert.ErrorIs(t, err, ErrMalformedConfig)
}

func TestService_SearchBeforeLoad(t *testing.T) {
	svc := newTestService(t, mock.NewEmbedder())
	_, err := svc.Search(context.Background(), "teacher", 3)
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
	_, err = svc.Index()
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
	_, err = svc.MatchAll(context.Background(), []TitleRow{{ID: "1", Title: "teacher"}})
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
}

func TestService_RejectsEmptyQueryBeforeScoring(t *testing.T) {
	embedder := mock.NewEmbedder()
	svc := newTestService(t, embedder)
	_, err := svc.LoadLookup(context.Background(), sampleEntries())
	require.NoError(t, err)
	calls := embedder.CallCount()

	_, err = svc.Search(context.Background(), "  \t", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, calls, embedder.CallCount(), "embedder is not called")
}

func TestService_SearchUsesConfiguredTopK(t *testing.T) {
	svc := newTestService(t, mock.NewEmbedder())
	_, err := svc.LoadLookup(context.Background(), sampleEntries())
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "software engg", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "C001", results[0].Entry.Code)

	results, err = svc.Search(context.Background(), "software engg", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestService_MemoizesByFingerprint(t *testing.T) {
	embedder := mock.NewEmbedder()
	svc := newTestService(t, embedder)
	ctx := context.Background()

	first, err := svc.LoadLookup(ctx, sampleEntries())
	require.NoError(t, err)
	embedded := embedder.TextCount()

	second, err := svc.LoadLookup(ctx, sampleEntries())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), svc.Builds())
	assert.Equal(t, embedded, embedder.TextCount())

	changed := append(sampleEntries(), LookupEntry{Code: "C006", Label: "Nurse"})
	third, err := svc.LoadLookup(ctx, changed)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 6, third.Len())
	assert.Equal(t, 5, first.Len(), "old index is never patched")
	assert.Equal(t, int64(2), svc.Builds())
}

func TestService_Invalidate(t *testing.T) {
	svc := newTestService(t, mock.NewEmbedder())
	ctx := context.Background()
	first, err := svc.LoadLookup(ctx, sampleEntries())
	require.NoError(t, err)

	svc.Invalidate()
	_, err = svc.Index()
	assert.ErrorIs(t, err, ErrIndexNotLoaded)

	rebuilt, err := svc.LoadLookup(ctx, sampleEntries())
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, int64(2), svc.Builds())
}

func TestService_LoadLookupFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "NCO_reference.csv", []byte("NCO_Code,Occupation_title\nC001,Software Engineer\nC002,Civil Engineer\n"))
	svc := newTestService(t, mock.NewEmbedder())

	idx, err := svc.LoadLookupFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, path, svc.Source())

	_, err = svc.LoadLookupFile(context.Background(), path+".missing")
	assert.ErrorIs(t, err, ErrDataNotFound)
	current, err := svc.Index()
	require.NoError(t, err)
	assert.Same(t, idx, current, "failed reload keeps the previous index")
}

func TestService_MatchAllAndEnrich(t *testing.T) {
	svc := newTestService(t, mock.NewEmbedder())
	ctx := context.Background()
	_, err := svc.LoadLookup(ctx, sampleEntries())
	require.NoError(t, err)

	results, err := svc.MatchAll(ctx, []TitleRow{{ID: "1", Title: "Civil Engineer"}, {ID: "2"}})
	require.NoError(t, err)
	assert.Equal(t, "C002", results[0].Code)
	assert.False(t, results[1].Matched)

	ds := &Dataset{Columns: []string{"job_title"}, Rows: [][]string{{"taxi driver"}}}
	out, _, err := svc.EnrichDataset(ctx, ds, "")
	require.NoError(t, err)
	assert.Equal(t, "C005", out.Rows[0][1])
}

func TestService_UpdateConfig(t *testing.T) {
	svc := newTestService(t, mock.NewEmbedder())
	cfg := svc.Config()
	cfg.Search.TopK = 4
	require.NoError(t, svc.UpdateConfig(cfg))
	assert.Equal(t, 4, svc.Config().Search.TopK)

	cfg.Search.Weights = ScoreWeights{Semantic: 0.5, Lexical: 0.2}
	assert.ErrorIs(t, svc.UpdateConfig(cfg), ErrMalformedConfig)
}

func TestService_Close(t *testing.T) {
	embedder := mock.NewEmbedder()
	svc := newTestService(t, embedder)
	require.NoError(t, svc.Close())
	assert.True(t, embedder.Closed())
}
