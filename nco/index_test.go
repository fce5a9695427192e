package nco

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/surveyx/nco/mock"
)

func TestBuildIndex(t *testing.T) {
	embedder := mock.NewEmbedder()
	idx, err := BuildIndex(context.Background(), embedder, sampleEntries(), IndexOptions{Logger: discardLogger()})
	require.NoError(t, err)

	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, mock.DefaultDim, idx.Dim())
	assert.Equal(t, "mock-trigram", idx.ModelID())
	assert.Equal(t, sampleEntries(), idx.Entries())
	assert.Equal(t, mock.Vector("Taxi Driver", mock.DefaultDim), idx.Vector(4))
	assert.Equal(t, Fingerprint("mock-trigram", sampleEntries()), idx.Fingerprint())
}

func TestBuildIndex_ParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	var entries []LookupEntry
	for i := 0; i < 40; i++ {
		entries = append(entries, sampleEntries()[i%5])
	}
	seq, err := BuildIndex(ctx, mock.NewEmbedder(), entries, IndexOptions{Workers: 1, Logger: discardLogger()})
	require.NoError(t, err)
	par, err := BuildIndex(ctx, mock.NewEmbedder(), entries, IndexOptions{Workers: 4, BatchSize: 3, Logger: discardLogger()})
	require.NoError(t, err)

	require.Equal(t, seq.Len(), par.Len())
	for i := 0; i < seq.Len(); i++ {
		assert.Equal(t, seq.Entry(i), par.Entry(i))
		assert.Equal(t, seq.Vector(i), par.Vector(i))
	}
}

func TestBuildIndex_RequiresEmbedder(t *testing.T) {
	_, err := BuildIndex(context.Background(), nil, sampleEntries(), IndexOptions{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestBuildIndex_EmbedderFailureAborts(t *testing.T) {
	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model crashed")
	}
	idx, err := BuildIndex(context.Background(), embedder, sampleEntries(), IndexOptions{Workers: 2, BatchSize: 1, Logger: discardLogger()})
	assert.Nil(t, idx)
	assert.ErrorContains(t, err, "model crashed")
}

func TestBuildIndex_DimensionMismatch(t *testing.T) {
	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = make([]float32, len(text)+1)
		}
		return out, nil
	}
	_, err := BuildIndex(context.Background(), embedder, sampleEntries(), IndexOptions{Logger: discardLogger()})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildIndex_CoercesMalformedLabels(t *testing.T) {
	entries := []LookupEntry{
		{Code: "X1", Label: "Weaver \xff"},
		{Code: "X2", Label: "   "},
		{Code: "X3", Label: "Potter"},
	}
	embedder := mock.NewEmbedder()
	idx, err := BuildIndex(context.Background(), embedder, entries, IndexOptions{Logger: discardLogger()})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())
	assert.True(t, utf8.ValidString(idx.Entry(0).Label))
	assert.Equal(t, "", idx.Entry(1).Label)
	assert.Equal(t, 1, embedder.Seen(""), "blank label embeds as empty string")
	assert.Equal(t, "Weaver \xff", entries[0].Label, "caller slice is untouched")
}

func TestBuildIndex_Empty(t *testing.T) {
	idx, err := BuildIndex(context.Background(), mock.NewEmbedder(), nil, IndexOptions{Logger: discardLogger()})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dim())
}

func TestBuildIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildIndex(ctx, mock.NewEmbedder(), sampleEntries(), IndexOptions{Logger: discardLogger()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexEntries_ReturnsCopy(t *testing.T) {
	idx, err := BuildIndex(context.Background(), mock.NewEmbedder(), sampleEntries(), IndexOptions{Logger: discardLogger()})
	require.NoError(t, err)
	entries := idx.Entries()
	entries[0].Label = "mutated"
	assert.Equal(t, "Software Engineer", idx.Entry(0).Label)

	vec := idx.Vector(0)
	vec[0] = 42
	assert.NotEqual(t, float32(42), idx.Vector(0)[0])
}

func TestFingerprint(t *testing.T) {
	base := sampleEntries()
	assert.Equal(t, Fingerprint("m", base), Fingerprint("m", sampleEntries()))
	assert.NotEqual(t, Fingerprint("m", base), Fingerprint("other", base))

	reordered := sampleEntries()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	assert.NotEqual(t, Fingerprint("m", base), Fingerprint("m", reordered))

	split := []LookupEntry{{Code: "ab", Label: "c"}}
	joined := []LookupEntry{{Code: "a", Label: "bc"}}
	assert.NotEqual(t, Fingerprint("m", split), Fingerprint("m", joined))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, float32(0), CosineSimilarity(nil, []float32{1}))
}

func TestCosineSimilarity_UnevenLengths(t *testing.T) {
	// Only the shared prefix is compared.
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{3, 4}, []float32{3, 4, 100}), 1e-6)
	assert.InDelta(t, 0.6, CosineSimilarity([]float32{3, 4}, []float32{1, 0}), 1e-6)
}
