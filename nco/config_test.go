package nco

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "surveyx.toml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 10, cfg.Search.MaxTopK)
	assert.Equal(t, DefaultWeights(), cfg.Search.Weights)
	assert.Equal(t, DefaultThreshold, cfg.Match.Threshold)
	assert.Equal(t, BackendORT, cfg.Embedder.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfig_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "surveyx.toml", []byte(`
[search]
top_k = 5

[search.weights]
semantic = 0.6
lexical = 0.4

[match]
threshold = 85.0

[embedder]
backend = "openai"
host = "http://localhost:11434/v1"
model = "nomic-embed-text"
`))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.InDelta(t, 0.6, cfg.Search.Weights.Semantic, 1e-6)
	assert.Equal(t, 85.0, cfg.Match.Threshold)
	assert.Equal(t, BackendOpenAI, cfg.Embedder.Backend)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, 128, cfg.Embedder.MaxSeqLen)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "broken.toml", []byte("[search\ntop_k = "))
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMalformedConfig)

	path = writeFile(t, dir, "weights.toml", []byte("[search.weights]\nsemantic = 0.9\nlexical = 0.9\n"))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrMalformedConfig)

	path = writeFile(t, dir, "backend.toml", []byte("[embedder]\nbackend = \"tfidf\"\n"))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrMalformedConfig)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "surveyx.toml")
	var cfg Config
	cfg.Data.LookupPath = "ref/NCO_reference.csv"
	cfg.Search.TopK = 7
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ref/NCO_reference.csv", loaded.Data.LookupPath)
	assert.Equal(t, 7, loaded.Search.TopK)
	assert.Equal(t, DefaultThreshold, loaded.Match.Threshold)
}

func TestApplyDefaults_ClampsTopK(t *testing.T) {
	cfg := Config{Search: SearchConfig{TopK: 50, MaxTopK: 10}}
	cfg.ApplyDefaults()
	assert.Equal(t, 10, cfg.Search.TopK)
}
