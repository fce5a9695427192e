package nco

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// RemoteEmbedder calls an OpenAI-compatible embeddings endpoint.
type RemoteEmbedder struct {
	embedder  embeddings.Embedder
	limiter   *rate.Limiter
	cache     *VectorCache
	modelID   string
	batchSize int
	logger    *slog.Logger
}

// NewRemoteEmbedder connects to cfg.Host using cfg.Model.
// Local servers that need no authentication get the token "none".
func NewRemoteEmbedder(cfg EmbedderConfig, logger *slog.Logger) (*RemoteEmbedder, error) {
	if cfg.Host == "" {
		return nil, &MalformedConfigError{Directive: "embedder.host", Reason: "host is required for the openai backend"}
	}
	if cfg.Model == "" {
		return nil, &MalformedConfigError{Directive: "embedder.model", Reason: "model is required for the openai backend"}
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embeddings client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return newRemoteEmbedder(embedder, cfg, logger)
}

func newRemoteEmbedder(embedder embeddings.Embedder, cfg EmbedderConfig, logger *slog.Logger) (*RemoteEmbedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := NewVectorCache(cfg.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = cfg.Model
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	return &RemoteEmbedder{
		embedder:  embedder,
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache,
		modelID:   modelID,
		batchSize: batch,
		logger:    logger.With("component", "openai-embedder"),
	}, nil
}

// ModelID returns the identifier used for cache keys.
func (r *RemoteEmbedder) ModelID() string {
	return r.modelID
}

// EmbedText generates a vector embedding for a single text string.
func (r *RemoteEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := r.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in rate limited batches, skipping cached entries.
func (r *RemoteEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	normalized := NormalizeAll(texts)
	var missing []int
	for i, t := range normalized {
		if vec, ok := r.cache.Get(r.modelID, t); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	r.logger.Debug("generating embeddings", "count", len(texts), "uncached", len(missing))

	for start := 0; start < len(missing); start += r.batchSize {
		end := min(start+r.batchSize, len(missing))
		batch := make([]string, 0, end-start)
		for _, idx := range missing[start:end] {
			batch = append(batch, normalized[idx])
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vecs, err := r.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			r.logger.Error("failed to generate embeddings", "count", len(batch), "err", err)
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		if len(vecs) != len(batch) {
			return nil, errors.New("embedder returned a different number of vectors than requested")
		}
		for j, idx := range missing[start:end] {
			out[idx] = vecs[j]
			r.cache.Put(r.modelID, normalized[idx], vecs[j])
		}
	}
	return out, nil
}

// Close releases the cache.
func (r *RemoteEmbedder) Close() error {
	return r.cache.Close()
}
