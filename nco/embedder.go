package nco

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"yashubustudio/surveyx/emb"
)

// Embedder exposes the minimal surface required by the index and scorer.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
	ModelID() string
}

// NewEmbedder builds the backend selected by cfg.Backend together with its vector cache.
func NewEmbedder(cfg EmbedderConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", BackendORT:
		return NewOrtEmbedder(cfg, logger)
	case BackendOpenAI:
		return NewRemoteEmbedder(cfg, logger)
	default:
		return nil, &MalformedConfigError{Directive: "embedder.backend", Reason: "unknown backend " + cfg.Backend}
	}
}

// OrtEmbedder is a thin wrapper over emb.Encoder with caching.
type OrtEmbedder struct {
	mu     sync.RWMutex
	enc    *emb.Encoder
	cfg    EmbedderConfig
	cache  *VectorCache
	logger *slog.Logger
}

// NewOrtEmbedder initializes the encoder and opens the vector cache.
func NewOrtEmbedder(cfg EmbedderConfig, logger *slog.Logger) (*OrtEmbedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(cfg.ModelPath)
	}
	encoder := &emb.Encoder{}
	if err := encoder.Init(emb.Config{
		OrtDLL:        cfg.OrtDLL,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		MaxSeqLen:     cfg.MaxSeqLen,
		HiddenSize:    cfg.HiddenSize,
	}); err != nil {
		return nil, err
	}
	cache, err := NewVectorCache(cfg.CacheDir, logger)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	logger = logger.With("component", "ort-embedder")
	logger.Info("onnx encoder ready", "model", cfg.ModelID, "persistent_cache", cache.Persistent())
	return &OrtEmbedder{
		enc:    encoder,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}, nil
}

// Close releases ORT resources and the cache.
func (o *OrtEmbedder) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enc != nil {
		o.enc.Close()
		o.enc = nil
	}
	return o.cache.Close()
}

// ModelID returns the identifier used for cache keys.
func (o *OrtEmbedder) ModelID() string {
	return o.cfg.ModelID
}

// EmbedText embeds a single string with caching.
func (o *OrtEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.enc == nil {
		return nil, errors.New("embedder is not initialized")
	}
	normalized := NormalizeText(text)
	if vec, ok := o.cache.Get(o.cfg.ModelID, normalized); ok {
		return vec, nil
	}
	vec, err := o.enc.Encode(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", truncateForLog(normalized), err)
	}
	o.cache.Put(o.cfg.ModelID, normalized, vec)
	return cloneVector(vec), nil
}

// EmbedTexts embeds a slice of strings sequentially; the encoder is not reentrant.
func (o *OrtEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := o.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func truncateForLog(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
