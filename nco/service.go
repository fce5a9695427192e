package nco

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Service owns the embedder, the configuration and the current lookup index.
// The index is built explicitly, reused while the lookup table is unchanged
// and replaced wholesale on reload.
type Service struct {
	embedder Embedder

	cfgMu sync.RWMutex
	cfg   Config

	buildMu sync.Mutex
	idxMu   sync.RWMutex
	index   *EmbeddingIndex
	source  string

	builds atomic.Int64
	logger *slog.Logger
}

// NewService constructs a service with the given embedder and configuration.
func NewService(embedder Embedder, cfg Config, logger *slog.Logger) (*Service, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.With("component", "service"),
	}, nil
}

// Close releases embedder resources.
func (s *Service) Close() error {
	s.Invalidate()
	return s.embedder.Close()
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration. The index is kept.
func (s *Service) UpdateConfig(cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	return nil
}

// ModelID names the embedding model in use.
func (s *Service) ModelID() string {
	return s.embedder.ModelID()
}

// LoadLookup makes entries the current lookup table. When the fingerprint
// matches the current index the index is reused without embedding anything.
func (s *Service) LoadLookup(ctx context.Context, entries []LookupEntry) (*EmbeddingIndex, error) {
	return s.loadLookup(ctx, entries, "")
}

// LoadLookupFile reads the lookup table at path using the configured columns.
// On failure the previous index stays in place.
func (s *Service) LoadLookupFile(ctx context.Context, path string) (*EmbeddingIndex, error) {
	cfg := s.Config()
	if path == "" {
		path = cfg.Data.LookupPath
	}
	entries, err := LoadLookupTable(path, LookupOptions{
		TitleColumn: cfg.Data.TitleColumn,
		CodeColumn:  cfg.Data.CodeColumn,
		Logger:      s.logger,
	})
	if err != nil {
		s.logger.Error("lookup load failed", "path", path, "error", err)
		return nil, err
	}
	return s.loadLookup(ctx, entries, path)
}

func (s *Service) loadLookup(ctx context.Context, entries []LookupEntry, source string) (*EmbeddingIndex, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	fp := Fingerprint(s.embedder.ModelID(), entries)
	s.idxMu.RLock()
	current := s.index
	s.idxMu.RUnlock()
	if current != nil && current.Fingerprint() == fp {
		s.logger.Debug("lookup unchanged, reusing index", "entries", current.Len(), "fingerprint", fmt.Sprintf("%016x", fp))
		if source != "" {
			s.idxMu.Lock()
			s.source = source
			s.idxMu.Unlock()
		}
		return current, nil
	}

	cfg := s.Config()
	idx, err := BuildIndex(ctx, s.embedder, entries, IndexOptions{
		BatchSize: cfg.Embedder.BatchSize,
		Workers:   cfg.Embedder.Workers,
		Logger:    s.logger,
	})
	if err != nil {
		s.logger.Error("index build failed", "entries", len(entries), "error", err)
		return nil, err
	}
	s.builds.Add(1)
	s.idxMu.Lock()
	s.index = idx
	s.source = source
	s.idxMu.Unlock()
	s.logger.Info("lookup loaded", "entries", idx.Len(), "source", source)
	return idx, nil
}

// Invalidate drops the current index; the next LoadLookup rebuilds it.
func (s *Service) Invalidate() {
	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	if s.index != nil {
		s.logger.Info("index invalidated", "entries", s.index.Len())
	}
	s.index = nil
	s.source = ""
}

// Index returns the current index or ErrIndexNotLoaded.
func (s *Service) Index() (*EmbeddingIndex, error) {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	if s.index == nil {
		return nil, ErrIndexNotLoaded
	}
	return s.index, nil
}

// Source returns the path the current index was loaded from, if any.
func (s *Service) Source() string {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	return s.source
}

// Builds reports how many indexes have been built.
func (s *Service) Builds() int64 {
	return s.builds.Load()
}

// Search ranks the lookup table against query. A blank query is rejected with
// ErrEmptyQuery; topK <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]ScoredCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	idx, err := s.Index()
	if err != nil {
		return nil, err
	}
	cfg := s.Config()
	if topK <= 0 {
		topK = cfg.Search.TopK
	}
	scorer, err := NewHybridScorer(s.embedder, WithWeights(cfg.Search.Weights))
	if err != nil {
		return nil, err
	}
	results, err := scorer.Search(ctx, query, idx, topK)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search", "query", query, "top_k", topK, "results", len(results))
	return results, nil
}

func (s *Service) matcher() *BatchMatcher {
	cfg := s.Config()
	return NewBatchMatcher(
		WithThreshold(cfg.Match.Threshold),
		WithWorkers(cfg.Match.Workers),
		WithMatchLogger(s.logger),
	)
}

// MatchAll runs the batch matcher against the current lookup table.
func (s *Service) MatchAll(ctx context.Context, rows []TitleRow) ([]MatchResult, error) {
	idx, err := s.Index()
	if err != nil {
		return nil, err
	}
	return s.matcher().MatchAll(ctx, rows, idx)
}

// EnrichDataset adds the nco_code column to ds using the current lookup table.
func (s *Service) EnrichDataset(ctx context.Context, ds *Dataset, titleColumn string) (*Dataset, []MatchResult, error) {
	idx, err := s.Index()
	if err != nil {
		return nil, nil, err
	}
	if titleColumn == "" {
		titleColumn = s.Config().Data.TitleColumn
	}
	return s.matcher().EnrichDataset(ctx, ds, titleColumn, idx.Entries())
}
