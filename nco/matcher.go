package nco

import (
	"context"
	"log/slog"
	"strings"

	"yashubustudio/surveyx/fuzz"
)

// BatchMatcher assigns codes to survey titles with a lexical-only best match.
// It is the offline enrichment policy and shares no threshold with HybridScorer.
type BatchMatcher struct {
	threshold float64
	workers   int
	scorer    LexicalFunc
	logger    *slog.Logger
}

// MatcherOption customizes a BatchMatcher.
type MatcherOption func(*BatchMatcher)

// WithThreshold sets the inclusive acceptance score on the 0-100 scale.
// Values outside that range are ignored.
func WithThreshold(threshold float64) MatcherOption {
	return func(m *BatchMatcher) {
		if threshold >= 0 && threshold <= 100 {
			m.threshold = threshold
		}
	}
}

// WithWorkers sets the pool size used by MatchEntries.
func WithWorkers(n int) MatcherOption {
	return func(m *BatchMatcher) {
		m.workers = n
	}
}

// WithMatchScorer replaces the weighted ratio.
func WithMatchScorer(fn LexicalFunc) MatcherOption {
	return func(m *BatchMatcher) {
		if fn != nil {
			m.scorer = fn
		}
	}
}

// WithMatchLogger sets the logger.
func WithMatchLogger(logger *slog.Logger) MatcherOption {
	return func(m *BatchMatcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewBatchMatcher returns a matcher with threshold 80 and the weighted ratio scorer.
func NewBatchMatcher(opts ...MatcherOption) *BatchMatcher {
	m := &BatchMatcher{
		threshold: DefaultThreshold,
		scorer:    fuzz.WRatio,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "batch-matcher")
	return m
}

// Threshold reports the acceptance score.
func (m *BatchMatcher) Threshold() float64 {
	return m.threshold
}

// MatchAll matches rows against the entries of index.
func (m *BatchMatcher) MatchAll(ctx context.Context, rows []TitleRow, index *EmbeddingIndex) ([]MatchResult, error) {
	return m.MatchEntries(ctx, rows, index.Entries())
}

// MatchEntries returns one result per row in input order. A blank title or an
// empty lookup table yields an unmatched result; only cancellation fails the batch.
func (m *BatchMatcher) MatchEntries(ctx context.Context, rows []TitleRow, entries []LookupEntry) ([]MatchResult, error) {
	results := make([]MatchResult, len(rows))
	err := forEach(ctx, m.workers, len(rows), func(_ context.Context, i int) error {
		results[i] = m.matchOne(rows[i], entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	m.logger.Info("batch match finished", "rows", len(rows), "matched", matched, "threshold", m.threshold)
	return results, nil
}

func (m *BatchMatcher) matchOne(row TitleRow, entries []LookupEntry) MatchResult {
	res := MatchResult{InputRowID: row.ID}
	title := strings.TrimSpace(row.Title)
	if title == "" || len(entries) == 0 {
		return res
	}
	best := -1
	bestScore := -1.0
	for i, e := range entries {
		score := m.scorer(title, e.Label)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	res.Score = bestScore
	if bestScore >= m.threshold {
		res.Code = entries[best].Code
		res.Label = entries[best].Label
		res.Matched = true
	}
	return res
}

// EnrichDataset returns a copy of ds with the nco_code column filled for
// confident matches and left empty otherwise.
func (m *BatchMatcher) EnrichDataset(ctx context.Context, ds *Dataset, titleColumn string, entries []LookupEntry) (*Dataset, []MatchResult, error) {
	rows, err := TitleRows(ds, titleColumn, "")
	if err != nil {
		return nil, nil, err
	}
	results, err := m.MatchEntries(ctx, rows, entries)
	if err != nil {
		return nil, nil, err
	}
	codes := make([]string, len(results))
	for i, r := range results {
		codes[i] = r.Code
	}
	out, err := ds.WithColumn(CodeColumn, codes)
	if err != nil {
		return nil, nil, err
	}
	return out, results, nil
}
