package nco

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"yashubustudio/surveyx/fuzz"
)

// SimilarityFunc compares two embedding vectors.
type SimilarityFunc func(a, b []float32) float32

// LexicalFunc compares two strings on a 0-100 scale.
type LexicalFunc func(a, b string) float64

// HybridScorer ranks lookup entries by a weighted blend of embedding
// similarity and token-sorted edit ratio.
type HybridScorer struct {
	embedder   Embedder
	weights    ScoreWeights
	similarity SimilarityFunc
	lexical    LexicalFunc
}

// ScorerOption customizes a HybridScorer.
type ScorerOption func(*HybridScorer)

// WithWeights overrides the default 0.7/0.3 mix.
func WithWeights(w ScoreWeights) ScorerOption {
	return func(s *HybridScorer) {
		s.weights = w
	}
}

// WithSimilarity replaces cosine similarity.
func WithSimilarity(fn SimilarityFunc) ScorerOption {
	return func(s *HybridScorer) {
		if fn != nil {
			s.similarity = fn
		}
	}
}

// WithLexical replaces the token sort ratio.
func WithLexical(fn LexicalFunc) ScorerOption {
	return func(s *HybridScorer) {
		if fn != nil {
			s.lexical = fn
		}
	}
}

// NewHybridScorer builds a scorer around the embedder used for the index.
func NewHybridScorer(embedder Embedder, opts ...ScorerOption) (*HybridScorer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := &HybridScorer{
		embedder:   embedder,
		weights:    DefaultWeights(),
		similarity: CosineSimilarity,
		lexical:    TokenSortLexical,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns at most topK candidates ordered by final score. Ties keep the
// index order. topK is clamped to [1, index.Len()]. An empty query is scored
// like any other string.
func (s *HybridScorer) Search(ctx context.Context, query string, index *EmbeddingIndex, topK int) ([]ScoredCandidate, error) {
	n := index.Len()
	if n == 0 {
		return []ScoredCandidate{}, nil
	}
	if index.ModelID() != s.embedder.ModelID() {
		return nil, fmt.Errorf("index built with %q, scorer uses %q", index.ModelID(), s.embedder.ModelID())
	}
	topK = clampTopK(topK, n)

	qvec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != index.Dim() && index.Dim() > 0 {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(qvec), index.Dim())
	}

	lowerQuery := strings.ToLower(query)
	out := make([]ScoredCandidate, n)
	for i := 0; i < n; i++ {
		entry := index.entries[i]
		semantic := clamp01(s.similarity(qvec, index.vectors[i]))
		lexical := clamp01(float32(s.lexical(lowerQuery, strings.ToLower(entry.Label)) / 100))
		out[i] = ScoredCandidate{
			Entry:         entry,
			Position:      i,
			SemanticScore: semantic,
			LexicalScore:  lexical,
			FinalScore:    clamp01(s.weights.Semantic*semantic + s.weights.Lexical*lexical),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out[:topK], nil
}

// TokenSortLexical is the default lexical score: punctuation is dropped
// before the token sort ratio is taken.
func TokenSortLexical(a, b string) float64 {
	return fuzz.TokenSortRatio(fuzz.FullProcess(a), fuzz.FullProcess(b))
}

func clampTopK(topK, n int) int {
	if topK < 1 {
		return 1
	}
	if topK > n {
		return n
	}
	return topK
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
