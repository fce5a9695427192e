// Package mock provides a deterministic stand-in for nco.Embedder.
//
// Vectors are built from hashed character trigrams of the lower-cased text,
// so strings sharing many trigrams get a high cosine similarity. No model
// files are needed, which keeps unit tests fast and reproducible.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultDim is the vector size used by NewEmbedder.
const DefaultDim = 256

// Embedder implements nco.Embedder without a model.
type Embedder struct {
	// EmbedTextsFunc overrides the default behaviour when set.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dim       int
	modelID   string
	callCount atomic.Int64
	textCount atomic.Int64
	closed    atomic.Bool

	mu   sync.Mutex
	seen map[string]int
}

// NewEmbedder returns an embedder producing DefaultDim-sized vectors.
func NewEmbedder() *Embedder {
	return NewEmbedderWithDim(DefaultDim)
}

// NewEmbedderWithDim returns an embedder producing dim-sized vectors.
func NewEmbedderWithDim(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Embedder{dim: dim, modelID: "mock-trigram", seen: make(map[string]int)}
}

// WithModelID changes the reported model identifier.
func (m *Embedder) WithModelID(id string) *Embedder {
	m.modelID = id
	return m
}

// ModelID returns the model identifier.
func (m *Embedder) ModelID() string {
	return m.modelID
}

// EmbedText embeds a single text.
func (m *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in order.
func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)
	m.textCount.Add(int64(len(texts)))
	m.mu.Lock()
	for _, t := range texts {
		m.seen[t]++
	}
	m.mu.Unlock()
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t, m.dim)
	}
	return out, nil
}

// Close marks the embedder closed.
func (m *Embedder) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *Embedder) Closed() bool {
	return m.closed.Load()
}

// CallCount returns the number of EmbedText/EmbedTexts calls.
func (m *Embedder) CallCount() int {
	return int(m.callCount.Load())
}

// TextCount returns the number of texts embedded so far.
func (m *Embedder) TextCount() int {
	return int(m.textCount.Load())
}

// Seen returns how often text was embedded.
func (m *Embedder) Seen(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[text]
}

// Vector returns the L2-normalized trigram histogram of text. Blank text
// yields the zero vector.
func Vector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return vec
	}
	runes := []rune(" " + text + " ")
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(runes[i : i+3])))
		vec[h.Sum32()%uint32(dim)]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
