package nco

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// EmbeddingIndex holds one vector per lookup entry. It is read-only after
// BuildIndex returns and safe for concurrent use; a changed lookup table
// gets a new index rather than an update.
type EmbeddingIndex struct {
	entries     []LookupEntry
	vectors     [][]float32
	modelID     string
	fingerprint uint64
	dim         int
}

// IndexOptions tunes how BuildIndex drives the embedder.
type IndexOptions struct {
	BatchSize int
	Workers   int
	Logger    *slog.Logger
}

// BuildIndex embeds every entry label. Labels are coerced to valid UTF-8 and
// a blank label embeds as "". An embedder failure aborts the build.
func BuildIndex(ctx context.Context, embedder Embedder, entries []LookupEntry, opts IndexOptions) (*EmbeddingIndex, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 32
	}
	started := time.Now()

	owned := make([]LookupEntry, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		owned[i] = LookupEntry{Code: e.Code, Label: CoerceLabel(e.Label)}
		labels[i] = owned[i].Label
	}

	vectors := make([][]float32, len(entries))
	batches := (len(labels) + batch - 1) / batch
	err := forEach(ctx, opts.Workers, batches, func(ctx context.Context, b int) error {
		start := b * batch
		end := min(start+batch, len(labels))
		vecs, err := embedder.EmbedTexts(ctx, labels[start:end])
		if err != nil {
			return fmt.Errorf("embed lookup labels %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return fmt.Errorf("embed lookup labels %d-%d: got %d vectors", start, end-1, len(vecs))
		}
		copy(vectors[start:end], vecs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dim := 0
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	idx := &EmbeddingIndex{
		entries:     owned,
		vectors:     vectors,
		modelID:     embedder.ModelID(),
		fingerprint: Fingerprint(embedder.ModelID(), owned),
		dim:         dim,
	}
	logger.Info("embedding index built",
		"component", "index",
		"entries", len(owned),
		"dim", dim,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return idx, nil
}

// Fingerprint identifies a lookup table as seen by one embedding model.
func Fingerprint(modelID string, entries []LookupEntry) uint64 {
	h := xxhash.New()
	var lenBuf [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.WriteString(s)
	}
	write(modelID)
	for _, e := range entries {
		write(e.Code)
		write(CoerceLabel(e.Label))
	}
	return h.Sum64()
}

// Len returns the number of indexed entries.
func (idx *EmbeddingIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Dim returns the vector dimensionality, 0 for an empty index.
func (idx *EmbeddingIndex) Dim() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// ModelID names the embedder the index was built with.
func (idx *EmbeddingIndex) ModelID() string {
	return idx.modelID
}

// Fingerprint returns the dataset fingerprint computed at build time.
func (idx *EmbeddingIndex) Fingerprint() uint64 {
	return idx.fingerprint
}

// Entries returns a copy of the indexed entries in original order.
func (idx *EmbeddingIndex) Entries() []LookupEntry {
	if idx == nil {
		return nil
	}
	out := make([]LookupEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Entry returns the entry at position i.
func (idx *EmbeddingIndex) Entry(i int) LookupEntry {
	return idx.entries[i]
}

// Vector returns a copy of the vector at position i.
func (idx *EmbeddingIndex) Vector(i int) []float32 {
	return cloneVector(idx.vectors[i])
}

// CosineSimilarity compares a and b over their common prefix. Empty or
// zero-norm input scores 0.
func CosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i, av := range a[:n] {
		x, y := float64(av), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	norm := math.Sqrt(na * nb)
	if norm == 0 {
		return 0
	}
	return float32(dot / norm)
}
