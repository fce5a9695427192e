package emb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanPool_IgnoresMaskedTokens(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	got := MeanPool(hidden, []int64{1, 1, 0}, 2)
	assert.Equal(t, []float32{2, 3}, got)
}

func TestMeanPool_AllMasked(t *testing.T) {
	got := MeanPool([]float32{1, 2}, []int64{0}, 2)
	assert.Equal(t, []float32{0, 0}, got)
}

func TestL2Normalize(t *testing.T) {
	vec := L2Normalize([]float32{3, 4})
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	zero := L2Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestTruncate_KeepsClosingToken(t *testing.T) {
	ids, mask, types := truncate([]int{0, 10, 11, 12, 2}, []int{1, 1, 1, 1, 1}, nil, 3)
	assert.Equal(t, []int64{0, 10, 2}, ids)
	assert.Equal(t, []int64{1, 1, 1}, mask)
	assert.Equal(t, []int64{0, 0, 0}, types)
}

func TestEncoder_EncodeBeforeInit(t *testing.T) {
	var e Encoder
	_, err := e.Encode("software engineer")
	assert.Error(t, err)
	e.Close()
}

func TestEncoder_InitValidatesPaths(t *testing.T) {
	var e Encoder
	assert.Error(t, e.Init(Config{}))
	assert.Error(t, e.Init(Config{ModelPath: "model.onnx"}))
}
