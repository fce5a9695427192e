package emb

import "math"

// MeanPool averages the token vectors of hidden (seqLen x dim, row major)
// weighted by the attention mask.
func MeanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	if dim <= 0 {
		return out
	}
	seqLen := len(hidden) / dim
	if len(mask) < seqLen {
		seqLen = len(mask)
	}
	var count float32
	for t := 0; t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

// L2Normalize scales vec to unit length in place. Zero vectors are left as is.
func L2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
