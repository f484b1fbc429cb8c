// Package embedding defines the text-to-vector contract used by ingestion
// and retrieval.
package embedding

import (
	"context"
	"math"
)

// Embedder maps texts to fixed-dimension unit vectors. Output order matches
// input order exactly; every vector is L2-normalized so inner product equals
// cosine similarity. Batching is an implementation concern.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Normalize scales v to unit L2 length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
