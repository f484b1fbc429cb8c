// Package vectorstore implements the flat inner-product vector index and
// the persisted corpus snapshot pairing it with its chunk list.
package vectorstore

import (
	"fmt"
	"sort"

	"chronicle-rag/internal/domain"
)

// Hit is one search result: the vector's insertion position and its inner
// product against the query.
type Hit struct {
	ID    int
	Score float32
}

// FlatIndex stores unit vectors and searches them exhaustively by inner
// product. Vector identifiers are insertion positions, so the index stays
// aligned with a parallel chunk list by construction.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension %d must be positive: %w", dim, domain.ErrInvalidConfig)
	}
	return &FlatIndex{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (ix *FlatIndex) Dimension() int { return ix.dim }

// Size returns the number of stored vectors.
func (ix *FlatIndex) Size() int { return len(ix.vectors) }

// Add appends vectors; each gets the next sequential identifier.
func (ix *FlatIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d: %w",
				len(v), ix.dim, domain.ErrInvalidConfig)
		}
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Search returns up to k hits sorted by descending score, ties broken by
// lower identifier. Asking for more hits than the index holds returns all
// of them, never an error.
func (ix *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d: %w",
			len(query), ix.dim, domain.ErrInvalidConfig)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{ID: i, Score: dot(v, query)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
