// Package retriever answers queries against a persisted corpus snapshot.
package retriever

import (
	"context"
	"fmt"

	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/embedding"
	"chronicle-rag/internal/vectorstore"
)

// DefaultTopK is the default number of chunks returned per query.
const DefaultTopK = 4

// oversampleFactor is how many extra candidates are fetched when a language
// filter is active, to absorb filtering losses.
const oversampleFactor = 3

// Retriever embeds questions and finds the nearest chunks in an immutable
// snapshot. It is safe for concurrent use as long as nobody rebuilds the
// snapshot directory underneath it.
type Retriever struct {
	snap     *vectorstore.Snapshot
	embedder embedding.Embedder
}

// New loads the snapshot in indexDir. A missing index or chunk list is a
// construction failure carrying domain.ErrNotFound.
func New(indexDir string, embedder embedding.Embedder) (*Retriever, error) {
	snap, err := vectorstore.Load(indexDir)
	if err != nil {
		return nil, err
	}
	return &Retriever{snap: snap, embedder: embedder}, nil
}

// NewFromSnapshot wraps an already-loaded snapshot.
func NewFromSnapshot(snap *vectorstore.Snapshot, embedder embedding.Embedder) *Retriever {
	return &Retriever{snap: snap, embedder: embedder}
}

// Size returns the number of retrievable chunks.
func (r *Retriever) Size() int { return len(r.snap.Chunks) }

// Config returns the snapshot's build parameters.
func (r *Retriever) Config() vectorstore.SnapshotConfig { return r.snap.Config }

// Retrieve returns up to topK chunks ranked by descending similarity. When
// languages is non-empty a chunk passes the filter if its language or its
// original language is in the set; the search over-fetches topK*3 candidates
// to compensate. Fewer than topK results is not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, languages []string) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	wanted := make(map[string]bool, len(languages))
	for _, lang := range languages {
		wanted[lang] = true
	}

	searchK := topK
	if len(wanted) > 0 {
		searchK = topK * oversampleFactor
	}
	hits, err := r.snap.Index.Search(vectors[0], searchK)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, topK)
	for _, hit := range hits {
		chunk := r.snap.Chunks[hit.ID]
		if len(wanted) > 0 && !wanted[chunk.Language] && !wanted[chunk.OriginalLanguage] {
			continue
		}
		results = append(results, domain.ScoredChunk{Score: hit.Score, Chunk: chunk})
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}
