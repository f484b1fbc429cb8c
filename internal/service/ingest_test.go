package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle-rag/internal/chunker"
	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/vectorstore"
)

// hashEmbedder emits a deterministic unit vector per text.
type hashEmbedder struct {
	calls int
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 4)
		v[len(text)%4] = 1
		out[i] = v
	}
	return out, nil
}

func (e *hashEmbedder) Dimension() int { return 4 }
func (e *hashEmbedder) Model() string  { return "hash-test" }

// recordingTranslator upper-cases its input and records what it saw.
type recordingTranslator struct {
	requests []string
	fail     bool
}

func (tr *recordingTranslator) Translate(_ context.Context, text, sourceLang string) string {
	tr.requests = append(tr.requests, sourceLang)
	if tr.fail {
		return ""
	}
	return strings.ToUpper(text)
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testChunker(t *testing.T) *chunker.WindowChunker {
	t.Helper()
	c, err := chunker.NewWindow(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	return c
}

func TestIngestor_Run(t *testing.T) {
	dataDir := t.TempDir()
	writeDoc(t, dataDir, "english.txt", "Title: A Chronicle\nLanguage: English\n---\nThe army marched to the coast and took the city.")
	writeDoc(t, dataDir, "latin.txt", "Title: Gesta\nLanguage: Latin\n---\nRex et ecclesia et deus in anno illo.")

	emb := &hashEmbedder{}
	tr := &recordingTranslator{}
	in := NewIngestor(testChunker(t), tr, emb)

	indexDir := t.TempDir()
	snap, err := in.Run(context.Background(), dataDir, indexDir, Options{})
	require.NoError(t, err)

	t.Run("only non-english chunks are translated", func(t *testing.T) {
		require.Len(t, tr.requests, 1)
		assert.Equal(t, "la", tr.requests[0])
	})

	t.Run("translated chunk carries its original", func(t *testing.T) {
		var latin *domain.Chunk
		for i := range snap.Chunks {
			if snap.Chunks[i].OriginalLanguage == "la" {
				latin = &snap.Chunks[i]
			}
		}
		require.NotNil(t, latin)
		assert.True(t, latin.IsTranslation)
		assert.Contains(t, latin.OriginalText, "Rex et ecclesia")
		assert.Equal(t, strings.ToUpper(latin.OriginalText), latin.Text)
	})

	t.Run("snapshot is persisted and aligned", func(t *testing.T) {
		loaded, err := vectorstore.Load(indexDir)
		require.NoError(t, err)
		assert.Equal(t, len(snap.Chunks), loaded.Index.Size())
		assert.Equal(t, snap.Chunks, loaded.Chunks)
		assert.Equal(t, "hash-test", loaded.Config.EmbeddingModel)
		assert.Equal(t, 4, loaded.Config.EmbeddingDim)
		assert.Equal(t, chunker.DefaultChunkSize, loaded.Config.ChunkSize)
		assert.Equal(t, chunker.DefaultOverlap, loaded.Config.Overlap)
		assert.Equal(t, len(snap.Chunks), loaded.Config.TotalChunks)
	})

	t.Run("embedding happens once over the whole corpus", func(t *testing.T) {
		assert.Equal(t, 1, emb.calls)
	})
}

func TestIngestor_TranslationFailureKeepsOriginal(t *testing.T) {
	dataDir := t.TempDir()
	writeDoc(t, dataDir, "latin.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno illo.")

	tr := &recordingTranslator{fail: true}
	in := NewIngestor(testChunker(t), tr, &hashEmbedder{})

	snap, err := in.Run(context.Background(), dataDir, t.TempDir(), Options{})
	require.NoError(t, err)
	require.Len(t, tr.requests, 1)

	chunk := snap.Chunks[0]
	assert.False(t, chunk.IsTranslation)
	assert.Empty(t, chunk.OriginalText)
	assert.Contains(t, chunk.Text, "Rex et ecclesia")
}

func TestIngestor_Options(t *testing.T) {
	t.Run("skip translation", func(t *testing.T) {
		dataDir := t.TempDir()
		writeDoc(t, dataDir, "latin.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno illo.")

		tr := &recordingTranslator{}
		in := NewIngestor(testChunker(t), tr, &hashEmbedder{})
		_, err := in.Run(context.Background(), dataDir, t.TempDir(), Options{SkipTranslation: true})
		require.NoError(t, err)
		assert.Empty(t, tr.requests)
	})

	t.Run("max translate caps the run", func(t *testing.T) {
		dataDir := t.TempDir()
		writeDoc(t, dataDir, "a.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno primo.")
		writeDoc(t, dataDir, "b.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno secundo.")
		writeDoc(t, dataDir, "c.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno tertio.")

		tr := &recordingTranslator{}
		in := NewIngestor(testChunker(t), tr, &hashEmbedder{})
		snap, err := in.Run(context.Background(), dataDir, t.TempDir(), Options{MaxTranslate: 2})
		require.NoError(t, err)
		assert.Len(t, tr.requests, 2)

		translated := 0
		for _, chunk := range snap.Chunks {
			if chunk.IsTranslation {
				translated++
			}
		}
		assert.Equal(t, 2, translated)
	})

	t.Run("nil translator is tolerated", func(t *testing.T) {
		dataDir := t.TempDir()
		writeDoc(t, dataDir, "latin.txt", "Language: Latin\n---\nRex et ecclesia et deus in anno illo.")

		in := NewIngestor(testChunker(t), nil, &hashEmbedder{})
		_, err := in.Run(context.Background(), dataDir, t.TempDir(), Options{})
		require.NoError(t, err)
	})
}

func TestIngestor_EmptyCorpus(t *testing.T) {
	in := NewIngestor(testChunker(t), nil, &hashEmbedder{})
	_, err := in.Run(context.Background(), t.TempDir(), t.TempDir(), Options{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
