package vectorstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle-rag/internal/domain"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	ix, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, ix.Add([][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}))
	return &Snapshot{
		Index: ix,
		Chunks: []domain.Chunk{
			{ChunkID: "a_chunk_000", Text: "first", Language: "en", LanguageName: "English", SourceRepository: "wiki"},
			{ChunkID: "b_chunk_000", Text: "secundus", Language: "la", LanguageName: "Latin", SourceRepository: "archive"},
		},
		Config: SnapshotConfig{
			ChunkSize:      2000,
			Overlap:        300,
			EmbeddingModel: "test-model",
			EmbeddingDim:   3,
			TotalChunks:    2,
		},
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot(t)
	require.NoError(t, Save(dir, snap))

	for _, name := range []string{IndexFile, ChunksFile, ConfigFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, snap.Index.Size(), loaded.Index.Size())
	assert.Equal(t, snap.Index.Dimension(), loaded.Index.Dimension())
	assert.Equal(t, snap.Chunks, loaded.Chunks)
	assert.Equal(t, snap.Config, loaded.Config)

	// alignment: the same query must hit the same chunk before and after
	before, err := snap.Index.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	after, err := loaded.Index.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, "b_chunk_000", loaded.Chunks[after[0].ID].ChunkID)
}

func TestSnapshot_SaveRejectsSkew(t *testing.T) {
	snap := sampleSnapshot(t)
	snap.Chunks = snap.Chunks[:1]
	require.ErrorIs(t, Save(t.TempDir(), snap), domain.ErrInvalidConfig)
}

func TestSnapshot_LoadMissing(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Load(dir)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), filepath.Join(dir, IndexFile))
	})

	t.Run("missing chunk list", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, Save(dir, sampleSnapshot(t)))
		require.NoError(t, os.Remove(filepath.Join(dir, ChunksFile)))

		_, err := Load(dir)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), filepath.Join(dir, ChunksFile))
	})
}

func TestSnapshot_LoadDetectsCountSkew(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot(t)
	require.NoError(t, Save(dir, snap))

	// overwrite the chunk list with one entry fewer
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChunksFile),
		[]byte(`[{"chunk_id":"only","source":"","text":"x","language":"en","language_name":"English","is_translation":false,"source_repository":"unknown"}]`), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 vectors for 1 chunks")
}

func TestReadIndex_RejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, IndexFile)
	require.NoError(t, os.WriteFile(path, []byte("not an index at all"), 0o644))

	_, err := readIndexFile(path)
	require.Error(t, err)
}
