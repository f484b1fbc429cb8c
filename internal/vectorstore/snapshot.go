package vectorstore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chronicle-rag/internal/domain"
)

// Snapshot directory layout.
const (
	IndexFile  = "faiss.index"
	ChunksFile = "chunks.json"
	ConfigFile = "config.json"
)

// indexMagic identifies the binary index format; indexVersion its revision.
var indexMagic = [4]byte{'C', 'R', 'F', 'I'}

const indexVersion uint32 = 1

// SnapshotConfig is the small config record persisted alongside the index.
type SnapshotConfig struct {
	ChunkSize      int    `json:"chunk_size"`
	Overlap        int    `json:"overlap"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
	TotalChunks    int    `json:"total_chunks"`
}

// Snapshot pairs a vector index with its parallel chunk list. Array position
// in Chunks equals the vector identifier in Index.
type Snapshot struct {
	Index  *FlatIndex
	Chunks []domain.Chunk
	Config SnapshotConfig
}

// Save persists the snapshot into dir. Each file is written to a temporary
// name and renamed into place so a crashed run never leaves a torn file; the
// directory as a whole is rebuilt wholesale by the next ingestion run.
func Save(dir string, snap *Snapshot) error {
	if snap.Index.Size() != len(snap.Chunks) {
		return fmt.Errorf("index holds %d vectors for %d chunks: %w",
			snap.Index.Size(), len(snap.Chunks), domain.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, IndexFile), func(w io.Writer) error {
		return writeIndex(w, snap.Index)
	}); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, ChunksFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(snap.Chunks)
	}); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, ConfigFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Config)
	})
}

// Load reads a snapshot from dir. A missing artifact fails with ErrNotFound
// naming the path; that is fatal to whoever needed the snapshot.
func Load(dir string) (*Snapshot, error) {
	indexPath := filepath.Join(dir, IndexFile)
	index, err := readIndexFile(indexPath)
	if err != nil {
		return nil, err
	}

	chunksPath := filepath.Join(dir, ChunksFile)
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chunk list missing at %s: %w", chunksPath, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read chunk list: %w", err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunk list: %w", err)
	}

	if index.Size() != len(chunks) {
		return nil, fmt.Errorf("snapshot at %s holds %d vectors for %d chunks",
			dir, index.Size(), len(chunks))
	}

	snap := &Snapshot{Index: index, Chunks: chunks}

	// config.json is informational; an old snapshot without one still loads
	if data, err := os.ReadFile(filepath.Join(dir, ConfigFile)); err == nil {
		_ = json.Unmarshal(data, &snap.Config)
	}
	return snap, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeIndex serializes the index: magic, version, dimension, count, then
// the float32 rows, all little-endian.
func writeIndex(w io.Writer, ix *FlatIndex) error {
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []uint32{indexVersion, uint32(ix.dim), uint32(len(ix.vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, v := range ix.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readIndexFile(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vector index missing at %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	defer f.Close()
	return readIndex(bufio.NewReader(f))
}

func readIndex(r io.Reader) (*FlatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("not a vector index file (magic %q)", magic)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	version, dim, count := header[0], int(header[1]), int(header[2])
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}

	index, err := NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	index.vectors = make([][]float32, count)
	for i := 0; i < count; i++ {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		index.vectors[i] = v
	}
	return index, nil
}
