// Package chunker splits document text into fixed-size overlapping windows.
package chunker

import (
	"fmt"
	"strings"

	"chronicle-rag/internal/domain"
)

// DefaultChunkSize is the default window size in characters.
const DefaultChunkSize = 2000

// DefaultOverlap is the default overlap between windows in characters.
const DefaultOverlap = 300

// WindowChunker produces overlapping character windows. Each successive
// window starts chunkSize-overlap characters after the previous one; windows
// are trimmed of surrounding whitespace and dropped when empty.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindow validates the parameters and returns a chunker. The overlap must
// be non-negative and strictly smaller than the chunk size.
func NewWindow(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive: %w", chunkSize, domain.ErrInvalidConfig)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, %d): %w", overlap, chunkSize, domain.ErrInvalidConfig)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size.
func (c *WindowChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured window overlap.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered windows. Offsets are counted in runes so a
// window never splits a multi-byte character.
func (c *WindowChunker) Chunk(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}
