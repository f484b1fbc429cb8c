// Package loader turns raw document files into chunk lists with metadata.
//
// A document file starts with "Key: value" header lines (title, author,
// language, url, source) terminated by a line of dashes, followed by the
// body text. Files without a header are treated as all body.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"chronicle-rag/internal/chunker"
	"chronicle-rag/internal/domain"
)

// headerBudget bounds how far into the file header keys are recognized.
const headerBudget = 2000

var unsafeStemChars = regexp.MustCompile(`[^\w\-]`)

// Loader reads document files and produces their ordered chunk lists.
type Loader struct {
	chunker *chunker.WindowChunker
}

// New returns a loader splitting documents with the given chunker.
func New(c *chunker.WindowChunker) *Loader {
	return &Loader{chunker: c}
}

// LoadFile reads one document and returns its chunks in order. File content
// is decoded permissively: invalid UTF-8 bytes are replaced, never rejected.
func (l *Loader) LoadFile(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(data), string(utf8.RuneError))

	doc := ParseDocument(path, text)
	lang := ResolveLanguage(doc.Language, text)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := unsafeStemChars.ReplaceAllString(stem, "_")

	var chunks []domain.Chunk
	for i, part := range l.chunker.Chunk(text) {
		chunks = append(chunks, domain.Chunk{
			ChunkID:          fmt.Sprintf("%s_chunk_%03d", prefix, i),
			Source:           path,
			Text:             part,
			Language:         lang,
			LanguageName:     domain.LanguageName(lang),
			Author:           doc.Author,
			Title:            doc.Title,
			SourceURL:        doc.SourceURL,
			SourceRepository: doc.Repository,
		})
	}
	return chunks, nil
}

// LoadDir walks root for .txt files and loads each in lexical order.
func (l *Loader) LoadDir(root string) ([]domain.Chunk, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(path), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	var chunks []domain.Chunk
	for _, path := range paths {
		fileChunks, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, fileChunks...)
	}
	return chunks, nil
}

// ParseDocument extracts header metadata from the first headerBudget
// characters of text and tags the source repository from the path.
func ParseDocument(path, text string) domain.Document {
	doc := domain.Document{
		Path:       path,
		Text:       text,
		Repository: detectRepository(path),
	}

	head := text
	if len(head) > headerBudget {
		head = head[:headerBudget]
	}
	for _, line := range strings.Split(head, "\n") {
		if strings.HasPrefix(line, "---") {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "title":
			doc.Title = value
		case "author":
			doc.Author = value
		case "language":
			doc.Language = value
		case "url":
			doc.SourceURL = value
		case "source":
			doc.Repository = strings.ToLower(value)
		}
	}
	return doc
}

func detectRepository(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "gallica"):
		return "gallica"
	case strings.Contains(p, "archive"):
		return "archive"
	case strings.Contains(p, "wiki"):
		return "wiki"
	case strings.Contains(p, "vatican"):
		return "vatican"
	default:
		return "unknown"
	}
}
