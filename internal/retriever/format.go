package retriever

import (
	"fmt"
	"strings"

	"chronicle-rag/internal/domain"
)

// FormatOptions control how retrieved chunks are rendered into a context
// string for the answer-generation collaborator.
type FormatOptions struct {
	// IncludeOriginal appends the source-language text of translated chunks.
	IncludeOriginal bool
	// MaxChunkLen truncates each chunk's text when positive.
	MaxChunkLen int
}

// FormatContext renders results as citation-headed blocks separated by
// horizontal rules.
func FormatContext(results []domain.ScoredChunk, opts FormatOptions) string {
	parts := make([]string, 0, len(results))
	for _, res := range results {
		chunk := res.Chunk

		header := fmt.Sprintf("[%s] (score: %.3f)", chunk.ChunkID, res.Score)
		switch {
		case chunk.OriginalLanguage != "" && chunk.OriginalLanguage != "en":
			header += fmt.Sprintf(" [Original: %s, Translated to English]", domain.LanguageName(chunk.OriginalLanguage))
		case chunk.Language != "en":
			header += fmt.Sprintf(" [%s]", domain.LanguageName(chunk.Language))
		}

		part := header + "\n" + truncate(chunk.Text, opts.MaxChunkLen)
		if opts.IncludeOriginal && chunk.IsTranslation && chunk.OriginalText != "" {
			part += fmt.Sprintf("\n\n[Original %s text:]\n%s",
				domain.LanguageName(chunk.OriginalLanguage), truncate(chunk.OriginalText, opts.MaxChunkLen))
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Source summarizes one result's provenance for display.
type Source struct {
	ChunkID          string  `json:"chunk_id"`
	Score            float32 `json:"score"`
	Language         string  `json:"language"`
	LanguageName     string  `json:"language_name"`
	Flag             string  `json:"flag"`
	IsTranslation    bool    `json:"is_translation"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Author           string  `json:"author,omitempty"`
	Title            string  `json:"title,omitempty"`
	SourceRepository string  `json:"source_repository"`
	Preview          string  `json:"preview"`
}

// Sources builds display summaries for a result list.
func Sources(results []domain.ScoredChunk) []Source {
	sources := make([]Source, 0, len(results))
	for _, res := range results {
		chunk := res.Chunk
		sources = append(sources, Source{
			ChunkID:          chunk.ChunkID,
			Score:            res.Score,
			Language:         chunk.Language,
			LanguageName:     domain.LanguageName(chunk.Language),
			Flag:             domain.LanguageFlag(chunk.Language),
			IsTranslation:    chunk.IsTranslation,
			OriginalLanguage: chunk.OriginalLanguage,
			Author:           chunk.Author,
			Title:            chunk.Title,
			SourceRepository: chunk.SourceRepository,
			Preview:          truncate(chunk.Text, 200),
		})
	}
	return sources
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
