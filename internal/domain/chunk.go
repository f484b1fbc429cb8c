package domain

// Document is a raw text blob plus the metadata parsed from its header.
// Documents are produced by the fetchers (or placed by hand) and consumed
// once by the loader; they are never mutated.
type Document struct {
	Path       string
	Text       string
	Title      string
	Author     string
	Language   string
	SourceURL  string
	Repository string
}

// Chunk is the atomic retrievable unit of the corpus.
//
// Text is what gets embedded and displayed; for translated chunks it holds
// the translation while OriginalText keeps the source-language text. Exactly
// one of these holds: IsTranslation is false and OriginalText/OriginalLanguage
// are empty, or IsTranslation is true and both are set.
type Chunk struct {
	ChunkID string `json:"chunk_id"`
	Source  string `json:"source"`
	Text    string `json:"text"`

	Language         string `json:"language"`
	LanguageName     string `json:"language_name"`
	IsTranslation    bool   `json:"is_translation"`
	OriginalLanguage string `json:"original_language,omitempty"`
	OriginalText     string `json:"original_text,omitempty"`

	Author           string `json:"author,omitempty"`
	Title            string `json:"title,omitempty"`
	SourceURL        string `json:"source_url,omitempty"`
	SourceRepository string `json:"source_repository"`
}

// ApplyTranslation moves the current text to OriginalText and installs the
// translation as the embeddable text, keeping Language on the original code
// for display.
func (c *Chunk) ApplyTranslation(translated string) {
	c.OriginalText = c.Text
	c.OriginalLanguage = c.Language
	c.Text = translated
	c.IsTranslation = true
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Score float32
	Chunk Chunk
}
