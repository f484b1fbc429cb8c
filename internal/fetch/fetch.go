// Package fetch downloads source documents from public repositories into a
// local corpus directory, in the header-plus-body file format the loader
// expects.
package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const userAgent = "chronicle-rag/1.0 (scholarly research)"

// minTextLen is the shortest body accepted; anything smaller is treated as
// failed OCR or an empty page.
const minTextLen = 1000

var unsafeNameChars = regexp.MustCompile(`[^\w\-]`)

// writeDocument saves a document under dir as <sanitized name>.txt with the
// header lines first, a dash separator, then the body.
func writeDocument(dir, name string, header []string, body string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create corpus dir %s: %w", dir, err)
	}

	var b strings.Builder
	for _, line := range header {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\n---\n\n")
	b.WriteString(body)

	safe := unsafeNameChars.ReplaceAllString(name, "_")
	path := filepath.Join(dir, safe+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", path, err)
	}
	return path, nil
}
