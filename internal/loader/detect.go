package loader

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"chronicle-rag/internal/domain"
)

// latinMarkers are common medieval Latin words used to rescue texts the
// trigram detector mistakes for South Slavic languages.
var latinMarkers = []string{"rex", "deus", "anno", "ecclesia"}

// ResolveLanguage picks the chunk language for a document. Precedence:
// declared header code, English heuristic, automatic detection, "en".
func ResolveLanguage(declared, text string) string {
	if code, ok := domain.NormalizeLanguage(declared); ok {
		return code
	}
	if IsEnglish(text) {
		return "en"
	}
	return DetectLanguage(text)
}

// IsEnglish reports whether a mid-text sample detects as English.
func IsEnglish(text string) bool {
	sample := midSample(text)
	if sample == "" {
		return true
	}
	return whatlanggo.Detect(sample).Lang == whatlanggo.Eng
}

// DetectLanguage returns the ISO 639-1 code of the text, defaulting to "en"
// when detection produces nothing usable.
func DetectLanguage(text string) string {
	sample := midSample(text)
	if sample == "" {
		return "en"
	}
	info := whatlanggo.Detect(sample)
	code := info.Lang.Iso6391()
	if code == "" {
		return "en"
	}
	// the detector has no Latin model and tends to land on Croatian or
	// Serbian for Latin chronicles
	if code == "hr" || code == "sr" {
		if looksLatin(text) {
			return "la"
		}
	}
	return code
}

// midSample skips past the header region and takes up to 2000 characters
// from inside the text, where body prose dominates.
func midSample(text string) string {
	runes := []rune(text)
	start := len(runes) / 4
	if start > 500 {
		start = 500
	}
	end := start + 2000
	if end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[start:end]))
}

func looksLatin(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range latinMarkers {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
