package domain

import "strings"

// languageNames maps ISO 639-1 codes to display names.
var languageNames = map[string]string{
	"en": "English",
	"la": "Latin",
	"ar": "Arabic",
	"el": "Greek",
	"fr": "French",
	"he": "Hebrew",
	"hy": "Armenian",
	"it": "Italian",
	"de": "German",
}

var languageFlags = map[string]string{
	"en": "\U0001F1EC\U0001F1E7",
	"la": "\U0001F1FB\U0001F1E6", // Vatican for Latin
	"ar": "\U0001F1F8\U0001F1E6",
	"el": "\U0001F1EC\U0001F1F7",
	"fr": "\U0001F1EB\U0001F1F7",
	"he": "\U0001F1EE\U0001F1F1",
	"hy": "\U0001F1E6\U0001F1F2",
	"it": "\U0001F1EE\U0001F1F9",
	"de": "\U0001F1E9\U0001F1EA",
}

// declaredCodes normalizes header-declared language values to ISO 639-1.
var declaredCodes = map[string]string{
	"en": "en", "english": "en",
	"la": "la", "latin": "la",
	"ar": "ar", "arabic": "ar",
	"el": "el", "greek": "el",
	"fr": "fr", "french": "fr",
	"he": "he", "hebrew": "he",
	"hy": "hy", "armenian": "hy",
	"it": "it", "italian": "it",
	"de": "de", "german": "de",
}

// LanguageName returns the display name for an ISO 639-1 code, or the
// upper-cased code when unknown.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}

// LanguageFlag returns a flag emoji for the code, or a globe when unknown.
func LanguageFlag(code string) string {
	if flag, ok := languageFlags[code]; ok {
		return flag
	}
	return "\U0001F310"
}

// NormalizeLanguage maps a header-declared language value ("la", "Latin",
// "FRENCH", ...) to its ISO 639-1 code. The second return is false when the
// value is empty or not in the table.
func NormalizeLanguage(declared string) (string, bool) {
	code, ok := declaredCodes[strings.ToLower(strings.TrimSpace(declared))]
	return code, ok
}
