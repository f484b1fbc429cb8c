package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/logging"
	"chronicle-rag/internal/retry"
)

// GallicaManuscript identifies one document in Gallica, the BnF digital
// library, by its ARK identifier.
type GallicaManuscript struct {
	ARK         string
	Title       string
	Author      string
	Language    string
	Description string
}

// GallicaManuscripts is the curated list of Crusade-era documents with
// usable OCR on Gallica.
var GallicaManuscripts = []GallicaManuscript{
	{"bpt6k5765751w", "Recueil des historiens des croisades - Historiens occidentaux - Tome 1", "Various (Latin chronicles)", "la", "Collection of Latin crusade chronicles including William of Tyre"},
	{"bpt6k57657528", "Recueil des historiens des croisades - Historiens occidentaux - Tome 2", "Various (Latin chronicles)", "la", "Continuation of Latin crusade chronicles"},
	{"bpt6k5765753n", "Recueil des historiens des croisades - Historiens orientaux - Tome 1", "Various (Arabic chronicles)", "ar", "Arabic sources on the Crusades with French translations"},
	{"bpt6k5765769s", "Recueil des historiens des croisades - Historiens grecs - Tome 1", "Various (Byzantine chronicles)", "el", "Byzantine Greek sources on the Crusades"},
	{"bpt6k5454923d", "Historia rerum in partibus transmarinis gestarum (William of Tyre)", "William of Tyre", "la", "William of Tyre's history of the Kingdom of Jerusalem in Latin"},
	{"bpt6k111294n", "Gesta Francorum et aliorum Hierosolimitanorum", "Anonymous", "la", "Anonymous account of the First Crusade"},
	{"bpt6k5765755c", "Fulcherii Carnotensis Historia Hierosolymitana", "Fulcher of Chartres", "la", "Fulcher of Chartres' chronicle of the First Crusade"},
}

var preBlock = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)

// GallicaConfig tunes the Gallica fetcher. Gallica rate-limits hard, so the
// defaults are deliberately slow.
type GallicaConfig struct {
	// BaseURL overrides https://gallica.bnf.fr, mainly for tests.
	BaseURL     string
	Timeout     time.Duration
	Delay       time.Duration
	MaxAttempts int
	// BackoffBase and BackoffOffset shape the retry delay after a 429.
	BackoffBase   time.Duration
	BackoffOffset time.Duration
}

// GallicaFetcher downloads OCR text from Gallica's texteBrut endpoint.
type GallicaFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	log     *zap.SugaredLogger
}

// NewGallicaFetcher builds a fetcher with sane defaults for unset fields.
func NewGallicaFetcher(cfg GallicaConfig) *GallicaFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gallica.bnf.fr"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	if cfg.BackoffOffset <= 0 {
		cfg.BackoffOffset = 10 * time.Second
	}
	return &GallicaFetcher{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BackoffBase,
			Offset:      cfg.BackoffOffset,
			Retryable:   retry.IsTransient,
		},
		log: logging.L(),
	}
}

// DocumentURL returns the human-facing page for an ARK.
func (f *GallicaFetcher) DocumentURL(ark string) string {
	return f.baseURL + "/ark:/12148/" + ark
}

// FetchAll downloads every curated manuscript into outDir, skipping items
// that fail, and returns the saved paths.
func (f *GallicaFetcher) FetchAll(ctx context.Context, outDir string) ([]string, error) {
	var saved []string
	for i, m := range GallicaManuscripts {
		f.log.Infow("fetching manuscript",
			"progress", fmt.Sprintf("%d/%d", i+1, len(GallicaManuscripts)),
			"ark", m.ARK, "title", m.Title)
		path, err := f.Fetch(ctx, m, outDir)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			f.log.Warnw("manuscript skipped", "ark", m.ARK, "error", err)
			continue
		}
		saved = append(saved, path)
	}
	f.log.Infow("gallica fetch complete", "saved", len(saved), "total", len(GallicaManuscripts))
	return saved, nil
}

// Fetch downloads one manuscript's OCR text and saves it with a metadata
// header.
func (f *GallicaFetcher) Fetch(ctx context.Context, m GallicaManuscript, outDir string) (string, error) {
	text, err := f.FetchText(ctx, m.ARK)
	if err != nil {
		return "", err
	}
	if len(text) < minTextLen {
		return "", fmt.Errorf("text too short for %s: %d chars", m.ARK, len(text))
	}

	author := m.Author
	if author == "" {
		author = "Unknown"
	}
	header := []string{
		"Title: " + m.Title,
		"Author: " + author,
		"Language: " + m.Language,
		"Language_Name: " + domain.LanguageName(m.Language),
		"Source: gallica",
		"ARK: " + m.ARK,
		"URL: " + f.DocumentURL(m.ARK),
		"Description: " + m.Description,
	}
	return writeDocument(outDir, m.ARK, header, text)
}

// FetchText retrieves the raw OCR text for an ARK, retrying on rate limits.
// Gallica serves either plain text or an HTML page with the text in a pre
// block.
func (f *GallicaFetcher) FetchText(ctx context.Context, ark string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	url := f.baseURL + "/ark:/12148/" + ark + "/texteBrut"

	var text string
	err := f.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("gallica %s: %w", ark, domain.ErrRateLimited)
		case resp.StatusCode >= 300:
			return fmt.Errorf("gallica %s: status %d", ark, resp.StatusCode)
		}
		text = extractText(string(body))
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func extractText(body string) string {
	if m := preBlock.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	return strings.TrimSpace(html.UnescapeString(body))
}
