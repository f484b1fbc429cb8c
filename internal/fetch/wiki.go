package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chronicle-rag/internal/logging"
)

// wikiKeywords gate which linked articles the crawl follows.
var wikiKeywords = []string{
	"jerusalem", "crusade", "crusader", "outremer", "acre", "hattin",
	"baldwin", "templar", "hospitaller", "latin", "frankish",
}

// DefaultWikiSeeds start the crawl at the core Kingdom of Jerusalem
// articles.
var DefaultWikiSeeds = []string{
	"Kingdom of Jerusalem",
	"Acre, Israel",
	"Baldwin IV of Jerusalem",
	"Battle of Hattin",
	"First Crusade",
}

// WikiConfig tunes the encyclopedia crawler.
type WikiConfig struct {
	// BaseURL overrides https://en.wikipedia.org/w/api.php, mainly for tests.
	BaseURL string
	Timeout time.Duration
	Delay   time.Duration
	// MaxPages bounds the crawl.
	MaxPages int
	// LinkLimit bounds how many outgoing links are followed per page.
	LinkLimit int
}

// WikiFetcher crawls encyclopedia articles through the MediaWiki API,
// following links whose titles match the keyword list.
type WikiFetcher struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	maxPages  int
	linkLimit int
	log       *zap.SugaredLogger
}

// NewWikiFetcher builds a crawler with sane defaults for unset fields.
func NewWikiFetcher(cfg WikiConfig) *WikiFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 200 * time.Millisecond
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if cfg.LinkLimit <= 0 {
		cfg.LinkLimit = 80
	}
	return &WikiFetcher{
		baseURL:   cfg.BaseURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Every(cfg.Delay), 1),
		maxPages:  cfg.MaxPages,
		linkLimit: cfg.LinkLimit,
		log:       logging.L(),
	}
}

// Crawl walks articles breadth-first from the seeds, saving each non-empty
// extract into outDir, and returns the saved paths.
func (f *WikiFetcher) Crawl(ctx context.Context, seeds []string, outDir string) ([]string, error) {
	queue := append([]string(nil), seeds...)
	seen := make(map[string]bool)
	var saved []string

	for len(queue) > 0 && len(seen) < f.maxPages {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}
		title := queue[0]
		queue = queue[1:]
		if seen[title] {
			continue
		}
		seen[title] = true

		text, err := f.Extract(ctx, title)
		if err != nil {
			f.log.Warnw("article skipped", "title", title, "error", err)
		} else if strings.TrimSpace(text) != "" {
			path, err := writeDocument(outDir, strings.ReplaceAll(title, " ", "_"), []string{
				"Title: " + title,
				"Language: en",
				"Source: wiki",
			}, text)
			if err != nil {
				return saved, err
			}
			saved = append(saved, path)
			f.log.Infow("article saved", "title", title, "chars", len(text))
		}

		links, err := f.Links(ctx, title)
		if err != nil {
			f.log.Warnw("links unavailable", "title", title, "error", err)
			continue
		}
		for _, link := range links {
			if !seen[link] && matchesKeywords(link) {
				queue = append(queue, link)
			}
		}
	}
	f.log.Infow("wiki crawl complete", "saved", len(saved), "visited", len(seen))
	return saved, nil
}

// Extract fetches the plain-text extract of one article.
func (f *WikiFetcher) Extract(ctx context.Context, title string) (string, error) {
	data, err := f.apiGet(ctx, url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"titles":      {title},
	})
	if err != nil {
		return "", err
	}
	for _, page := range data.Query.Pages {
		return page.Extract, nil
	}
	return "", nil
}

// Links returns up to linkLimit article-namespace links from a page,
// following API continuation.
func (f *WikiFetcher) Links(ctx context.Context, title string) ([]string, error) {
	var out []string
	cont := ""
	for len(out) < f.linkLimit {
		params := url.Values{
			"action":      {"query"},
			"format":      {"json"},
			"titles":      {title},
			"prop":        {"links"},
			"plnamespace": {"0"},
			"pllimit":     {"max"},
		}
		if cont != "" {
			params.Set("plcontinue", cont)
		}
		data, err := f.apiGet(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, page := range data.Query.Pages {
			for _, link := range page.Links {
				out = append(out, link.Title)
			}
		}
		cont = data.Continue.PLContinue
		if cont == "" {
			break
		}
	}
	if len(out) > f.linkLimit {
		out = out[:f.linkLimit]
	}
	return out, nil
}

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
			Links   []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
	} `json:"query"`
	Continue struct {
		PLContinue string `json:"plcontinue"`
	} `json:"continue"`
}

func (f *WikiFetcher) apiGet(ctx context.Context, params url.Values) (*wikiResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wiki api: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data wikiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode wiki response: %w", err)
	}
	return &data, nil
}

func matchesKeywords(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range wikiKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
