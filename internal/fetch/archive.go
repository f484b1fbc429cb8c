package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/logging"
)

// ArchiveManuscript identifies one curated Archive.org item.
type ArchiveManuscript struct {
	Identifier  string
	Language    string
	Description string
}

// CrusadeManuscripts is the curated multilingual corpus: the Recueil des
// historiens des croisades series and related items.
var CrusadeManuscripts = []ArchiveManuscript{
	{"RecueilDesHistoriensDesCroisadesOcc4", "la", "Latin chronicles including William of Tyre"},
	{"RecueilDesHistoriensDesCroisadesOccidentaux12", "la", "Latin chronicles Vol 1-2"},
	{"RecueilDesHistoriensDesCroisadesOccidentaux2", "la", "Latin chronicles Vol 2"},
	{"RecueilDesHistoriensDesCroisadesOccidentaux11", "la", "Latin chronicles Vol 1 part 1"},
	{"RecueilDesHistoriensDesCroisadesOccidentaux3", "la", "Latin chronicles Vol 3"},
	{"recueildeshistor01acad", "ar", "Arabic chronicles Vol 1 - Ibn al-Athir and others"},
	{"recueildeshistor02acad", "ar", "Arabic chronicles Vol 2"},
	{"recueildeshistor03acad", "ar", "Arabic chronicles Vol 3"},
	{"recueildeshistor04acad_0", "ar", "Arabic chronicles Vol 4"},
	{"recueildeshistor05acad_0", "ar", "Arabic chronicles Vol 5"},
	{"ldpd_10824499_002", "el", "Byzantine Greek chronicles"},
	{"RecueilDesHistoriensDesCroisadesGrecs1", "el", "Greek historians Vol 1 - Anna Comnena and others"},
	{"RecueilDesHistoriensDesCroisadesDocumentsArmeniensTomePremier", "hy", "Armenian documents Vol 1"},
	{"RecueilDesHistoriensDesCroisadesDocumentsArmeniensTomeSecond", "hy", "Armenian documents Vol 2"},
	{"AssisesDeJerusalemBeugnotVol1", "fr", "Laws of the Kingdom of Jerusalem Vol 1 (Old French)"},
	{"AssisesDeJerusalemBeugnotVol2", "fr", "Laws of the Kingdom of Jerusalem Vol 2 (Old French)"},
	{"hetum", "fr", "Hayton - La Flor des estoires de la terre d'Orient"},
}

// ArchiveConfig tunes the Archive.org fetcher.
type ArchiveConfig struct {
	// BaseURL overrides https://archive.org, mainly for tests.
	BaseURL string
	Timeout time.Duration
	// Delay is the minimum pause between requests.
	Delay time.Duration
}

// ArchiveFetcher downloads OCR text files from Archive.org items.
type ArchiveFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewArchiveFetcher builds a fetcher with sane defaults for unset fields.
func NewArchiveFetcher(cfg ArchiveConfig) *ArchiveFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://archive.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	return &ArchiveFetcher{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		log:     logging.L(),
	}
}

type archiveMetadata struct {
	Files []struct {
		Name string `json:"name"`
	} `json:"files"`
	Metadata struct {
		Title flexString `json:"title"`
	} `json:"metadata"`
}

// flexString tolerates Archive.org metadata fields that are sometimes a
// string and sometimes a list of strings.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = flexString(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	if len(many) > 0 {
		*s = flexString(many[0])
	}
	return nil
}

// FetchAll downloads every curated manuscript into outDir, skipping items
// that fail. It returns the saved paths.
func (f *ArchiveFetcher) FetchAll(ctx context.Context, outDir string) ([]string, error) {
	var saved []string
	for i, m := range CrusadeManuscripts {
		f.log.Infow("fetching manuscript",
			"progress", fmt.Sprintf("%d/%d", i+1, len(CrusadeManuscripts)),
			"identifier", m.Identifier, "language", m.Language)
		path, err := f.Fetch(ctx, m, outDir)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			f.log.Warnw("manuscript skipped", "identifier", m.Identifier, "error", err)
			continue
		}
		saved = append(saved, path)
	}
	f.log.Infow("archive fetch complete", "saved", len(saved), "total", len(CrusadeManuscripts))
	return saved, nil
}

// Fetch downloads one manuscript's first .txt file and saves it with a
// metadata header.
func (f *ArchiveFetcher) Fetch(ctx context.Context, m ArchiveManuscript, outDir string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	meta, err := f.metadata(ctx, m.Identifier)
	if err != nil {
		return "", err
	}

	var txtName string
	for _, file := range meta.Files {
		if len(file.Name) > 4 && file.Name[len(file.Name)-4:] == ".txt" {
			txtName = file.Name
			break
		}
	}
	if txtName == "" {
		return "", fmt.Errorf("no text file in item %s", m.Identifier)
	}

	text, err := f.download(ctx, m.Identifier, txtName)
	if err != nil {
		return "", err
	}
	if len(text) < minTextLen {
		return "", fmt.Errorf("text too short for %s: %d chars", m.Identifier, len(text))
	}

	title := string(meta.Metadata.Title)
	if title == "" {
		title = m.Identifier
	}
	header := []string{
		"Title: " + title,
		"Identifier: " + m.Identifier,
		"Language: " + m.Language,
		"Language_Name: " + domain.LanguageName(m.Language),
		"Source: archive.org",
		"URL: https://archive.org/details/" + m.Identifier,
		"Description: " + m.Description,
	}
	return writeDocument(outDir, m.Identifier, header, text)
}

func (f *ArchiveFetcher) metadata(ctx context.Context, identifier string) (*archiveMetadata, error) {
	body, err := f.get(ctx, f.baseURL+"/metadata/"+identifier)
	if err != nil {
		return nil, err
	}
	var meta archiveMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", identifier, err)
	}
	return &meta, nil
}

func (f *ArchiveFetcher) download(ctx context.Context, identifier, name string) (string, error) {
	body, err := f.get(ctx, f.baseURL+"/download/"+identifier+"/"+name)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *ArchiveFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
