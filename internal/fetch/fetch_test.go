package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longBody = strings.Repeat("Rex et ecclesia in anno illo. ", 60)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteDocument(t *testing.T) {
	dir := t.TempDir()
	path, err := writeDocument(dir, "ark:/12148/bpt6k1", []string{"Title: T", "Language: la"}, "body text")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ark___12148_bpt6k1.txt"), path)
	content := readFile(t, path)
	assert.True(t, strings.HasPrefix(content, "Title: T\nLanguage: la\n\n---\n\nbody text"))
}

func TestArchiveFetcher_Fetch(t *testing.T) {
	var metaCalls, downloadCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/metadata/"):
			metaCalls++
			w.Write([]byte(`{
				"files": [{"name": "scan.pdf"}, {"name": "item_djvu.txt"}],
				"metadata": {"title": ["Recueil Tome 1", "alternate"]}
			}`))
		case r.URL.Path == "/download/RecueilTest/item_djvu.txt":
			downloadCalls++
			w.Write([]byte(longBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewArchiveFetcher(ArchiveConfig{BaseURL: srv.URL, Delay: time.Microsecond})
	outDir := t.TempDir()
	path, err := f.Fetch(context.Background(), ArchiveManuscript{
		Identifier: "RecueilTest", Language: "la", Description: "Latin chronicles",
	}, outDir)
	require.NoError(t, err)
	assert.Equal(t, 1, metaCalls)
	assert.Equal(t, 1, downloadCalls)

	content := readFile(t, path)
	assert.Contains(t, content, "Title: Recueil Tome 1")
	assert.Contains(t, content, "Language: la")
	assert.Contains(t, content, "Language_Name: Latin")
	assert.Contains(t, content, "Source: archive.org")
	assert.Contains(t, content, "\n---\n")
	assert.Contains(t, content, "Rex et ecclesia")
}

func TestArchiveFetcher_Rejections(t *testing.T) {
	t.Run("no text file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"files": [{"name": "scan.pdf"}], "metadata": {"title": "X"}}`))
		}))
		defer srv.Close()

		f := NewArchiveFetcher(ArchiveConfig{BaseURL: srv.URL, Delay: time.Microsecond})
		_, err := f.Fetch(context.Background(), ArchiveManuscript{Identifier: "x"}, t.TempDir())
		require.ErrorContains(t, err, "no text file")
	})

	t.Run("text too short", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/metadata/") {
				w.Write([]byte(`{"files": [{"name": "a.txt"}], "metadata": {"title": "X"}}`))
				return
			}
			w.Write([]byte("stub"))
		}))
		defer srv.Close()

		f := NewArchiveFetcher(ArchiveConfig{BaseURL: srv.URL, Delay: time.Microsecond})
		_, err := f.Fetch(context.Background(), ArchiveManuscript{Identifier: "x"}, t.TempDir())
		require.ErrorContains(t, err, "too short")
	})
}

func newGallicaTestFetcher(url string) *GallicaFetcher {
	return NewGallicaFetcher(GallicaConfig{
		BaseURL:       url,
		Delay:         time.Microsecond,
		BackoffBase:   time.Microsecond,
		BackoffOffset: time.Microsecond,
	})
}

func TestGallicaFetcher_FetchText(t *testing.T) {
	t.Run("extracts pre block and entities", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ark:/12148/bpt6k1/texteBrut", r.URL.Path)
			w.Write([]byte("<html><body><PRE class=\"ocr\">rex &amp; deus</PRE></body></html>"))
		}))
		defer srv.Close()

		text, err := newGallicaTestFetcher(srv.URL).FetchText(context.Background(), "bpt6k1")
		require.NoError(t, err)
		assert.Equal(t, "rex & deus", text)
	})

	t.Run("plain text passes through", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("  plain ocr text  "))
		}))
		defer srv.Close()

		text, err := newGallicaTestFetcher(srv.URL).FetchText(context.Background(), "bpt6k1")
		require.NoError(t, err)
		assert.Equal(t, "plain ocr text", text)
	})

	t.Run("retries through 429", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte("eventual text"))
		}))
		defer srv.Close()

		text, err := newGallicaTestFetcher(srv.URL).FetchText(context.Background(), "bpt6k1")
		require.NoError(t, err)
		assert.Equal(t, "eventual text", text)
		assert.Equal(t, 3, calls)
	})

	t.Run("hard failure is not retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newGallicaTestFetcher(srv.URL).FetchText(context.Background(), "bpt6k1")
		require.ErrorContains(t, err, "status 404")
		assert.Equal(t, 1, calls)
	})
}

func TestGallicaFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<pre>" + longBody + "</pre>"))
	}))
	defer srv.Close()

	f := newGallicaTestFetcher(srv.URL)
	path, err := f.Fetch(context.Background(), GallicaManuscript{
		ARK: "bpt6k5765755c", Title: "Historia Hierosolymitana",
		Author: "Fulcher of Chartres", Language: "la",
	}, t.TempDir())
	require.NoError(t, err)

	content := readFile(t, path)
	assert.Contains(t, content, "Title: Historia Hierosolymitana")
	assert.Contains(t, content, "Author: Fulcher of Chartres")
	assert.Contains(t, content, "Source: gallica")
	assert.Contains(t, content, "ARK: bpt6k5765755c")
	assert.True(t, strings.HasSuffix(path, "bpt6k5765755c.txt"))
}

func TestWikiFetcher_Crawl(t *testing.T) {
	extracts := map[string]string{
		"Battle of Hattin":  "The battle took place in 1187.",
		"Siege of Acre":     "The siege lasted two years.",
		"Unrelated Article": "Nothing to see.",
	}
	links := map[string][]string{
		"Battle of Hattin": {"Siege of Acre", "Unrelated Article", "Crusader states"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		title := q.Get("titles")
		if q.Get("prop") == "extracts" {
			w.Write([]byte(`{"query":{"pages":{"1":{"extract":` + jsonString(extracts[title]) + `}}}}`))
			return
		}
		var items []string
		for _, l := range links[title] {
			items = append(items, `{"title":`+jsonString(l)+`}`)
		}
		w.Write([]byte(`{"query":{"pages":{"1":{"links":[` + strings.Join(items, ",") + `]}}}}`))
	}))
	defer srv.Close()

	f := NewWikiFetcher(WikiConfig{BaseURL: srv.URL, Delay: time.Microsecond, MaxPages: 10})
	outDir := t.TempDir()
	saved, err := f.Crawl(context.Background(), []string{"Battle of Hattin"}, outDir)
	require.NoError(t, err)

	// the seed plus the two keyword-matching links with non-empty extracts
	require.Len(t, saved, 2)
	assert.Contains(t, saved[0], "Battle_of_Hattin.txt")
	assert.Contains(t, saved[1], "Siege_of_Acre.txt")

	content := readFile(t, saved[0])
	assert.Contains(t, content, "Title: Battle of Hattin")
	assert.Contains(t, content, "Source: wiki")
	assert.Contains(t, content, "took place in 1187")
}

func TestWikiFetcher_LinksPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("plcontinue") == "" {
			w.Write([]byte(`{"query":{"pages":{"1":{"links":[{"title":"First Crusade"}]}}},"continue":{"plcontinue":"next"}}`))
			return
		}
		w.Write([]byte(`{"query":{"pages":{"1":{"links":[{"title":"Second Crusade"}]}}}}`))
	}))
	defer srv.Close()

	f := NewWikiFetcher(WikiConfig{BaseURL: srv.URL, Delay: time.Microsecond})
	got, err := f.Links(context.Background(), "Crusades")
	require.NoError(t, err)
	assert.Equal(t, []string{"First Crusade", "Second Crusade"}, got)
	assert.Equal(t, 2, calls)
}

func TestMatchesKeywords(t *testing.T) {
	assert.True(t, matchesKeywords("Battle of Hattin"))
	assert.True(t, matchesKeywords("Knights Templar"))
	assert.False(t, matchesKeywords("Industrial Revolution"))
}

func jsonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
