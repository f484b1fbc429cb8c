// Package service orchestrates the ingestion pipeline: load documents,
// translate non-English chunks, embed, build the index, persist the
// snapshot. The pipeline is single-threaded by design; translation is the
// only stage with an external serialization requirement and its rate
// limiter lives inside the translator.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chronicle-rag/internal/chunker"
	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/embedding"
	"chronicle-rag/internal/loader"
	"chronicle-rag/internal/logging"
	"chronicle-rag/internal/vectorstore"
)

// Translator renders text into English, returning "" when translation is
// unavailable. *translate.Translator is the production implementation.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang string) string
}

// Options tune a single ingestion run.
type Options struct {
	// SkipTranslation leaves non-English chunks untranslated.
	SkipTranslation bool
	// MaxTranslate caps how many chunks are translated; 0 means all.
	// Free-tier daily quotas make a small cap the practical default.
	MaxTranslate int
}

// Ingestor builds a corpus snapshot from a directory of document files.
type Ingestor struct {
	loader     *loader.Loader
	chunker    *chunker.WindowChunker
	translator Translator
	embedder   embedding.Embedder
	log        *zap.SugaredLogger
}

// NewIngestor assembles the pipeline. translator may be nil when
// translation is disabled entirely.
func NewIngestor(c *chunker.WindowChunker, translator Translator, embedder embedding.Embedder) *Ingestor {
	return &Ingestor{
		loader:     loader.New(c),
		chunker:    c,
		translator: translator,
		embedder:   embedder,
		log:        logging.L(),
	}
}

// Run ingests every .txt file under dataDir and writes the snapshot to
// indexDir, replacing whatever was there. A translation failure leaves the
// chunk untranslated; it never aborts the run.
func (in *Ingestor) Run(ctx context.Context, dataDir, indexDir string, opts Options) (*vectorstore.Snapshot, error) {
	runID := uuid.NewString()
	log := in.log.With("run_id", runID)

	chunks, err := in.loader.LoadDir(dataDir)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no documents under %s: %w", dataDir, domain.ErrNotFound)
	}
	log.Infow("documents loaded", "chunks", len(chunks), "languages", countLanguages(chunks))

	if !opts.SkipTranslation && in.translator != nil {
		in.translateChunks(ctx, chunks, opts.MaxTranslate, log)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	log.Infow("embedding chunks", "count", len(texts), "model", in.embedder.Model())
	vectors, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	index, err := vectorstore.NewFlatIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := index.Add(vectors); err != nil {
		return nil, err
	}

	snap := &vectorstore.Snapshot{
		Index:  index,
		Chunks: chunks,
		Config: vectorstore.SnapshotConfig{
			ChunkSize:      in.chunker.ChunkSize(),
			Overlap:        in.chunker.Overlap(),
			EmbeddingModel: in.embedder.Model(),
			EmbeddingDim:   index.Dimension(),
			TotalChunks:    len(chunks),
		},
	}
	if err := vectorstore.Save(indexDir, snap); err != nil {
		return nil, err
	}
	log.Infow("snapshot written", "dir", indexDir, "vectors", index.Size())
	return snap, nil
}

// translateChunks translates non-English chunks in place, stopping at the
// cap. Chunks whose translation comes back empty keep their original text.
func (in *Ingestor) translateChunks(ctx context.Context, chunks []domain.Chunk, maxTranslate int, log *zap.SugaredLogger) {
	var candidates []int
	for i := range chunks {
		if chunks[i].Language != "en" {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		log.Infow("no non-english chunks to translate")
		return
	}
	if maxTranslate > 0 && maxTranslate < len(candidates) {
		log.Infow("translation capped", "cap", maxTranslate, "non_english", len(candidates))
		candidates = candidates[:maxTranslate]
	}

	translated := 0
	for _, i := range candidates {
		if ctx.Err() != nil {
			log.Warnw("translation interrupted", "done", translated, "error", ctx.Err())
			return
		}
		out := in.translator.Translate(ctx, chunks[i].Text, chunks[i].Language)
		if out == "" {
			continue
		}
		chunks[i].ApplyTranslation(out)
		translated++
	}
	log.Infow("translation complete", "translated", translated, "attempted", len(candidates))
}

func countLanguages(chunks []domain.Chunk) map[string]int {
	counts := map[string]int{}
	for i := range chunks {
		counts[chunks[i].Language]++
	}
	return counts
}
