package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronicle-rag/internal/chunker"
	"chronicle-rag/internal/config"
	"chronicle-rag/internal/embedding/openai"
	"chronicle-rag/internal/logging"
	"chronicle-rag/internal/service"
	"chronicle-rag/internal/translate"
)

var (
	ingestDataDir   string
	ingestIndexDir  string
	ingestSkipTrans bool
	ingestMaxTrans  int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the document corpus",
	Long: `Loads every .txt document under the data directory, translates
non-English chunks to English, embeds them and writes the index snapshot.
Translation runs under the free-tier rate limit, so large corpora are slow;
use --max-translate to bound a run.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "document directory (default from config)")
	ingestCmd.Flags().StringVar(&ingestIndexDir, "index-dir", "", "index output directory (default from config)")
	ingestCmd.Flags().BoolVar(&ingestSkipTrans, "skip-translation", false, "embed non-English chunks untranslated")
	ingestCmd.Flags().IntVar(&ingestMaxTrans, "max-translate", 0, "cap on translated chunks, 0 = unlimited")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	dataDir := ingestDataDir
	if dataDir == "" {
		dataDir = appCfg.DataDir
	}
	indexDir := ingestIndexDir
	if indexDir == "" {
		indexDir = appCfg.IndexDir
	}

	ck, err := chunker.NewWindow(appCfg.Chunker.ChunkSize, appCfg.Chunker.Overlap)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(appCfg.Embedder)
	if err != nil {
		return err
	}

	var translator service.Translator
	if !ingestSkipTrans {
		translator, err = newTranslator(appCfg)
		if err != nil {
			return err
		}
		if translator == nil {
			logging.L().Warnw("no translation API key, ingesting untranslated",
				"env", appCfg.Translator.APIKeyEnv)
		}
	}

	ingestor := service.NewIngestor(ck, translator, embedder)
	snap, err := ingestor.Run(cmd.Context(), dataDir, indexDir, service.Options{
		SkipTranslation: ingestSkipTrans,
		MaxTranslate:    ingestMaxTrans,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks (dim %d, model %s) into %s\n",
		snap.Config.TotalChunks, snap.Config.EmbeddingDim, snap.Config.EmbeddingModel, indexDir)
	return nil
}

func newEmbedder(cfg config.EmbedderConfig) (*openai.Client, error) {
	return openai.NewClient(openai.Config{
		BaseURL:   cfg.BaseURL,
		APIKeyEnv: cfg.APIKeyEnv,
		Model:     cfg.Model,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		BatchSize: cfg.BatchSize,
	})
}

// newTranslator returns a nil translator without error when no API key is
// configured; ingestion then proceeds untranslated.
func newTranslator(cfg *config.AppConfig) (service.Translator, error) {
	key := os.Getenv(cfg.Translator.APIKeyEnv)
	if key == "" {
		return nil, nil
	}
	cache, err := translate.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	backend, err := translate.NewGeminiClient(translate.GeminiConfig{
		APIKey: key,
		Model:  cfg.Translator.Model,
	})
	if err != nil {
		return nil, err
	}
	return translate.New(cache, backend, translate.Config{
		RequestsPerMinute: cfg.Translator.RequestsPerMinute,
		MaxAttempts:       cfg.Translator.MaxRetries,
	}), nil
}
