package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"chronicle-rag/internal/fetch"
)

var fetchOutDir string

var fetchCmd = &cobra.Command{
	Use:       "fetch [archive|gallica|wiki]",
	Short:     "Download source documents into the corpus directory",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"archive", "gallica", "wiki"},
	RunE:      runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOutDir, "out", "", "output directory (default <data_dir>/<source>)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	source := args[0]
	outDir := fetchOutDir
	if outDir == "" {
		outDir = filepath.Join(appCfg.DataDir, source)
	}
	ctx := cmd.Context()

	var (
		saved []string
		err   error
	)
	switch source {
	case "archive":
		saved, err = fetch.NewArchiveFetcher(fetch.ArchiveConfig{}).FetchAll(ctx, outDir)
	case "gallica":
		saved, err = fetch.NewGallicaFetcher(fetch.GallicaConfig{}).FetchAll(ctx, outDir)
	case "wiki":
		saved, err = fetch.NewWikiFetcher(fetch.WikiConfig{}).Crawl(ctx, fetch.DefaultWikiSeeds, outDir)
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d documents to %s\n", len(saved), outDir)
	return nil
}
