package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"chronicle-rag/internal/retriever"
	"chronicle-rag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search over the indexed corpus",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	embedder, err := newEmbedder(appCfg.Embedder)
	if err != nil {
		return err
	}
	r, err := retriever.New(appCfg.IndexDir, embedder)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("%d chunks | %s", r.Size(), r.Config().EmbeddingModel)
	model := tui.New(r, summary, appCfg.Retriever.TopK)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
