package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chronicle-rag/internal/retriever"
)

var (
	queryTopK      int
	queryLanguages []string
	queryJSON      bool
	queryOriginal  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve the chunks most relevant to a question",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().StringSliceVarP(&queryLanguages, "languages", "l", nil, "restrict to source languages, e.g. la,fr")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output source summaries as JSON")
	queryCmd.Flags().BoolVar(&queryOriginal, "show-original", false, "include original text of translated chunks")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	embedder, err := newEmbedder(appCfg.Embedder)
	if err != nil {
		return err
	}
	r, err := retriever.New(appCfg.IndexDir, embedder)
	if err != nil {
		return err
	}

	topK := queryTopK
	if topK <= 0 {
		topK = appCfg.Retriever.TopK
	}
	results, err := r.Retrieve(cmd.Context(), args[0], topK, queryLanguages)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}

	if queryJSON {
		data, err := json.MarshalIndent(retriever.Sources(results), "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), retriever.FormatContext(results, retriever.FormatOptions{
		IncludeOriginal: queryOriginal,
	}))
	return nil
}
