package main

import (
	"github.com/spf13/cobra"

	"chronicle-rag/internal/config"
	"chronicle-rag/internal/logging"
)

var (
	cfgPath string
	appCfg  *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Multilingual retrieval over medieval chronicles",
	Long: `chronicle ingests historical documents in Latin, Arabic, Greek, French,
Armenian and English, translates them into English for embedding, and
answers questions against the resulting vector index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			appCfg, err = config.Load(cfgPath)
		} else {
			appCfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return err
		}
		logging.Init(appCfg.Log.Level, appCfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml")
}
