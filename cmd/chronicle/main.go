package main

import (
	"os"

	"github.com/joho/godotenv"

	"chronicle-rag/internal/logging"
)

func main() {
	// .env holds GEMINI_API_KEY and the embedding API key during development
	_ = godotenv.Load()

	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
