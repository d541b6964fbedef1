// Package main provides the entry point for the Site Auditor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "seo_agent",
	Short: "AI-powered SEO analysis pipeline",
	Long:  "Site Auditor crawls a sitemap, ranks the discovered pages and runs an AI-backed SEO analysis: technical audit, competitor gaps, on-page content review, a prioritized action plan and an executive summary.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
