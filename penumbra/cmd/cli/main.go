// Package main is the penumbra command line interface: search PubMed, filter
// and enrich the results, and optionally download pdfs from a terminal.
package main

import (
	"log"
	"log/slog"
	"os"
	"penumbra/penumbra/cmd"
	"penumbra/penumbra/search"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "penumbra",
	Short: "Search and retrieve biomedical literature from PubMed",
	Long: `penumbra searches PubMed, normalizes the results into a uniform record
shape, filters them by publication date, journal tier, study type, citations,
keywords, MeSH terms, and authors, and can enrich matching papers with
citation counts, full text urls, downloaded pdfs, and markdown conversions.

The NCBI contact email is required, either via --email or the PUBMED_EMAIL
environment variable.`,
	SilenceUsage: true,
	PersistentPreRun: func(c *cobra.Command, args []string) {
		if envFile, _ := c.Flags().GetString("env"); envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				log.Fatalf("error loading .env file '%s': %v", envFile, err)
			}
		}

		// Flags override the environment by writing through it before the
		// config is parsed.
		overrides := map[string]string{
			"email":        "PUBMED_EMAIL",
			"api-key":      "PUBMED_API_KEY",
			"pdf-dir":      "PUBMED_PDF_DIR",
			"markdown-dir": "PUBMED_MARKDOWN_DIR",
		}
		for flagName, envName := range overrides {
			if value, _ := c.Flags().GetString(flagName); value != "" {
				os.Setenv(envName, value)
			}
		}

		if debug, _ := c.Flags().GetBool("debug"); debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

// buildSearcher parses config from the environment (after flag overrides) and
// wires the pipeline. Exits on missing or invalid config.
func buildSearcher() (*search.Searcher, func()) {
	var config cmd.Config
	if err := env.Parse(&config); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	return cmd.BuildSearcher(config)
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "path to load env from")
	rootCmd.PersistentFlags().String("email", "", "email for the NCBI E-utilities api (or PUBMED_EMAIL)")
	rootCmd.PersistentFlags().String("api-key", "", "NCBI api key for higher rate limits (or PUBMED_API_KEY)")
	rootCmd.PersistentFlags().String("pdf-dir", "", "directory to store pdf files")
	rootCmd.PersistentFlags().String("markdown-dir", "", "directory to store markdown files")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
