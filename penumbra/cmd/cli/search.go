package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"penumbra/penumbra/api"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/search"
	"time"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search PubMed and print matching papers",
	Args:  cobra.ExactArgs(1),
	Run: func(c *cobra.Command, args []string) {
		criteria := search.Criteria{
			Query:      args[0],
			MaxResults: flagInt(c, "max-results"),
			Filter:     filterFromFlags(c),
			Enrichment: enrichmentFromFlags(c),
		}

		searcher, closeSearcher := buildSearcher()
		defer closeSearcher()

		result, err := searcher.Search(context.Background(), criteria)
		if err != nil {
			log.Fatalf("search failed: %v", err)
		}

		fmt.Printf("Found %d matching papers (%d before filtering)\n",
			result.Filtered, result.TotalResults)

		for i, paper := range result.Papers {
			printPaper(i+1, paper)
		}

		if output, _ := c.Flags().GetString("output-json"); output != "" {
			writeJsonResults(output, result.Papers)
		}
	},
}

func flagInt(c *cobra.Command, name string) int {
	value, _ := c.Flags().GetInt(name)
	return value
}

func flagStrings(c *cobra.Command, name string) []string {
	values, _ := c.Flags().GetStringSlice(name)
	return values
}

func parseDateFlag(c *cobra.Command, name string) *time.Time {
	value, _ := c.Flags().GetString(name)
	if value == "" {
		return nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		log.Fatalf("invalid --%s '%s', expected YYYY-MM-DD", name, value)
	}
	return &t
}

// filterFromFlags builds the filter, or nil when no filter flag was given.
func filterFromFlags(c *cobra.Command) *papers.Filter {
	opts := papers.FilterOptions{
		MinPublicationDate: parseDateFlag(c, "min-date"),
		MaxPublicationDate: parseDateFlag(c, "max-date"),
		RequiredKeywords:   flagStrings(c, "keywords"),
		RequiredMeshTerms:  flagStrings(c, "mesh-terms"),
		AuthorNames:        flagStrings(c, "authors"),
	}

	for _, value := range flagStrings(c, "journal-tiers") {
		tier, err := papers.ParseJournalTier(value)
		if err != nil {
			log.Fatalf("invalid --journal-tiers value: %v", err)
		}
		opts.JournalTiers = append(opts.JournalTiers, tier)
	}

	for _, value := range flagStrings(c, "study-types") {
		studyType, err := papers.ParseStudyType(value)
		if err != nil {
			log.Fatalf("invalid --study-types value: %v", err)
		}
		opts.StudyTypes = append(opts.StudyTypes, studyType)
	}

	if c.Flags().Changed("min-citations") {
		minCitations := flagInt(c, "min-citations")
		opts.MinCitations = &minCitations
	}

	empty := opts.MinPublicationDate == nil && opts.MaxPublicationDate == nil &&
		len(opts.JournalTiers) == 0 && len(opts.StudyTypes) == 0 &&
		opts.MinCitations == nil && len(opts.RequiredKeywords) == 0 &&
		len(opts.RequiredMeshTerms) == 0 && len(opts.AuthorNames) == 0
	if empty {
		return nil
	}

	return papers.NewFilter(opts)
}

func enrichmentFromFlags(c *cobra.Command) search.Enrichment {
	flagBool := func(name string) bool {
		value, _ := c.Flags().GetBool(name)
		return value
	}

	downloadPdf := flagBool("download-pdf")

	return search.Enrichment{
		RetrieveCitations: flagBool("retrieve-citations"),
		RetrieveFullText:  flagBool("retrieve-full-text") || downloadPdf,
		DownloadPdf:       downloadPdf,
		ConvertToMarkdown: flagBool("convert-to-markdown"),
	}
}

func writeJsonResults(path string, results []*papers.Paper) {
	output := make([]api.Paper, 0, len(results))
	for _, paper := range results {
		output = append(output, api.NewPaper(paper))
	}

	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("error creating output file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		log.Fatalf("error writing results: %v", err)
	}

	fmt.Printf("Saved results to %s\n", path)
}

func init() {
	searchCmd.Flags().Int("max-results", 20, "maximum number of results to return")
	searchCmd.Flags().StringSlice("study-types", nil, "filter by study types")
	searchCmd.Flags().StringSlice("journal-tiers", nil, "filter by journal tiers")
	searchCmd.Flags().Int("min-citations", 0, "minimum number of citations")
	searchCmd.Flags().String("min-date", "", "minimum publication date (YYYY-MM-DD)")
	searchCmd.Flags().String("max-date", "", "maximum publication date (YYYY-MM-DD)")
	searchCmd.Flags().StringSlice("keywords", nil, "required keywords")
	searchCmd.Flags().StringSlice("mesh-terms", nil, "required MeSH terms")
	searchCmd.Flags().StringSlice("authors", nil, "filter by author last names")
	searchCmd.Flags().Bool("retrieve-citations", false, "retrieve citation counts for papers")
	searchCmd.Flags().Bool("retrieve-full-text", false, "try to retrieve full text urls for papers")
	searchCmd.Flags().Bool("download-pdf", false, "download pdfs for matching papers (implies --retrieve-full-text)")
	searchCmd.Flags().Bool("convert-to-markdown", false, "convert downloaded pdfs to markdown")
	searchCmd.Flags().String("output-json", "", "save results to a JSON file")

	rootCmd.AddCommand(searchCmd)
}
