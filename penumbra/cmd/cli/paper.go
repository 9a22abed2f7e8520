package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/search"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var paperCmd = &cobra.Command{
	Use:   "paper <pmid>",
	Short: "Look up a single paper by PMID or DOI",
	Long: `Look up a single paper. With a positional argument the lookup is by PMID;
with --doi the argument is omitted and the lookup goes through a DOI search.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		doi, _ := c.Flags().GetString("doi")
		if (len(args) == 0) == (doi == "") {
			log.Fatal("provide either a PMID argument or --doi, not both")
		}

		enrichment := enrichmentFromFlags(c)

		searcher, closeSearcher := buildSearcher()
		defer closeSearcher()

		var paper *papers.Paper
		var err error
		if doi != "" {
			paper, err = searcher.GetByDoi(context.Background(), doi, enrichment)
		} else {
			paper, err = searcher.GetByPmid(context.Background(), args[0], enrichment)
		}

		if errors.Is(err, search.ErrPaperNotFound) {
			log.Fatal("paper not found")
		}
		if err != nil {
			log.Fatalf("lookup failed: %v", err)
		}

		printPaper(1, paper)
	},
}

func printPaper(index int, paper *papers.Paper) {
	fmt.Printf("\n[%d] %s\n", index, paper.Title)

	if len(paper.Authors) > 0 {
		names := make([]string, 0, min(len(paper.Authors), 3))
		for _, author := range paper.Authors[:min(len(paper.Authors), 3)] {
			names = append(names, author.LastName)
		}
		fmt.Printf("    Authors: %s\n", strings.Join(names, ", "))
		if len(paper.Authors) > 3 {
			fmt.Printf("    ... and %d more authors\n", len(paper.Authors)-3)
		}
	}

	if paper.Journal != nil {
		fmt.Printf("    Journal: %s (Tier: %s)\n", paper.Journal.Name, paper.Journal.Tier)
	}

	if paper.PublicationDate != nil {
		fmt.Printf("    Published: %s\n", paper.PublicationDate.Format(time.DateOnly))
	}

	fmt.Printf("    Study Type: %s\n", paper.StudyType)

	if paper.Citations != nil {
		fmt.Printf("    Citations: %d\n", paper.Citations.Count)
	}

	if paper.DOI != "" {
		fmt.Printf("    DOI: %s\n", paper.DOI)
	}

	if paper.PMID != "" {
		fmt.Printf("    PMID: %s\n", paper.PMID)
	}

	if paper.FullTextURL != "" {
		fmt.Printf("    Full Text: %s\n", paper.FullTextURL)
	}

	if paper.PDFPath != "" {
		fmt.Printf("    PDF: %s\n", paper.PDFPath)
	}

	if paper.MarkdownPath != "" {
		fmt.Printf("    Markdown: %s\n", paper.MarkdownPath)
	}
}

func init() {
	paperCmd.Flags().String("doi", "", "look up by DOI instead of PMID")
	paperCmd.Flags().Bool("retrieve-citations", false, "retrieve citation counts")
	paperCmd.Flags().Bool("retrieve-full-text", false, "try to retrieve the full text url")
	paperCmd.Flags().Bool("download-pdf", false, "download the pdf (implies --retrieve-full-text)")
	paperCmd.Flags().Bool("convert-to-markdown", false, "convert the downloaded pdf to markdown")

	rootCmd.AddCommand(paperCmd)
}
