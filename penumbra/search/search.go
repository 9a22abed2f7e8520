// Package search orchestrates a literature search end to end: query PubMed,
// normalize and filter the records, then run the requested enrichment steps
// over the matching papers.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"penumbra/penumbra/monitoring"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/pubmed"
)

var ErrPaperNotFound = errors.New("paper not found")

const DefaultMaxResults = 20

// Enrichment selects which optional per-paper steps run after filtering. The
// steps form a pipeline: a pdf needs a full text url, markdown needs a pdf.
// Steps whose precondition is missing are skipped with a log line, never
// failed.
type Enrichment struct {
	RetrieveCitations bool
	RetrieveFullText  bool
	DownloadPdf       bool
	ConvertToMarkdown bool
}

type Criteria struct {
	Query      string
	MaxResults int
	Filter     *papers.Filter

	Enrichment
}

// Result carries the matched papers plus both sides of the filter: how many
// records the query fetched and how many survived filtering.
type Result struct {
	Papers       []*papers.Paper
	TotalResults int
	Filtered     int
}

// RecordSource is the PubMed client surface the searcher needs.
type RecordSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	Fetch(ctx context.Context, pmids []string) ([]pubmed.Article, error)
	StreamArticles(ctx context.Context, pmids []string) <-chan pubmed.Batch
}

// CitationSource resolves citation counts, returning nil when unknown.
type CitationSource interface {
	CitationCount(ctx context.Context, paper *papers.Paper) *papers.Citation
}

// FullTextResolver finds a full text url, returning "" when none exists.
type FullTextResolver interface {
	Resolve(ctx context.Context, paper *papers.Paper) string
}

type PdfDownloader interface {
	Download(ctx context.Context, paper *papers.Paper, url string) (string, error)
}

type MarkdownConverter interface {
	Convert(paper *papers.Paper, pdfPath string) (string, error)
}

// Deps wires a Searcher. Source and Normalizer are mandatory; the enrichment
// collaborators may be nil, in which case the corresponding step is skipped
// even when requested.
type Deps struct {
	Source     RecordSource
	Normalizer *pubmed.Normalizer
	Citations  CitationSource
	FullText   FullTextResolver
	Pdf        PdfDownloader
	Markdown   MarkdownConverter
}

type Searcher struct {
	deps Deps
}

func NewSearcher(deps Deps) *Searcher {
	return &Searcher{deps: deps}
}

// Search runs the full pipeline for one query. Records that fail to
// normalize are logged and skipped; they still do not count as results.
func (s *Searcher) Search(ctx context.Context, criteria Criteria) (*Result, error) {
	maxResults := criteria.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	pmids, err := s.deps.Source.Search(ctx, criteria.Query, maxResults)
	if err != nil {
		monitoring.SearchesRun.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("error searching pubmed: %w", err)
	}

	result := &Result{}

	for batch := range s.deps.Source.StreamArticles(ctx, pmids) {
		if batch.Err != nil {
			slog.Error("error fetching article batch, skipping", "error", batch.Err)
			continue
		}

		for _, article := range batch.Articles {
			paper, err := s.deps.Normalizer.Normalize(article)
			if err != nil {
				slog.Error("skipping malformed record", "error", err)
				continue
			}

			result.TotalResults++

			if criteria.Filter != nil && !criteria.Filter.Matches(paper) {
				continue
			}

			result.Papers = append(result.Papers, paper)
		}
	}

	result.Filtered = len(result.Papers)

	for _, paper := range result.Papers {
		s.enrich(ctx, paper, criteria.Enrichment)
	}

	monitoring.SearchesRun.WithLabelValues("ok").Inc()

	slog.Info("search complete", "query", criteria.Query,
		"total_results", result.TotalResults, "filtered", result.Filtered)

	return result, nil
}

// GetByPmid fetches and normalizes a single paper.
func (s *Searcher) GetByPmid(ctx context.Context, pmid string, enrichment Enrichment) (*papers.Paper, error) {
	articles, err := s.deps.Source.Fetch(ctx, []string{pmid})
	if err != nil {
		return nil, fmt.Errorf("error fetching paper: %w", err)
	}
	if len(articles) == 0 {
		return nil, ErrPaperNotFound
	}

	paper, err := s.deps.Normalizer.Normalize(articles[0])
	if err != nil {
		return nil, fmt.Errorf("error normalizing paper: %w", err)
	}

	s.enrich(ctx, paper, enrichment)

	return paper, nil
}

// GetByDoi finds the PMID for a DOI through a field-restricted search, then
// fetches that paper.
func (s *Searcher) GetByDoi(ctx context.Context, doi string, enrichment Enrichment) (*papers.Paper, error) {
	pmids, err := s.deps.Source.Search(ctx, fmt.Sprintf("%q[DOI]", doi), 1)
	if err != nil {
		return nil, fmt.Errorf("error searching pubmed: %w", err)
	}
	if len(pmids) == 0 {
		return nil, ErrPaperNotFound
	}

	return s.GetByPmid(ctx, pmids[0], enrichment)
}

func (s *Searcher) enrich(ctx context.Context, paper *papers.Paper, enrichment Enrichment) {
	if enrichment.RetrieveCitations && s.deps.Citations != nil {
		paper.Citations = s.deps.Citations.CitationCount(ctx, paper)
	}

	if enrichment.RetrieveFullText && s.deps.FullText != nil {
		paper.FullTextURL = s.deps.FullText.Resolve(ctx, paper)
	}

	if enrichment.DownloadPdf && s.deps.Pdf != nil {
		if paper.FullTextURL == "" {
			slog.Info("skipping pdf download, no full text url", "paper", paper.FilenameBase())
		} else if path, err := s.deps.Pdf.Download(ctx, paper, paper.FullTextURL); err != nil {
			slog.Error("pdf download failed", "paper", paper.FilenameBase(), "error", err)
		} else {
			paper.PDFPath = path
		}
	}

	if enrichment.ConvertToMarkdown && s.deps.Markdown != nil {
		if paper.PDFPath == "" {
			slog.Info("skipping markdown conversion, no pdf", "paper", paper.FilenameBase())
		} else if path, err := s.deps.Markdown.Convert(paper, paper.PDFPath); err != nil {
			slog.Error("markdown conversion failed", "paper", paper.FilenameBase(), "error", err)
		} else {
			paper.MarkdownPath = path
		}
	}
}
