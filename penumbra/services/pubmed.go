package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"penumbra/penumbra/api"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/search"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Searcher is the slice of the search orchestrator the REST layer uses.
type Searcher interface {
	Search(ctx context.Context, criteria search.Criteria) (*search.Result, error)
	GetByPmid(ctx context.Context, pmid string, enrichment search.Enrichment) (*papers.Paper, error)
	GetByDoi(ctx context.Context, doi string, enrichment search.Enrichment) (*papers.Paper, error)
}

type PubmedService struct {
	searcher Searcher
}

func NewPubmedService(searcher Searcher) PubmedService {
	return PubmedService{searcher: searcher}
}

func (s *PubmedService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/search", WrapRestHandler(s.Search))
	r.Get("/paper/{pmid}", WrapRestHandler(s.GetPaper))
	r.Get("/paper/doi/*", WrapRestHandler(s.GetPaperByDoi))

	return r
}

func parseDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, CodedError(fmt.Errorf("invalid %s '%s', expected YYYY-MM-DD", field, value), http.StatusBadRequest)
	}
	return &t, nil
}

// buildCriteria validates a search request and converts it into orchestrator
// criteria. Invalid dates, tiers, and study types are client errors.
func buildCriteria(req api.SearchRequest) (search.Criteria, error) {
	if req.Query == "" {
		return search.Criteria{}, CodedError(errors.New("missing query"), http.StatusBadRequest)
	}

	minDate, err := parseDate(req.MinPublicationDate, "min_publication_date")
	if err != nil {
		return search.Criteria{}, err
	}
	maxDate, err := parseDate(req.MaxPublicationDate, "max_publication_date")
	if err != nil {
		return search.Criteria{}, err
	}

	tiers := make([]papers.JournalTier, 0, len(req.JournalTiers))
	for _, t := range req.JournalTiers {
		tier, err := papers.ParseJournalTier(t)
		if err != nil {
			return search.Criteria{}, CodedError(err, http.StatusBadRequest)
		}
		tiers = append(tiers, tier)
	}

	studyTypes := make([]papers.StudyType, 0, len(req.StudyTypes))
	for _, st := range req.StudyTypes {
		studyType, err := papers.ParseStudyType(st)
		if err != nil {
			return search.Criteria{}, CodedError(err, http.StatusBadRequest)
		}
		studyTypes = append(studyTypes, studyType)
	}

	filter := papers.NewFilter(papers.FilterOptions{
		MinPublicationDate: minDate,
		MaxPublicationDate: maxDate,
		JournalTiers:       tiers,
		StudyTypes:         studyTypes,
		MinCitations:       req.MinCitations,
		RequiredKeywords:   req.RequiredKeywords,
		RequiredMeshTerms:  req.RequiredMeshTerms,
		AuthorNames:        req.AuthorNames,
	})

	return search.Criteria{
		Query:      req.Query,
		MaxResults: req.MaxResults,
		Filter:     filter,
		Enrichment: search.Enrichment{
			RetrieveCitations: req.RetrieveCitations,
			RetrieveFullText:  req.RetrieveFullText || req.DownloadPdf,
			DownloadPdf:       req.DownloadPdf,
			ConvertToMarkdown: req.ConvertToMarkdown,
		},
	}, nil
}

func (s *PubmedService) Search(r *http.Request) (any, error) {
	req, err := ParseRequestBody[api.SearchRequest](r)
	if err != nil {
		return nil, err
	}

	criteria, err := buildCriteria(req)
	if err != nil {
		return nil, err
	}

	slog.Info("searching pubmed", "query", req.Query, "max_results", req.MaxResults)

	result, err := s.searcher.Search(r.Context(), criteria)
	if err != nil {
		return nil, CodedError(err, http.StatusInternalServerError)
	}

	response := api.SearchResponse{
		Query:           req.Query,
		TotalResults:    result.TotalResults,
		FilteredResults: result.Filtered,
		Papers:          make([]api.Paper, 0, len(result.Papers)),
	}
	for _, paper := range result.Papers {
		response.Papers = append(response.Papers, api.NewPaper(paper))
	}

	return response, nil
}

func queryFlag(r *http.Request, name string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && value
}

// enrichmentFromQuery reads the enrichment toggles off the query string of a
// single-paper lookup.
func enrichmentFromQuery(r *http.Request) search.Enrichment {
	downloadPdf := queryFlag(r, "download_pdf")

	return search.Enrichment{
		RetrieveCitations: queryFlag(r, "retrieve_citations"),
		RetrieveFullText:  queryFlag(r, "retrieve_full_text") || downloadPdf,
		DownloadPdf:       downloadPdf,
		ConvertToMarkdown: queryFlag(r, "convert_to_markdown"),
	}
}

func (s *PubmedService) GetPaper(r *http.Request) (any, error) {
	pmid := chi.URLParam(r, "pmid")

	paper, err := s.searcher.GetByPmid(r.Context(), pmid, enrichmentFromQuery(r))
	if err != nil {
		if errors.Is(err, search.ErrPaperNotFound) {
			return nil, CodedError(err, http.StatusNotFound)
		}
		return nil, CodedError(err, http.StatusInternalServerError)
	}

	return api.NewPaper(paper), nil
}

// GetPaperByDoi uses a wildcard route because DOIs contain slashes.
func (s *PubmedService) GetPaperByDoi(r *http.Request) (any, error) {
	doi := chi.URLParam(r, "*")
	if doi == "" {
		return nil, CodedError(errors.New("missing doi"), http.StatusBadRequest)
	}

	paper, err := s.searcher.GetByDoi(r.Context(), doi, enrichmentFromQuery(r))
	if err != nil {
		if errors.Is(err, search.ErrPaperNotFound) {
			return nil, CodedError(err, http.StatusNotFound)
		}
		return nil, CodedError(err, http.StatusInternalServerError)
	}

	return api.NewPaper(paper), nil
}
