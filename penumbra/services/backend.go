package services

import (
	"net/http"
	"penumbra/penumbra/monitoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const Version = "0.1.0"

// ServiceInfo describes the service and its endpoints, served at the root.
func ServiceInfo(r *http.Request) (any, error) {
	return map[string]any{
		"message": "Welcome to the penumbra api",
		"version": Version,
		"pubmed_endpoints": map[string]string{
			"search":        "/api/v1/pubmed/search",
			"paper_by_pmid": "/api/v1/pubmed/paper/{pmid}",
			"paper_by_doi":  "/api/v1/pubmed/paper/doi/{doi}",
		},
	}, nil
}

type BackendService struct {
	pubmed PubmedService
}

func NewBackendService(searcher Searcher) *BackendService {
	return &BackendService{pubmed: NewPubmedService(searcher)}
}

func (s *BackendService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.HandlerMetrics)

	r.Mount("/pubmed", s.pubmed.Routes())

	return r
}
