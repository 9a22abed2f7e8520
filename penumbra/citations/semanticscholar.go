package citations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"penumbra/penumbra/monitoring"
	"penumbra/penumbra/papers"
	"strconv"

	"github.com/go-resty/resty/v2"
)

const semanticScholarBaseUrl = "https://api.semanticscholar.org"

var ErrSemanticScholarFailed = errors.New("semantic scholar lookup failed")

// SemanticScholar resolves citation counts through the Semantic Scholar graph
// api using the paper's DOI. An api key is optional; without one the shared
// public rate limits apply.
type SemanticScholar struct {
	client *resty.Client
}

func NewSemanticScholar(apiKey string) *SemanticScholar {
	return newSemanticScholar(semanticScholarBaseUrl, apiKey)
}

func newSemanticScholar(baseUrl, apiKey string) *SemanticScholar {
	client := resty.New().
		SetBaseURL(baseUrl).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if err != nil {
				return true // The err can be non nil for some network errors.
			}
			// There's no reason to retry other 400 requests since the outcome should not change
			return response != nil && (response.StatusCode() > 499 || response.StatusCode() == http.StatusTooManyRequests)
		}).
		SetRetryCount(2).
		OnAfterResponse(func(client *resty.Client, response *resty.Response) error {
			monitoring.SemanticScholarCalls.WithLabelValues(strconv.Itoa(response.StatusCode())).Inc()
			return nil
		})

	if apiKey != "" {
		client.SetHeader("x-api-key", apiKey)
	}

	return &SemanticScholar{client: client}
}

func (s *SemanticScholar) Name() string {
	return "semantic_scholar"
}

func (s *SemanticScholar) CitationCount(ctx context.Context, paper *papers.Paper) (*papers.Citation, error) {
	if paper.DOI == "" {
		return nil, nil
	}

	type paperResult struct {
		CitationCount int `json:"citationCount"`
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetResult(&paperResult{}).
		SetQueryParam("fields", "citationCount").
		Get("/graph/v1/paper/DOI:" + paper.DOI)

	if err != nil {
		slog.Error("semantic scholar lookup failed", "doi", paper.DOI, "error", err)
		return nil, ErrSemanticScholarFailed
	}

	if res.StatusCode() == http.StatusNotFound {
		// Not every DOI is indexed; let the next provider try.
		return nil, nil
	}

	if !res.IsSuccess() {
		slog.Error("semantic scholar lookup returned error", "doi", paper.DOI, "status_code", res.StatusCode())
		return nil, ErrSemanticScholarFailed
	}

	result := res.Result().(*paperResult)

	return &papers.Citation{Count: result.CitationCount}, nil
}
