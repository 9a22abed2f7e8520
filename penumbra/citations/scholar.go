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

const serpapiBaseUrl = "https://serpapi.com"

var ErrGoogleScholarSearchFailed = errors.New("google scholar search failed")

// GoogleScholar resolves citation counts by searching google scholar (via
// serpapi) for the paper's title and reading the cited-by total of the first
// organic result. It is a fallback for papers without a DOI, at the cost of a
// title match that can occasionally hit the wrong paper.
type GoogleScholar struct {
	client *resty.Client
}

func NewGoogleScholar(apiKey string) *GoogleScholar {
	return newGoogleScholar(serpapiBaseUrl, apiKey)
}

func newGoogleScholar(baseUrl, apiKey string) *GoogleScholar {
	client := resty.New().
		SetBaseURL(baseUrl).
		SetQueryParam("api_key", apiKey).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if err != nil {
				return true // The err can be non nil for some network errors.
			}
			// There's no reason to retry other 400 requests since the outcome should not change
			return response != nil && (response.StatusCode() > 499 || response.StatusCode() == http.StatusTooManyRequests)
		}).
		SetRetryCount(2).
		OnAfterResponse(func(client *resty.Client, response *resty.Response) error {
			monitoring.SerpapiCalls.WithLabelValues(strconv.Itoa(response.StatusCode())).Inc()
			return nil
		})

	return &GoogleScholar{client: client}
}

func (g *GoogleScholar) Name() string {
	return "google_scholar"
}

func (g *GoogleScholar) CitationCount(ctx context.Context, paper *papers.Paper) (*papers.Citation, error) {
	if paper.Title == "" {
		return nil, nil
	}

	type gscholarResults struct {
		OrganicResults []struct {
			Title       string `json:"title"`
			InlineLinks struct {
				CitedBy struct {
					Total int `json:"total"`
				} `json:"cited_by"`
			} `json:"inline_links"`
		} `json:"organic_results"`
	}

	res, err := g.client.R().
		SetContext(ctx).
		SetResult(&gscholarResults{}).
		SetQueryParam("engine", "google_scholar").
		SetQueryParam("q", paper.Title).
		SetQueryParam("num", "1").
		Get("/search.json")

	if err != nil {
		slog.Error("google scholar search failed", "title", paper.Title, "error", err)
		return nil, ErrGoogleScholarSearchFailed
	}

	if !res.IsSuccess() {
		slog.Error("google scholar search returned error", "status_code", res.StatusCode(), "body", res.String())
		return nil, ErrGoogleScholarSearchFailed
	}

	results := res.Result().(*gscholarResults)
	if len(results.OrganicResults) == 0 {
		return nil, nil
	}

	return &papers.Citation{Count: results.OrganicResults[0].InlineLinks.CitedBy.Total}, nil
}
