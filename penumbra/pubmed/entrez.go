package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"penumbra/penumbra/monitoring"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// Entrez allows 3 requests/second without an api key, 10 with one.
	DefaultRequestsPerSecond = 3.0
	KeyedRequestsPerSecond   = 10.0

	// Detail fetches are batched so a large search does not turn into one
	// unbatched request per record.
	FetchBatchSize = 100
)

var (
	ErrSearchFailed = errors.New("pubmed search failed")
	ErrFetchFailed  = errors.New("pubmed fetch failed")
)

type ClientConfig struct {
	BaseUrl string

	// Email identifies the caller to NCBI and is required by their usage
	// policy. Missing email is a fatal configuration error, checked at
	// startup, not here.
	Email    string
	ApiKey   string
	ToolName string

	RequestsPerSecond float64
}

type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	config  ClientConfig
}

func NewClient(config ClientConfig) *Client {
	if config.BaseUrl == "" {
		config.BaseUrl = DefaultBaseUrl
	}
	if config.ToolName == "" {
		config.ToolName = "penumbra"
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = DefaultRequestsPerSecond
		if config.ApiKey != "" {
			config.RequestsPerSecond = KeyedRequestsPerSecond
		}
	}

	client := resty.New().
		SetBaseURL(config.BaseUrl).
		SetTimeout(30 * time.Second).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if err != nil {
				return true // The err can be non nil for some network errors.
			}
			// There's no reason to retry other 400 requests since the outcome should not change
			return response != nil && (response.StatusCode() > 499 || response.StatusCode() == http.StatusTooManyRequests)
		}).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		OnAfterResponse(func(client *resty.Client, response *resty.Response) error {
			monitoring.EntrezCalls.WithLabelValues(strconv.Itoa(response.StatusCode())).Inc()
			return nil
		})

	return &Client{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		config:  config,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "pubmed").
		SetQueryParam("retmode", "xml").
		SetQueryParam("tool", c.config.ToolName).
		SetQueryParam("email", c.config.Email)
	if c.config.ApiKey != "" {
		req.SetQueryParam("api_key", c.config.ApiKey)
	}
	return req
}

// Search runs an esearch query and returns the matching PMIDs in upstream
// relevance order. Relevance semantics are owned entirely by Entrez; no
// re-ranking happens on this side.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	res, err := c.request(ctx).
		SetQueryParam("term", query).
		SetQueryParam("retmax", strconv.Itoa(maxResults)).
		SetQueryParam("sort", "relevance").
		Get("/esearch.fcgi")

	if err != nil {
		slog.Error("pubmed search failed", "query", query, "error", err)
		return nil, ErrSearchFailed
	}
	if !res.IsSuccess() {
		slog.Error("pubmed search returned error", "query", query, "status_code", res.StatusCode())
		return nil, ErrSearchFailed
	}

	var result ESearchResult
	if err := xml.Unmarshal(res.Body(), &result); err != nil {
		slog.Error("pubmed search failed: error parsing response", "query", query, "error", err)
		return nil, ErrSearchFailed
	}

	if result.Errors != nil && len(result.Errors.PhraseNotFound) > 0 {
		slog.Info("pubmed search phrase not found", "query", query)
		return nil, nil
	}

	return result.IdList.Ids, nil
}

// Fetch retrieves the raw records for up to FetchBatchSize PMIDs in one
// efetch call.
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]Article, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	res, err := c.request(ctx).
		SetQueryParam("id", strings.Join(pmids, ",")).
		Get("/efetch.fcgi")

	if err != nil {
		slog.Error("pubmed fetch failed", "n_pmids", len(pmids), "error", err)
		return nil, ErrFetchFailed
	}
	if !res.IsSuccess() {
		slog.Error("pubmed fetch returned error", "n_pmids", len(pmids), "status_code", res.StatusCode())
		return nil, ErrFetchFailed
	}

	var result ArticleSet
	if err := xml.Unmarshal(res.Body(), &result); err != nil {
		slog.Error("pubmed fetch failed: error parsing response", "error", err)
		return nil, ErrFetchFailed
	}

	return result.Articles, nil
}

type Batch struct {
	Articles []Article
	Err      error
}

// StreamArticles fetches records for the given PMIDs in batches of
// FetchBatchSize, rate limited between batches. A failed batch is reported on
// the channel and does not stop the remaining batches.
func (c *Client) StreamArticles(ctx context.Context, pmids []string) <-chan Batch {
	out := make(chan Batch)

	go func() {
		defer close(out)

		for start := 0; start < len(pmids); start += FetchBatchSize {
			end := min(start+FetchBatchSize, len(pmids))

			articles, err := c.Fetch(ctx, pmids[start:end])

			select {
			case out <- Batch{Articles: articles, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
