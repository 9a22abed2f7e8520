// Package fulltext locates full text urls for papers by scraping PubMed
// Central and publisher landing pages.
package fulltext

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"penumbra/penumbra/papers"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	ncbiBaseUrl = "https://www.ncbi.nlm.nih.gov"
	doiBaseUrl  = "https://doi.org"
)

// Publisher sites routinely reject requests that don't look like a browser.
var headers = map[string]string{
	"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"accept-language":           "en-US,en;q=0.9",
	"cache-control":             "max-age=0",
	"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	"upgrade-insecure-requests": "1",
}

var pdfHrefPattern = regexp.MustCompile(`\.(pdf|full)`)

// Resolver finds a url to the full text of a paper. It tries PubMed Central
// first, then resolves the DOI to the publisher's landing page and scans it
// for a pdf link. Resolution is best effort: network and parse failures are
// logged and treated as "not found".
type Resolver struct {
	client  *resty.Client
	pmcBase string
	doiBase string
}

func NewResolver() *Resolver {
	return newResolver(ncbiBaseUrl, doiBaseUrl)
}

func newResolver(pmcBase, doiBase string) *Resolver {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(1).
		SetHeaders(headers)

	return &Resolver{client: client, pmcBase: pmcBase, doiBase: doiBase}
}

// Resolve returns a full text url for the paper, or "" when none was found.
func (r *Resolver) Resolve(ctx context.Context, paper *papers.Paper) string {
	if paper.PMID == "" && paper.DOI == "" {
		return ""
	}

	if paper.PMID != "" {
		if u := r.resolveFromPmc(ctx, paper.PMID); u != "" {
			return u
		}
	}

	if paper.DOI != "" {
		if u := r.resolveFromDoi(ctx, paper.DOI); u != "" {
			return u
		}
	}

	slog.Info("no full text url found", "paper", paper.FilenameBase())
	return ""
}

// resolveFromPmc loads the PMC article page for a pmid and looks for its
// download link.
func (r *Resolver) resolveFromPmc(ctx context.Context, pmid string) string {
	res, err := r.client.R().SetContext(ctx).Get(r.pmcBase + "/pmc/articles/pmid/" + pmid)
	if err != nil {
		slog.Error("pmc page fetch failed", "pmid", pmid, "error", err)
		return ""
	}
	if !res.IsSuccess() {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		slog.Error("error parsing pmc page", "pmid", pmid, "error", err)
		return ""
	}

	href, ok := doc.Find("a.int-view").First().Attr("href")
	if !ok {
		return ""
	}

	if !strings.HasPrefix(href, "http") {
		href = r.pmcBase + href
	}
	return href
}

// resolveFromDoi follows the DOI redirect to the publisher page. Nature urls
// have a known pdf location; for everything else the landing page is scanned
// for an anchor that looks like a pdf or full text link.
func (r *Resolver) resolveFromDoi(ctx context.Context, doi string) string {
	res, err := r.client.R().SetContext(ctx).Get(r.doiBase + "/" + doi)
	if err != nil {
		slog.Error("doi resolution failed", "doi", doi, "error", err)
		return ""
	}
	if !res.IsSuccess() {
		return ""
	}

	finalUrl := res.RawResponse.Request.URL

	if u, ok := naturePdfUrl(finalUrl); ok {
		return u
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		slog.Error("error parsing publisher page", "doi", doi, "error", err)
		return ""
	}

	return findPdfAnchor(doc, finalUrl)
}

// naturePdfUrl maps a nature.com article landing page to its pdf location.
func naturePdfUrl(u *url.URL) (string, bool) {
	if !strings.Contains(u.Host, "nature.com") {
		return "", false
	}
	return strings.Replace(u.String(), "/articles/", "/articles/pdf/", 1), true
}

func findPdfAnchor(doc *goquery.Document, base *url.URL) string {
	var found string

	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !pdfHrefPattern.MatchString(href) {
			return true
		}

		text := strings.ToLower(s.Text())
		if !strings.Contains(text, "pdf") && !strings.Contains(text, "full text") {
			return true
		}

		if !strings.HasPrefix(href, "http") {
			href = base.Scheme + "://" + base.Host + href
		}

		found = href
		return false
	})

	return found
}
