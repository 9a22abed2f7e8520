package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"penumbra/penumbra/api"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/search"
	"penumbra/penumbra/services"
	"testing"
)

type fakeSearcher struct {
	lastCriteria   search.Criteria
	lastEnrichment search.Enrichment
	result         *search.Result
	papersByPmid   map[string]*papers.Paper
	pmidByDoi      map[string]string
}

func (f *fakeSearcher) Search(ctx context.Context, criteria search.Criteria) (*search.Result, error) {
	f.lastCriteria = criteria
	return f.result, nil
}

func (f *fakeSearcher) GetByPmid(ctx context.Context, pmid string, enrichment search.Enrichment) (*papers.Paper, error) {
	f.lastEnrichment = enrichment
	if paper, ok := f.papersByPmid[pmid]; ok {
		return paper, nil
	}
	return nil, search.ErrPaperNotFound
}

func (f *fakeSearcher) GetByDoi(ctx context.Context, doi string, enrichment search.Enrichment) (*papers.Paper, error) {
	if pmid, ok := f.pmidByDoi[doi]; ok {
		return f.GetByPmid(ctx, pmid, enrichment)
	}
	return nil, search.ErrPaperNotFound
}

func newTestServer(searcher services.Searcher) *httptest.Server {
	backend := services.NewBackendService(searcher)

	router := backend.Routes()
	return httptest.NewServer(router)
}

func postSearch(t *testing.T, url string, req api.SearchRequest) *http.Response {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	res, err := http.Post(url+"/pubmed/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestServiceInfo(t *testing.T) {
	rec := httptest.NewRecorder()
	services.WrapRestHandler(services.ServiceInfo)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var info struct {
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"pubmed_endpoints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}

	if info.Version != services.Version {
		t.Fatalf("unexpected version: %s", info.Version)
	}
	if info.Endpoints["search"] != "/api/v1/pubmed/search" || info.Endpoints["paper_by_pmid"] == "" {
		t.Fatalf("unexpected endpoints: %+v", info.Endpoints)
	}
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &fakeSearcher{
		result: &search.Result{
			Papers: []*papers.Paper{
				{
					PMID:      "1",
					Title:     "First paper",
					StudyType: papers.MetaAnalysis,
					Authors:   []papers.Author{{LastName: "Smith", ForeName: "Jane"}},
					Journal:   &papers.Journal{Name: "Nature", Tier: papers.Tier1},
					Citations: &papers.Citation{Count: 9},
				},
			},
			TotalResults: 5,
			Filtered:     1,
		},
	}

	server := newTestServer(searcher)
	defer server.Close()

	res := postSearch(t, server.URL, api.SearchRequest{
		Query:             "ketamine depression",
		JournalTiers:      []string{"tier_1"},
		StudyTypes:        []string{"meta_analysis"},
		RetrieveCitations: true,
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	var response api.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}

	if response.TotalResults != 5 || response.FilteredResults != 1 || len(response.Papers) != 1 {
		t.Fatalf("unexpected response: %+v", response)
	}

	paper := response.Papers[0]
	if paper.PMID != "1" || paper.Authors[0] != "Smith, Jane" ||
		paper.Journal.Tier != "tier_1" || paper.Citations.Count != 9 {
		t.Fatalf("unexpected paper: %+v", paper)
	}

	criteria := searcher.lastCriteria
	if criteria.Query != "ketamine depression" || !criteria.RetrieveCitations {
		t.Fatalf("unexpected criteria: %+v", criteria)
	}
	if criteria.Filter == nil || len(criteria.Filter.JournalTiers) != 1 || len(criteria.Filter.StudyTypes) != 1 {
		t.Fatalf("filter not built from request: %+v", criteria.Filter)
	}
}

func TestSearchValidation(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{}}
	server := newTestServer(searcher)
	defer server.Close()

	cases := []api.SearchRequest{
		{}, // missing query
		{Query: "x", MinPublicationDate: "06/01/2021"},
		{Query: "x", JournalTiers: []string{"tier_9"}},
		{Query: "x", StudyTypes: []string{"anecdote"}},
	}

	for i, req := range cases {
		res := postSearch(t, server.URL, req)
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, res.StatusCode)
		}
	}
}

func TestDownloadPdfImpliesFullText(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{}}
	server := newTestServer(searcher)
	defer server.Close()

	res := postSearch(t, server.URL, api.SearchRequest{Query: "x", DownloadPdf: true})
	res.Body.Close()

	if !searcher.lastCriteria.RetrieveFullText || !searcher.lastCriteria.DownloadPdf {
		t.Fatalf("download_pdf must imply retrieve_full_text: %+v", searcher.lastCriteria.Enrichment)
	}
}

func TestGetPaper(t *testing.T) {
	searcher := &fakeSearcher{
		papersByPmid: map[string]*papers.Paper{
			"123": {PMID: "123", Title: "Looked up", StudyType: papers.UnknownStudy},
		},
	}
	server := newTestServer(searcher)
	defer server.Close()

	res, err := http.Get(server.URL + "/pubmed/paper/123")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	var paper api.Paper
	if err := json.NewDecoder(res.Body).Decode(&paper); err != nil {
		t.Fatal(err)
	}
	if paper.PMID != "123" || paper.Title != "Looked up" {
		t.Fatalf("unexpected paper: %+v", paper)
	}

	missing, err := http.Get(server.URL + "/pubmed/paper/999")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestGetPaperEnrichmentToggles(t *testing.T) {
	searcher := &fakeSearcher{
		papersByPmid: map[string]*papers.Paper{
			"123": {PMID: "123", Title: "Looked up", StudyType: papers.UnknownStudy},
		},
		pmidByDoi: map[string]string{"10.1/x": "123"},
	}
	server := newTestServer(searcher)
	defer server.Close()

	res, err := http.Get(server.URL + "/pubmed/paper/123?download_pdf=true&convert_to_markdown=true")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	enrichment := searcher.lastEnrichment
	if !enrichment.DownloadPdf || !enrichment.ConvertToMarkdown {
		t.Fatalf("query toggles must reach the searcher: %+v", enrichment)
	}
	if !enrichment.RetrieveFullText {
		t.Fatalf("download_pdf must imply retrieve_full_text: %+v", enrichment)
	}
	if enrichment.RetrieveCitations {
		t.Fatalf("unrequested toggle must stay off: %+v", enrichment)
	}

	res, err = http.Get(server.URL + "/pubmed/paper/doi/10.1/x?retrieve_citations=true")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	if !searcher.lastEnrichment.RetrieveCitations || searcher.lastEnrichment.DownloadPdf {
		t.Fatalf("unexpected enrichment on doi lookup: %+v", searcher.lastEnrichment)
	}
}

func TestGetPaperByDoi(t *testing.T) {
	searcher := &fakeSearcher{
		papersByPmid: map[string]*papers.Paper{
			"55": {PMID: "55", Title: "Doi paper", StudyType: papers.UnknownStudy},
		},
		pmidByDoi: map[string]string{"10.1038/s41586-021": "55"},
	}
	server := newTestServer(searcher)
	defer server.Close()

	// The doi contains a slash, which is why the route is a wildcard.
	res, err := http.Get(server.URL + "/pubmed/paper/doi/10.1038/s41586-021")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	var paper api.Paper
	if err := json.NewDecoder(res.Body).Decode(&paper); err != nil {
		t.Fatal(err)
	}
	if paper.PMID != "55" {
		t.Fatalf("unexpected paper: %+v", paper)
	}

	missing, err := http.Get(server.URL + "/pubmed/paper/doi/10.1/none")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}
