package pubmed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"penumbra/penumbra/pubmed"
	"strings"
	"testing"
)

const esearchResponse = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
  <Count>3</Count>
  <RetMax>3</RetMax>
  <RetStart>0</RetStart>
  <IdList>
    <Id>11111111</Id>
    <Id>22222222</Id>
    <Id>33333333</Id>
  </IdList>
</eSearchResult>`

const esearchNotFoundResponse = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
  <Count>0</Count>
  <RetMax>0</RetMax>
  <RetStart>0</RetStart>
  <IdList></IdList>
  <ErrorList>
    <PhraseNotFound>zxqv</PhraseNotFound>
  </ErrorList>
</eSearchResult>`

const efetchResponse = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">11111111</PMID>
      <Article>
        <Journal>
          <ISSN IssnType="Electronic">0028-0836</ISSN>
          <JournalIssue>
            <Volume>600</Volume>
            <Issue>7890</Issue>
            <PubDate><Year>2021</Year><Month>Dec</Month><Day>2</Day></PubDate>
          </JournalIssue>
          <Title>Nature</Title>
        </Journal>
        <ArticleTitle>A study of things</ArticleTitle>
        <ELocationID EIdType="doi" ValidYN="Y">10.1038/test</ELocationID>
        <Abstract>
          <AbstractText Label="Background">Depression is common.</AbstractText>
          <AbstractText Label="Results">It worked.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y">
            <LastName>Smith</LastName>
            <ForeName>Jane</ForeName>
            <Initials>J</Initials>
          </Author>
        </AuthorList>
        <PublicationTypeList>
          <PublicationType UI="D016428">Journal Article</PublicationType>
        </PublicationTypeList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName UI="D006801" MajorTopicYN="N">Humans</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">11111111</ArticleId>
        <ArticleId IdType="doi">10.1038/test</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *pubmed.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return pubmed.NewClient(pubmed.ClientConfig{
		BaseUrl:           server.URL,
		Email:             "test@example.com",
		RequestsPerSecond: 1000,
	})
}

func TestSearch(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"db":     r.URL.Query().Get("db"),
			"term":   r.URL.Query().Get("term"),
			"retmax": r.URL.Query().Get("retmax"),
			"sort":   r.URL.Query().Get("sort"),
			"email":  r.URL.Query().Get("email"),
		}
		w.Write([]byte(esearchResponse))
	})

	pmids, err := client.Search(context.Background(), "ketamine depression", 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(pmids) != 3 || pmids[0] != "11111111" {
		t.Fatalf("unexpected pmids: %v", pmids)
	}
	if gotQuery["db"] != "pubmed" || gotQuery["term"] != "ketamine depression" ||
		gotQuery["retmax"] != "20" || gotQuery["sort"] != "relevance" ||
		gotQuery["email"] != "test@example.com" {
		t.Fatalf("unexpected query params: %v", gotQuery)
	}
}

func TestSearchPhraseNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(esearchNotFoundResponse))
	})

	pmids, err := client.Search(context.Background(), "zxqv", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(pmids) != 0 {
		t.Fatalf("expected no results, got %v", pmids)
	}
}

func TestSearchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	if _, err := client.Search(context.Background(), "anything", 20); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "11111111" {
			t.Fatalf("unexpected ids: %s", r.URL.Query().Get("id"))
		}
		w.Write([]byte(efetchResponse))
	})

	articles, err := client.Fetch(context.Background(), []string{"11111111"})
	if err != nil {
		t.Fatal(err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}

	article := articles[0]
	if article.Citation.PMID != "11111111" {
		t.Fatalf("unexpected pmid: %s", article.Citation.PMID)
	}
	if article.Citation.Article.Title != "A study of things" {
		t.Fatalf("unexpected title: %s", article.Citation.Article.Title)
	}
	if article.Citation.Article.Journal.Title != "Nature" {
		t.Fatalf("unexpected journal: %+v", article.Citation.Article.Journal)
	}
	if len(article.Citation.Article.Abstract.Sections) != 2 {
		t.Fatalf("unexpected abstract sections: %+v", article.Citation.Article.Abstract)
	}
}

func TestFetchEmptyInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty pmid list")
	})

	articles, err := client.Fetch(context.Background(), nil)
	if err != nil || articles != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", articles, err)
	}
}

func TestStreamArticlesBatches(t *testing.T) {
	var batchSizes []int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		batchSizes = append(batchSizes, len(ids))
		w.Write([]byte(`<?xml version="1.0"?><PubmedArticleSet></PubmedArticleSet>`))
	})

	pmids := make([]string, 250)
	for i := range pmids {
		pmids[i] = "1"
	}

	for batch := range client.StreamArticles(context.Background(), pmids) {
		if batch.Err != nil {
			t.Fatal(batch.Err)
		}
	}

	if len(batchSizes) != 3 || batchSizes[0] != 100 || batchSizes[1] != 100 || batchSizes[2] != 50 {
		t.Fatalf("unexpected batching: %v", batchSizes)
	}
}
