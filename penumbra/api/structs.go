// Package api defines the request and response shapes of the REST interface.
package api

import (
	"penumbra/penumbra/papers"
	"time"
)

// SearchRequest is the body of POST /api/v1/pubmed/search. Dates use the
// format "2006-01-02". Empty tier and study type lists mean no restriction.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`

	MinPublicationDate string   `json:"min_publication_date"`
	MaxPublicationDate string   `json:"max_publication_date"`
	JournalTiers       []string `json:"journal_tiers"`
	StudyTypes         []string `json:"study_types"`
	MinCitations       *int     `json:"min_citations"`
	RequiredKeywords   []string `json:"required_keywords"`
	RequiredMeshTerms  []string `json:"required_mesh_terms"`
	AuthorNames        []string `json:"author_names"`

	RetrieveCitations bool `json:"retrieve_citations"`
	RetrieveFullText  bool `json:"retrieve_full_text"`
	DownloadPdf       bool `json:"download_pdf"`
	ConvertToMarkdown bool `json:"convert_to_markdown"`
}

type Journal struct {
	Name   string `json:"name"`
	ISSN   string `json:"issn,omitempty"`
	Volume string `json:"volume,omitempty"`
	Issue  string `json:"issue,omitempty"`
	Tier   string `json:"tier"`
}

type Citation struct {
	Count int `json:"count"`
}

type Paper struct {
	PMID            string    `json:"pmid"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract,omitempty"`
	Authors         []string  `json:"authors,omitempty"`
	Journal         *Journal  `json:"journal,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	StudyType       string    `json:"study_type"`
	Keywords        []string  `json:"keywords,omitempty"`
	MeshTerms       []string  `json:"mesh_terms,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Citations       *Citation `json:"citations,omitempty"`
	FullTextURL     string    `json:"full_text_url,omitempty"`
	PdfPath         string    `json:"pdf_path,omitempty"`
	MarkdownPath    string    `json:"markdown_path,omitempty"`
}

type SearchResponse struct {
	Query           string  `json:"query"`
	TotalResults    int     `json:"total_results"`
	FilteredResults int     `json:"filtered_results"`
	Papers          []Paper `json:"papers"`
}

func NewPaper(paper *papers.Paper) Paper {
	res := Paper{
		PMID:         paper.PMID,
		Title:        paper.Title,
		Abstract:     paper.Abstract,
		StudyType:    string(paper.StudyType),
		Keywords:     paper.Keywords,
		MeshTerms:    paper.MeshTerms,
		DOI:          paper.DOI,
		FullTextURL:  paper.FullTextURL,
		PdfPath:      paper.PDFPath,
		MarkdownPath: paper.MarkdownPath,
	}

	for _, author := range paper.Authors {
		res.Authors = append(res.Authors, author.DisplayName())
	}

	if paper.Journal != nil {
		res.Journal = &Journal{
			Name:   paper.Journal.Name,
			ISSN:   paper.Journal.ISSN,
			Volume: paper.Journal.Volume,
			Issue:  paper.Journal.Issue,
			Tier:   string(paper.Journal.Tier),
		}
	}

	if paper.PublicationDate != nil {
		res.PublicationDate = paper.PublicationDate.Format(time.DateOnly)
	}

	if paper.Citations != nil {
		res.Citations = &Citation{Count: paper.Citations.Count}
	}

	return res
}
