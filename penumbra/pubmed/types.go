// Package pubmed talks to the NCBI Entrez E-utilities
// (https://www.ncbi.nlm.nih.gov/books/NBK25499/) and normalizes the nested
// article XML it returns into the uniform record shape in penumbra/papers.
package pubmed

import "encoding/xml"

// ESearchResult is the esearch.fcgi response: the ids matching a query plus
// the total match count upstream.
type ESearchResult struct {
	XMLName  xml.Name   `xml:"eSearchResult"`
	Count    int        `xml:"Count"`
	RetMax   int        `xml:"RetMax"`
	RetStart int        `xml:"RetStart"`
	IdList   IdList     `xml:"IdList"`
	Errors   *ErrorList `xml:"ErrorList"`
}

type IdList struct {
	Ids []string `xml:"Id"`
}

type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound"`
	FieldNotFound  []string `xml:"FieldNotFound"`
}

// ArticleSet is the efetch.fcgi response wrapper.
type ArticleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []Article `xml:"PubmedArticle"`
}

// Article is one raw bibliographic record. Arbitrarily many of its nested
// fields may be absent; the normalizer must tolerate every such shape.
type Article struct {
	Citation MedlineCitation `xml:"MedlineCitation"`
	Data     PubmedData      `xml:"PubmedData"`
}

type MedlineCitation struct {
	PMID         string           `xml:"PMID"`
	Article      ArticleDetails   `xml:"Article"`
	MeshHeadings *MeshHeadingList `xml:"MeshHeadingList"`
	KeywordLists []KeywordList    `xml:"KeywordList"`
}

type ArticleDetails struct {
	Journal          *Journal             `xml:"Journal"`
	Title            string               `xml:"ArticleTitle"`
	ELocationIds     []ELocationId        `xml:"ELocationID"`
	Abstract         *Abstract            `xml:"Abstract"`
	Authors          *AuthorList          `xml:"AuthorList"`
	PublicationTypes *PublicationTypeList `xml:"PublicationTypeList"`
}

type Journal struct {
	ISSN  string        `xml:"ISSN"`
	Title string        `xml:"Title"`
	Issue *JournalIssue `xml:"JournalIssue"`
}

type JournalIssue struct {
	Volume  string  `xml:"Volume"`
	Issue   string  `xml:"Issue"`
	PubDate PubDate `xml:"PubDate"`
}

// PubDate comes in several shapes: Year/Month/Day (month numeric or a month
// name), or a free-form MedlineDate like "2020 Jan-Feb".
type PubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type ELocationId struct {
	IdType string `xml:"EIdType,attr"`
	Valid  string `xml:"ValidYN,attr"`
	Value  string `xml:",chardata"`
}

type Abstract struct {
	Sections []AbstractSection `xml:"AbstractText"`
}

// AbstractSection is one block of a possibly structured abstract. Structured
// abstracts label their sections (Background, Methods, Results, ...).
type AbstractSection struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type AuthorList struct {
	Authors []Author `xml:"Author"`
}

type Author struct {
	LastName     string            `xml:"LastName"`
	ForeName     string            `xml:"ForeName"`
	Initials     string            `xml:"Initials"`
	Affiliations []AffiliationInfo `xml:"AffiliationInfo"`
}

type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

type PublicationTypeList struct {
	Types []string `xml:"PublicationType"`
}

type MeshHeadingList struct {
	Headings []MeshHeading `xml:"MeshHeading"`
}

type MeshHeading struct {
	Descriptor string `xml:"DescriptorName"`
}

type KeywordList struct {
	Keywords []string `xml:"Keyword"`
}

type PubmedData struct {
	ArticleIds ArticleIdList `xml:"ArticleIdList"`
}

type ArticleIdList struct {
	Ids []ArticleId `xml:"ArticleId"`
}

type ArticleId struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
