package pubmed

import (
	"errors"
	"penumbra/penumbra/papers"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRecord is returned when a record is missing the mandatory
// identifier structure entirely. Anything else missing degrades to an empty
// field, never an error.
var ErrMalformedRecord = errors.New("malformed pubmed record")

// Normalizer maps one raw Entrez article into a papers.Paper. It holds no
// mutable state; the tier table is built once at startup and only read here.
type Normalizer struct {
	tiers papers.TierTable
}

func NewNormalizer(tiers papers.TierTable) *Normalizer {
	return &Normalizer{tiers: tiers}
}

type studyTypeRule struct {
	match     func(text string) bool
	studyType papers.StudyType
}

func contains(substr string) func(string) bool {
	return func(text string) bool { return strings.Contains(text, substr) }
}

func containsBoth(a, b string) func(string) bool {
	return func(text string) bool { return strings.Contains(text, a) && strings.Contains(text, b) }
}

// The rule order is a contract: earlier rules shadow later ones whenever a
// record carries overlapping signals (e.g. "systematic review and
// meta-analysis" classifies as meta_analysis).
var publicationTypeRules = []studyTypeRule{
	{contains("meta-analysis"), papers.MetaAnalysis},
	{contains("systematic review"), papers.SystematicReview},
	{contains("randomized controlled trial"), papers.RandomizedControlledTrial},
	{contains("cohort"), papers.CohortStudy},
	{contains("case control"), papers.CaseControl},
	{contains("case series"), papers.CaseSeries},
	{contains("case report"), papers.CaseReport},
	{containsBoth("expert", "opinion"), papers.ExpertOpinion},
}

// Reduced rule set used when no explicit publication type matched and the
// classification falls back to scanning title + abstract.
var freeTextRules = []studyTypeRule{
	{func(text string) bool {
		return strings.Contains(text, "meta-analysis") || strings.Contains(text, "meta analysis")
	}, papers.MetaAnalysis},
	{contains("systematic review"), papers.SystematicReview},
	{containsBoth("randomized", "trial"), papers.RandomizedControlledTrial},
	{contains("cohort"), papers.CohortStudy},
	{contains("case control"), papers.CaseControl},
	{contains("case series"), papers.CaseSeries},
	{contains("case report"), papers.CaseReport},
}

// ClassifyStudyType applies the priority-ordered rules to the explicit
// publication type list first; if no rule matches any entry (or the list is
// absent) it scans the concatenated title and abstract with the reduced rule
// set. Never fails: unmatched records classify as unknown.
func ClassifyStudyType(publicationTypes []string, title, abstract string) papers.StudyType {
	for _, rule := range publicationTypeRules {
		for _, pubType := range publicationTypes {
			if rule.match(strings.ToLower(pubType)) {
				return rule.studyType
			}
		}
	}

	freeText := strings.ToLower(title + " " + abstract)
	for _, rule := range freeTextRules {
		if rule.match(freeText) {
			return rule.studyType
		}
	}

	return papers.UnknownStudy
}

func assembleAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.Sections) == 0 {
		return ""
	}

	if len(abstract.Sections) == 1 && abstract.Sections[0].Label == "" {
		return strings.TrimSpace(abstract.Sections[0].Text)
	}

	parts := make([]string, 0, len(abstract.Sections))
	for _, section := range abstract.Sections {
		text := strings.TrimSpace(section.Text)
		if text == "" {
			continue
		}
		if section.Label != "" {
			parts = append(parts, section.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

func parseMonth(month string) int {
	if month == "" {
		return 1
	}
	if m, err := strconv.Atoi(month); err == nil {
		// Out-of-range numeric months are caught by the calendar validity
		// check and fall back to January there.
		return m
	}
	if t, err := time.Parse("Jan", month); err == nil {
		return int(t.Month())
	}
	if t, err := time.Parse("January", month); err == nil {
		return int(t.Month())
	}
	return 1
}

func validDate(year, month, day int) bool {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return false
	}
	// time.Date normalizes overflow (Feb 30 -> Mar 2) instead of failing, so
	// round-trip the components to detect it.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func assemblePublicationDate(pubDate PubDate) *time.Time {
	yearStr := strings.TrimSpace(pubDate.Year)
	if yearStr == "" && pubDate.MedlineDate != "" {
		// Free-form dates like "2020 Jan-Feb" or "2020-2021": take the first
		// year and default the rest.
		fields := strings.Fields(pubDate.MedlineDate)
		if len(fields) > 0 {
			yearStr = strings.Split(fields[0], "-")[0]
		}
	}
	if yearStr == "" {
		return nil
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return nil
	}

	month := parseMonth(strings.TrimSpace(pubDate.Month))
	day := 1
	if d, err := strconv.Atoi(strings.TrimSpace(pubDate.Day)); err == nil {
		day = d
	}

	if !validDate(year, month, day) {
		month, day = 1, 1
		if !validDate(year, month, day) {
			return nil
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

func extractAuthors(list *AuthorList) []papers.Author {
	if list == nil {
		return nil
	}

	authors := make([]papers.Author, 0, len(list.Authors))
	for _, author := range list.Authors {
		if author.LastName == "" {
			continue
		}

		var affiliations []string
		for _, info := range author.Affiliations {
			if aff := strings.TrimSpace(info.Affiliation); aff != "" {
				affiliations = append(affiliations, aff)
			}
		}

		authors = append(authors, papers.Author{
			LastName:     author.LastName,
			ForeName:     author.ForeName,
			Initials:     author.Initials,
			Affiliations: affiliations,
		})
	}

	return authors
}

func extractDoi(article Article) string {
	for _, loc := range article.Citation.Article.ELocationIds {
		if loc.IdType == "doi" && (loc.Valid == "" || loc.Valid == "Y") {
			return strings.TrimSpace(loc.Value)
		}
	}
	for _, id := range article.Data.ArticleIds.Ids {
		if id.IdType == "doi" {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

func extractMeshTerms(list *MeshHeadingList) []string {
	if list == nil {
		return nil
	}
	terms := make([]string, 0, len(list.Headings))
	for _, heading := range list.Headings {
		if term := strings.TrimSpace(heading.Descriptor); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func extractKeywords(lists []KeywordList) []string {
	var keywords []string
	for _, list := range lists {
		for _, keyword := range list.Keywords {
			if kw := strings.TrimSpace(keyword); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}

// Normalize converts one raw article into a Paper. It is total over the shape
// of the record: every extraction step independently defaults to empty on
// absence. Only a record without a PMID fails, with ErrMalformedRecord.
func (n *Normalizer) Normalize(article Article) (*papers.Paper, error) {
	pmid := strings.TrimSpace(article.Citation.PMID)
	if pmid == "" {
		return nil, ErrMalformedRecord
	}

	details := article.Citation.Article
	title := strings.TrimSpace(details.Title)
	abstract := assembleAbstract(details.Abstract)

	var journal *papers.Journal
	var pubDate *time.Time
	if details.Journal != nil {
		name := strings.TrimSpace(details.Journal.Title)
		journal = &papers.Journal{
			Name: name,
			ISSN: strings.TrimSpace(details.Journal.ISSN),
			Tier: n.tiers.Lookup(name),
		}
		if issue := details.Journal.Issue; issue != nil {
			journal.Volume = issue.Volume
			journal.Issue = issue.Issue
			pubDate = assemblePublicationDate(issue.PubDate)
		}
	}

	var pubTypes []string
	if details.PublicationTypes != nil {
		pubTypes = details.PublicationTypes.Types
	}

	metadata := map[string]any{"source": "pubmed"}
	if len(pubTypes) > 0 {
		metadata["publication_types"] = pubTypes
	}

	return &papers.Paper{
		PMID:            pmid,
		Title:           title,
		Abstract:        abstract,
		Authors:         extractAuthors(details.Authors),
		Journal:         journal,
		PublicationDate: pubDate,
		StudyType:       ClassifyStudyType(pubTypes, title, abstract),
		Keywords:        extractKeywords(article.Citation.KeywordLists),
		MeshTerms:       extractMeshTerms(article.Citation.MeshHeadings),
		DOI:             extractDoi(article),
		Metadata:        metadata,
	}, nil
}
