package papers

import (
	"strings"
	"time"
)

// FilterOptions carries the raw, possibly-empty criteria as they arrive from
// the API or CLI. NewFilter normalizes them into a Filter.
type FilterOptions struct {
	MinPublicationDate *time.Time
	MaxPublicationDate *time.Time
	JournalTiers       []JournalTier
	StudyTypes         []StudyType
	MinCitations       *int
	RequiredKeywords   []string
	RequiredMeshTerms  []string
	AuthorNames        []string
}

// Filter is a conjunction of independent optional criteria. Construct it with
// NewFilter: empty tier and study-type sets are materialized to the full
// enumerations there, so Matches never has to special-case emptiness.
type Filter struct {
	MinPublicationDate *time.Time
	MaxPublicationDate *time.Time

	JournalTiers map[JournalTier]bool
	StudyTypes   map[StudyType]bool

	MinCitations *int

	// Required keyword/mesh/author criteria, lowercased once at construction.
	RequiredKeywords  []string
	RequiredMeshTerms []string
	AuthorNames       []string
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.ToLower(item))
	}
	return out
}

func NewFilter(opts FilterOptions) *Filter {
	tiers := make(map[JournalTier]bool, len(opts.JournalTiers))
	for _, tier := range opts.JournalTiers {
		tiers[tier] = true
	}
	if len(tiers) == 0 {
		for _, tier := range AllJournalTiers() {
			tiers[tier] = true
		}
	}

	studyTypes := make(map[StudyType]bool, len(opts.StudyTypes))
	for _, st := range opts.StudyTypes {
		studyTypes[st] = true
	}
	if len(studyTypes) == 0 {
		for _, st := range AllStudyTypes() {
			studyTypes[st] = true
		}
	}

	return &Filter{
		MinPublicationDate: opts.MinPublicationDate,
		MaxPublicationDate: opts.MaxPublicationDate,
		JournalTiers:       tiers,
		StudyTypes:         studyTypes,
		MinCitations:       opts.MinCitations,
		RequiredKeywords:   lowerAll(opts.RequiredKeywords),
		RequiredMeshTerms:  lowerAll(opts.RequiredMeshTerms),
		AuthorNames:        lowerAll(opts.AuthorNames),
	}
}

func containsAll(required []string, available []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(available))
	for _, item := range available {
		have[strings.ToLower(item)] = true
	}
	for _, item := range required {
		if !have[item] {
			return false
		}
	}
	return true
}

// Matches reports whether the paper satisfies every criterion. A criterion
// that is unset, or that refers to a paper field the paper does not carry,
// is satisfied: the filter never penalizes data it was not given a chance to
// evaluate.
func (f *Filter) Matches(p *Paper) bool {
	if f.MinPublicationDate != nil && p.PublicationDate != nil && p.PublicationDate.Before(*f.MinPublicationDate) {
		return false
	}

	if f.MaxPublicationDate != nil && p.PublicationDate != nil && p.PublicationDate.After(*f.MaxPublicationDate) {
		return false
	}

	if p.Journal != nil && !f.JournalTiers[p.Journal.Tier] {
		return false
	}

	if !f.StudyTypes[p.StudyType] {
		return false
	}

	if f.MinCitations != nil && p.Citations != nil && p.Citations.Count < *f.MinCitations {
		return false
	}

	if !containsAll(f.RequiredKeywords, p.Keywords) {
		return false
	}

	if !containsAll(f.RequiredMeshTerms, p.MeshTerms) {
		return false
	}

	if len(f.AuthorNames) > 0 {
		lastNames := make(map[string]bool, len(p.Authors))
		for _, author := range p.Authors {
			if author.LastName != "" {
				lastNames[strings.ToLower(author.LastName)] = true
			}
		}

		found := false
		for _, name := range f.AuthorNames {
			if lastNames[name] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
