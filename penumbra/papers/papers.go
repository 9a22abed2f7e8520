// Package papers defines the record model shared by every component: papers,
// authors, journals, citation metrics, and the filter evaluated over them.
package papers

import (
	"fmt"
	"strings"
	"time"
)

type JournalTier string

const (
	Tier1       JournalTier = "tier_1"
	Tier2       JournalTier = "tier_2"
	Tier3       JournalTier = "tier_3"
	Tier4       JournalTier = "tier_4"
	TierUnknown JournalTier = "unknown"
)

func AllJournalTiers() []JournalTier {
	return []JournalTier{Tier1, Tier2, Tier3, Tier4, TierUnknown}
}

func ParseJournalTier(s string) (JournalTier, error) {
	tier := JournalTier(s)
	for _, t := range AllJournalTiers() {
		if tier == t {
			return tier, nil
		}
	}
	return TierUnknown, fmt.Errorf("invalid journal tier '%s'", s)
}

type StudyType string

const (
	MetaAnalysis              StudyType = "meta_analysis"
	SystematicReview          StudyType = "systematic_review"
	RandomizedControlledTrial StudyType = "randomized_controlled_trial"
	CohortStudy               StudyType = "cohort_study"
	CaseControl               StudyType = "case_control"
	CaseSeries                StudyType = "case_series"
	CaseReport                StudyType = "case_report"
	ExpertOpinion             StudyType = "expert_opinion"
	OtherStudy                StudyType = "other"
	UnknownStudy              StudyType = "unknown"
)

func AllStudyTypes() []StudyType {
	return []StudyType{
		MetaAnalysis, SystematicReview, RandomizedControlledTrial, CohortStudy,
		CaseControl, CaseSeries, CaseReport, ExpertOpinion, OtherStudy, UnknownStudy,
	}
}

func ParseStudyType(s string) (StudyType, error) {
	st := StudyType(s)
	for _, t := range AllStudyTypes() {
		if st == t {
			return st, nil
		}
	}
	return UnknownStudy, fmt.Errorf("invalid study type '%s'", s)
}

type Author struct {
	LastName     string
	ForeName     string
	Initials     string
	Affiliations []string
}

// DisplayName returns "Last, Fore" when a fore name is present.
func (a *Author) DisplayName() string {
	if a.ForeName != "" {
		return a.LastName + ", " + a.ForeName
	}
	return a.LastName
}

type Journal struct {
	Name         string
	ISSN         string
	Volume       string
	Issue        string
	ImpactFactor *float64
	Tier         JournalTier
}

type Citation struct {
	Count           int
	NormalizedCount *float64
	HIndex          *int
	I10Index        *int
}

// Paper is the central aggregate. Instances are created by the normalizer and
// mutated in place by the enrichment steps, each of which populates exactly
// one of the optional fields.
type Paper struct {
	PMID     string
	Title    string
	Abstract string

	Authors []Author
	Journal *Journal

	PublicationDate *time.Time
	StudyType       StudyType

	Keywords  []string
	MeshTerms []string

	DOI       string
	Citations *Citation

	FullTextURL  string
	PDFPath      string
	MarkdownPath string

	Metadata map[string]any
}

const titlePrefixLen = 50

// FilenameBase derives the name used for cached artifacts (pdf, markdown).
// The fallback order pmid > doi > title is a contract: artifact files written
// under one name must be found again under the same name.
func (p *Paper) FilenameBase() string {
	if p.PMID != "" {
		return "id_" + p.PMID
	}
	if p.DOI != "" {
		return "doi_" + strings.ReplaceAll(p.DOI, "/", "_")
	}
	title := p.Title
	// Truncation counts runes so a multi-byte character at the boundary is
	// kept whole instead of producing invalid UTF-8.
	if runes := []rune(title); len(runes) > titlePrefixLen {
		title = string(runes[:titlePrefixLen])
	}
	return "paper_" + strings.ToLower(strings.ReplaceAll(title, " ", "_"))
}
