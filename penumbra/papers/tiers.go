package papers

import "log/slog"

// TierTable maps a journal display name to its tier. It is built once at
// startup and read-only afterwards; lookups are exact and case-sensitive.
type TierTable map[string]JournalTier

func defaultTierTable() TierTable {
	return TierTable{
		"Nature":     Tier1,
		"Science":    Tier1,
		"Cell":       Tier1,
		"The Lancet": Tier1,
		"JAMA":       Tier1,
		"BMJ":        Tier1,
		"The New England Journal of Medicine":             Tier1,
		"Proceedings of the National Academy of Sciences": Tier2,
		"PLOS ONE": Tier3,
	}
}

// NewTierTable merges configured overrides into the default table. Overrides
// win on name collisions. Invalid tier strings map to unknown.
func NewTierTable(overrides map[string]string) TierTable {
	table := defaultTierTable()
	for journal, tierStr := range overrides {
		tier, err := ParseJournalTier(tierStr)
		if err != nil {
			slog.Warn("invalid journal tier in configuration", "journal", journal, "tier", tierStr)
			tier = TierUnknown
		}
		table[journal] = tier
	}
	return table
}

func (t TierTable) Lookup(journalName string) JournalTier {
	if tier, ok := t[journalName]; ok {
		return tier
	}
	return TierUnknown
}
