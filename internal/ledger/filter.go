package ledger

import (
	"strings"

	"monotrack/internal/core"
)

// Positive-amount entries whose description starts with this marker are
// cancellations of a prior charge and still count as tracked spend.
const reversalMarker = "скасування"

// IsTrackedExpense reports whether a statement item counts as a tracked
// expense: money out (or a charge reversal), and not matched by any
// exclusion substring. Pure and total.
func IsTrackedExpense(e core.LedgerEntry, exclusions []string) bool {
	candidate := e.Amount < 0 || strings.HasPrefix(strings.ToLower(e.Description), reversalMarker)
	if !candidate {
		return false
	}
	for _, sub := range exclusions {
		if sub != "" && strings.Contains(e.Description, sub) {
			return false
		}
	}
	return true
}

// ParseExclusions splits a semicolon-delimited filter string into its
// exclusion substrings, dropping empty segments.
func ParseExclusions(filter string) []string {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	parts := strings.Split(filter, ";")
	exclusions := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			exclusions = append(exclusions, p)
		}
	}
	return exclusions
}
