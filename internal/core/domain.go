package core

import "errors"

type (
	// LedgerEntry is one statement item as returned by the bank API,
	// newest first. Amounts are signed minor currency units; negative
	// means money out.
	LedgerEntry struct {
		ID              string `json:"id"`
		Time            int64  `json:"time"`
		Description     string `json:"description"`
		MCC             int    `json:"mcc"`
		Hold            bool   `json:"hold"`
		Amount          int64  `json:"amount"`
		OperationAmount int64  `json:"operationAmount"`
		CurrencyCode    int    `json:"currencyCode"`
		CommissionRate  int64  `json:"commissionRate"`
		CashbackAmount  int64  `json:"cashbackAmount"`
		Balance         int64  `json:"balance"`
	}

	// CachedEntry is the persisted projection of a LedgerEntry.
	// OriginalAmount is set only while the entry has been manually
	// adjusted; it holds the amount as originally observed.
	CachedEntry struct {
		ID             string `json:"id"`
		Time           int64  `json:"time"`
		Description    string `json:"description"`
		MCC            int    `json:"mcc"`
		Amount         int64  `json:"amount"`
		CashbackAmount int64  `json:"cashbackAmount"`
		OriginalAmount *int64 `json:"originalAmount,omitempty"`
	}

	// CurrentPeriod is the open calendar month bucket. Total always
	// equals the sum of -Amount over every entry in Days.
	CurrentPeriod struct {
		Year          int                   `json:"year"`
		Month         int                   `json:"month"`
		Total         int64                 `json:"total"`
		Days          map[int][]CachedEntry `json:"days"`
		CursorTime    int64                 `json:"cursorTime"`
		CursorEntryID string                `json:"cursorEntryId"`
	}

	// History maps year -> month -> closed-period total. Sparse:
	// months without activity are absent, never zero-filled.
	History map[int]map[int]int64

	// SyncState is the persisted unit, one record per account.
	SyncState struct {
		History       History       `json:"history"`
		CurrentPeriod CurrentPeriod `json:"currentPeriod"`
	}
)

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
)

// NewCachedEntry projects a statement item into its persisted form.
func NewCachedEntry(e LedgerEntry) CachedEntry {
	return CachedEntry{
		ID:             e.ID,
		Time:           e.Time,
		Description:    e.Description,
		MCC:            e.MCC,
		Amount:         e.Amount,
		CashbackAmount: e.CashbackAmount,
	}
}

// NewPeriod returns an empty open period for the given month.
func NewPeriod(year, month int) CurrentPeriod {
	return CurrentPeriod{
		Year:  year,
		Month: month,
		Days:  make(map[int][]CachedEntry),
	}
}

// SumDays recomputes the spend total from the day buckets. Amounts are
// negated so that money out accumulates as positive spend.
func (p CurrentPeriod) SumDays() int64 {
	var total int64
	for _, entries := range p.Days {
		for _, e := range entries {
			total -= e.Amount
		}
	}
	return total
}

// Before reports whether the period is strictly earlier than the given
// calendar month. Year is compared first so a December period sorts
// before January of the next year.
func (p CurrentPeriod) Before(year, month int) bool {
	if p.Year != year {
		return p.Year < year
	}
	return p.Month < month
}

// Record stores a closed total, creating the year map when needed.
func (h History) Record(year, month int, total int64) {
	months, ok := h[year]
	if !ok {
		months = make(map[int]int64)
		h[year] = months
	}
	months[month] = total
}

// Validate checks structural invariants of a persisted period.
func (p CurrentPeriod) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	for day := range p.Days {
		if day < 1 || day > 31 {
			return ErrInvalidDay
		}
	}
	return nil
}
