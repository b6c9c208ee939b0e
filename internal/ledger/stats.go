package ledger

import (
	"sort"
	"time"

	"monotrack/internal/core"
)

// DefaultStatsMonths is the trailing window used when the caller does
// not ask for a specific one.
const DefaultStatsMonths = 12

// Stats holds trailing-window statistics over closed months. The open
// period is not included; callers append its running total themselves
// so these functions stay pure over immutable history.
type Stats struct {
	MonthlyHistory []int64   `json:"monthlyHistory"`
	DailyHistory   []float64 `json:"dailyHistory"`
	Monthly        float64   `json:"monthly"`
	Daily          float64   `json:"daily"`
}

type monthTotal struct {
	year  int
	month int
	total int64
}

// recentMonthTotals walks years descending, months descending within
// each year, collecting up to count closed totals, and returns them in
// ascending chronological order. Sparse months are skipped.
func recentMonthTotals(history core.History, count int) []monthTotal {
	if count <= 0 {
		return nil
	}

	years := make([]int, 0, len(history))
	for year := range history {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	collected := make([]monthTotal, 0, count)
	for _, year := range years {
		if len(collected) == count {
			break
		}
		months := make([]int, 0, len(history[year]))
		for month := range history[year] {
			months = append(months, month)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(months)))
		for _, month := range months {
			if len(collected) == count {
				break
			}
			collected = append(collected, monthTotal{year, month, history[year][month]})
		}
	}

	// Reverse into chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

// RecentMonths returns up to count closed-month totals in ascending
// chronological order.
func RecentMonths(history core.History, count int) []int64 {
	totals := recentMonthTotals(history, count)
	series := make([]int64, len(totals))
	for i, mt := range totals {
		series[i] = mt.total
	}
	return series
}

// StatsForPeriod computes the trailing-months series and averages. The
// daily average is an average of per-month daily rates, not weighted by
// total days.
func StatsForPeriod(history core.History, months int) Stats {
	if months <= 0 {
		months = DefaultStatsMonths
	}
	totals := recentMonthTotals(history, months)

	stats := Stats{
		MonthlyHistory: make([]int64, 0, len(totals)),
		DailyHistory:   make([]float64, 0, len(totals)),
	}
	var monthlySum, dailySum float64
	for _, mt := range totals {
		rate := float64(mt.total) / float64(core.DaysInMonth(mt.year, mt.month))
		stats.MonthlyHistory = append(stats.MonthlyHistory, mt.total)
		stats.DailyHistory = append(stats.DailyHistory, rate)
		monthlySum += float64(mt.total)
		dailySum += rate
	}

	n := len(totals)
	if n == 0 {
		n = 1
	}
	stats.Monthly = monthlySum / float64(n)
	stats.Daily = dailySum / float64(n)
	return stats
}

// TodaysTotal sums the spend recorded for now's day of month, or 0 when
// the period has no entries for today.
func TodaysTotal(period core.CurrentPeriod, now time.Time) int64 {
	entries := period.Days[now.Day()]
	if len(entries) == 0 {
		return 0
	}
	var total int64
	for _, e := range entries {
		total -= e.Amount
	}
	return total
}
