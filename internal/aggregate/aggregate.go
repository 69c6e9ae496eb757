// Package aggregate derives summaries, date buckets, and rollups from a
// transaction sequence. Every function here is pure: it never mutates its
// input and recomputes from scratch on each call, so results always
// reflect exactly the records it was handed.
package aggregate

import (
	"sort"
	"strings"

	"tally/internal/core"
)

// Summary is the whole-ledger income/expense breakdown the client shows
// on the home dashboard. Both totals are non-negative by construction.
type Summary struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	NetBalance    core.Money
}

// DateGroup is a derived bucket of transactions sharing a truncated date
// key. Total is the signed sum over the members; member order preserves
// the input's relative order.
type DateGroup struct {
	Date         string
	Total        core.Money
	Transactions []core.Transaction
}

// Dimension selects the rollup axis.
type Dimension int

const (
	ByCategory Dimension = iota
	ByMerchant
)

// Rollup is an aggregated total for one label on a dimension. Percent is
// |amount| over the sum of all labels' |amount|, times 100; it is 0, not
// NaN, when the denominator is 0.
type Rollup struct {
	Label   string
	Amount  core.Money
	Percent float64
}

// Mode mirrors the client's All/Expenses/Income toggle.
type Mode string

const (
	All          Mode = "all"
	ExpensesOnly Mode = "expenses"
	IncomeOnly   Mode = "income"
)

func (m Mode) Valid() bool {
	return m == All || m == ExpensesOnly || m == IncomeOnly
}

// wellFormed drops records that would corrupt a derivation. Malformed
// rows are omitted, never defaulted to zero.
func wellFormed(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		out = append(out, t)
	}
	return out
}

func Summarize(txs []core.Transaction) Summary {
	var income, expenses int64
	for _, t := range wellFormed(txs) {
		if t.Amount.Cents > 0 {
			income += t.Amount.Cents
		} else {
			expenses += -t.Amount.Cents
		}
	}
	return Summary{
		TotalIncome:   core.Money{Cents: income},
		TotalExpenses: core.Money{Cents: expenses},
		NetBalance:    core.Money{Cents: income - expenses},
	}
}

// GroupByDay buckets transactions by calendar day, newest day first.
func GroupByDay(txs []core.Transaction) []DateGroup {
	return groupBy(txs, core.Transaction.DayKey)
}

// GroupByMonth buckets transactions by calendar month, newest first.
func GroupByMonth(txs []core.Transaction) []DateGroup {
	return groupBy(txs, core.Transaction.MonthKey)
}

func groupBy(txs []core.Transaction, key func(core.Transaction) string) []DateGroup {
	byKey := make(map[string]int)
	var groups []DateGroup
	for _, t := range wellFormed(txs) {
		k := key(t)
		i, ok := byKey[k]
		if !ok {
			i = len(groups)
			byKey[k] = i
			groups = append(groups, DateGroup{Date: k})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
		groups[i].Total.Cents += t.Amount.Cents
	}
	// Keys are zero-padded ISO dates, so lexical order is date order.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	return groups
}

// Rollups aggregates signed totals per label on the given dimension,
// sorted by descending absolute amount. Equal amounts order by label so
// the result is stable under input shuffling.
func Rollups(txs []core.Transaction, dim Dimension) []Rollup {
	byLabel := make(map[string]int64)
	for _, t := range wellFormed(txs) {
		byLabel[rollupLabel(t, dim)] += t.Amount.Cents
	}

	var denom int64
	for _, cents := range byLabel {
		denom += abs(cents)
	}

	out := make([]Rollup, 0, len(byLabel))
	for label, cents := range byLabel {
		r := Rollup{Label: label, Amount: core.Money{Cents: cents}}
		if denom != 0 {
			r.Percent = float64(abs(cents)) / float64(denom) * 100
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Amount.Cents), abs(out[j].Amount.Cents)
		if ai != aj {
			return ai > aj
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func rollupLabel(t core.Transaction, dim Dimension) string {
	switch dim {
	case ByMerchant:
		if m := strings.Join(strings.Fields(strings.ToLower(t.Description)), " "); m != "" {
			return m
		}
		return "unknown"
	default:
		if t.Category != "" {
			return t.Category
		}
		return core.CategoryUncategorized
	}
}

// FilterByDirection removes non-matching transactions from each group,
// recomputes each group's total from the filtered subset, and drops
// groups left empty. All mode is the identity.
func FilterByDirection(groups []DateGroup, mode Mode) []DateGroup {
	if mode == All {
		return groups
	}
	out := make([]DateGroup, 0, len(groups))
	for _, g := range groups {
		kept := make([]core.Transaction, 0, len(g.Transactions))
		var total int64
		for _, t := range g.Transactions {
			if mode == ExpensesOnly && t.Amount.Cents >= 0 {
				continue
			}
			if mode == IncomeOnly && t.Amount.Cents <= 0 {
				continue
			}
			kept = append(kept, t)
			total += t.Amount.Cents
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, DateGroup{Date: g.Date, Total: core.Money{Cents: total}, Transactions: kept})
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
