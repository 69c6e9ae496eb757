package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"tally/internal/core"
)

func tx(day string, cents int64, desc, category string) core.Transaction {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          desc + day,
		Date:        d,
		Amount:      core.Money{Cents: cents},
		Type:        core.TypeFromSigned(cents),
		Description: desc,
		Category:    category,
	}
}

func TestSummarize(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", -9000, "Telco Co", core.CategoryBills),
		tx("2025-05-02", 250000, "Payroll", core.CategoryIncome),
		tx("2025-05-03", -4500, "Grocer", core.CategoryFood),
	}
	s := Summarize(txs)
	if s.TotalIncome.Cents != 250000 {
		t.Fatalf("income = %d", s.TotalIncome.Cents)
	}
	if s.TotalExpenses.Cents != 13500 {
		t.Fatalf("expenses = %d", s.TotalExpenses.Cents)
	}
	if s.NetBalance.Cents != s.TotalIncome.Cents-s.TotalExpenses.Cents {
		t.Fatalf("net balance identity broken: %+v", s)
	}
	if s.TotalIncome.Cents < 0 || s.TotalExpenses.Cents < 0 {
		t.Fatalf("totals must be non-negative: %+v", s)
	}
}

func TestSummarizeSingleDebitExample(t *testing.T) {
	txs := []core.Transaction{tx("2025-05-01", -9000, "Telco Co", core.CategoryBills)}
	s := Summarize(txs)
	if s.TotalIncome.Cents != 0 || s.TotalExpenses.Cents != 9000 || s.NetBalance.Cents != -9000 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestSummarizeExcludesMalformed(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", -9000, "Telco Co", core.CategoryBills),
		{Description: "zero date", Amount: core.Money{Cents: -100}},
	}
	if s := Summarize(txs); s.TotalExpenses.Cents != 9000 {
		t.Fatalf("malformed record leaked into totals: %+v", s)
	}
}

func TestGroupByDay(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", 5000, "Payroll", core.CategoryIncome),
		tx("2025-05-01", -2000, "Grocer", core.CategoryFood),
		tx("2025-05-03", -9000, "Telco Co", core.CategoryBills),
	}
	groups := GroupByDay(txs)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Date != "2025-05-03" || groups[1].Date != "2025-05-01" {
		t.Fatalf("groups not date-descending: %s, %s", groups[0].Date, groups[1].Date)
	}
	// Same-day +50 and -20 yields a single group totaling 30.
	if groups[1].Total.Cents != 3000 {
		t.Fatalf("same-day total = %d, want 3000", groups[1].Total.Cents)
	}
	if groups[1].Transactions[0].Description != "Payroll" {
		t.Fatalf("in-day order not preserved")
	}
}

func TestGroupByDayIdempotent(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", 5000, "Payroll", core.CategoryIncome),
		tx("2025-05-01", -2000, "Grocer", core.CategoryFood),
		tx("2025-05-03", -9000, "Telco Co", core.CategoryBills),
	}
	once := GroupByDay(txs)

	var flat []core.Transaction
	var totalSum int64
	for _, g := range once {
		flat = append(flat, g.Transactions...)
		totalSum += g.Total.Cents
	}
	twice := GroupByDay(flat)

	if len(once) != len(twice) {
		t.Fatalf("regrouping changed group count: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Date != twice[i].Date || once[i].Total != twice[i].Total {
			t.Fatalf("group %d differs after regrouping", i)
		}
	}
	if totalSum != Summarize(txs).NetBalance.Cents {
		t.Fatalf("sum of group totals %d != net balance", totalSum)
	}
}

func TestGroupByMonth(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", -1000, "a", core.CategoryFood),
		tx("2025-04-30", -2000, "b", core.CategoryFood),
		tx("2025-05-20", 3000, "c", core.CategoryIncome),
	}
	groups := GroupByMonth(txs)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Date != "2025-05" || groups[0].Total.Cents != 2000 {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
}

func TestRollupsCategoryExample(t *testing.T) {
	txs := []core.Transaction{tx("2025-05-01", -9000, "Telco Co", core.CategoryBills)}
	rollups := Rollups(txs, ByCategory)
	if len(rollups) != 1 {
		t.Fatalf("expected 1 rollup, got %d", len(rollups))
	}
	r := rollups[0]
	if r.Label != core.CategoryBills || r.Amount.Cents != -9000 || r.Percent != 100 {
		t.Fatalf("unexpected rollup %+v", r)
	}
}

func TestRollupsDeterministicTieBreak(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", -5000, "a", core.CategoryShopping),
		tx("2025-05-02", -5000, "b", core.CategoryEntertainment),
		tx("2025-05-03", -10000, "c", core.CategoryBills),
	}
	want := []string{core.CategoryBills, core.CategoryEntertainment, core.CategoryShopping}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]core.Transaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		rollups := Rollups(shuffled, ByCategory)
		for i, r := range rollups {
			if r.Label != want[i] {
				t.Fatalf("trial %d: position %d = %s, want %s", trial, i, r.Label, want[i])
			}
		}
		// Tied entries split the remainder evenly: 50/25/25.
		if rollups[1].Percent != rollups[2].Percent {
			t.Fatalf("tied percents differ: %v vs %v", rollups[1].Percent, rollups[2].Percent)
		}
	}
}

func TestRollupsByMerchant(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-01", -2000, "  Grocer   Mart ", core.CategoryFood),
		tx("2025-05-02", -3000, "grocer mart", core.CategoryFood),
	}
	rollups := Rollups(txs, ByMerchant)
	if len(rollups) != 1 || rollups[0].Label != "grocer mart" || rollups[0].Amount.Cents != -5000 {
		t.Fatalf("merchant normalization failed: %+v", rollups)
	}
}

func TestRollupsEmpty(t *testing.T) {
	if got := Rollups(nil, ByCategory); len(got) != 0 {
		t.Fatalf("expected empty rollups, got %+v", got)
	}
}

func TestFilterByDirection(t *testing.T) {
	groups := GroupByDay([]core.Transaction{
		tx("2025-05-01", 5000, "Payroll", core.CategoryIncome),
		tx("2025-05-01", -2000, "Grocer", core.CategoryFood),
		tx("2025-05-02", 1000, "Refund", core.CategoryShopping),
	})

	expenses := FilterByDirection(groups, ExpensesOnly)
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense group, got %d", len(expenses))
	}
	for _, g := range expenses {
		for _, tr := range g.Transactions {
			if tr.Amount.Cents > 0 {
				t.Fatalf("positive amount in ExpensesOnly group")
			}
		}
	}
	if expenses[0].Total.Cents != -2000 {
		t.Fatalf("total not recomputed from filtered subset: %d", expenses[0].Total.Cents)
	}

	income := FilterByDirection(groups, IncomeOnly)
	if len(income) != 2 || income[1].Total.Cents != 5000 {
		t.Fatalf("unexpected income groups %+v", income)
	}

	all := FilterByDirection(groups, All)
	if len(all) != len(groups) {
		t.Fatalf("All mode must be identity")
	}
	for i := range all {
		if all[i].Date != groups[i].Date || all[i].Total != groups[i].Total {
			t.Fatalf("All mode changed group %d", i)
		}
	}
}
