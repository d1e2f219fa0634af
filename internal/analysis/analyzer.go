// Package analysis aggregates stored expenses into spending statistics.
//
// An Analyzer holds no state between calls: every method re-reads the
// expense store, so results always reflect the current data.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"consigli/internal/core"
	"consigli/internal/ports"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Analyzer computes totals and trends over an expense store.
type Analyzer struct {
	store ports.ExpenseStore
	now   func() time.Time
}

// NewAnalyzer returns an Analyzer reading from store. A nil clock defaults to
// time.Now; the clock decides which calendar year is "current".
func NewAnalyzer(store ports.ExpenseStore, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{store: store, now: now}
}

// TotalSpend returns the exact sum of all stored amounts, zero when empty.
func (a *Analyzer) TotalSpend(ctx context.Context) (decimal.Decimal, error) {
	expenses, err := a.store.FindAll(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load expenses: %w", err)
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// CategoryTotals sums amounts by effective category. Expenses without any
// category land in core.CategoryUncategorized.
func (a *Analyzer) CategoryTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	expenses, err := a.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	totals := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		c := e.EffectiveCategory()
		totals[c] = totals[c].Add(e.Amount)
	}
	return totals, nil
}

// MonthOverMonthChange compares the two most recent months of the current
// year that have data and returns the percentage change between them.
// It returns zero with fewer than two months or when the earlier month
// totals zero.
func (a *Analyzer) MonthOverMonthChange(ctx context.Context) (decimal.Decimal, error) {
	totals, err := a.store.MonthlyTotals(ctx, a.now().Year())
	if err != nil {
		return decimal.Zero, fmt.Errorf("load monthly totals: %w", err)
	}
	return PercentChange(totals), nil
}

// PercentChange applies the month-over-month formula to totals ordered by
// month ascending.
func PercentChange(totals []core.MonthTotal) decimal.Decimal {
	if len(totals) < 2 {
		return decimal.Zero
	}
	previous := totals[len(totals)-2].Total
	current := totals[len(totals)-1].Total
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// Percent returns part as a percentage of whole, zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// SortCategories flattens a totals map ordered by amount descending, then
// name ascending.
func SortCategories(totals map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summary computes every statistic from one read of the store, so the
// category shares always add up to the reported total.
func (a *Analyzer) Summary(ctx context.Context) (core.SpendingSummary, error) {
	expenses, err := a.store.FindAll(ctx)
	if err != nil {
		return core.SpendingSummary{}, fmt.Errorf("load expenses: %w", err)
	}
	return Summarize(expenses, a.now().Year()), nil
}
