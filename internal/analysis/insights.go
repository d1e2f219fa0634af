package analysis

import (
	"sort"

	"consigli/internal/core"

	"github.com/shopspring/decimal"
)

var (
	spikePercent     = decimal.NewFromInt(50)
	dropPercent      = decimal.NewFromInt(-40)
	stableBand       = decimal.NewFromInt(5)
	dominancePercent = decimal.NewFromInt(40)
)

// Summarize aggregates a snapshot of expenses. The trend, its direction and
// the anomalies look only at months of year.
func Summarize(expenses []core.Expense, year int) core.SpendingSummary {
	total := decimal.Zero
	categories := make(map[string]decimal.Decimal)
	byMonth := make(map[int]map[string]decimal.Decimal)

	for _, e := range expenses {
		c := e.EffectiveCategory()
		total = total.Add(e.Amount)
		categories[c] = categories[c].Add(e.Amount)

		if e.Date.Year() != year {
			continue
		}
		m := e.Date.Month()
		if byMonth[m] == nil {
			byMonth[m] = make(map[string]decimal.Decimal)
		}
		byMonth[m][c] = byMonth[m][c].Add(e.Amount)
	}

	months := make([]int, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Ints(months)

	monthly := make([]core.MonthTotal, 0, len(months))
	for _, m := range months {
		sum := decimal.Zero
		for _, v := range byMonth[m] {
			sum = sum.Add(v)
		}
		monthly = append(monthly, core.MonthTotal{Month: m, Total: sum})
	}

	sorted := SortCategories(categories)
	trend := PercentChange(monthly)
	summary := core.SpendingSummary{
		Total:      total,
		ByCategory: sorted,
		Trend:      trend,
		Direction:  Direction(trend, len(monthly)),
		Anomalies:  []core.Anomaly{},
		RiskFlags:  RiskFlags(total, sorted),
	}
	if n := len(months); n >= 2 {
		summary.Anomalies = DetectAnomalies(byMonth[months[n-2]], byMonth[months[n-1]])
	}
	return summary
}

// Direction labels a month-over-month change: within 5 points either way is
// stable, more spending is worsening, less is improving.
func Direction(trend decimal.Decimal, monthsWithData int) core.TrendDirection {
	switch {
	case monthsWithData < 2:
		return core.TrendUnknown
	case trend.GreaterThan(stableBand):
		return core.TrendWorsening
	case trend.LessThan(stableBand.Neg()):
		return core.TrendImproving
	default:
		return core.TrendStable
	}
}

// DetectAnomalies flags categories of the current month that grew by more
// than 50% or shrank by more than 40% against the previous month. Categories
// absent from either month have no baseline and are not flagged.
func DetectAnomalies(previous, current map[string]decimal.Decimal) []core.Anomaly {
	out := []core.Anomaly{}
	for category, amount := range current {
		before, ok := previous[category]
		if !ok || !before.IsPositive() {
			continue
		}
		change := amount.Sub(before).Div(before).Mul(hundred)

		var kind core.AnomalyKind
		switch {
		case change.GreaterThan(spikePercent):
			kind = core.AnomalySpike
		case change.LessThan(dropPercent):
			kind = core.AnomalyDrop
		default:
			continue
		}
		out = append(out, core.Anomaly{
			Kind:          kind,
			Category:      category,
			Previous:      before,
			Current:       amount,
			ChangePercent: change,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// RiskFlags reports structural risks in the category breakdown. categories
// must be ordered largest first, as SortCategories returns them.
func RiskFlags(total decimal.Decimal, categories []core.CategoryAmount) []string {
	flags := []string{}
	if len(categories) > 0 && Percent(categories[0].Amount, total).GreaterThan(dominancePercent) {
		flags = append(flags, core.RiskCategoryDominance)
	}
	return flags
}
