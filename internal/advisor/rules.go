package advisor

import (
	"fmt"

	"consigli/internal/analysis"
	"consigli/internal/core"

	"github.com/shopspring/decimal"
)

// Rules holds the thresholds of the advisory rule set, in percent.
type Rules struct {
	// TrendThreshold is the month-over-month increase above which the
	// trend warning fires.
	TrendThreshold decimal.Decimal
	// CategoryThreshold is the share of total spend above which a single
	// category is flagged.
	CategoryThreshold decimal.Decimal
}

// DefaultRules warns on a month-over-month rise above 15% and on any
// category taking more than 40% of spend.
func DefaultRules() Rules {
	return Rules{
		TrendThreshold:    decimal.NewFromInt(15),
		CategoryThreshold: decimal.NewFromInt(40),
	}
}

// Evaluate picks exactly one advisory. Rules are checked in order and the
// first match wins:
//
//  1. trend above TrendThreshold: GENERAL, HIGH
//  2. a category share above CategoryThreshold: that category, HIGH
//  3. otherwise: GENERAL, LOW
//
// Categories are visited by share descending, then name ascending. With a
// zero total no category can match.
func (r Rules) Evaluate(trend, total decimal.Decimal, categories map[string]decimal.Decimal) core.Advice {
	if adv, ok := r.trendAdvice(trend); ok {
		return adv
	}
	if adv, ok := r.categoryAdvice(total, categories); ok {
		return adv
	}
	return balancedAdvice()
}

func (r Rules) trendAdvice(trend decimal.Decimal) (core.Advice, bool) {
	if !trend.GreaterThan(r.TrendThreshold) {
		return core.Advice{}, false
	}
	return core.Advice{
		Category:   core.CategoryGeneral,
		Message:    fmt.Sprintf("Your overall spending increased by %s%% compared to last month.", trend.Round(0)),
		Suggestion: "Would you like help controlling expenses this month?",
		Confidence: core.High,
	}, true
}

func (r Rules) categoryAdvice(total decimal.Decimal, categories map[string]decimal.Decimal) (core.Advice, bool) {
	if total.IsZero() {
		return core.Advice{}, false
	}
	// Shares are proportional to amounts for a fixed total, so amount order
	// is share order.
	for _, c := range analysis.SortCategories(categories) {
		percent := analysis.Percent(c.Amount, total)
		if !percent.GreaterThan(r.CategoryThreshold) {
			continue
		}
		return core.Advice{
			Category:   c.Name,
			Message:    fmt.Sprintf("You spent %s%% on %s", percent.Round(0), c.Name),
			Suggestion: fmt.Sprintf("Would you like to reduce spending on %s?", c.Name),
			Confidence: core.High,
		}, true
	}
	return core.Advice{}, false
}

func balancedAdvice() core.Advice {
	return core.Advice{
		Category:   core.CategoryGeneral,
		Message:    "Your spending is balanced.",
		Suggestion: "Keep tracking your expenses.",
		Confidence: core.Low,
	}
}
