package http

import (
	"time"

	"consigli/internal/analysis"
	"consigli/internal/core"

	"github.com/shopspring/decimal"
)

// Amounts are encoded as JSON strings so no precision is lost.

type expenseView struct {
	ID                int64           `json:"id"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	PredictedCategory string          `json:"predictedCategory"`
	FinalCategory     string          `json:"finalCategory,omitempty"`
	Category          string          `json:"category"`
	Date              string          `json:"date"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:                e.ID,
		Description:       e.Description,
		Amount:            e.Amount,
		PredictedCategory: e.PredictedCategory,
		FinalCategory:     e.FinalCategory,
		Category:          e.EffectiveCategory(),
		Date:              e.Date.String(),
	}
}

type adviceView struct {
	ID           int64     `json:"id"`
	Category     string    `json:"category"`
	Message      string    `json:"message"`
	Suggestion   string    `json:"suggestion"`
	Confidence   string    `json:"confidence"`
	UserDecision string    `json:"userDecision,omitempty"`
	UserReason   string    `json:"userReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newAdviceView(a core.Advice) adviceView {
	return adviceView{
		ID:           a.ID,
		Category:     a.Category,
		Message:      a.Message,
		Suggestion:   a.Suggestion,
		Confidence:   string(a.Confidence),
		UserDecision: a.UserDecision,
		UserReason:   a.UserReason,
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

type categoryView struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

type anomalyView struct {
	Code          string          `json:"code"`
	Kind          string          `json:"kind"`
	Category      string          `json:"category"`
	Previous      decimal.Decimal `json:"previous"`
	Current       decimal.Decimal `json:"current"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

type summaryView struct {
	Total      decimal.Decimal `json:"total"`
	Categories []categoryView  `json:"categories"`
	Trend      decimal.Decimal `json:"trendPercent"`
	Direction  string          `json:"direction"`
	Anomalies  []anomalyView   `json:"anomalies"`
	RiskFlags  []string        `json:"riskFlags"`
}

func newSummaryView(s core.SpendingSummary) summaryView {
	view := summaryView{
		Total:      s.Total,
		Categories: make([]categoryView, 0, len(s.ByCategory)),
		Trend:      s.Trend.Round(2),
		Direction:  string(s.Direction),
		Anomalies:  make([]anomalyView, 0, len(s.Anomalies)),
		RiskFlags:  append([]string{}, s.RiskFlags...),
	}
	for _, c := range s.ByCategory {
		view.Categories = append(view.Categories, categoryView{
			Name:    c.Name,
			Amount:  c.Amount,
			Percent: analysis.Percent(c.Amount, s.Total).Round(2),
		})
	}
	for _, a := range s.Anomalies {
		view.Anomalies = append(view.Anomalies, anomalyView{
			Code:          a.Code(),
			Kind:          string(a.Kind),
			Category:      a.Category,
			Previous:      a.Previous,
			Current:       a.Current,
			ChangePercent: a.ChangePercent.Round(2),
		})
	}
	return view
}
