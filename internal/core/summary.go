package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotal is the summed spend of one calendar month.
type MonthTotal struct {
	Month int // 1-12
	Total decimal.Decimal
}

// TrendDirection labels the month-over-month change.
type TrendDirection string

const (
	TrendUnknown   TrendDirection = "unknown" // fewer than two months with data
	TrendStable    TrendDirection = "stable"
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
)

type AnomalyKind string

const (
	AnomalySpike AnomalyKind = "SPIKE"
	AnomalyDrop  AnomalyKind = "DROP"
)

// RiskCategoryDominance is raised when one category takes too large a share.
const RiskCategoryDominance = "CATEGORY_DOMINANCE"

// Anomaly is a category whose spend moved sharply between the two most
// recent months with data.
type Anomaly struct {
	Kind          AnomalyKind
	Category      string
	Previous      decimal.Decimal
	Current       decimal.Decimal
	ChangePercent decimal.Decimal
}

// Code renders the anomaly as SPIKE_FOOD / DROP_TRAVEL.
func (a Anomaly) Code() string {
	return string(a.Kind) + "_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(a.Category), " ", "_"))
}

// SpendingSummary is a compact view of the aggregate statistics.
type SpendingSummary struct {
	Total      decimal.Decimal
	ByCategory []CategoryAmount
	Trend      decimal.Decimal // month-over-month change in percent
	Direction  TrendDirection
	Anomalies  []Anomaly
	RiskFlags  []string
}
