package analysis

import (
	"testing"

	"consigli/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		name   string
		trend  string
		months int
		want   core.TrendDirection
	}{
		{"no history", "0", 0, core.TrendUnknown},
		{"single month", "0", 1, core.TrendUnknown},
		{"flat", "0", 2, core.TrendStable},
		{"upper edge of band", "5", 2, core.TrendStable},
		{"lower edge of band", "-5", 2, core.TrendStable},
		{"just above band", "5.01", 3, core.TrendWorsening},
		{"just below band", "-5.01", 3, core.TrendImproving},
		{"large drop", "-60", 2, core.TrendImproving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Direction(dec(tt.trend), tt.months))
		})
	}
}

func TestDetectAnomalies(t *testing.T) {
	previous := map[string]decimal.Decimal{
		"Food":       dec("100"),
		"Travel":     dec("200"),
		"Rent":       dec("900"),
		"Eating Out": dec("40"),
		"Books":      dec("50"),
		"Gifts":      decimal.Zero,
	}
	current := map[string]decimal.Decimal{
		"Food":       dec("150"), // exactly +50: not a spike
		"Travel":     dec("100"), // -50
		"Rent":       dec("900"),
		"Eating Out": dec("70"), // +75
		"Books":      dec("30"), // exactly -40: not a drop
		"Gifts":      dec("80"), // no baseline
		"Hobbies":    dec("500"),
	}

	got := DetectAnomalies(previous, current)
	require.Len(t, got, 2)

	assert.Equal(t, "SPIKE_EATING_OUT", got[0].Code())
	assert.Equal(t, core.AnomalySpike, got[0].Kind)
	assertDecimal(t, "40", got[0].Previous)
	assertDecimal(t, "70", got[0].Current)
	assertDecimal(t, "75", got[0].ChangePercent)

	assert.Equal(t, "DROP_TRAVEL", got[1].Code())
	assert.Equal(t, core.AnomalyDrop, got[1].Kind)
	assertDecimal(t, "-50", got[1].ChangePercent)
}

func TestDetectAnomalies_EmptyIsNotNil(t *testing.T) {
	got := DetectAnomalies(nil, map[string]decimal.Decimal{"Food": dec("10")})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRiskFlags(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		categories []core.CategoryAmount
		want       []string
	}{
		{"empty", "0", nil, []string{}},
		{
			name:  "dominant category",
			total: "100",
			categories: []core.CategoryAmount{
				{Name: "Rent", Amount: dec("41")},
				{Name: "Food", Amount: dec("59")},
			},
			want: []string{core.RiskCategoryDominance},
		},
		{
			name:  "exactly forty percent",
			total: "100",
			categories: []core.CategoryAmount{
				{Name: "Rent", Amount: dec("40")},
				{Name: "Food", Amount: dec("30")},
				{Name: "Travel", Amount: dec("30")},
			},
			want: []string{},
		},
		{
			name:       "zero total",
			total:      "0",
			categories: []core.CategoryAmount{{Name: "Food", Amount: decimal.Zero}},
			want:       []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskFlags(dec(tt.total), tt.categories))
		})
	}
}

func TestSummarize_AnomaliesUseLatestTwoMonths(t *testing.T) {
	expenses := []core.Expense{
		expense("10", "Food", "", core.NewDate(2025, 1, 5)),
		expense("100", "Food", "", core.NewDate(2025, 3, 5)),
		expense("100", "Travel", "", core.NewDate(2025, 3, 6)),
		expense("180", "Food", "", core.NewDate(2025, 4, 5)),
		expense("50", "", "Travel", core.NewDate(2025, 4, 9)),
		// Other years never feed the trend or the anomalies.
		expense("1", "Food", "", core.NewDate(2024, 4, 5)),
	}

	s := Summarize(expenses, 2025)

	assertDecimal(t, "441", s.Total)
	assertDecimal(t, "15", s.Trend)
	assert.Equal(t, core.TrendWorsening, s.Direction)

	codes := make([]string, 0, len(s.Anomalies))
	for _, a := range s.Anomalies {
		codes = append(codes, a.Code())
	}
	assert.Equal(t, []string{"SPIKE_FOOD", "DROP_TRAVEL"}, codes)
	assert.Equal(t, []string{core.RiskCategoryDominance}, s.RiskFlags)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 2025)
	assert.True(t, s.Total.IsZero())
	assert.Empty(t, s.ByCategory)
	assert.Equal(t, core.TrendUnknown, s.Direction)
	assert.NotNil(t, s.Anomalies)
	assert.NotNil(t, s.RiskFlags)
}
