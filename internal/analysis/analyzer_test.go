package analysis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"consigli/internal/core"
	"consigli/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(amount, predicted, final string, date core.Date) core.Expense {
	return core.Expense{
		Description:       "item",
		Amount:            dec(amount),
		PredictedCategory: predicted,
		FinalCategory:     final,
		Date:              date,
	}
}

type failingStore struct{ err error }

func (f failingStore) FindAll(context.Context) ([]core.Expense, error) { return nil, f.err }
func (f failingStore) Save(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, f.err
}
func (f failingStore) FindByID(context.Context, int64) (core.Expense, error) {
	return core.Expense{}, f.err
}
func (f failingStore) MonthlyTotals(context.Context, int) ([]core.MonthTotal, error) {
	return nil, f.err
}

// countingStore records how often the analyzer reads the underlying store.
type countingStore struct {
	*memory.Store
	findAll       atomic.Int32
	monthlyTotals atomic.Int32
}

func (c *countingStore) FindAll(ctx context.Context) ([]core.Expense, error) {
	c.findAll.Add(1)
	return c.Store.FindAll(ctx)
}

func (c *countingStore) MonthlyTotals(ctx context.Context, year int) ([]core.MonthTotal, error) {
	c.monthlyTotals.Add(1)
	return c.Store.MonthlyTotals(ctx, year)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s got %s, want %s", strings.Join(label, " "), got, want)
}

func TestTotalSpend(t *testing.T) {
	tests := []struct {
		name     string
		expenses []core.Expense
		want     string
	}{
		{"empty store", nil, "0"},
		{"single", []core.Expense{expense("12.50", "Food", "", core.NewDate(2025, 1, 1))}, "12.50"},
		{
			name: "exact decimal sum",
			expenses: []core.Expense{
				expense("0.10", "Food", "", core.NewDate(2025, 1, 1)),
				expense("0.20", "Food", "", core.NewDate(2025, 1, 2)),
				expense("0", "", "", core.NewDate(2025, 1, 3)),
			},
			want: "0.30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(memory.NewWithExpenses(tt.expenses...), fixedNow)
			got, err := a.TotalSpend(context.Background())
			require.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestCategoryTotals(t *testing.T) {
	expenses := []core.Expense{
		expense("10", "Food", "", core.NewDate(2025, 1, 1)),
		expense("5", "Food", "Travel", core.NewDate(2025, 1, 2)),
		expense("7.25", "", "", core.NewDate(2025, 1, 3)),
		expense("2.75", "  ", "", core.NewDate(2025, 1, 4)),
		expense("3", "Travel", "", core.NewDate(2025, 1, 5)),
	}
	a := NewAnalyzer(memory.NewWithExpenses(expenses...), fixedNow)

	got, err := a.CategoryTotals(context.Background())
	require.NoError(t, err)

	want := map[string]string{
		"Food":                     "10",
		"Travel":                   "8",
		core.CategoryUncategorized: "10",
	}
	require.Len(t, got, len(want))
	for name, amount := range want {
		assertDecimal(t, amount, got[name], "bucket", name)
	}

	// Every expense is counted exactly once.
	total, err := a.TotalSpend(context.Background())
	require.NoError(t, err)
	sum := decimal.Zero
	for _, v := range got {
		sum = sum.Add(v)
	}
	assertDecimal(t, total.String(), sum)
}

func TestMonthOverMonthChange(t *testing.T) {
	tests := []struct {
		name     string
		expenses []core.Expense
		want     string
	}{
		{"no data", nil, "0"},
		{
			name:     "single month",
			expenses: []core.Expense{expense("100", "Food", "", core.NewDate(2025, 5, 1))},
			want:     "0",
		},
		{
			name: "increase",
			expenses: []core.Expense{
				expense("100", "Food", "", core.NewDate(2025, 4, 1)),
				expense("120", "Food", "", core.NewDate(2025, 5, 1)),
			},
			want: "20",
		},
		{
			name: "decrease",
			expenses: []core.Expense{
				expense("200", "Food", "", core.NewDate(2025, 4, 1)),
				expense("150", "Food", "", core.NewDate(2025, 5, 1)),
			},
			want: "-25",
		},
		{
			name: "previous month zero",
			expenses: []core.Expense{
				expense("0", "Food", "", core.NewDate(2025, 4, 1)),
				expense("50", "Food", "", core.NewDate(2025, 5, 1)),
			},
			want: "0",
		},
		{
			name: "uses two most recent months with data",
			expenses: []core.Expense{
				expense("999", "Food", "", core.NewDate(2025, 1, 1)),
				expense("100", "Food", "", core.NewDate(2025, 3, 9)),
				expense("50", "Food", "", core.NewDate(2025, 6, 2)),
				expense("60", "Food", "", core.NewDate(2025, 6, 3)),
			},
			want: "10",
		},
		{
			name: "ignores other years",
			expenses: []core.Expense{
				expense("10", "Food", "", core.NewDate(2024, 12, 1)),
				expense("100", "Food", "", core.NewDate(2025, 1, 1)),
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithExpenses(tt.expenses...)
			got, err := NewAnalyzer(store, fixedNow).MonthOverMonthChange(context.Background())
			require.NoError(t, err)
			assertDecimal(t, tt.want, got)

			// The single-read summary must agree with the store's monthly totals.
			expenses, err := store.FindAll(context.Background())
			require.NoError(t, err)
			assertDecimal(t, tt.want, Summarize(expenses, 2025).Trend, "Summarize trend")
		})
	}
}

func TestPercent(t *testing.T) {
	assertDecimal(t, "60", Percent(dec("60"), dec("100")))
	assert.True(t, Percent(dec("5"), decimal.Zero).IsZero())
}

func TestSortCategories(t *testing.T) {
	got := SortCategories(map[string]decimal.Decimal{
		"Travel": dec("50"),
		"Food":   dec("50"),
		"Rent":   dec("900"),
		"Books":  dec("1"),
	})
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Rent", "Food", "Travel", "Books"}, names)
}

func TestSummary(t *testing.T) {
	store := memory.NewWithExpenses(
		expense("100", "Food", "", core.NewDate(2025, 4, 1)),
		expense("150", "Rent", "", core.NewDate(2025, 5, 1)),
	)
	s, err := NewAnalyzer(store, fixedNow).Summary(context.Background())
	require.NoError(t, err)

	assertDecimal(t, "250", s.Total)
	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "Rent", s.ByCategory[0].Name)
	assertDecimal(t, "50", s.Trend)
	assert.Equal(t, core.TrendWorsening, s.Direction)
	// Food and Rent never appear in both months, so there is no baseline.
	assert.Empty(t, s.Anomalies)
	assert.NotNil(t, s.Anomalies)
	assert.Equal(t, []string{core.RiskCategoryDominance}, s.RiskFlags)
}

func TestSummary_ReadsStoreOnce(t *testing.T) {
	store := &countingStore{Store: memory.NewWithExpenses(
		expense("100", "Food", "", core.NewDate(2025, 4, 1)),
		expense("160", "Food", "", core.NewDate(2025, 5, 1)),
		expense("40", "Travel", "", core.NewDate(2025, 5, 2)),
	)}

	s, err := NewAnalyzer(store, fixedNow).Summary(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, store.findAll.Load())
	assert.Zero(t, store.monthlyTotals.Load())

	sum := decimal.Zero
	for _, c := range s.ByCategory {
		sum = sum.Add(c.Amount)
	}
	assertDecimal(t, s.Total.String(), sum)
	assertDecimal(t, "100", s.Trend)
}

func TestAnalyzer_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("store down")
	a := NewAnalyzer(failingStore{err: boom}, fixedNow)
	ctx := context.Background()

	_, err := a.TotalSpend(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = a.CategoryTotals(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = a.MonthOverMonthChange(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = a.Summary(ctx)
	assert.ErrorIs(t, err, boom)
}
