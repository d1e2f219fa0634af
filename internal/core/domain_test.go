package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.Error(t, err, "case %d", i)
		}
	}
}

func TestDateOf(t *testing.T) {
	d := DateOf(time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, "2025-03-14", d.String())
	assert.Equal(t, 3, d.Month())
}

func TestEffectiveCategory(t *testing.T) {
	cases := []struct {
		name      string
		predicted string
		final     string
		want      string
	}{
		{"final wins", "Food", "Travel", "Travel"},
		{"predicted when no override", "Food", "", "Food"},
		{"blank override ignored", "Food", "   ", "Food"},
		{"neither", "", "", CategoryUncategorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := Expense{PredictedCategory: tc.predicted, FinalCategory: tc.final}
			assert.Equal(t, tc.want, e.EffectiveCategory())
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	one := decimal.NewFromInt(1)
	cases := []struct {
		name    string
		expense Expense
		wantErr error
	}{
		{"valid", Expense{Description: "coffee", Amount: decimal.RequireFromString("2.50")}, nil},
		{"zero amount", Expense{Description: "free sample", Amount: decimal.Zero}, nil},
		{"200 multibyte characters", Expense{Description: strings.Repeat("é", 200), Amount: one}, nil},
		{"150 multibyte characters", Expense{Description: strings.Repeat("咖", 150), Amount: one}, nil},
		{"empty description", Expense{Description: "", Amount: one}, ErrEmptyDescription},
		{"blank description", Expense{Description: "   ", Amount: one}, ErrEmptyDescription},
		{"201 characters", Expense{Description: strings.Repeat("x", 201), Amount: one}, ErrDescriptionTooLong},
		{"201 multibyte characters", Expense{Description: strings.Repeat("é", 201), Amount: one}, ErrDescriptionTooLong},
		{"negative amount", Expense{Description: "a", Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.expense.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAdviceValidate(t *testing.T) {
	assert.NoError(t, (Advice{Category: CategoryGeneral, Confidence: Low}).Validate())
	assert.ErrorIs(t, (Advice{Category: "", Confidence: Low}).Validate(), ErrEmptyCategory)
	assert.ErrorIs(t, (Advice{Category: "Food", Confidence: "SURE"}).Validate(), ErrInvalidConfidence)
}

func TestApplyFeedback(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	a := Advice{
		ID:         7,
		Category:   "Food",
		Message:    "You spent 60% on Food",
		Suggestion: "Would you like to reduce spending on Food?",
		Confidence: High,
		UserReason: "earlier note",
		CreatedAt:  created,
	}

	got := a.ApplyFeedback(Feedback{Decision: " ACCEPTED "})
	assert.Equal(t, DecisionAccepted, got.UserDecision)
	assert.Equal(t, "earlier note", got.UserReason, "empty reason must not clear the previous one")

	got.UserDecision, got.UserReason = a.UserDecision, a.UserReason
	require.Equal(t, a, got, "feedback changed other fields")

	got = a.ApplyFeedback(Feedback{Decision: DecisionRejected, Reason: "too strict"})
	assert.Equal(t, "too strict", got.UserReason)
	assert.Empty(t, a.UserDecision, "receiver must not be mutated")
}

func TestFeedbackValidate(t *testing.T) {
	assert.NoError(t, (Feedback{Decision: "maybe later"}).Validate(), "free text decisions are allowed")
	assert.ErrorIs(t, (Feedback{Decision: " "}).Validate(), ErrEmptyDecision)
}
