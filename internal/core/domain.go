package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Low    Confidence = "LOW"
	Medium Confidence = "MEDIUM"
	High   Confidence = "HIGH"
)

const (
	// CategoryGeneral marks trend-based or neutral advice.
	CategoryGeneral = "GENERAL"
	// CategoryUncategorized collects expenses that carry neither a predicted nor a final category.
	CategoryUncategorized = "UNCATEGORIZED"
)

const (
	DecisionAccepted = "ACCEPTED"
	DecisionRejected = "REJECTED"
)

const maxDescriptionLength = 200

type (
	Confidence string

	Date struct {
		time.Time
	}

	Expense struct {
		ID                int64
		Description       string
		Amount            decimal.Decimal
		PredictedCategory string // Assigned by the classifier at creation
		FinalCategory     string // Human override, empty when unset
		Date              Date
	}

	Advice struct {
		ID           int64
		Category     string
		Message      string
		Suggestion   string
		Confidence   Confidence
		UserDecision string
		UserReason   string
		CreatedAt    time.Time
	}

	Feedback struct {
		Decision string
		Reason   string
	}
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrEmptyDescription          = errors.New("empty description")
	ErrDescriptionTooLong        = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory             = errors.New("empty category")
	ErrEmptyDecision             = errors.New("empty decision")
	ErrInvalidConfidence         = errors.New("invalid confidence")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (c Confidence) Validate() error {
	switch c {
	case Low, Medium, High:
		return nil
	default:
		return ErrInvalidConfidence
	}
}

// EffectiveCategory returns the final category when set, otherwise the predicted one.
// Expenses with neither fall into CategoryUncategorized.
func (e Expense) EffectiveCategory() string {
	if c := strings.TrimSpace(e.FinalCategory); c != "" {
		return c
	}
	if c := strings.TrimSpace(e.PredictedCategory); c != "" {
		return c
	}
	return CategoryUncategorized
}

// Validate checks the fields a caller supplies when recording an expense.
// Categories and date are stamped later and are not checked here.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return ValidateAmount(e.Amount)
}

func (a Advice) Validate() error {
	if strings.TrimSpace(a.Category) == "" {
		return ErrEmptyCategory
	}
	return a.Confidence.Validate()
}

func (f Feedback) Validate() error {
	if strings.TrimSpace(f.Decision) == "" {
		return ErrEmptyDecision
	}
	return nil
}

// ApplyFeedback returns a copy of a carrying the user's decision.
// An empty reason leaves any previous reason untouched.
func (a Advice) ApplyFeedback(f Feedback) Advice {
	a.UserDecision = strings.TrimSpace(f.Decision)
	if r := strings.TrimSpace(f.Reason); r != "" {
		a.UserReason = r
	}
	return a
}
