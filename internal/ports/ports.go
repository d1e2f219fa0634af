package ports

import (
	"context"

	"consigli/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseStore persists and queries expense records.
	ExpenseStore interface {
		FindAll(ctx context.Context) ([]core.Expense, error)
		// Save inserts e when its ID is zero and updates it otherwise.
		Save(ctx context.Context, e core.Expense) (core.Expense, error)
		// FindByID returns core.ErrNotFound when no expense has the given id.
		FindByID(ctx context.Context, id int64) (core.Expense, error)
		// MonthlyTotals returns per-month sums for the given year, ascending by month.
		// Months without expenses are omitted.
		MonthlyTotals(ctx context.Context, year int) ([]core.MonthTotal, error)
	}

	// AdviceStore persists generated advisories and their feedback.
	AdviceStore interface {
		Save(ctx context.Context, a core.Advice) (core.Advice, error)
		// FindByID returns core.ErrNotFound when no advice has the given id.
		FindByID(ctx context.Context, id int64) (core.Advice, error)
	}

	// Classifier maps a free-text description to a predicted category.
	Classifier interface {
		Predict(ctx context.Context, description string) (string, error)
	}

	// EventPublisher announces persisted changes to downstream consumers.
	EventPublisher interface {
		PublishExpenseRecorded(ctx context.Context, e core.Expense) error
		PublishAdviceGenerated(ctx context.Context, a core.Advice) error
		PublishFeedbackRecorded(ctx context.Context, a core.Advice) error
	}
)
