package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consigli/internal/core"
	"consigli/internal/log"
	"consigli/internal/ports"

	"github.com/shopspring/decimal"
)

// ExpenseService orchestrates expense ingestion: classification, storage and
// event publishing.
type ExpenseService struct {
	store      ports.ExpenseStore
	classifier ports.Classifier
	publisher  ports.EventPublisher
	now        func() time.Time
	logger     *log.StructuredLogger
}

// NewExpenseService wires the service. publisher may be nil; a nil clock
// defaults to time.Now.
func NewExpenseService(store ports.ExpenseStore, classifier ports.Classifier, publisher ports.EventPublisher, now func() time.Time, logger *log.Logger) *ExpenseService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:      store,
		classifier: classifier,
		publisher:  publisher,
		now:        now,
		logger:     log.NewStructuredLogger(logger.WithComponent(log.ComponentExpense)),
	}
}

// RecordExpense classifies and stores a new expense dated today. When the
// classifier fails nothing is stored and the error wraps
// core.ErrClassificationUnavailable.
func (s *ExpenseService) RecordExpense(ctx context.Context, description string, amount decimal.Decimal) (core.Expense, error) {
	e := core.Expense{
		Description: strings.TrimSpace(description),
		Amount:      amount,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	category, err := s.classifier.Predict(ctx, e.Description)
	if err != nil {
		s.logger.LogError(ctx, "Classification failed", err, log.ComponentClassifier, log.OpClassify, nil)
		return core.Expense{}, fmt.Errorf("classify expense: %w", err)
	}
	e.PredictedCategory = category
	e.Date = core.DateOf(s.now())

	saved, err := s.store.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.logger.LogExpenseRecorded(ctx, saved.ID, saved.Description, saved.Amount.String(), saved.PredictedCategory)

	if err := s.publishRecorded(ctx, saved); err != nil {
		s.logger.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithExpense(saved.ID, saved.Description, saved.Amount.String(), saved.PredictedCategory, ""))
		// Don't fail the request - expense is saved
	}

	return saved, nil
}

// ListExpenses returns every stored expense.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// OverrideCategory sets the human-chosen category of an expense. It can be
// called repeatedly; the predicted category is never touched.
func (s *ExpenseService) OverrideCategory(ctx context.Context, id int64, category string) (core.Expense, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.Expense{}, core.ErrEmptyCategory
	}

	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("find expense %d: %w", id, err)
	}
	e.FinalCategory = category

	saved, err := s.store.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense %d: %w", id, err)
	}
	return saved, nil
}

func (s *ExpenseService) publishRecorded(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishExpenseRecorded(ctx, e)
}
