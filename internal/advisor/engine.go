// Package advisor turns spending statistics into a single persisted advisory
// and records user feedback against it.
package advisor

import (
	"context"
	"fmt"

	"consigli/internal/analysis"
	"consigli/internal/core"
	"consigli/internal/log"
	"consigli/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates Rules against live statistics. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	analyzer  *analysis.Analyzer
	advice    ports.AdviceStore
	publisher ports.EventPublisher
	rules     Rules
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewEngine wires an Engine. publisher and logger may be nil.
func NewEngine(analyzer *analysis.Analyzer, advice ports.AdviceStore, publisher ports.EventPublisher, rules Rules, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAdvisor)
	return &Engine{
		analyzer:  analyzer,
		advice:    advice,
		publisher: publisher,
		rules:     rules,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Rules returns the thresholds in effect.
func (e *Engine) Rules() Rules {
	return e.rules
}

// GenerateAdvice computes the statistics, picks one advisory and persists it.
// Every call stores a new record, even when the data has not changed.
func (e *Engine) GenerateAdvice(ctx context.Context) (core.Advice, error) {
	trend, err := e.analyzer.MonthOverMonthChange(ctx)
	if err != nil {
		return core.Advice{}, fmt.Errorf("compute trend: %w", err)
	}

	var (
		total      decimal.Decimal
		categories map[string]decimal.Decimal
	)
	// The trend rule short-circuits, so totals are only read when needed.
	if !trend.GreaterThan(e.rules.TrendThreshold) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			total, err = e.analyzer.TotalSpend(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			categories, err = e.analyzer.CategoryTotals(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return core.Advice{}, fmt.Errorf("compute totals: %w", err)
		}
	}

	adv := e.rules.Evaluate(trend, total, categories)
	saved, err := e.advice.Save(ctx, adv)
	if err != nil {
		return core.Advice{}, fmt.Errorf("save advice: %w", err)
	}

	e.events.LogAdviceGenerated(ctx, saved.ID, saved.Category, string(saved.Confidence), trend.StringFixed(2))

	if e.publisher != nil {
		if err := e.publisher.PublishAdviceGenerated(ctx, saved); err != nil {
			e.logger.ErrorContext(ctx, "Failed to publish advice event",
				log.FieldAdviceID, saved.ID, log.FieldError, err)
		}
	}

	return saved, nil
}

// Analyze runs GenerateAdvice.
func (e *Engine) Analyze(ctx context.Context) (core.Advice, error) {
	return e.GenerateAdvice(ctx)
}

// RecordFeedback stores the user's decision on an existing advisory. Nothing
// is written when id is unknown; the error wraps core.ErrNotFound.
func (e *Engine) RecordFeedback(ctx context.Context, id int64, f core.Feedback) (core.Advice, error) {
	if err := f.Validate(); err != nil {
		return core.Advice{}, err
	}

	existing, err := e.advice.FindByID(ctx, id)
	if err != nil {
		return core.Advice{}, fmt.Errorf("find advice %d: %w", id, err)
	}

	saved, err := e.advice.Save(ctx, existing.ApplyFeedback(f))
	if err != nil {
		return core.Advice{}, fmt.Errorf("save feedback: %w", err)
	}

	e.logger.InfoContext(ctx, "Feedback recorded",
		log.FieldAdviceID, saved.ID,
		log.FieldDecision, saved.UserDecision)

	if e.publisher != nil {
		if err := e.publisher.PublishFeedbackRecorded(ctx, saved); err != nil {
			e.logger.ErrorContext(ctx, "Failed to publish feedback event",
				log.FieldAdviceID, saved.ID, log.FieldError, err)
		}
	}

	return saved, nil
}

// SubmitFeedback runs RecordFeedback.
func (e *Engine) SubmitFeedback(ctx context.Context, id int64, f core.Feedback) (core.Advice, error) {
	return e.RecordFeedback(ctx, id, f)
}

// GetAdvice returns a stored advisory.
func (e *Engine) GetAdvice(ctx context.Context, id int64) (core.Advice, error) {
	adv, err := e.advice.FindByID(ctx, id)
	if err != nil {
		return core.Advice{}, fmt.Errorf("find advice %d: %w", id, err)
	}
	return adv, nil
}
