// Package worker consumes the events published on the AMQP exchange.
package worker

import (
	"context"
	"fmt"
	"sync"

	"consigli/internal/amqp"
	"consigli/internal/core"
	"consigli/internal/log"
)

// AdviceGenerator produces a fresh advisory from the current data.
type AdviceGenerator interface {
	GenerateAdvice(ctx context.Context) (core.Advice, error)
}

// EventWorker records every event it receives and, when an AdviceGenerator
// is configured, re-runs the analysis after each recorded expense.
type EventWorker struct {
	advisor AdviceGenerator
	logger  *log.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// NewEventWorker returns a worker. advisor may be nil to only log events.
func NewEventWorker(advisor AdviceGenerator, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		advisor: advisor,
		logger:  logger.WithComponent(log.ComponentWorker),
		counts:  make(map[string]int64),
	}
}

// HandleEvent processes one event. A returned error makes the consumer
// requeue the message.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	w.mu.Lock()
	w.counts[ev.Type]++
	w.mu.Unlock()

	switch ev.Type {
	case amqp.RoutingExpenseRecorded:
		w.logger.InfoContext(ctx, "Expense recorded event",
			log.FieldExpenseID, ev.Expense.ID,
			log.FieldAmount, ev.Expense.Amount,
			log.FieldPredicted, ev.Expense.PredictedCategory)
		return w.refreshAdvice(ctx, ev.Expense.ID)

	case amqp.RoutingAdviceGenerated:
		w.logger.InfoContext(ctx, "Advice generated event",
			log.FieldAdviceID, ev.Advice.ID,
			log.FieldCategory, ev.Advice.Category,
			log.FieldConfidence, ev.Advice.Confidence)

	case amqp.RoutingAdviceFeedback:
		w.logger.InfoContext(ctx, "Advice feedback event",
			log.FieldAdviceID, ev.Advice.ID,
			log.FieldDecision, ev.Advice.UserDecision)

	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", "type", ev.Type)
	}
	return nil
}

func (w *EventWorker) refreshAdvice(ctx context.Context, expenseID int64) error {
	if w.advisor == nil {
		return nil
	}
	adv, err := w.advisor.GenerateAdvice(ctx)
	if err != nil {
		return fmt.Errorf("generate advice after expense %d: %w", expenseID, err)
	}
	w.logger.InfoContext(ctx, "Advice refreshed",
		log.FieldExpenseID, expenseID,
		log.FieldAdviceID, adv.ID,
		log.FieldCategory, adv.Category)
	return nil
}

// Counts returns how many events of each type were handled.
func (w *EventWorker) Counts() map[string]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int64, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// Consumer is the subset of amqp.Client the worker runs on.
type Consumer interface {
	Consume(ctx context.Context, handler func(*amqp.Event) error) error
}

// Run consumes events until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Event worker started", "refresh_advice", w.advisor != nil)
	err := c.Consume(ctx, func(ev *amqp.Event) error {
		return w.HandleEvent(ctx, ev)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
