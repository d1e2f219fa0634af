package amqp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"consigli/internal/core"
	"consigli/internal/log"
	"consigli/internal/ports"
)

const (
	DefaultPublishBuffer  = 256
	DefaultPublishTimeout = 10 * time.Second
)

var (
	// ErrPublishQueueFull means the event was dropped because the buffer is full.
	ErrPublishQueueFull = errors.New("event queue full")
	// ErrPublisherClosed means the event arrived after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
)

type publishJob struct {
	ctx        context.Context
	routingKey string
	send       func(ctx context.Context) error
}

// AsyncPublisher hands events to a background goroutine so callers never wait
// on the broker. Each event gets its own timeout and is detached from the
// caller's cancellation; request-scoped values such as the logger survive.
type AsyncPublisher struct {
	next    ports.EventPublisher
	jobs    chan publishJob
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewAsyncPublisher starts the delivery goroutine. Non-positive buffer or
// timeout fall back to the defaults. Call Close to flush and stop it.
func NewAsyncPublisher(next ports.EventPublisher, buffer int, timeout time.Duration, logger *log.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = DefaultPublishBuffer
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	p := &AsyncPublisher{
		next:    next,
		jobs:    make(chan publishJob, buffer),
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentAMQP),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) PublishExpenseRecorded(ctx context.Context, e core.Expense) error {
	return p.enqueue(ctx, RoutingExpenseRecorded, func(ctx context.Context) error {
		return p.next.PublishExpenseRecorded(ctx, e)
	})
}

func (p *AsyncPublisher) PublishAdviceGenerated(ctx context.Context, a core.Advice) error {
	return p.enqueue(ctx, RoutingAdviceGenerated, func(ctx context.Context) error {
		return p.next.PublishAdviceGenerated(ctx, a)
	})
}

func (p *AsyncPublisher) PublishFeedbackRecorded(ctx context.Context, a core.Advice) error {
	return p.enqueue(ctx, RoutingAdviceFeedback, func(ctx context.Context) error {
		return p.next.PublishFeedbackRecorded(ctx, a)
	})
}

func (p *AsyncPublisher) enqueue(ctx context.Context, routingKey string, send func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.jobs <- publishJob{ctx: context.WithoutCancel(ctx), routingKey: routingKey, send: send}:
		return nil
	default:
		p.dropped.Add(1)
		return ErrPublishQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(job.ctx, p.timeout)
		err := job.send(ctx)
		cancel()

		if err != nil {
			p.failed.Add(1)
			p.logger.WarnContext(job.ctx, "Failed to publish event",
				"routing_key", job.routingKey,
				log.FieldError, err)
			continue
		}
		p.published.Add(1)
	}
}

// Stats reports delivered, failed and dropped event counts.
func (p *AsyncPublisher) Stats() (published, failed, dropped int64) {
	return p.published.Load(), p.failed.Load(), p.dropped.Load()
}

// Close stops accepting events and waits until the queued ones are sent or
// ctx expires.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	published, failed, dropped := p.Stats()
	p.logger.Info("Event publisher stopped",
		"published", published,
		"failed", failed,
		"dropped", dropped)
	return nil
}
