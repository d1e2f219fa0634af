package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"consigli/internal/amqp"
	"consigli/internal/analysis"
	"consigli/internal/core"
	"consigli/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june2025 = func() time.Time { return time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC) }

func spend(amount, category string, month int) core.Expense {
	return core.Expense{
		Description:       category + " purchase",
		Amount:            decimal.RequireFromString(amount),
		PredictedCategory: category,
		Date:              core.NewDate(2025, month, 10),
	}
}

// countingAdviceStore records how many writes reach the underlying store.
type countingAdviceStore struct {
	*memory.AdviceStore
	mu     sync.Mutex
	writes int
}

func (c *countingAdviceStore) Save(ctx context.Context, a core.Advice) (core.Advice, error) {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.AdviceStore.Save(ctx, a)
}

type recordingPublisher struct {
	mu        sync.Mutex
	generated []core.Advice
	feedback  []core.Advice
	err       error
}

func (p *recordingPublisher) PublishExpenseRecorded(context.Context, core.Expense) error {
	return p.err
}

func (p *recordingPublisher) PublishAdviceGenerated(_ context.Context, a core.Advice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generated = append(p.generated, a)
	return p.err
}

func (p *recordingPublisher) PublishFeedbackRecorded(_ context.Context, a core.Advice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, a)
	return p.err
}

type fixture struct {
	engine    *Engine
	advice    *countingAdviceStore
	publisher *recordingPublisher
}

func newFixture(rules Rules, expenses ...core.Expense) fixture {
	store := memory.NewWithExpenses(expenses...)
	advice := &countingAdviceStore{AdviceStore: store.Advice()}
	pub := &recordingPublisher{}
	engine := NewEngine(analysis.NewAnalyzer(store, june2025), advice, pub, rules, nil)
	return fixture{engine: engine, advice: advice, publisher: pub}
}

func TestGenerateAdvice(t *testing.T) {
	tests := []struct {
		name           string
		rules          Rules
		expenses       []core.Expense
		wantCategory   string
		wantConfidence core.Confidence
		wantMessage    string
		wantSuggestion string
	}{
		{
			name:           "dominant category",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("60", "Food", 5), spend("40", "Travel", 5)},
			wantCategory:   "Food",
			wantConfidence: core.High,
			wantMessage:    "You spent 60% on Food",
			wantSuggestion: "Would you like to reduce spending on Food?",
		},
		{
			name:           "trend breach short-circuits category rule",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("100", "Food", 4), spend("120", "Food", 5)},
			wantCategory:   core.CategoryGeneral,
			wantConfidence: core.High,
			wantMessage:    "Your overall spending increased by 20% compared to last month.",
			wantSuggestion: "Would you like help controlling expenses this month?",
		},
		{
			name:           "trend at threshold is not a breach",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("100", "Food", 4), spend("115", "Travel", 5)},
			wantCategory:   "Travel",
			wantConfidence: core.High,
			wantMessage:    "You spent 53% on Travel",
			wantSuggestion: "Would you like to reduce spending on Travel?",
		},
		{
			name:           "balanced",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("40", "Food", 5), spend("30", "Travel", 5), spend("30", "Rent", 5)},
			wantCategory:   core.CategoryGeneral,
			wantConfidence: core.Low,
			wantMessage:    "Your spending is balanced.",
			wantSuggestion: "Keep tracking your expenses.",
		},
		{
			name:           "no expenses",
			rules:          DefaultRules(),
			wantCategory:   core.CategoryGeneral,
			wantConfidence: core.Low,
			wantMessage:    "Your spending is balanced.",
			wantSuggestion: "Keep tracking your expenses.",
		},
		{
			name:           "zero amounts only",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("0", "Food", 5)},
			wantCategory:   core.CategoryGeneral,
			wantConfidence: core.Low,
			wantMessage:    "Your spending is balanced.",
			wantSuggestion: "Keep tracking your expenses.",
		},
		{
			name:           "tie broken alphabetically",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("50", "Travel", 5), spend("50", "Books", 5)},
			wantCategory:   "Books",
			wantConfidence: core.High,
			wantMessage:    "You spent 50% on Books",
			wantSuggestion: "Would you like to reduce spending on Books?",
		},
		{
			name:           "uncategorized bucket can be flagged",
			rules:          DefaultRules(),
			expenses:       []core.Expense{spend("90", "", 5), spend("10", "Food", 5)},
			wantCategory:   core.CategoryUncategorized,
			wantConfidence: core.High,
			wantMessage:    "You spent 90% on UNCATEGORIZED",
			wantSuggestion: "Would you like to reduce spending on UNCATEGORIZED?",
		},
		{
			name: "overridden category threshold",
			rules: Rules{
				TrendThreshold:    decimal.NewFromInt(15),
				CategoryThreshold: decimal.NewFromInt(70),
			},
			expenses:       []core.Expense{spend("60", "Food", 5), spend("40", "Travel", 5)},
			wantCategory:   core.CategoryGeneral,
			wantConfidence: core.Low,
			wantMessage:    "Your spending is balanced.",
			wantSuggestion: "Keep tracking your expenses.",
		},
		{
			name: "overridden trend threshold",
			rules: Rules{
				TrendThreshold:    decimal.NewFromInt(25),
				CategoryThreshold: decimal.NewFromInt(40),
			},
			expenses:       []core.Expense{spend("100", "Food", 4), spend("120", "Travel", 5)},
			wantCategory:   "Travel",
			wantConfidence: core.High,
			wantMessage:    "You spent 55% on Travel",
			wantSuggestion: "Would you like to reduce spending on Travel?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.rules, tt.expenses...)

			got, err := f.engine.GenerateAdvice(context.Background())
			require.NoError(t, err)

			assert.NotZero(t, got.ID)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantSuggestion, got.Suggestion)
			assert.Empty(t, got.UserDecision)
			assert.False(t, got.CreatedAt.IsZero())

			stored, err := f.advice.FindByID(context.Background(), got.ID)
			require.NoError(t, err)
			assert.Equal(t, got, stored)
			require.Len(t, f.publisher.generated, 1)
			assert.Equal(t, got.ID, f.publisher.generated[0].ID)
		})
	}
}

func TestGenerateAdvice_RepeatedCallsPersistDistinctRecords(t *testing.T) {
	f := newFixture(DefaultRules(), spend("60", "Food", 5), spend("40", "Travel", 5))
	ctx := context.Background()

	first, err := f.engine.Analyze(ctx)
	require.NoError(t, err)
	second, err := f.engine.Analyze(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, first.Suggestion, second.Suggestion)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, 2, f.advice.Count())
}

func TestGenerateAdvice_PublisherFailureIsNotFatal(t *testing.T) {
	f := newFixture(DefaultRules(), spend("10", "Food", 5))
	f.publisher.err = errors.New("broker down")

	got, err := f.engine.GenerateAdvice(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
}

func TestGenerateAdvice_NilPublisher(t *testing.T) {
	store := memory.NewWithExpenses(spend("10", "Food", 5))
	engine := NewEngine(analysis.NewAnalyzer(store, june2025), store.Advice(), nil, DefaultRules(), nil)

	_, err := engine.GenerateAdvice(context.Background())
	require.NoError(t, err)
}

type brokenAdviceStore struct{ err error }

func (b brokenAdviceStore) Save(context.Context, core.Advice) (core.Advice, error) {
	return core.Advice{}, b.err
}

func (b brokenAdviceStore) FindByID(context.Context, int64) (core.Advice, error) {
	return core.Advice{}, b.err
}

func TestGenerateAdvice_StoreFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	store := memory.NewWithExpenses(spend("10", "Food", 5))
	pub := &recordingPublisher{}
	engine := NewEngine(analysis.NewAnalyzer(store, june2025), brokenAdviceStore{err: boom}, pub, DefaultRules(), nil)

	_, err := engine.GenerateAdvice(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.generated)
}

func TestRecordFeedback(t *testing.T) {
	f := newFixture(DefaultRules(), spend("60", "Food", 5), spend("40", "Travel", 5))
	ctx := context.Background()

	adv, err := f.engine.GenerateAdvice(ctx)
	require.NoError(t, err)
	writesBefore := f.advice.writes

	got, err := f.engine.SubmitFeedback(ctx, adv.ID, core.Feedback{Decision: core.DecisionAccepted, Reason: "fair point"})
	require.NoError(t, err)

	want := adv
	want.UserDecision = core.DecisionAccepted
	want.UserReason = "fair point"
	assert.Equal(t, want, got)
	assert.Equal(t, writesBefore+1, f.advice.writes)

	stored, err := f.engine.GetAdvice(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored)
	require.Len(t, f.publisher.feedback, 1)
	assert.Equal(t, core.DecisionAccepted, f.publisher.feedback[0].UserDecision)

	// A later decision without a reason keeps the earlier reason.
	got, err = f.engine.RecordFeedback(ctx, adv.ID, core.Feedback{Decision: "maybe later"})
	require.NoError(t, err)
	assert.Equal(t, "maybe later", got.UserDecision)
	assert.Equal(t, "fair point", got.UserReason)
}

func TestRecordFeedback_UnknownAdvice(t *testing.T) {
	f := newFixture(DefaultRules())

	_, err := f.engine.RecordFeedback(context.Background(), 404, core.Feedback{Decision: core.DecisionRejected})

	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Zero(t, f.advice.writes)
	assert.Empty(t, f.publisher.feedback)
}

func TestRecordFeedback_EmptyDecision(t *testing.T) {
	f := newFixture(DefaultRules(), spend("10", "Food", 5))
	adv, err := f.engine.GenerateAdvice(context.Background())
	require.NoError(t, err)

	_, err = f.engine.RecordFeedback(context.Background(), adv.ID, core.Feedback{Decision: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyDecision)
}

func TestGetAdvice_NotFound(t *testing.T) {
	f := newFixture(DefaultRules())
	_, err := f.engine.GetAdvice(context.Background(), 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func (p *blockingPublisher) PublishAdviceGenerated(ctx context.Context, a core.Advice) error {
	<-p.release
	return p.recordingPublisher.PublishAdviceGenerated(ctx, a)
}

func (p *blockingPublisher) PublishFeedbackRecorded(ctx context.Context, a core.Advice) error {
	<-p.release
	return p.recordingPublisher.PublishFeedbackRecorded(ctx, a)
}

func TestGenerateAdvice_SlowBrokerDoesNotBlock(t *testing.T) {
	slow := &blockingPublisher{release: make(chan struct{})}
	async := amqp.NewAsyncPublisher(slow, 8, time.Minute, nil)

	store := memory.NewWithExpenses(spend("10", "food", 6))
	engine := NewEngine(analysis.NewAnalyzer(store, june2025), store.Advice(), async, DefaultRules(), nil)

	start := time.Now()
	adv, err := engine.GenerateAdvice(context.Background())
	require.NoError(t, err)
	_, err = engine.RecordFeedback(context.Background(), adv.ID, core.Feedback{Decision: core.DecisionAccepted})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "callers must not wait for the broker")

	close(slow.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, async.Close(ctx))

	slow.mu.Lock()
	defer slow.mu.Unlock()
	assert.Len(t, slow.generated, 1)
	assert.Len(t, slow.feedback, 1)
}
