package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"consigli/internal/core"

	"github.com/shopspring/decimal"
)

// Store keeps expenses and advice in process memory. It satisfies both
// ports.ExpenseStore and ports.AdviceStore and is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	advice   []core.Advice
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithExpenses returns a store seeded with the given expenses. IDs are
// reassigned in order.
func NewWithExpenses(expenses ...core.Expense) *Store {
	s := New()
	for _, e := range expenses {
		e.ID = 0
		_, _ = s.Save(context.Background(), e)
	}
	return s
}

// FindAll returns a copy of every stored expense in insertion order.
func (s *Store) FindAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses...), nil
}

// Save stores the expense and assigns an ID when it is new.
func (s *Store) Save(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = int64(len(s.expenses) + 1)
		s.expenses = append(s.expenses, e)
		return e, nil
	}
	i, ok := s.expenseIndex(e.ID)
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	s.expenses[i] = e
	return e, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.expenseIndex(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return s.expenses[i], nil
}

// MonthlyTotals sums amounts per month of the given year, ascending by month.
func (s *Store) MonthlyTotals(_ context.Context, year int) ([]core.MonthTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[int]decimal.Decimal{}
	for _, e := range s.expenses {
		if e.Date.Year() != year {
			continue
		}
		m := e.Date.Month()
		sums[m] = sums[m].Add(e.Amount)
	}
	out := make([]core.MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, core.MonthTotal{Month: m, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// Advice returns an AdviceStore view over the same memory.
func (s *Store) Advice() *AdviceStore {
	return &AdviceStore{s: s}
}

func (s *Store) expenseIndex(id int64) (int, bool) {
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// AdviceStore is the advice half of Store. It exists because both halves
// need a method named Save.
type AdviceStore struct {
	s *Store
}

// Save stores the advice, assigning ID and CreatedAt when it is new.
func (a *AdviceStore) Save(_ context.Context, adv core.Advice) (core.Advice, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if adv.ID == 0 {
		adv.ID = int64(len(a.s.advice) + 1)
		if adv.CreatedAt.IsZero() {
			adv.CreatedAt = a.s.now().UTC()
		}
		a.s.advice = append(a.s.advice, adv)
		return adv, nil
	}
	for i := range a.s.advice {
		if a.s.advice[i].ID == adv.ID {
			// Only feedback is mutable once an advisory exists.
			a.s.advice[i].UserDecision = adv.UserDecision
			a.s.advice[i].UserReason = adv.UserReason
			return a.s.advice[i], nil
		}
	}
	return core.Advice{}, fmt.Errorf("advice %d: %w", adv.ID, core.ErrNotFound)
}

func (a *AdviceStore) FindByID(_ context.Context, id int64) (core.Advice, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, adv := range a.s.advice {
		if adv.ID == id {
			return adv, nil
		}
	}
	return core.Advice{}, fmt.Errorf("advice %d: %w", id, core.ErrNotFound)
}

// Count returns the number of stored advisories.
func (a *AdviceStore) Count() int {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return len(a.s.advice)
}
