package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"consigli/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and driver of a repository.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// SQLRepository implements ports.ExpenseStore on top of database/sql.
// Advice() exposes the ports.AdviceStore half over the same connection.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	queries *Queries
}

// NewSQLiteRepository opens (creating if needed) the sqlite database at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return open(Postgres, dsn)
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == SQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		dialect: dialect,
		queries: New(db, dialect),
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindAll implements ports.ExpenseStore
func (r *SQLRepository) FindAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = toCoreExpense(row)
	}
	return expenses, nil
}

// Save implements ports.ExpenseStore
func (r *SQLRepository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == 0 {
		row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
			Description:       e.Description,
			Amount:            e.Amount,
			PredictedCategory: e.PredictedCategory,
			FinalCategory:     nullString(e.FinalCategory),
			SpentOn:           e.Date.String(),
		})
		if err != nil {
			return core.Expense{}, fmt.Errorf("create expense: %w", err)
		}
		slog.InfoContext(ctx, "Expense saved",
			"id", row.ID,
			"dialect", r.dialect,
			"amount", row.Amount.String(),
			"predicted_category", row.PredictedCategory)
		return toCoreExpense(row), nil
	}

	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:                e.ID,
		Description:       e.Description,
		Amount:            e.Amount,
		PredictedCategory: e.PredictedCategory,
		FinalCategory:     nullString(e.FinalCategory),
		SpentOn:           e.Date.String(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return toCoreExpense(row), nil
}

// FindByID implements ports.ExpenseStore
func (r *SQLRepository) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toCoreExpense(row), nil
}

// MonthlyTotals implements ports.ExpenseStore. Amounts are summed in Go so the
// result is exact regardless of how the driver returns numeric columns.
func (r *SQLRepository) MonthlyTotals(ctx context.Context, year int) ([]core.MonthTotal, error) {
	from := core.NewDate(year, 1, 1).String()
	to := core.NewDate(year+1, 1, 1).String()
	rows, err := r.queries.ListAmountsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list amounts for %d: %w", year, err)
	}

	var totals []core.MonthTotal
	for _, row := range rows {
		month := int(row.SpentOn.Time.Month())
		if n := len(totals); n > 0 && totals[n-1].Month == month {
			totals[n-1].Total = totals[n-1].Total.Add(row.Amount)
			continue
		}
		totals = append(totals, core.MonthTotal{Month: month, Total: row.Amount})
	}
	return totals, nil
}

// Advice returns the advice store sharing this repository's connection.
func (r *SQLRepository) Advice() *AdviceRepository {
	return &AdviceRepository{queries: r.queries}
}

// AdviceRepository implements ports.AdviceStore.
type AdviceRepository struct {
	queries *Queries
}

// Save inserts new advice or records feedback on existing advice.
func (r *AdviceRepository) Save(ctx context.Context, a core.Advice) (core.Advice, error) {
	if a.ID == 0 {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		row, err := r.queries.CreateAdvice(ctx, CreateAdviceParams{
			Category:     a.Category,
			Message:      a.Message,
			Suggestion:   a.Suggestion,
			Confidence:   string(a.Confidence),
			UserDecision: nullString(a.UserDecision),
			UserReason:   nullString(a.UserReason),
			CreatedAt:    createdAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return core.Advice{}, fmt.Errorf("create advice: %w", err)
		}
		return toCoreAdvice(row), nil
	}

	row, err := r.queries.UpdateAdviceFeedback(ctx, UpdateAdviceFeedbackParams{
		ID:           a.ID,
		UserDecision: nullString(a.UserDecision),
		UserReason:   nullString(a.UserReason),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Advice{}, fmt.Errorf("advice %d: %w", a.ID, core.ErrNotFound)
	}
	if err != nil {
		return core.Advice{}, fmt.Errorf("update advice %d: %w", a.ID, err)
	}
	return toCoreAdvice(row), nil
}

func (r *AdviceRepository) FindByID(ctx context.Context, id int64) (core.Advice, error) {
	row, err := r.queries.GetAdvice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Advice{}, fmt.Errorf("advice %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Advice{}, fmt.Errorf("get advice by id: %w", err)
	}
	return toCoreAdvice(row), nil
}

func toCoreExpense(row Expense) core.Expense {
	return core.Expense{
		ID:                row.ID,
		Description:       row.Description,
		Amount:            row.Amount,
		PredictedCategory: row.PredictedCategory,
		FinalCategory:     row.FinalCategory.String,
		Date:              core.DateOf(row.SpentOn.Time),
	}
}

func toCoreAdvice(row Advice) core.Advice {
	return core.Advice{
		ID:           row.ID,
		Category:     row.Category,
		Message:      row.Message,
		Suggestion:   row.Suggestion,
		Confidence:   core.Confidence(row.Confidence),
		UserDecision: row.UserDecision.String,
		UserReason:   row.UserReason.String,
		CreatedAt:    row.CreatedAt.Time.UTC(),
	}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
