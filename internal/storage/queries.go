package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the statements below against either dialect. Statements are
// written with ? placeholders and rebound for postgres.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID                int64
	Description       string
	Amount            decimal.Decimal
	PredictedCategory string
	FinalCategory     sql.NullString
	SpentOn           dbTime
}

// Advice is a row of the advice table.
type Advice struct {
	ID           int64
	Category     string
	Message      string
	Suggestion   string
	Confidence   string
	UserDecision sql.NullString
	UserReason   sql.NullString
	CreatedAt    dbTime
}

type CreateExpenseParams struct {
	Description       string
	Amount            decimal.Decimal
	PredictedCategory string
	FinalCategory     sql.NullString
	SpentOn           string
}

type UpdateExpenseParams struct {
	ID                int64
	Description       string
	Amount            decimal.Decimal
	PredictedCategory string
	FinalCategory     sql.NullString
	SpentOn           string
}

type CreateAdviceParams struct {
	Category     string
	Message      string
	Suggestion   string
	Confidence   string
	UserDecision sql.NullString
	UserReason   sql.NullString
	CreatedAt    string
}

type UpdateAdviceFeedbackParams struct {
	ID           int64
	UserDecision sql.NullString
	UserReason   sql.NullString
}

// SpentAmount is one (date, amount) pair used for monthly aggregation.
type SpentAmount struct {
	SpentOn dbTime
	Amount  decimal.Decimal
}

const expenseColumns = `id, description, amount, predicted_category, final_category, spent_on`

const createExpense = `INSERT INTO expenses (description, amount, predicted_category, final_category, spent_on)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createExpense),
		arg.Description,
		arg.Amount,
		arg.PredictedCategory,
		arg.FinalCategory,
		arg.SpentOn,
	)
	return scanExpense(row)
}

const updateExpense = `UPDATE expenses
SET description = ?, amount = ?, predicted_category = ?, final_category = ?, spent_on = ?
WHERE id = ?
RETURNING ` + expenseColumns

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(updateExpense),
		arg.Description,
		arg.Amount,
		arg.PredictedCategory,
		arg.FinalCategory,
		arg.SpentOn,
		arg.ID,
	)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, q.rebind(getExpense), id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY id`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAmountsBetween = `SELECT spent_on, amount FROM expenses
WHERE spent_on >= ? AND spent_on < ?
ORDER BY spent_on`

// ListAmountsBetween returns amounts spent in [from, to), both YYYY-MM-DD.
func (q *Queries) ListAmountsBetween(ctx context.Context, from, to string) ([]SpentAmount, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(listAmountsBetween), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SpentAmount
	for rows.Next() {
		var i SpentAmount
		if err := rows.Scan(&i.SpentOn, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const adviceColumns = `id, category, message, suggestion, confidence, user_decision, user_reason, created_at`

const createAdvice = `INSERT INTO advice (category, message, suggestion, confidence, user_decision, user_reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + adviceColumns

func (q *Queries) CreateAdvice(ctx context.Context, arg CreateAdviceParams) (Advice, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createAdvice),
		arg.Category,
		arg.Message,
		arg.Suggestion,
		arg.Confidence,
		arg.UserDecision,
		arg.UserReason,
		arg.CreatedAt,
	)
	return scanAdvice(row)
}

// UpdateAdviceFeedback only touches the feedback columns; the rest of an
// advisory is immutable once created.
const updateAdviceFeedback = `UPDATE advice
SET user_decision = ?, user_reason = ?
WHERE id = ?
RETURNING ` + adviceColumns

func (q *Queries) UpdateAdviceFeedback(ctx context.Context, arg UpdateAdviceFeedbackParams) (Advice, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(updateAdviceFeedback),
		arg.UserDecision,
		arg.UserReason,
		arg.ID,
	)
	return scanAdvice(row)
}

const getAdvice = `SELECT ` + adviceColumns + ` FROM advice WHERE id = ?`

func (q *Queries) GetAdvice(ctx context.Context, id int64) (Advice, error) {
	return scanAdvice(q.db.QueryRowContext(ctx, q.rebind(getAdvice), id))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row scanner) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.Amount,
		&i.PredictedCategory,
		&i.FinalCategory,
		&i.SpentOn,
	)
	return i, err
}

func scanAdvice(row scanner) (Advice, error) {
	var i Advice
	err := row.Scan(
		&i.ID,
		&i.Category,
		&i.Message,
		&i.Suggestion,
		&i.Confidence,
		&i.UserDecision,
		&i.UserReason,
		&i.CreatedAt,
	)
	return i, err
}

// rebind turns ? placeholders into $1..$n for postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dbTime scans DATE/TIMESTAMP columns that come back as time.Time (postgres)
// or as text (sqlite).
type dbTime struct {
	Time time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

func (t *dbTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised time value %q", s)
}
