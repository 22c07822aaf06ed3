package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type UserRow struct {
	ID           int64
	Email        string
	PasswordHash string
}

type ExpenseRow struct {
	ID          int64
	UserID      int64
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
}

type SessionRow struct {
	TokenHash string
	UserID    int64
	CreatedAt int64
	ExpiresAt int64
}

type CategorySumRow struct {
	Category    string
	TotalAmount int64
}

type MonthSumRow struct {
	Month       string
	TotalAmount int64
}

type ExpenseEventRow struct {
	ID         string
	EventType  string
	ExpenseID  int64
	UserID     int64
	OccurredAt int64
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, password_hash) VALUES (?, ?)
RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	row := q.db.QueryRowContext(ctx, createUser, email, passwordHash)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, password_hash FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash)
	return i, err
}

const userExists = `-- name: UserExists :one
SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`

func (q *Queries) UserExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, userExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (user_id, description, amount_cents, category, expense_date)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

type CreateExpenseParams struct {
	UserID      int64
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.UserID,
		arg.Description,
		arg.AmountCents,
		arg.Category,
		arg.ExpenseDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateExpense = `-- name: UpdateExpense :execrows
UPDATE expenses
SET description = ?, amount_cents = ?, category = ?, expense_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?`

type UpdateExpenseParams struct {
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
	ID          int64
	UserID      int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.Description,
		arg.AmountCents,
		arg.Category,
		arg.ExpenseDate,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getExpense = `-- name: GetExpense :one
SELECT id, user_id, description, amount_cents, category, expense_date
FROM expenses WHERE id = ? AND user_id = ?`

func (q *Queries) GetExpense(ctx context.Context, id, userID int64) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id, userID)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.UserID, &i.Description, &i.AmountCents, &i.Category, &i.ExpenseDate)
	return i, err
}

const listExpensesByUser = `-- name: ListExpensesByUser :many
SELECT id, user_id, description, amount_cents, category, expense_date
FROM expenses WHERE user_id = ?
ORDER BY expense_date DESC, id ASC`

// EachExpenseByUser calls fn for every row of the user's expenses in list order.
func (q *Queries) EachExpenseByUser(ctx context.Context, userID int64, fn func(ExpenseRow) error) error {
	rows, err := q.db.QueryContext(ctx, listExpensesByUser, userID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Description, &i.AmountCents, &i.Category, &i.ExpenseDate); err != nil {
			return err
		}
		if err := fn(i); err != nil {
			return err
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	return rows.Err()
}

const sumByCategory = `-- name: SumByCategory :many
SELECT category, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM expenses WHERE user_id = ?
GROUP BY category
ORDER BY total_amount DESC, category ASC`

func (q *Queries) SumByCategory(ctx context.Context, userID int64) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategory, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySumRow
	for rows.Next() {
		var i CategorySumRow
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumByMonth = `-- name: SumByMonth :many
SELECT substr(expense_date, 1, 7) AS month, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM expenses
WHERE user_id = ? AND expense_date >= ? AND expense_date < ?
GROUP BY month
ORDER BY month ASC`

type SumByMonthParams struct {
	UserID int64
	From   string
	To     string
}

func (q *Queries) SumByMonth(ctx context.Context, arg SumByMonthParams) ([]MonthSumRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByMonth, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthSumRow
	for rows.Next() {
		var i MonthSumRow
		if err := rows.Scan(&i.Month, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateSession(ctx context.Context, arg SessionRow) error {
	_, err := q.db.ExecContext(ctx, createSession, arg.TokenHash, arg.UserID, arg.CreatedAt, arg.ExpiresAt)
	return err
}

const getSession = `-- name: GetSession :one
SELECT token_hash, user_id, created_at, expires_at FROM sessions WHERE token_hash = ?`

func (q *Queries) GetSession(ctx context.Context, tokenHash string) (SessionRow, error) {
	row := q.db.QueryRowContext(ctx, getSession, tokenHash)
	var i SessionRow
	err := row.Scan(&i.TokenHash, &i.UserID, &i.CreatedAt, &i.ExpiresAt)
	return i, err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE token_hash = ?`

func (q *Queries) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, tokenHash)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const recordExpenseEvent = `-- name: RecordExpenseEvent :execrows
INSERT INTO expense_events (id, event_type, expense_id, user_id, occurred_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

func (q *Queries) RecordExpenseEvent(ctx context.Context, arg ExpenseEventRow) (int64, error) {
	result, err := q.db.ExecContext(ctx, recordExpenseEvent,
		arg.ID,
		arg.EventType,
		arg.ExpenseID,
		arg.UserID,
		arg.OccurredAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpenseEvents = `-- name: ListExpenseEvents :many
SELECT id, event_type, expense_id, user_id, occurred_at
FROM expense_events WHERE user_id = ?
ORDER BY occurred_at DESC, id ASC
LIMIT ?`

func (q *Queries) ListExpenseEvents(ctx context.Context, userID int64, limit int64) ([]ExpenseEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseEvents, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseEventRow
	for rows.Next() {
		var i ExpenseEventRow
		if err := rows.Scan(&i.ID, &i.EventType, &i.ExpenseID, &i.UserID, &i.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
