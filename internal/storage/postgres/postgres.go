// Package postgres implements the storage ports on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"expensely/internal/core"
	"expensely/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

var _ storage.Store = (*Store)(nil)

// Store reuses pooled connections instead of dialing per query.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, verifies the connection and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	return storage.Migrate(migrationsFS, "migrations", "pgx5", driver)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return core.WrapStorage("ping", s.pool.Ping(ctx))
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	const query = `
        INSERT INTO users (email, password_hash)
        VALUES ($1, $2)
        RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query, email, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, core.ErrDuplicateEmail
		}
		return 0, core.WrapStorage("create user", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`

	var u core.User
	err := s.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, core.WrapStorage("get user by email", err)
	}
	return u, nil
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, core.WrapStorage("user exists", err)
	}
	return ok, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	const query = `
        INSERT INTO expenses (user_id, description, amount_cents, category, expense_date)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query, e.UserID, e.Description, e.Amount.Cents, e.Category, e.Date.Time).Scan(&id)
	if err != nil {
		return 0, core.WrapStorage("create expense", err)
	}
	slog.InfoContext(ctx, "Expense saved to Postgres", "id", id, "user_id", e.UserID, "amount_cents", e.Amount.Cents)
	return id, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (bool, error) {
	const query = `
        UPDATE expenses
        SET description = $1, amount_cents = $2, category = $3, expense_date = $4, updated_at = now()
        WHERE id = $5 AND user_id = $6`

	tag, err := s.pool.Exec(ctx, query, e.Description, e.Amount.Cents, e.Category, e.Date.Time, e.ID, e.UserID)
	if err != nil {
		return false, core.WrapStorage("update expense", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, core.WrapStorage("delete expense", err)
	}
	return tag.RowsAffected() > 0, nil
}

const expenseColumns = `id, user_id, description, amount_cents, category, expense_date, created_at, updated_at`

func scanExpense(row pgx.Row) (core.Expense, error) {
	var e core.Expense
	var date time.Time
	err := row.Scan(&e.ID, &e.UserID, &e.Description, &e.Amount.Cents, &e.Category, &date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	return e, nil
}

func (s *Store) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`
	e, err := scanExpense(s.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.WrapStorage("get expense", err)
	}
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	var out []core.Expense
	err := s.EachExpense(ctx, userID, func(e core.Expense) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

func (s *Store) EachExpense(ctx context.Context, userID int64, fn func(core.Expense) error) error {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = $1 ORDER BY expense_date DESC, id ASC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return core.WrapStorage("list expenses", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return core.WrapStorage("scan expense", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return core.WrapStorage("list expenses", rows.Err())
}

func (s *Store) SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	const query = `
        SELECT category, SUM(amount_cents)::bigint AS total
        FROM expenses
        WHERE user_id = $1
        GROUP BY category
        ORDER BY total DESC, category ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, core.WrapStorage("sum by category", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, core.WrapStorage("scan category sum", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStorage("sum by category", err)
	}
	return out, nil
}

func (s *Store) SumByMonth(ctx context.Context, userID int64, from, to time.Time) ([]core.MonthAmount, error) {
	const query = `
        SELECT to_char(expense_date, 'YYYY-MM') AS month, SUM(amount_cents)::bigint
        FROM expenses
        WHERE user_id = $1 AND expense_date >= $2 AND expense_date < $3
        GROUP BY month
        ORDER BY month ASC`

	rows, err := s.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, core.WrapStorage("sum by month", err)
	}
	defer rows.Close()

	var out []core.MonthAmount
	for rows.Next() {
		var m core.MonthAmount
		if err := rows.Scan(&m.Month, &m.Amount.Cents); err != nil {
			return nil, core.WrapStorage("scan month sum", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStorage("sum by month", err)
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		sess.TokenHash, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	return core.WrapStorage("create session", err)
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (core.Session, error) {
	var sess core.Session
	err := s.pool.QueryRow(ctx,
		`SELECT token_hash, user_id, created_at, expires_at FROM sessions WHERE token_hash = $1`,
		tokenHash).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, core.WrapStorage("get session", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return core.WrapStorage("delete session", err)
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, core.WrapStorage("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) RecordExpenseEvent(ctx context.Context, ev core.ExpenseEvent) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        INSERT INTO expense_events (id, event_type, expense_id, user_id, occurred_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Type), ev.ExpenseID, ev.UserID, ev.OccurredAt)
	if err != nil {
		return false, core.WrapStorage("record expense event", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListExpenseEvents(ctx context.Context, userID int64, limit int) ([]core.ExpenseEvent, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id::text, event_type, expense_id, user_id, occurred_at
        FROM expense_events
        WHERE user_id = $1
        ORDER BY occurred_at DESC, id ASC
        LIMIT $2`, userID, limit)
	if err != nil {
		return nil, core.WrapStorage("list expense events", err)
	}
	defer rows.Close()

	var out []core.ExpenseEvent
	for rows.Next() {
		var ev core.ExpenseEvent
		var typ string
		if err := rows.Scan(&ev.ID, &typ, &ev.ExpenseID, &ev.UserID, &ev.OccurredAt); err != nil {
			return nil, core.WrapStorage("scan expense event", err)
		}
		ev.Type = core.EventType(typ)
		ev.OccurredAt = ev.OccurredAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStorage("list expense events", err)
	}
	return out, nil
}
