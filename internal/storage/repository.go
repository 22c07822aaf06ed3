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

	"expensely/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.WrapStorage("ping", r.db.PingContext(ctx))
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	id, err := r.queries.CreateUser(ctx, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrDuplicateEmail
		}
		return 0, core.WrapStorage("create user", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, core.WrapStorage("get user by email", err)
	}
	return core.User{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}, nil
}

func (r *SQLiteRepository) UserExists(ctx context.Context, id int64) (bool, error) {
	ok, err := r.queries.UserExists(ctx, id)
	if err != nil {
		return false, core.WrapStorage("user exists", err)
	}
	return ok, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		UserID:      e.UserID,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		ExpenseDate: e.Date.String(),
	})
	if err != nil {
		return 0, core.WrapStorage("create expense", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"date", e.Date.String())

	return id, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (bool, error) {
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		ExpenseDate: e.Date.String(),
		ID:          e.ID,
		UserID:      e.UserID,
	})
	if err != nil {
		return false, core.WrapStorage("update expense", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	n, err := r.queries.DeleteExpense(ctx, id, userID)
	if err != nil {
		return false, core.WrapStorage("delete expense", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.WrapStorage("get expense", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	var out []core.Expense
	err := r.EachExpense(ctx, userID, func(e core.Expense) error {
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) EachExpense(ctx context.Context, userID int64, fn func(core.Expense) error) error {
	var cbErr error
	err := r.queries.EachExpenseByUser(ctx, userID, func(row ExpenseRow) error {
		e, err := row.toCore()
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			cbErr = err
			return err
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}
	return core.WrapStorage("list expenses", err)
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategory(ctx, userID)
	if err != nil {
		return nil, core.WrapStorage("sum by category", err)
	}
	out := make([]core.CategoryAmount, len(rows))
	for i, cs := range rows {
		out[i] = core.CategoryAmount{Name: cs.Category, Amount: core.Money{Cents: cs.TotalAmount}}
	}
	return out, nil
}

func (r *SQLiteRepository) SumByMonth(ctx context.Context, userID int64, from, to time.Time) ([]core.MonthAmount, error) {
	rows, err := r.queries.SumByMonth(ctx, SumByMonthParams{
		UserID: userID,
		From:   from.Format(core.DateLayout),
		To:     to.Format(core.DateLayout),
	})
	if err != nil {
		return nil, core.WrapStorage("sum by month", err)
	}
	out := make([]core.MonthAmount, len(rows))
	for i, ms := range rows {
		out[i] = core.MonthAmount{Month: ms.Month, Amount: core.Money{Cents: ms.TotalAmount}}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	err := r.queries.CreateSession(ctx, SessionRow{
		TokenHash: s.TokenHash,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt.Unix(),
		ExpiresAt: s.ExpiresAt.Unix(),
	})
	return core.WrapStorage("create session", err)
}

func (r *SQLiteRepository) GetSession(ctx context.Context, tokenHash string) (core.Session, error) {
	row, err := r.queries.GetSession(ctx, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, core.WrapStorage("get session", err)
	}
	return core.Session{
		TokenHash: row.TokenHash,
		UserID:    row.UserID,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC(),
	}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	return core.WrapStorage("delete session", r.queries.DeleteSession(ctx, tokenHash))
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, now.Unix())
	if err != nil {
		return 0, core.WrapStorage("delete expired sessions", err)
	}
	return n, nil
}

func (r *SQLiteRepository) RecordExpenseEvent(ctx context.Context, ev core.ExpenseEvent) (bool, error) {
	n, err := r.queries.RecordExpenseEvent(ctx, ExpenseEventRow{
		ID:         ev.ID,
		EventType:  string(ev.Type),
		ExpenseID:  ev.ExpenseID,
		UserID:     ev.UserID,
		OccurredAt: ev.OccurredAt.Unix(),
	})
	if err != nil {
		return false, core.WrapStorage("record expense event", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListExpenseEvents(ctx context.Context, userID int64, limit int) ([]core.ExpenseEvent, error) {
	rows, err := r.queries.ListExpenseEvents(ctx, userID, int64(limit))
	if err != nil {
		return nil, core.WrapStorage("list expense events", err)
	}
	out := make([]core.ExpenseEvent, len(rows))
	for i, row := range rows {
		out[i] = core.ExpenseEvent{
			ID:         row.ID,
			Type:       core.EventType(row.EventType),
			ExpenseID:  row.ExpenseID,
			UserID:     row.UserID,
			OccurredAt: time.Unix(row.OccurredAt, 0).UTC(),
		}
	}
	return out, nil
}

func (row ExpenseRow) toCore() (core.Expense, error) {
	date, err := core.ParseDate(row.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", row.ID, row.ExpenseDate, err)
	}
	return core.Expense{
		ID:          row.ID,
		UserID:      row.UserID,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    row.Category,
		Date:        date,
	}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
