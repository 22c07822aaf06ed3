package storage

import (
	"context"
	"time"

	"expensely/internal/core"
)

// Ports implemented by every persistent backend (sqlite, postgres, memory).
// Reads and writes of expenses are always scoped by the owning user id.
type (
	UserStore interface {
		// CreateUser inserts a user; it fails with core.ErrDuplicateEmail
		// when the email is taken.
		CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
		// GetUserByEmail returns core.ErrNotFound for unknown emails.
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UserExists(ctx context.Context, id int64) (bool, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		// UpdateExpense reports whether a row owned by e.UserID with e.ID was changed.
		UpdateExpense(ctx context.Context, e core.Expense) (bool, error)
		DeleteExpense(ctx context.Context, userID, id int64) (bool, error)
		GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
		// ListExpenses orders by expense date descending, then id ascending.
		ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
		// EachExpense streams the ListExpenses rows to fn without buffering them.
		EachExpense(ctx context.Context, userID int64, fn func(core.Expense) error) error
		SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error)
		// SumByMonth groups sums by YYYY-MM for expense dates in [from, to).
		SumByMonth(ctx context.Context, userID int64, from, to time.Time) ([]core.MonthAmount, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		// GetSession returns core.ErrNotFound for unknown hashes.
		GetSession(ctx context.Context, tokenHash string) (core.Session, error)
		DeleteSession(ctx context.Context, tokenHash string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	EventStore interface {
		// RecordExpenseEvent is idempotent on the event id; it reports
		// whether the event was new.
		RecordExpenseEvent(ctx context.Context, ev core.ExpenseEvent) (bool, error)
		// ListExpenseEvents returns the most recent events of a user, newest first.
		ListExpenseEvents(ctx context.Context, userID int64, limit int) ([]core.ExpenseEvent, error)
	}

	// Store bundles the ports of one backend.
	Store interface {
		UserStore
		ExpenseStore
		SessionStore
		EventStore
		Ping(ctx context.Context) error
		Close() error
	}
)
