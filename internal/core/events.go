package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a change to an expense.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// Session binds the hash of an opaque token to a user until it expires.
type Session struct {
	TokenHash string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ExpenseEvent records a successful write to an expense.
type ExpenseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ExpenseID  int64     `json:"expense_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewExpenseEvent stamps a new event with a random id.
func NewExpenseEvent(t EventType, userID, expenseID int64, now time.Time) ExpenseEvent {
	return ExpenseEvent{
		ID:         uuid.NewString(),
		Type:       t,
		ExpenseID:  expenseID,
		UserID:     userID,
		OccurredAt: now.UTC(),
	}
}
