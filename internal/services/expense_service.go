package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensely/internal/core"
	"expensely/internal/storage"
)

// EventPublisher announces successful expense writes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev core.ExpenseEvent) error
}

// ExpenseService runs owner-scoped CRUD over the expense store and publishes
// change events when a publisher is configured.
type ExpenseService struct {
	storage   storage.ExpenseStore
	publisher EventPublisher
	now       func() time.Time
}

func NewExpenseService(store storage.ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Add validates the input and stores it as a new expense of p.
func (s *ExpenseService) Add(ctx context.Context, p core.Principal, in core.ExpenseInput) (int64, error) {
	if !p.Authenticated() {
		return 0, core.ErrUnauthorized
	}
	e, err := in.Parse()
	if err != nil {
		return 0, err
	}
	e.UserID = p.UserID

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense added", "user_id", p.UserID, "expense_id", id)
	s.publish(ctx, core.ExpenseCreated, p.UserID, id)
	return id, nil
}

// Update replaces the fields of an expense owned by p.
func (s *ExpenseService) Update(ctx context.Context, p core.Principal, id int64, in core.ExpenseInput) error {
	if !p.Authenticated() {
		return core.ErrUnauthorized
	}
	e, err := in.Parse()
	if err != nil {
		return err
	}
	e.ID = id
	e.UserID = p.UserID

	changed, err := s.storage.UpdateExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if !changed {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense updated", "user_id", p.UserID, "expense_id", id)
	s.publish(ctx, core.ExpenseUpdated, p.UserID, id)
	return nil
}

// Delete removes an expense owned by p. Deleting a missing or foreign
// expense is not an error.
func (s *ExpenseService) Delete(ctx context.Context, p core.Principal, id int64) error {
	if !p.Authenticated() {
		return core.ErrUnauthorized
	}
	deleted, err := s.storage.DeleteExpense(ctx, p.UserID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !deleted {
		slog.DebugContext(ctx, "Delete matched no expense", "user_id", p.UserID, "expense_id", id)
		return nil
	}

	slog.InfoContext(ctx, "Expense deleted", "user_id", p.UserID, "expense_id", id)
	s.publish(ctx, core.ExpenseDeleted, p.UserID, id)
	return nil
}

// List returns p's expenses, newest date first.
func (s *ExpenseService) List(ctx context.Context, p core.Principal) ([]core.Expense, error) {
	if !p.Authenticated() {
		return nil, core.ErrUnauthorized
	}
	list, err := s.storage.ListExpenses(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// GetOwned returns one expense of p, or core.ErrNotFound.
func (s *ExpenseService) GetOwned(ctx context.Context, p core.Principal, id int64) (core.Expense, error) {
	if !p.Authenticated() {
		return core.Expense{}, core.ErrUnauthorized
	}
	e, err := s.storage.GetExpense(ctx, p.UserID, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) publish(ctx context.Context, t core.EventType, userID, expenseID int64) {
	if s.publisher == nil {
		return
	}
	ev := core.NewExpenseEvent(t, userID, expenseID, s.now())
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		// The write already succeeded; the event is best effort.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event_id", ev.ID,
			"type", t,
			"expense_id", expenseID,
			"error", err)
	}
}
