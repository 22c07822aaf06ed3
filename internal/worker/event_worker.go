package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expensely/internal/core"
	applog "expensely/internal/log"
	"expensely/internal/sheets"
	"expensely/internal/storage"
)

// EventWorker consumes expense events: it records each one in the event log
// and mirrors new ones to the activity sheet when one is configured.
type EventWorker struct {
	storage  storage.EventStore
	activity sheets.ActivityWriter
}

// NewEventWorker builds a worker. activity may be nil.
func NewEventWorker(store storage.EventStore, activity sheets.ActivityWriter) *EventWorker {
	return &EventWorker{storage: store, activity: activity}
}

// Handle processes one event. A storage failure is returned so the message is
// redelivered; a duplicate event is acknowledged without side effects.
func (w *EventWorker) Handle(ctx context.Context, ev core.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		applog.FieldEventID, ev.ID,
		"type", ev.Type,
		applog.FieldExpenseID, ev.ExpenseID,
		applog.FieldUserID, ev.UserID)

	inserted, err := w.storage.RecordExpenseEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("record expense event: %w", err)
	}
	if !inserted {
		slog.InfoContext(ctx, "Duplicate expense event skipped", applog.FieldEventID, ev.ID)
		return nil
	}

	if w.activity == nil {
		return nil
	}

	// The event is already recorded, so a redelivery would skip the sheet.
	// Mirroring is best effort.
	ref, err := w.activity.AppendActivity(ctx, ev)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror expense event to activity sheet",
			applog.FieldEventID, ev.ID,
			applog.FieldError, err)
		return nil
	}

	slog.InfoContext(ctx, "Expense event mirrored", applog.FieldEventID, ev.ID, "sheets_ref", ref)
	return nil
}
