package sheets

import (
	"context"

	"expensely/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityWriter mirrors expense events to a human-readable log.
	ActivityWriter interface {
		AppendActivity(ctx context.Context, ev core.ExpenseEvent) (rowRef string, err error)
	}
)

// ActivityRow is the column layout shared by every ActivityWriter:
// occurred at (RFC 3339), event type, user id, expense id, event id.
func ActivityRow(ev core.ExpenseEvent) []any {
	return []any{
		ev.OccurredAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		string(ev.Type),
		ev.UserID,
		ev.ExpenseID,
		ev.ID,
	}
}
