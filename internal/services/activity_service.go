package services

import (
	"context"
	"fmt"

	"expensely/internal/core"
	"expensely/internal/storage"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 100
)

// ActivityService reads the per-user audit trail recorded by the event worker.
type ActivityService struct {
	events storage.EventStore
}

func NewActivityService(events storage.EventStore) *ActivityService {
	return &ActivityService{events: events}
}

// Recent returns p's latest expense events, newest first. A non-positive
// limit selects DefaultActivityLimit; larger limits are capped at
// MaxActivityLimit.
func (s *ActivityService) Recent(ctx context.Context, p core.Principal, limit int) ([]core.ExpenseEvent, error) {
	if !p.Authenticated() {
		return nil, core.ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, MaxActivityLimit)

	events, err := s.events.ListExpenseEvents(ctx, p.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return events, nil
}
