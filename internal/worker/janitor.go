package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the session purge every quarter hour.
const DefaultPurgeSchedule = "@every 15m"

// Purger removes expired sessions. Implemented by *session.Manager.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionJanitor purges expired sessions on a cron schedule.
type SessionJanitor struct {
	purger Purger
	cron   *cron.Cron
}

func NewSessionJanitor(purger Purger, schedule string) (*SessionJanitor, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	j := &SessionJanitor{purger: purger, cron: cron.New()}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce purges expired sessions and logs the outcome.
func (j *SessionJanitor) RunOnce(ctx context.Context) int64 {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Session purge failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n
}

func (j *SessionJanitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running purge, bounded by ctx.
func (j *SessionJanitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.WarnContext(ctx, "Session janitor stop timed out")
	}
}
