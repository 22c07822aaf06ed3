package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int64
	n     int64
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return p.n, p.err
}

func TestSessionJanitor_RunOnce(t *testing.T) {
	tests := []struct {
		name string
		p    *countingPurger
		want int64
	}{
		{"purged", &countingPurger{n: 3}, 3},
		{"nothing", &countingPurger{}, 0},
		{"error", &countingPurger{n: 5, err: errors.New("boom")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewSessionJanitor(tt.p, "")
			if err != nil {
				t.Fatalf("new janitor: %v", err)
			}
			if got := j.RunOnce(context.Background()); got != tt.want {
				t.Fatalf("RunOnce() = %d, want %d", got, tt.want)
			}
			if tt.p.calls.Load() != 1 {
				t.Fatalf("expected one call, got %d", tt.p.calls.Load())
			}
		})
	}
}

func TestSessionJanitor_InvalidSchedule(t *testing.T) {
	if _, err := NewSessionJanitor(&countingPurger{}, "not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSessionJanitor_Schedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the scheduler")
	}
	p := &countingPurger{}
	j, err := NewSessionJanitor(p, "@every 1s")
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}
	j.Start()
	defer j.Stop(context.Background())

	deadline := time.After(3 * time.Second)
	for p.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("purge never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
