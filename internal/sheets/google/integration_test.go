//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"expensely/internal/core"
)

// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendActivity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		ActivitySheet:      os.Getenv("GOOGLE_ACTIVITY_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Skipf("credentials not usable: %v", err)
	}

	ev := core.NewExpenseEvent(core.ExpenseCreated, 0, 0, time.Now())
	ref, err := client.AppendActivity(ctx, ev)
	if err != nil {
		t.Fatalf("append activity: %v", err)
	}
	if ref == "" {
		t.Error("expected non-empty reference")
	}
	t.Logf("appended %s at %s", ev.ID, ref)
}
