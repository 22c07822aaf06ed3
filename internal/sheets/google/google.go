package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"expensely/internal/core"
	ports "expensely/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultActivitySheet is the base name of the activity tab; the event year is prefixed.
const DefaultActivitySheet = "Activity"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Activity"); code prefixes the event year.
	activityBase string
}

// Ensure interface conformance
var _ ports.ActivityWriter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	ActivitySheet string
	// Credentials: inline JSON wins over a file path.
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a client. Extra options are passed to the Sheets service and,
// when given, replace service account authentication.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.ActivitySheet == "" {
		cfg.ActivitySheet = DefaultActivitySheet
	}

	if len(opts) == 0 {
		credentialsJSON, err := serviceAccountCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully", "activity_sheet", cfg.ActivitySheet)
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, activityBase: cfg.ActivitySheet}, nil
}

func serviceAccountCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.ServiceAccountFile)
		credentialsJSON, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return credentialsJSON, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendActivity appends one row to the activity tab of the event's year.
func (c *Client) AppendActivity(ctx context.Context, ev core.ExpenseEvent) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.activityBase, ev.OccurredAt.Year())
	rng := fmt.Sprintf("%s!A:E", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{ports.ActivityRow(ev)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to append activity to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Activity appended to sheet", "event_id", ev.ID, "range", ref)
	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
