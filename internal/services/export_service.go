package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"expensely/internal/core"
	"expensely/internal/storage"
)

// ExportHeader is the first row of every CSV export.
var ExportHeader = []string{"ID", "Description", "Amount", "Category", "Date"}

type ExportService struct {
	storage storage.ExpenseStore
	now     func() time.Time
}

func NewExportService(store storage.ExpenseStore, now func() time.Time) *ExportService {
	if now == nil {
		now = time.Now
	}
	return &ExportService{storage: store, now: now}
}

// Filename is the suggested download name for an export made now.
func (s *ExportService) Filename() string {
	return core.ExportFilename(s.now())
}

// WriteCSV streams p's expenses to w in list order. Rows are written as the
// store yields them.
func (s *ExportService) WriteCSV(ctx context.Context, p core.Principal, w io.Writer) error {
	if !p.Authenticated() {
		return core.ErrUnauthorized
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rows := 0
	err := s.storage.EachExpense(ctx, p.UserID, func(e core.Expense) error {
		rows++
		return csvWriter.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.Description,
			e.Amount.String(),
			e.Category,
			e.Date.String(),
		})
	})
	if err != nil {
		return fmt.Errorf("export expenses: %w", err)
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	slog.InfoContext(ctx, "Expenses exported", "user_id", p.UserID, "rows", rows)
	return nil
}
