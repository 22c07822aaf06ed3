package core

import (
	"sort"
	"time"
)

// MonthsInWindow is the length of the dashboard's trailing monthly series.
const MonthsInWindow = 12

// MonthLayout is the label format of a month bucket.
const MonthLayout = "2006-01"

// Recognised categories, in the order they are offered in forms.
var Categories = []string{"Food", "Transport", "Housing", "Entertainment", "Utilities", "Other"}

// DefaultCategoryColor is used for categories outside the recognised set.
const DefaultCategoryColor = "#CCCCCC"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryTotal is a chart slice: a category, its total and its display color.
type CategoryTotal struct {
	Category string
	Total    Money
	Color    string
}

// MonthAmount is a stored per-month sum; Month is a YYYY-MM label.
type MonthAmount struct {
	Month  string
	Amount Money
}

// MonthTotal is one bucket of the zero-filled monthly series.
type MonthTotal struct {
	Label string
	Total Money
}

// CategoryColor maps a category to its chart color.
func CategoryColor(category string) string {
	switch category {
	case "Food":
		return "#FF6384"
	case "Transport":
		return "#36A2EB"
	case "Housing":
		return "#FFCE56"
	case "Entertainment":
		return "#4BC0C0"
	case "Utilities":
		return "#9966FF"
	case "Other":
		return "#FF9F40"
	default:
		return DefaultCategoryColor
	}
}

// CategoryTotals turns grouped sums into chart slices sorted by total
// descending, ties by category name ascending.
func CategoryTotals(sums []CategoryAmount) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(sums))
	for _, s := range sums {
		out = append(out, CategoryTotal{Category: s.Name, Total: s.Amount, Color: CategoryColor(s.Name)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthStart truncates t to midnight UTC on the first of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the half-open range [from, to) covering the n months
// ending with now's month.
func MonthWindow(now time.Time, n int) (from, to time.Time) {
	cur := MonthStart(now)
	return cur.AddDate(0, -(n - 1), 0), cur.AddDate(0, 1, 0)
}

// TrailingMonths returns n consecutive YYYY-MM labels ending at now's month,
// oldest first.
func TrailingMonths(now time.Time, n int) []string {
	from, _ := MonthWindow(now, n)
	labels := make([]string, n)
	for i := range labels {
		labels[i] = from.AddDate(0, i, 0).Format(MonthLayout)
	}
	return labels
}

// MonthlySeries zero-fills sums into the trailing window ending at now.
// Sums outside the window are ignored.
func MonthlySeries(now time.Time, sums []MonthAmount) []MonthTotal {
	byMonth := make(map[string]int64, len(sums))
	for _, s := range sums {
		byMonth[s.Month] += s.Amount.Cents
	}
	labels := TrailingMonths(now, MonthsInWindow)
	series := make([]MonthTotal, len(labels))
	for i, l := range labels {
		series[i] = MonthTotal{Label: l, Total: Money{Cents: byMonth[l]}}
	}
	return series
}

// EmptyMonthlySeries is the all-zero series for now's window.
func EmptyMonthlySeries(now time.Time) []MonthTotal {
	return MonthlySeries(now, nil)
}

// TotalOf sums the amounts of expenses.
func TotalOf(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ExportFilename is the download name of a CSV export made at now.
func ExportFilename(now time.Time) string {
	return "expenses_" + now.Format(DateLayout) + ".csv"
}
