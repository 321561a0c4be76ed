// Package sheets mirrors users' transactions into a spreadsheet, one sheet
// per user.
package sheets

import (
	"context"
	"sort"
	"strconv"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// MirrorWriter replaces the whole content of a named sheet, creating it
	// when missing.
	MirrorWriter interface {
		WriteSheet(ctx context.Context, title string, rows [][]any) error
	}

	// MirrorReader returns the current content of a sheet.
	MirrorReader interface {
		ReadSheet(ctx context.Context, title string) ([][]any, error)
	}
)

// Header is the first row of every mirrored sheet.
var Header = []any{"Date", "Kind", "Category", "Description", "Amount"}

// SheetName is the sheet holding userID's transactions.
func SheetName(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

// Table lays out txs oldest first followed by a blank row and the totals of
// s. Amounts are written with two decimals.
func Table(txs []core.Transaction, s core.Summary) [][]any {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return a.OccurredOn.Before(b.OccurredOn)
		}
		return a.ID < b.ID
	})

	rows := make([][]any, 0, len(sorted)+5)
	rows = append(rows, Header)
	for _, tx := range sorted {
		rows = append(rows, []any{
			tx.OccurredOn.String(),
			tx.Kind.Title(),
			tx.Category,
			tx.Description,
			tx.Amount.StringFixed(2),
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"", "", "", "Total Income", s.TotalIncome.StringFixed(2)},
		[]any{"", "", "", "Total Expense", s.TotalExpense.StringFixed(2)},
		[]any{"", "", "", "Balance", s.Balance.StringFixed(2)},
	)
	return rows
}
