package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"

	// built-in excel number format "#,##0.00"
	numFmtAmount = 4
)

var tabularHeaders = []any{"Date", "Kind", "Category", "Description", "Amount"}

// Tabular renders an xlsx workbook. The Transactions sheet lists one row per
// valid record, oldest first, followed by a totals block. The Summary sheet
// repeats the totals and adds category and monthly breakdowns.
//
// Empty input still yields a workbook with headers and zero totals.
func (e *Exporter) Tabular(ctx context.Context, in Input) (Artifact, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rows, skipped, err := e.prepare(ctx, in)
	if err != nil {
		return Artifact{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f}
	if err := w.init(); err != nil {
		return Artifact{}, err
	}

	if err := w.row(sheetTransactions, 1, tabularHeaders...); err != nil {
		return Artifact{}, err
	}
	w.style(sheetTransactions, "A1", "E1", w.bold)

	r := 2
	for _, tx := range rows {
		if err := checkBudget(ctx); err != nil {
			return Artifact{}, err
		}
		if err := w.row(sheetTransactions, r,
			tx.OccurredOn.String(), tx.Kind.Title(), tx.Category, tx.Description, tx.Amount.InexactFloat64()); err != nil {
			return Artifact{}, err
		}
		r++
	}
	if r > 2 {
		w.style(sheetTransactions, "E2", cell(5, r-1), w.amount)
	}

	s := in.Summary
	r++
	totals := [][]any{
		{"Total Income", s.TotalIncome.InexactFloat64()},
		{"Total Expense", s.TotalExpense.InexactFloat64()},
		{"Balance", s.Balance.InexactFloat64()},
	}
	for _, t := range totals {
		if err := w.set(sheetTransactions, cell(4, r), t[0]); err != nil {
			return Artifact{}, err
		}
		if err := w.set(sheetTransactions, cell(5, r), t[1]); err != nil {
			return Artifact{}, err
		}
		w.style(sheetTransactions, cell(4, r), cell(4, r), w.bold)
		w.style(sheetTransactions, cell(5, r), cell(5, r), w.amount)
		r++
	}
	w.widths(sheetTransactions, map[string]float64{"A": 12, "B": 10, "C": 18, "D": 40, "E": 14})

	if err := w.summarySheet(s, len(rows)); err != nil {
		return Artifact{}, err
	}
	if w.err != nil {
		return Artifact{}, w.err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: write workbook: %v", ErrExport, err)
	}

	return e.finish(ctx, FormatTabular, Artifact{
		Filename: Filename(generatedAt(in), FormatTabular),
		MIMEType: MIMETabular,
		Data:     buf.Bytes(),
		Rows:     len(rows),
		Skipped:  skipped,
	}), nil
}

// sheetWriter keeps the first styling error so callers only check once.
type sheetWriter struct {
	f      *excelize.File
	bold   int
	amount int
	err    error
}

func (w *sheetWriter) init() error {
	if err := w.f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return fmt.Errorf("%w: rename sheet: %v", ErrExport, err)
	}
	if _, err := w.f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("%w: add sheet: %v", ErrExport, err)
	}
	var err error
	if w.bold, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("%w: style: %v", ErrExport, err)
	}
	if w.amount, err = w.f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return fmt.Errorf("%w: style: %v", ErrExport, err)
	}
	return nil
}

func (w *sheetWriter) row(sheet string, r int, values ...any) error {
	if err := w.f.SetSheetRow(sheet, cell(1, r), &values); err != nil {
		return fmt.Errorf("%w: write row %d: %v", ErrExport, r, err)
	}
	return nil
}

func (w *sheetWriter) set(sheet, axis string, v any) error {
	if err := w.f.SetCellValue(sheet, axis, v); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrExport, axis, err)
	}
	return nil
}

func (w *sheetWriter) style(sheet, from, to string, id int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(sheet, from, to, id); err != nil {
		w.err = fmt.Errorf("%w: style %s:%s: %v", ErrExport, from, to, err)
	}
}

func (w *sheetWriter) widths(sheet string, cols map[string]float64) {
	for col, width := range cols {
		if w.err != nil {
			return
		}
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			w.err = fmt.Errorf("%w: column width: %v", ErrExport, err)
		}
	}
}

func (w *sheetWriter) summarySheet(s core.Summary, count int) error {
	period := "All transactions"
	if s.Window != nil {
		period = s.Window.String()
	}

	r := 1
	block := func(title string, header []any, lines [][]any) error {
		if err := w.set(sheetSummary, cell(1, r), title); err != nil {
			return err
		}
		w.style(sheetSummary, cell(1, r), cell(1, r), w.bold)
		r++
		if err := w.row(sheetSummary, r, header...); err != nil {
			return err
		}
		w.style(sheetSummary, cell(1, r), cell(len(header), r), w.bold)
		r++
		for _, line := range lines {
			if err := w.row(sheetSummary, r, line...); err != nil {
				return err
			}
			for i, v := range line {
				if _, ok := v.(float64); ok {
					w.style(sheetSummary, cell(i+1, r), cell(i+1, r), w.amount)
				}
			}
			r++
		}
		r++
		return nil
	}

	overview := [][]any{
		{"Total Income", s.TotalIncome.InexactFloat64()},
		{"Total Expense", s.TotalExpense.InexactFloat64()},
		{"Balance", s.Balance.InexactFloat64()},
		{"Transactions", count},
		{"Period", period},
	}
	if err := block("Overview", []any{"Metric", "Value"}, overview); err != nil {
		return err
	}

	if err := block("Income by Category", []any{"Category", "Amount"}, categoryLines(s.IncomeByCategory)); err != nil {
		return err
	}
	if err := block("Expense by Category", []any{"Category", "Amount"}, categoryLines(s.ExpenseByCategory)); err != nil {
		return err
	}

	trend := make([][]any, 0, len(s.MonthlyTrend))
	for _, m := range s.MonthlyTrend {
		trend = append(trend, []any{m.Month.String(), m.Income.InexactFloat64(), m.Expense.InexactFloat64()})
	}
	if err := block("Monthly Trend", []any{"Month", "Income", "Expense"}, trend); err != nil {
		return err
	}

	w.widths(sheetSummary, map[string]float64{"A": 22, "B": 16, "C": 16})
	return nil
}

func categoryLines(m map[string]decimal.Decimal) [][]any {
	sorted := core.SortedCategories(m)
	lines := make([][]any, 0, len(sorted))
	for _, c := range sorted {
		lines = append(lines, []any{c.Name, c.Amount.InexactFloat64()})
	}
	return lines
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}
