package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	pageBreakY     = 270.0
	descriptionMax = 30
)

var (
	listingHeaders = []string{"Date", "Kind", "Category", "Description", "Amount"}
	listingWidths  = []float64{26, 22, 36, 68, 30}
	listingAligns  = []string{"C", "C", "L", "L", "R"}
)

// Document renders an A4 pdf: a header with owner, generation time and
// period, the totals, the top categories of each kind, and the transaction
// listing. The listing header repeats on every page.
func (e *Exporter) Document(ctx context.Context, in Input) (Artifact, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rows, skipped, err := e.prepare(ctx, in)
	if err != nil {
		return Artifact{}, err
	}
	generated := generatedAt(in)
	s := in.Summary

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Generated %s - page %d/{nb}",
			generated.Format("2006-01-02 15:04 MST"), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	title := "Transaction Report"
	if in.OwnerName != "" {
		title += " - " + in.OwnerName
	}
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	if in.OwnerEmail != "" {
		pdf.Cell(0, 6, tr("Account: "+in.OwnerEmail))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, "Generated: "+generated.Format("2006-01-02 15:04:05 MST"))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Period: "+periodLabel(s, rows))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Transactions: %d", len(rows)))
	pdf.Ln(10)

	// totals
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := 182.0 / 3
	pdf.CellFormat(sumW, 10, "Total Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Total Expense", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Balance", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW, 10, core.FormatAmount(s.TotalIncome), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW, 10, core.FormatAmount(s.TotalExpense), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW, 10, core.FormatAmount(s.Balance), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	e.categoryTable(pdf, tr, "Top Expense Categories", s.ExpenseByCategory)
	e.categoryTable(pdf, tr, "Top Income Categories", s.IncomeByCategory)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Transactions")
	pdf.Ln(9)
	listingHeader(pdf)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions", "1", 1, "C", false, 0, "")
	}
	for _, tx := range rows {
		if err := checkBudget(ctx); err != nil {
			return Artifact{}, err
		}
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
			listingHeader(pdf)
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(30, 30, 30)
		}
		amount := core.FormatAmount(tx.Amount)
		if tx.Kind == core.KindExpense {
			amount = "-" + amount
		}
		cells := []string{
			tx.OccurredOn.String(),
			tx.Kind.Title(),
			tr(truncate(tx.Category, 20)),
			tr(truncate(tx.Description, descriptionMax)),
			amount,
		}
		for i, c := range cells {
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(listingWidths[i], 7, c, "1", ln, listingAligns[i], false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return Artifact{}, fmt.Errorf("%w: render pdf: %v", ErrExport, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Artifact{}, fmt.Errorf("%w: write pdf: %v", ErrExport, err)
	}

	return e.finish(ctx, FormatDocument, Artifact{
		Filename: Filename(generated, FormatDocument),
		MIMEType: MIMEDocument,
		Data:     buf.Bytes(),
		Rows:     len(rows),
		Skipped:  skipped,
	}), nil
}

func listingHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	for i, h := range listingHeaders {
		ln := 0
		if i == len(listingHeaders)-1 {
			ln = 1
		}
		pdf.CellFormat(listingWidths[i], 8, h, "1", ln, "C", true, 0, "")
	}
}

func (e *Exporter) categoryTable(pdf *gofpdf.Fpdf, tr func(string) string, title string, m map[string]decimal.Decimal) {
	if len(m) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	for _, c := range topN(core.SortedCategories(m), e.topCategories) {
		pdf.CellFormat(120, 7, tr(truncate(c.Name, 50)), "B", 0, "L", false, 0, "")
		pdf.CellFormat(62, 7, core.FormatAmount(c.Amount), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(5)
}
