package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func newTestExporter(buf *bytes.Buffer, limits Limits) *Exporter {
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: buf})
	return NewExporter(logger, limits)
}

func mkTx(id int64, kind core.Kind, amount, category, desc string, y, m, d int) core.Transaction {
	tx := core.Transaction{
		ID:          id,
		OwnerID:     1,
		Kind:        kind,
		Category:    category,
		Description: desc,
		OccurredOn:  core.NewDate(y, m, d),
	}
	if amount != "" {
		tx.Amount = decimal.RequireFromString(amount)
	}
	return tx
}

func sampleInput(t *testing.T, txs []core.Transaction) Input {
	t.Helper()
	s, err := core.Summarize(ValidTransactions(txs), nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	return Input{
		OwnerName:    "Ada",
		Transactions: txs,
		Summary:      s,
		GeneratedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read %s: %v", sheet, err)
	}
	return rows
}

func TestTabularOrdersRowsAndAppendsTotals(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})
	txs := []core.Transaction{
		mkTx(3, core.KindExpense, "50", "Food", "groceries", 2024, 2, 1),
		mkTx(1, core.KindIncome, "1000", "Salary", "january pay", 2024, 1, 5),
		mkTx(2, core.KindExpense, "200", "Food", "", 2024, 1, 10),
	}

	a, err := e.Tabular(context.Background(), sampleInput(t, txs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.MIMEType != MIMETabular || a.Filename != "transactions_20240301.xlsx" {
		t.Fatalf("unexpected artifact metadata %q %q", a.MIMEType, a.Filename)
	}
	if a.Rows != 3 || a.Skipped != 0 {
		t.Fatalf("expected 3 rows and no skips, got %d/%d", a.Rows, a.Skipped)
	}

	rows := readRows(t, a.Data, sheetTransactions)
	if got := strings.Join(rows[0], ","); got != "Date,Kind,Category,Description,Amount" {
		t.Fatalf("unexpected header %q", got)
	}
	wantDates := []string{"2024-01-05", "2024-01-10", "2024-02-01"}
	for i, d := range wantDates {
		if rows[i+1][0] != d {
			t.Fatalf("row %d: expected %s, got %s", i+1, d, rows[i+1][0])
		}
	}
	if rows[1][1] != "Income" || rows[1][2] != "Salary" {
		t.Fatalf("unexpected first row %v", rows[1])
	}

	var balance []string
	for _, r := range rows {
		if len(r) >= 5 && r[3] == "Balance" {
			balance = r
		}
	}
	if balance == nil {
		t.Fatalf("expected balance row, got %v", rows)
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(balance[4], ",", ""), 64); err != nil || v != 750 {
		t.Fatalf("expected balance 750, got %q", balance[4])
	}

	summary := readRows(t, a.Data, sheetSummary)
	if summary[0][0] != "Overview" || summary[1][0] != "Metric" {
		t.Fatalf("unexpected summary sheet start %v", summary[:2])
	}
}

func TestTabularTotalsAreDecimalExact(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})
	txs := []core.Transaction{
		mkTx(1, core.KindExpense, "0.10", "Food", "", 2024, 1, 1),
		mkTx(2, core.KindExpense, "0.20", "Food", "", 2024, 1, 2),
		mkTx(3, core.KindIncome, "1.00", "Gifts", "", 2024, 1, 3),
	}
	a, err := e.Tabular(context.Background(), sampleInput(t, txs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	cases := []struct {
		axis, label, want string
	}{
		{"B3", "Total Income", "1"},
		{"B4", "Total Expense", "0.3"},
		{"B5", "Balance", "0.7"},
	}
	for _, tt := range cases {
		t.Run(tt.label, func(t *testing.T) {
			label, _ := f.GetCellValue(sheetSummary, "A"+tt.axis[1:])
			if label != tt.label {
				t.Fatalf("expected %q in column A, got %q", tt.label, label)
			}
			got, err := f.GetCellValue(sheetSummary, tt.axis, raw)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTabularSkipsMalformedRecords(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})
	txs := []core.Transaction{
		mkTx(1, core.KindIncome, "1000", "Salary", "", 2024, 1, 5),
		mkTx(2, core.KindExpense, "", "Food", "missing amount", 2024, 1, 6),
		mkTx(3, core.KindExpense, "200", "Food", "", 2024, 1, 10),
	}

	a, err := e.Tabular(context.Background(), sampleInput(t, txs))
	if err != nil {
		t.Fatalf("expected degraded output, got error %v", err)
	}
	if a.Rows != 2 || a.Skipped != 1 {
		t.Fatalf("expected 2 rows and 1 skip, got %d/%d", a.Rows, a.Skipped)
	}

	rows := readRows(t, a.Data, sheetTransactions)
	data := 0
	for _, r := range rows[1:] {
		if len(r) > 0 && r[0] != "" {
			data++
		}
	}
	if data != 2 {
		t.Fatalf("expected exactly two transaction rows, got %d: %v", data, rows)
	}
	if !strings.Contains(logs.String(), "Skipping malformed transaction") || !strings.Contains(logs.String(), "transaction_id=2") {
		t.Fatalf("expected skip warning in logs, got %q", logs.String())
	}
}

func TestTabularEmptyInput(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})

	a, err := e.Tabular(context.Background(), sampleInput(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Data) == 0 {
		t.Fatalf("expected non-empty workbook")
	}
	rows := readRows(t, a.Data, sheetTransactions)
	if len(rows) == 0 || rows[0][0] != "Date" {
		t.Fatalf("expected header row, got %v", rows)
	}
}

func TestRecordLimit(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{MaxRecords: 2})
	txs := []core.Transaction{
		mkTx(1, core.KindIncome, "1", "Salary", "", 2024, 1, 1),
		mkTx(2, core.KindIncome, "1", "Salary", "", 2024, 1, 2),
		mkTx(3, core.KindIncome, "1", "Salary", "", 2024, 1, 3),
	}
	in := sampleInput(t, txs)

	for name, render := range map[string]func(context.Context, Input) (Artifact, error){
		"tabular":  e.Tabular,
		"document": e.Document,
	} {
		_, err := render(context.Background(), in)
		if !errors.Is(err, ErrResourceExhausted) {
			t.Fatalf("%s: expected resource error, got %v", name, err)
		}
		var re *ResourceError
		if !errors.As(err, &re) || !strings.Contains(re.Hint, "narrow the date range") {
			t.Fatalf("%s: expected remediation hint, got %v", name, err)
		}
	}
}

func TestTimeBudget(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	txs := []core.Transaction{mkTx(1, core.KindIncome, "1", "Salary", "", 2024, 1, 1)}
	_, err := e.Document(ctx, sampleInput(t, txs))
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestDocumentPaginates(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})

	small, err := e.Document(context.Background(), sampleInput(t, []core.Transaction{
		mkTx(1, core.KindExpense, "10", "Food", "lunch", 2024, 1, 1),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(small.Data, []byte("%PDF")) {
		t.Fatalf("expected pdf payload")
	}
	if small.MIMEType != MIMEDocument || small.Filename != "transactions_20240301.pdf" {
		t.Fatalf("unexpected metadata %q %q", small.MIMEType, small.Filename)
	}

	var txs []core.Transaction
	for i := 0; i < 150; i++ {
		txs = append(txs, mkTx(int64(i+1), core.KindExpense, "10", "Food",
			strings.Repeat("long description ", 4), 2024, 1+i%12, 1+i%28))
	}
	in := sampleInput(t, txs)
	big, err := e.Document(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if big.Rows != 150 {
		t.Fatalf("expected 150 rows, got %d", big.Rows)
	}
	if pages := bytes.Count(big.Data, []byte("/Type /Page\n")); pages < 2 {
		t.Fatalf("expected multiple pages, got %d", pages)
	}
	if !in.Summary.TotalExpense.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("pagination must not alter totals")
	}
}

func TestDocumentSkipsMalformedRecords(t *testing.T) {
	var logs bytes.Buffer
	e := newTestExporter(&logs, Limits{})
	txs := []core.Transaction{
		mkTx(1, core.KindIncome, "1000", "Salary", "", 2024, 1, 5),
		mkTx(2, core.KindExpense, "5", "", "no category", 2024, 1, 6),
	}
	a, err := e.Document(context.Background(), sampleInput(t, txs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Rows != 1 || a.Skipped != 1 {
		t.Fatalf("expected 1 row and 1 skip, got %d/%d", a.Rows, a.Skipped)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 30, "short"},
		{strings.Repeat("a", 31), 30, strings.Repeat("a", 30) + "..."},
		{"  padded  ", 30, "padded"},
		{"caffè latte", 5, "caffè..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	w, _ := core.NewWindow(core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 28))
	if got := periodLabel(core.Summary{Window: &w}, nil); got != "2024-02-01 to 2024-02-28" {
		t.Fatalf("unexpected window label %q", got)
	}
	if got := periodLabel(core.Summary{}, nil); got != "All transactions" {
		t.Fatalf("unexpected empty label %q", got)
	}
	rows := []core.Transaction{
		mkTx(1, core.KindIncome, "1", "Salary", "", 2024, 1, 5),
		mkTx(2, core.KindIncome, "1", "Salary", "", 2024, 3, 9),
	}
	if got := periodLabel(core.Summary{}, rows); got != "2024-01-05 to 2024-03-09" {
		t.Fatalf("unexpected span label %q", got)
	}
}
