// Package report renders a user's transactions and their summary into
// downloadable artifacts: an xlsx workbook and a paginated pdf.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	MIMETabular  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEDocument = "application/pdf"

	FormatTabular  = "xlsx"
	FormatDocument = "pdf"
)

var (
	// ErrExport is returned when rendering fails for reasons unrelated to
	// the data itself.
	ErrExport = errors.New("export failed")

	// ErrResourceExhausted is matched by every *ResourceError.
	ErrResourceExhausted = errors.New("export resource limit exceeded")
)

// ResourceError reports that an export exceeded its record or time budget.
type ResourceError struct {
	Limit string
	Hint  string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s exceeded: %s", e.Limit, e.Hint)
}

func (e *ResourceError) Unwrap() error { return ErrResourceExhausted }

// Limits bounds a single export. Zero values disable the corresponding guard.
type Limits struct {
	MaxRecords int
	Timeout    time.Duration
}

// Input is the data rendered into an artifact. Transactions may contain
// malformed records; they are skipped with a warning. Summary is expected to
// be computed over the valid records only.
type Input struct {
	OwnerName    string
	OwnerEmail   string
	Transactions []core.Transaction
	Summary      core.Summary
	GeneratedAt  time.Time
}

// Artifact is a rendered export.
type Artifact struct {
	Filename string
	MIMEType string
	Data     []byte
	Rows     int
	Skipped  int
}

// Exporter renders artifacts. It holds no per-call state and is safe for
// concurrent use.
type Exporter struct {
	logger        *log.Logger
	limits        Limits
	topCategories int
}

// NewExporter creates an exporter that logs skipped records to logger.
func NewExporter(logger *log.Logger, limits Limits) *Exporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Exporter{
		logger:        logger.WithComponent(log.ComponentReport),
		limits:        limits,
		topCategories: 5,
	}
}

// Limits returns the configured guards.
func (e *Exporter) Limits() Limits { return e.limits }

// ValidTransactions returns the records that pass validation, in input order.
func ValidTransactions(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Validate() == nil {
			out = append(out, tx)
		}
	}
	return out
}

// prepare applies the record guard, drops malformed records and orders the
// rest by date, oldest first.
func (e *Exporter) prepare(ctx context.Context, in Input) ([]core.Transaction, int, error) {
	if e.limits.MaxRecords > 0 && len(in.Transactions) > e.limits.MaxRecords {
		return nil, 0, &ResourceError{
			Limit: fmt.Sprintf("record limit (%d)", e.limits.MaxRecords),
			Hint:  fmt.Sprintf("%d transactions requested, narrow the date range", len(in.Transactions)),
		}
	}

	rows := make([]core.Transaction, 0, len(in.Transactions))
	skipped := 0
	for _, tx := range in.Transactions {
		if err := tx.Validate(); err != nil {
			skipped++
			e.logger.Fields(ctx, slog.LevelWarn, "Skipping malformed transaction",
				log.NewFields().
					WithOperation(log.OpExport).
					WithUser(tx.OwnerID).
					WithTransaction(tx.ID, string(tx.Kind), tx.Amount.String(), tx.Category).
					WithError(err))
			continue
		}
		rows = append(rows, tx)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return a.OccurredOn.Before(b.OccurredOn)
		}
		return a.ID < b.ID
	})
	return rows, skipped, nil
}

// checkBudget converts an expired context into a resource error.
func checkBudget(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &ResourceError{Limit: "time budget", Hint: "export took too long, narrow the date range"}
	default:
		return err
	}
}

func (e *Exporter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.limits.Timeout > 0 {
		return context.WithTimeout(ctx, e.limits.Timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Exporter) finish(ctx context.Context, format string, a Artifact) Artifact {
	e.logger.Fields(ctx, slog.LevelInfo, "Export rendered",
		log.NewFields().WithOperation(log.OpExport).WithExport(format, a.Rows, a.Skipped, len(a.Data)))
	return a
}

// Filename returns transactions_YYYYMMDD.<ext> for the generation date.
func Filename(generatedAt time.Time, ext string) string {
	return "transactions_" + generatedAt.Format("20060102") + "." + ext
}

func generatedAt(in Input) time.Time {
	if in.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return in.GeneratedAt
}

// periodLabel describes the covered range: the requested window when there
// is one, otherwise the span of the rendered rows.
func periodLabel(s core.Summary, rows []core.Transaction) string {
	if s.Window != nil {
		return s.Window.String()
	}
	if len(rows) == 0 {
		return "All transactions"
	}
	return rows[0].OccurredOn.String() + " to " + rows[len(rows)-1].OccurredOn.String()
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func topN(items []core.CategoryAmount, n int) []core.CategoryAmount {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
