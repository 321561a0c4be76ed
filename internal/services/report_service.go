package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ReportService gathers a user's data and hands it to the exporter.
type ReportService struct {
	store    storage.Store
	exporter *report.Exporter
	logger   *log.Logger
	now      func() time.Time
}

func NewReportService(store storage.Store, exporter *report.Exporter, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Default()
	}
	return &ReportService{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentReport),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the owner's transactions within w as xlsx or pdf.
func (s *ReportService) Export(ctx context.Context, userID int64, format string, w *core.Window) (report.Artifact, error) {
	if format != report.FormatTabular && format != report.FormatDocument {
		return report.Artifact{}, core.NewValidationError("format", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
	}

	in, err := s.gather(ctx, userID, w)
	if err != nil {
		return report.Artifact{}, err
	}

	if format == report.FormatDocument {
		return s.exporter.Document(ctx, in)
	}
	return s.exporter.Tabular(ctx, in)
}

// gather loads the owner and their transactions concurrently. The record
// guard is checked against a count first so oversized exports never load.
func (s *ReportService) gather(ctx context.Context, userID int64, w *core.Window) (report.Input, error) {
	filter := storage.TransactionFilter{Window: w}
	var (
		owner core.User
		txs   []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("get user %d: %w", userID, err)
		}
		owner = u
		return nil
	})
	g.Go(func() error {
		if max := s.exporter.Limits().MaxRecords; max > 0 {
			n, err := s.store.CountTransactions(gctx, userID, filter)
			if err != nil {
				return fmt.Errorf("count transactions: %w", err)
			}
			if n > max {
				return &report.ResourceError{
					Limit: fmt.Sprintf("record limit (%d)", max),
					Hint:  fmt.Sprintf("%d transactions requested, narrow the date range", n),
				}
			}
		}
		list, err := s.store.ListTransactions(gctx, userID, filter)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}

	sum, err := core.Summarize(report.ValidTransactions(txs), w)
	if err != nil {
		return report.Input{}, err
	}
	return report.Input{
		OwnerName:    owner.Name,
		OwnerEmail:   owner.Email,
		Transactions: txs,
		Summary:      sum,
		GeneratedAt:  s.now(),
	}, nil
}
