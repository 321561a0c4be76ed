// Package worker keeps the spreadsheet mirror in step with the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// EventSource delivers transaction events until ctx is done.
// *amqp.Client satisfies it.
type EventSource interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker rewrites a user's sheet whenever their transactions change.
// Users whose rewrite failed are retried by the periodic resync.
type MirrorWorker struct {
	store    storage.TransactionStore
	sheets   sheets.MirrorWriter
	logger   *log.Logger
	interval time.Duration

	mu      sync.Mutex
	pending map[int64]struct{}
}

func NewMirrorWorker(store storage.TransactionStore, writer sheets.MirrorWriter, interval time.Duration, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &MirrorWorker{
		store:    store,
		sheets:   writer,
		logger:   logger.WithComponent(log.ComponentWorker),
		interval: interval,
		pending:  make(map[int64]struct{}),
	}
}

// HandleEvent mirrors the event's owner. A failure leaves the user pending
// and is returned so the delivery is requeued.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	w.logger.Fields(ctx, slog.LevelDebug, "Processing transaction event", log.NewFields().
		WithOperation(string(ev.Type)).
		WithUser(ev.UserID).
		Add(log.FieldTxID, ev.TransactionID))

	if err := w.MirrorUser(ctx, ev.UserID); err != nil {
		w.markPending(ev.UserID)
		return err
	}
	return nil
}

// MirrorUser rewrites the sheet of userID from the store's current state.
func (w *MirrorWorker) MirrorUser(ctx context.Context, userID int64) error {
	txs, err := w.store.ListTransactions(ctx, userID, storage.TransactionFilter{})
	if err != nil {
		metrics.MirrorWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("list transactions of user %d: %w", userID, err)
	}
	valid := report.ValidTransactions(txs)
	sum, err := core.Summarize(valid, nil)
	if err != nil {
		metrics.MirrorWrites.WithLabelValues("error").Inc()
		return err
	}

	title := sheets.SheetName(userID)
	if err := w.sheets.WriteSheet(ctx, title, sheets.Table(valid, sum)); err != nil {
		metrics.MirrorWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("mirror user %d: %w", userID, err)
	}

	metrics.MirrorWrites.WithLabelValues("ok").Inc()
	w.clearPending(userID)
	w.logger.Fields(ctx, slog.LevelInfo, "Mirrored transactions", log.NewFields().
		WithOperation(log.OpMirror).
		WithUser(userID).
		Add(log.FieldRows, len(valid)).
		Add(log.FieldSkipped, len(txs)-len(valid)).
		Add(log.FieldSheetsRange, title))
	return nil
}

// ResyncPending retries every pending user once.
func (w *MirrorWorker) ResyncPending(ctx context.Context) (synced, failed int) {
	for _, id := range w.Pending() {
		if ctx.Err() != nil {
			break
		}
		if err := w.MirrorUser(ctx, id); err != nil {
			failed++
			w.logger.Fields(ctx, slog.LevelWarn, "Resync failed", log.NewFields().
				WithOperation(log.OpMirror).
				WithUser(id).
				WithError(err))
			continue
		}
		synced++
	}
	if synced+failed > 0 {
		w.logger.InfoContext(ctx, "Resync completed", "synced", synced, "failed", failed)
	}
	return synced, failed
}

// Pending returns the users waiting for a resync, ascending.
func (w *MirrorWorker) Pending() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, 0, len(w.pending))
	for id := range w.pending {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *MirrorWorker) markPending(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[userID] = struct{}{}
	metrics.MirrorPending.Set(float64(len(w.pending)))
}

func (w *MirrorWorker) clearPending(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, userID)
	metrics.MirrorPending.Set(float64(len(w.pending)))
}

// Run consumes events and resyncs pending users every interval until ctx is
// cancelled. Cancellation is not an error.
func (w *MirrorWorker) Run(ctx context.Context, source EventSource) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return source.Consume(gctx, w.HandleEvent)
	})

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					w.ResyncPending(gctx)
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
