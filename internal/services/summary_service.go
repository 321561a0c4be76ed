package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// SummaryService computes per-user summaries and caches them by window.
type SummaryService struct {
	store  storage.TransactionStore
	cache  cache.Cache[core.Summary]
	logger *log.Logger
}

// NewSummaryService creates the service. A nil cache disables caching.
func NewSummaryService(store storage.TransactionStore, c cache.Cache[core.Summary], logger *log.Logger) *SummaryService {
	if logger == nil {
		logger = log.Default()
	}
	return &SummaryService{
		store:  store,
		cache:  c,
		logger: logger.WithComponent(log.ComponentReport),
	}
}

func userPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

// Summary returns the owner's summary over w (nil for all time). Stored
// records that fail validation are left out with a warning.
func (s *SummaryService) Summary(ctx context.Context, userID int64, w *core.Window) (core.Summary, error) {
	key := userPrefix(userID) + windowKey(w)
	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			return sum, nil
		}
	}

	txs, err := s.store.ListTransactions(ctx, userID, storage.TransactionFilter{Window: w})
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	valid := report.ValidTransactions(txs)
	if skipped := len(txs) - len(valid); skipped > 0 {
		s.logger.Fields(ctx, slog.LevelWarn, "Summary skipped malformed transactions", log.NewFields().
			WithOperation(log.OpSummarize).
			WithUser(userID).
			Add(log.FieldSkipped, skipped))
	}

	sum, err := core.Summarize(valid, w)
	if err != nil {
		return core.Summary{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, sum)
	}
	return sum, nil
}

// Invalidate drops every cached summary of userID.
func (s *SummaryService) Invalidate(userID int64) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.DeletePrefix(userPrefix(userID))
}
