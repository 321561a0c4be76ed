package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionInput carries raw user input for a new transaction.
type TransactionInput struct {
	Kind        string
	Amount      string
	Category    string
	Date        string
	Description string
}

// TransactionPatch carries the fields of a partial update. Nil fields are
// left unchanged.
type TransactionPatch struct {
	Kind        *string
	Amount      *string
	Category    *string
	Date        *string
	Description *string
}

// ListQuery holds the optional filters of a listing.
type ListQuery struct {
	Kind     string
	Category string
	Window   *core.Window
	Limit    int
	Offset   int
}

// TransactionService validates and stores transactions on behalf of their
// owner, then invalidates cached summaries and announces the change.
type TransactionService struct {
	store     storage.TransactionStore
	summaries *SummaryService
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewTransactionService(store storage.TransactionStore, summaries *SummaryService, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Default()
	}
	return &TransactionService{
		store:     store,
		summaries: summaries,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransaction),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{OwnerID: userID, Description: strings.TrimSpace(in.Description)}

	var err error
	if strings.TrimSpace(in.Kind) == "" {
		return core.Transaction{}, core.NewValidationError("kind", core.ErrRequired)
	}
	if tx.Kind, err = core.ParseKind(in.Kind); err != nil {
		return core.Transaction{}, err
	}
	if tx.Amount, err = core.ParseAmount(in.Amount); err != nil {
		return core.Transaction{}, err
	}
	if tx.Category = strings.TrimSpace(in.Category); tx.Category == "" {
		return core.Transaction{}, core.NewValidationError("category", core.ErrRequired)
	}
	if strings.TrimSpace(in.Date) == "" {
		return core.Transaction{}, core.NewValidationError("date", core.ErrRequired)
	}
	if tx.OccurredOn, err = core.ParseDate(in.Date); err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	tx.CreatedAt, tx.UpdatedAt = now, now
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Transaction created", log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(userID).
		WithTransaction(created.ID, string(created.Kind), created.Amount.StringFixed(2), created.Category))
	s.changed(ctx, amqp.EventCreated, userID, created.ID)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, userID int64, q ListQuery) ([]core.Transaction, error) {
	f := storage.TransactionFilter{
		Category: strings.TrimSpace(q.Category),
		Window:   q.Window,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Kind != "" {
		kind, err := core.ParseKind(q.Kind)
		if err != nil {
			return nil, err
		}
		f.Kind = kind
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, core.NewValidationError("paging", errors.New("limit and offset must not be negative"))
	}

	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Update applies patch to the owner's transaction and refreshes UpdatedAt.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, patch TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}

	if patch.Kind != nil {
		if tx.Kind, err = core.ParseKind(*patch.Kind); err != nil {
			return core.Transaction{}, err
		}
	}
	if patch.Amount != nil {
		if tx.Amount, err = core.ParseAmount(*patch.Amount); err != nil {
			return core.Transaction{}, err
		}
	}
	if patch.Category != nil {
		if tx.Category = strings.TrimSpace(*patch.Category); tx.Category == "" {
			return core.Transaction{}, core.NewValidationError("category", core.ErrRequired)
		}
	}
	if patch.Date != nil {
		if tx.OccurredOn, err = core.ParseDate(*patch.Date); err != nil {
			return core.Transaction{}, err
		}
	}
	if patch.Description != nil {
		tx.Description = strings.TrimSpace(*patch.Description)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx.UpdatedAt = s.now()
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Transaction updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithUser(userID).
		WithTransaction(updated.ID, string(updated.Kind), updated.Amount.StringFixed(2), updated.Category))
	s.changed(ctx, amqp.EventUpdated, userID, updated.ID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.logger.Fields(ctx, slog.LevelInfo, "Transaction deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithUser(userID).
		Add(log.FieldTxID, id))
	s.changed(ctx, amqp.EventDeleted, userID, id)
	return nil
}

func (s *TransactionService) changed(ctx context.Context, typ amqp.EventType, userID, txID int64) {
	s.summaries.Invalidate(userID)
	publish(ctx, s.publisher, s.logger, typ, userID, txID)
}
