// Package storage persists users and their transactions.
//
// The SQLite implementation lives here; postgres and memory provide the
// same contract for other deployments and for tests.
package storage

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Unavailable marks err as a store failure while keeping it in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Kind     core.Kind
	Category string
	Window   *core.Window
	Limit    int
	Offset   int
}

// Matches applies the filter to a single record, ignoring paging.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Window != nil && !f.Window.Contains(tx.OccurredOn) {
		return false
	}
	return true
}

// TransactionStore is owner-scoped: every read and write names the owner and
// a record belonging to someone else is reported as ErrNotFound.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id int64) error
	// ListTransactions returns a fully materialized slice, newest first.
	ListTransactions(ctx context.Context, ownerID int64, f TransactionFilter) ([]core.Transaction, error)
	CountTransactions(ctx context.Context, ownerID int64, f TransactionFilter) (int, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
	// DeleteUser removes the user together with all of their transactions.
	DeleteUser(ctx context.Context, id int64) error
}

// Store is the full persistence contract used by the services.
type Store interface {
	TransactionStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
