// Package memory is a process-local Store used for tests and demo runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]core.User
	txs    map[int64]core.Transaction
	closed bool
}

var _ storage.Store = (*Store)(nil)

var errClosed = errors.New("memory store closed")

func New() *Store {
	return &Store{
		users: make(map[int64]core.User),
		txs:   make(map[int64]core.Transaction),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) check(op string) error {
	if s.closed {
		return storage.Unavailable(op, errClosed)
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check("ping")
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("create user"); err != nil {
		return core.User{}, err
	}
	u.Email = core.NormalizeEmail(u.Email)
	if s.emailTaken(u.Email, 0) {
		return core.User{}, storage.ErrEmailTaken
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) emailTaken(email string, except int64) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("get user"); err != nil {
		return core.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("get user"); err != nil {
		return core.User{}, err
	}
	email = core.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("update user"); err != nil {
		return core.User{}, err
	}
	cur, ok := s.users[u.ID]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	u.Email = core.NormalizeEmail(u.Email)
	if s.emailTaken(u.Email, u.ID) {
		return core.User{}, storage.ErrEmailTaken
	}
	u.CreatedAt = cur.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete user"); err != nil {
		return err
	}
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	for txID, tx := range s.txs {
		if tx.OwnerID == id {
			delete(s.txs, txID)
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("create transaction"); err != nil {
		return core.Transaction{}, err
	}
	if _, ok := s.users[tx.OwnerID]; !ok {
		return core.Transaction{}, fmt.Errorf("owner %d: %w", tx.OwnerID, storage.ErrNotFound)
	}
	tx.ID = s.id()
	tx.Amount = tx.Amount.Round(2)
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs[tx.ID] = tx
	return tx, nil
}

// Put stores tx verbatim without validation or ownership checks, so tests
// can seed malformed records.
func (s *Store) Put(tx core.Transaction) core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = s.id()
	}
	s.txs[tx.ID] = tx
	return tx
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("get transaction"); err != nil {
		return core.Transaction{}, err
	}
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("update transaction"); err != nil {
		return core.Transaction{}, err
	}
	cur, ok := s.txs[tx.ID]
	if !ok || cur.OwnerID != tx.OwnerID {
		return core.Transaction{}, storage.ErrNotFound
	}
	tx.Amount = tx.Amount.Round(2)
	tx.CreatedAt = cur.CreatedAt
	tx.UpdatedAt = time.Now().UTC()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete transaction"); err != nil {
		return err
	}
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list transactions"); err != nil {
		return nil, err
	}
	out := s.matching(ownerID, f)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return b.OccurredOn.Before(a.OccurredOn)
		}
		return a.ID > b.ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []core.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, ownerID int64, f storage.TransactionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("count transactions"); err != nil {
		return 0, err
	}
	return len(s.matching(ownerID, f)), nil
}

func (s *Store) matching(ownerID int64, f storage.TransactionFilter) []core.Transaction {
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if tx.OwnerID == ownerID && f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
