package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestFilterClause(t *testing.T) {
	w, _ := core.NewWindow(core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 28))
	where, args := filterClause(7, storage.TransactionFilter{Kind: core.KindExpense, Category: "Food", Window: &w})
	want := "user_id = $1 AND kind = $2 AND category = $3 AND occurred_on >= $4 AND occurred_on <= $5"
	if where != want {
		t.Fatalf("unexpected clause\n got: %s\nwant: %s", where, want)
	}
	if len(args) != 5 || args[0] != int64(7) || args[2] != "Food" {
		t.Fatalf("unexpected args %v", args)
	}
}

// TestRepository runs against a real server when FINTRACK_TEST_POSTGRES_DSN is set.
func TestRepository(t *testing.T) {
	dsn := os.Getenv("FINTRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FINTRACK_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	repo, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	u, err := repo.CreateUser(ctx, core.User{Name: "Ada", Email: "pg-test@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	defer repo.DeleteUser(ctx, u.ID)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		OwnerID:    u.ID,
		Kind:       core.KindExpense,
		Amount:     decimal.RequireFromString("12.345"),
		Category:   "Food",
		OccurredOn: core.NewDate(2024, 1, 10),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, u.ID, tx.ID)
	if err != nil || got.OccurredOn.String() != "2024-01-10" {
		t.Fatalf("get: %+v, %v", got, err)
	}
	if _, err := repo.GetTransaction(ctx, u.ID+1000, tx.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if n, err := repo.CountTransactions(ctx, u.ID, storage.TransactionFilter{}); err != nil || n != 0 {
		t.Fatalf("expected cascade, got %d (%v)", n, err)
	}
}
