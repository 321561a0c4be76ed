package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Ada", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustTx(t *testing.T, repo *SQLiteRepository, owner int64, kind core.Kind, amount, category string, y, m, d int) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		OwnerID:    owner,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		OccurredOn: core.NewDate(y, m, d),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := mustUser(t, repo, " Ada@Example.com ")
	if u.ID == 0 || u.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := repo.CreateUser(ctx, core.User{Name: "Other", Email: "ADA@example.com", PasswordHash: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ada@EXAMPLE.com")
	if err != nil || got.ID != u.ID || got.CreatedAt.IsZero() {
		t.Fatalf("lookup by email: %+v, %v", got, err)
	}

	u.Name = "Ada Lovelace"
	u.ProfilePicture = "ada.png"
	updated, err := repo.UpdateUser(ctx, u)
	if err != nil || updated.Name != "Ada Lovelace" || updated.ProfilePicture != "ada.png" {
		t.Fatalf("update user: %+v, %v", updated, err)
	}

	if _, err := repo.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionsAreOwnerScoped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ada := mustUser(t, repo, "ada@example.com")
	bob := mustUser(t, repo, "bob@example.com")

	tx := mustTx(t, repo, ada.ID, core.KindExpense, "12.5", "Food", 2024, 1, 10)
	if !tx.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected amount %s", tx.Amount)
	}

	if _, err := repo.GetTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owner to get ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owner delete to fail, got %v", err)
	}

	tx.Amount = decimal.RequireFromString("20")
	tx.Description = "dinner"
	updated, err := repo.UpdateTransaction(ctx, tx)
	if err != nil || !updated.Amount.Equal(decimal.NewFromInt(20)) || updated.Description != "dinner" {
		t.Fatalf("update: %+v, %v", updated, err)
	}

	hijack := tx
	hijack.OwnerID = bob.ID
	if _, err := repo.UpdateTransaction(ctx, hijack); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating someone else's record, got %v", err)
	}

	if err := repo.DeleteTransaction(ctx, ada.ID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, ada.ID, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted record to be gone, got %v", err)
	}
}

func TestCreateTransactionUnknownOwner(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		OwnerID:    42,
		Kind:       core.KindIncome,
		Amount:     decimal.NewFromInt(1),
		Category:   "Salary",
		OccurredOn: core.NewDate(2024, 1, 1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing owner, got %v", err)
	}
}

func TestListAndCountFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "ada@example.com")
	mustTx(t, repo, u.ID, core.KindIncome, "1000", "Salary", 2024, 1, 5)
	mustTx(t, repo, u.ID, core.KindExpense, "200", "Food", 2024, 1, 10)
	mustTx(t, repo, u.ID, core.KindExpense, "50", "Food", 2024, 2, 1)
	mustTx(t, repo, u.ID, core.KindExpense, "30", "Bills", 2024, 2, 20)

	all, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("list all: %d, %v", len(all), err)
	}
	if all[0].OccurredOn.String() != "2024-02-20" || all[3].OccurredOn.String() != "2024-01-05" {
		t.Fatalf("expected newest first, got %s..%s", all[0].OccurredOn, all[3].OccurredOn)
	}

	w, _ := core.NewWindow(core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 28))
	cases := []struct {
		name string
		f    TransactionFilter
		want int
	}{
		{"kind", TransactionFilter{Kind: core.KindExpense}, 3},
		{"category", TransactionFilter{Category: "Food"}, 2},
		{"window", TransactionFilter{Window: &w}, 2},
		{"window and category", TransactionFilter{Window: &w, Category: "Food"}, 1},
		{"paged", TransactionFilter{Limit: 3}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, u.ID, tc.f)
			if err != nil || len(got) != tc.want {
				t.Fatalf("expected %d, got %d (%v)", tc.want, len(got), err)
			}
			for _, tx := range got {
				if !tc.f.Matches(tx) {
					t.Fatalf("record %d does not match filter", tx.ID)
				}
			}
		})
	}

	n, err := repo.CountTransactions(ctx, u.ID, TransactionFilter{Window: &w})
	if err != nil || n != 2 {
		t.Fatalf("count: %d, %v", n, err)
	}

	page, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{Limit: 2, Offset: 2})
	if err != nil || len(page) != 2 || page[0].OccurredOn.String() != "2024-01-10" {
		t.Fatalf("second page: %+v, %v", page, err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "ada@example.com")
	mustTx(t, repo, u.ID, core.KindIncome, "1000", "Salary", 2024, 1, 5)
	mustTx(t, repo, u.ID, core.KindExpense, "10", "Food", 2024, 1, 6)

	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	n, err := repo.CountTransactions(ctx, u.ID, TransactionFilter{})
	if err != nil || n != 0 {
		t.Fatalf("expected transactions to be removed, got %d (%v)", n, err)
	}
	if err := repo.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	repo.Close()
	_, err := repo.ListTransactions(context.Background(), 1, TransactionFilter{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := repo.Ping(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ping to fail, got %v", err)
	}
}

func TestMalformedStoredAmountIsLoadedAsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "ada@example.com")
	tx := mustTx(t, repo, u.ID, core.KindExpense, "10", "Food", 2024, 1, 6)

	if _, err := repo.db.ExecContext(ctx, `UPDATE transactions SET amount = 'n/a' WHERE id = ?`, tx.ID); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetTransaction(ctx, u.ID, tx.ID)
	if err != nil {
		t.Fatalf("expected record to load, got %v", err)
	}
	if err := got.Validate(); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
