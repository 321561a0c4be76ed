package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func tx(id int64, kind Kind, amount, category string, y, m, d int) Transaction {
	return Transaction{
		ID:         id,
		OwnerID:    1,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		OccurredOn: NewDate(y, m, d),
	}
}

func scenario() []Transaction {
	return []Transaction{
		tx(1, KindIncome, "1000", "Salary", 2024, 1, 5),
		tx(2, KindExpense, "200", "Food", 2024, 1, 10),
		tx(3, KindExpense, "50", "Food", 2024, 2, 1),
	}
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s, got %s", label, want, got)
	}
}

func TestSummarizeScenario(t *testing.T) {
	s, err := Summarize(scenario(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "income", s.TotalIncome, "1000")
	assertDecimal(t, "expense", s.TotalExpense, "250")
	assertDecimal(t, "balance", s.Balance, "750")
	if s.TransactionCount != 3 {
		t.Fatalf("expected 3 transactions, got %d", s.TransactionCount)
	}
	if len(s.ExpenseByCategory) != 1 {
		t.Fatalf("expected one expense category, got %v", s.ExpenseByCategory)
	}
	assertDecimal(t, "Food", s.ExpenseByCategory["Food"], "250")
	assertDecimal(t, "Salary", s.IncomeByCategory["Salary"], "1000")

	if len(s.MonthlyTrend) != 2 {
		t.Fatalf("expected 2 months, got %d", len(s.MonthlyTrend))
	}
	jan, feb := s.MonthlyTrend[0], s.MonthlyTrend[1]
	if jan.Month.String() != "2024-01" || feb.Month.String() != "2024-02" {
		t.Fatalf("unexpected months %s, %s", jan.Month, feb.Month)
	}
	assertDecimal(t, "jan income", jan.Income, "1000")
	assertDecimal(t, "jan expense", jan.Expense, "200")
	assertDecimal(t, "feb income", feb.Income, "0")
	assertDecimal(t, "feb expense", feb.Expense, "50")
}

func TestSummarizeWindow(t *testing.T) {
	w, err := NewWindow(NewDate(2024, 2, 1), NewDate(2024, 2, 28))
	if err != nil {
		t.Fatal(err)
	}
	s, err := Summarize(scenario(), &w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "income", s.TotalIncome, "0")
	assertDecimal(t, "expense", s.TotalExpense, "50")
	if s.TransactionCount != 1 || len(s.MonthlyTrend) != 1 {
		t.Fatalf("expected one transaction in one month, got %d / %d", s.TransactionCount, len(s.MonthlyTrend))
	}
	if len(s.IncomeByCategory) != 0 {
		t.Fatalf("expected sparse income map, got %v", s.IncomeByCategory)
	}
	if s.Window == nil || !s.Window.Start.Equal(w.Start) {
		t.Fatalf("expected window to be echoed, got %v", s.Window)
	}
}

func TestSummarizeOpenStartWindow(t *testing.T) {
	end := NewDate(2024, 1, 31)
	w, err := NewWindow(FirstDate, end)
	if err != nil {
		t.Fatalf("open start window rejected: %v", err)
	}
	txs := []Transaction{
		tx(1, KindIncome, "10", "Gifts", 1, 1, 2),
		tx(2, KindExpense, "4", "Food", 1, 6, 30),
		tx(3, KindExpense, "7", "Food", 2024, 1, 31),
		tx(4, KindExpense, "99", "Food", 2024, 2, 1),
	}
	s, err := Summarize(txs, &w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TransactionCount != 3 {
		t.Fatalf("expected 3 transactions in window, got %d", s.TransactionCount)
	}
	assertDecimal(t, "income", s.TotalIncome, "10")
	assertDecimal(t, "expense", s.TotalExpense, "11")
	if first := s.MonthlyTrend[0].Month; first.Year != 1 || first.Month != 1 {
		t.Fatalf("expected trend to start in 0001-01, got %s", first)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "income", s.TotalIncome, "0")
	assertDecimal(t, "expense", s.TotalExpense, "0")
	assertDecimal(t, "balance", s.Balance, "0")
	if s.IncomeByCategory == nil || s.ExpenseByCategory == nil || s.MonthlyTrend == nil {
		t.Fatalf("expected non-nil empty collections")
	}
	if len(s.IncomeByCategory)+len(s.ExpenseByCategory)+len(s.MonthlyTrend) != 0 {
		t.Fatalf("expected empty collections, got %+v", s)
	}
}

func TestSummarizeRejectsMalformed(t *testing.T) {
	txs := scenario()
	txs = append(txs, Transaction{ID: 9, Kind: KindExpense, Category: "Food", OccurredOn: NewDate(2024, 1, 1)})
	_, err := Summarize(txs, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.ID != 9 || !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected validation error for record 9, got %v", err)
	}

	// a malformed record outside the window is still an error
	w, _ := NewWindow(NewDate(2030, 1, 1), NewDate(2030, 1, 31))
	if _, err := Summarize(txs, &w); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	bad := Window{Start: NewDate(2024, 3, 1), End: NewDate(2024, 1, 1)}
	if _, err := Summarize(scenario(), &bad); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func randomTransactions(r *rand.Rand, n int) []Transaction {
	categories := []string{"Food", "Bills", "Salary", "Gifts", "Transport"}
	out := make([]Transaction, n)
	for i := range out {
		kind := KindExpense
		if r.Intn(3) == 0 {
			kind = KindIncome
		}
		cents := r.Int63n(1_000_000) + 1
		out[i] = Transaction{
			ID:         int64(i + 1),
			OwnerID:    1,
			Kind:       kind,
			Amount:     decimal.New(cents, -2),
			Category:   categories[r.Intn(len(categories))],
			OccurredOn: NewDate(2022+r.Intn(3), 1+r.Intn(12), 1+r.Intn(28)),
		}
	}
	return out
}

func TestSummarizeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		txs := randomTransactions(r, r.Intn(200))
		s, err := Summarize(txs, nil)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}

		income, expense := decimal.Zero, decimal.Zero
		for _, tx := range txs {
			if tx.Kind == KindIncome {
				income = income.Add(tx.Amount)
			} else {
				expense = expense.Add(tx.Amount)
			}
		}
		if !s.TotalIncome.Equal(income) || !s.TotalExpense.Equal(expense) {
			t.Fatalf("round %d: totals mismatch", round)
		}
		if !s.TotalIncome.Sub(s.TotalExpense).Equal(s.Balance) {
			t.Fatalf("round %d: balance is not income minus expense", round)
		}

		sum := func(m map[string]decimal.Decimal) decimal.Decimal {
			total := decimal.Zero
			for _, v := range m {
				total = total.Add(v)
			}
			return total
		}
		if !sum(s.IncomeByCategory).Equal(s.TotalIncome) || !sum(s.ExpenseByCategory).Equal(s.TotalExpense) {
			t.Fatalf("round %d: category breakdown does not add up", round)
		}

		for i := 1; i < len(s.MonthlyTrend); i++ {
			if !s.MonthlyTrend[i-1].Month.Before(s.MonthlyTrend[i].Month) {
				t.Fatalf("round %d: trend not strictly ascending at %d", round, i)
			}
		}

		// order independence
		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again, err := Summarize(shuffled, nil)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		if len(again.MonthlyTrend) != len(s.MonthlyTrend) || !again.Balance.Equal(s.Balance) {
			t.Fatalf("round %d: result depends on input order", round)
		}
		for i := range s.MonthlyTrend {
			a, b := s.MonthlyTrend[i], again.MonthlyTrend[i]
			if a.Month != b.Month || !a.Income.Equal(b.Income) || !a.Expense.Equal(b.Expense) {
				t.Fatalf("round %d: trend differs at %d", round, i)
			}
		}
	}
}

func TestSortedCategories(t *testing.T) {
	got := SortedCategories(map[string]decimal.Decimal{
		"Bills": decimal.NewFromInt(50),
		"Food":  decimal.NewFromInt(250),
		"Audio": decimal.NewFromInt(50),
	})
	want := []string{"Food", "Audio", "Bills"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
}

func TestFilterWindow(t *testing.T) {
	w, _ := NewWindow(NewDate(2024, 1, 1), NewDate(2024, 1, 31))
	if got := FilterWindow(scenario(), &w); len(got) != 2 {
		t.Fatalf("expected 2 January transactions, got %d", len(got))
	}
	if got := FilterWindow(scenario(), nil); len(got) != 3 {
		t.Fatalf("expected all transactions, got %d", len(got))
	}
}

func TestSuggestedCategories(t *testing.T) {
	got := SuggestedCategories(KindIncome)
	if len(got) != 6 || got[0] != "Salary" {
		t.Fatalf("unexpected income categories %v", got)
	}
	got[0] = "mutated"
	if IncomeCategories[0] != "Salary" {
		t.Fatalf("suggested set must not be shared")
	}
	if len(SuggestedCategories("other")) != 0 {
		t.Fatalf("expected no categories for unknown kind")
	}
}
