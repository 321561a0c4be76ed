package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth keys the monthly trend.
type YearMonth struct {
	Year  int
	Month time.Month
}

// String formats the key as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotals holds the non-cumulative totals of one calendar month.
type MonthTotals struct {
	Month   YearMonth
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Summary is the aggregate of a set of transactions over an optional window.
type Summary struct {
	Window            *Window
	TransactionCount  int
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	Balance           decimal.Decimal
	IncomeByCategory  map[string]decimal.Decimal
	ExpenseByCategory map[string]decimal.Decimal
	MonthlyTrend      []MonthTotals
}

// Summarize computes totals, balance, per-kind category breakdown and the
// monthly trend of txs. When w is non-nil only transactions whose date lies
// within it are counted.
//
// Input order does not matter. A malformed record or window fails the whole
// computation with a *ValidationError; records outside the window are
// excluded, never repaired.
func Summarize(txs []Transaction, w *Window) (Summary, error) {
	s := Summary{
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		Balance:           decimal.Zero,
		IncomeByCategory:  map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
		MonthlyTrend:      []MonthTotals{},
	}
	if w != nil {
		if err := w.Validate(); err != nil {
			return Summary{}, err
		}
		win := *w
		s.Window = &win
	}

	months := make(map[YearMonth]*MonthTotals)
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return Summary{}, err
		}
		if w != nil && !w.Contains(tx.OccurredOn) {
			continue
		}
		s.TransactionCount++

		ym := tx.OccurredOn.YearMonth()
		m, ok := months[ym]
		if !ok {
			m = &MonthTotals{Month: ym, Income: decimal.Zero, Expense: decimal.Zero}
			months[ym] = m
		}

		switch tx.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			s.IncomeByCategory[tx.Category] = s.IncomeByCategory[tx.Category].Add(tx.Amount)
			m.Income = m.Income.Add(tx.Amount)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			s.ExpenseByCategory[tx.Category] = s.ExpenseByCategory[tx.Category].Add(tx.Amount)
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for _, m := range months {
		s.MonthlyTrend = append(s.MonthlyTrend, *m)
	}
	sort.Slice(s.MonthlyTrend, func(i, j int) bool {
		return s.MonthlyTrend[i].Month.Before(s.MonthlyTrend[j].Month)
	})
	return s, nil
}

// SortedCategories flattens a category map, largest amount first and ties
// broken by name.
func SortedCategories(m map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterWindow returns the transactions whose date lies within w. A nil
// window returns txs unchanged.
func FilterWindow(txs []Transaction, w *Window) []Transaction {
	if w == nil {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if w.Contains(tx.OccurredOn) {
			out = append(out, tx)
		}
	}
	return out
}
