package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// monthsShown caps the monthly series returned by /summary.
const monthsShown = 12

type userView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	CreatedAt      string `json:"created_at"`
}

func newUserView(u core.User) userView {
	return userView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type transactionView struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func newTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		UserID:      tx.OwnerID,
		Type:        string(tx.Kind),
		Category:    tx.Category,
		Amount:      tx.Amount.StringFixed(2),
		Description: tx.Description,
		Date:        tx.OccurredOn.String(),
		CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   tx.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionView(tx))
	}
	return out
}

type windowView struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type monthView struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type summaryView struct {
	Window            *windowView       `json:"window"`
	TransactionCount  int               `json:"transaction_count"`
	TotalIncome       string            `json:"total_income"`
	TotalExpense      string            `json:"total_expense"`
	Balance           string            `json:"balance"`
	IncomeByCategory  map[string]string `json:"income_by_category"`
	ExpenseByCategory map[string]string `json:"expense_by_category"`
	CategorySpending  map[string]string `json:"category_spending"`
	MonthlySummary    []monthView       `json:"monthly_summary"`
}

// newSummaryView renders amounts with two decimals and keeps the latest
// months of the trend.
func newSummaryView(s core.Summary) summaryView {
	v := summaryView{
		TransactionCount:  s.TransactionCount,
		TotalIncome:       s.TotalIncome.StringFixed(2),
		TotalExpense:      s.TotalExpense.StringFixed(2),
		Balance:           s.Balance.StringFixed(2),
		IncomeByCategory:  amounts(s.IncomeByCategory),
		ExpenseByCategory: amounts(s.ExpenseByCategory),
		MonthlySummary:    []monthView{},
	}
	v.CategorySpending = v.ExpenseByCategory
	if s.Window != nil {
		v.Window = &windowView{From: s.Window.Start.String(), To: s.Window.End.String()}
	}

	trend := s.MonthlyTrend
	if len(trend) > monthsShown {
		trend = trend[len(trend)-monthsShown:]
	}
	for _, m := range trend {
		v.MonthlySummary = append(v.MonthlySummary, monthView{
			Month:   m.Month.String(),
			Income:  m.Income.StringFixed(2),
			Expense: m.Expense.StringFixed(2),
		})
	}
	return v
}

func amounts(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.StringFixed(2)
	}
	return out
}
