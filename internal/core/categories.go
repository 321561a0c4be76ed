package core

// Suggested categories offered to users. They are not enforced: any
// non-empty category is accepted.
var (
	IncomeCategories = []string{
		"Salary", "Freelance", "Business", "Investments", "Gifts", "Other Income",
	}
	ExpenseCategories = []string{
		"Food", "Transport", "Shopping", "Bills", "Entertainment",
		"Healthcare", "Education", "Other Expense",
	}
)

// SuggestedCategories returns a copy of the suggested set for kind.
func SuggestedCategories(kind Kind) []string {
	var src []string
	switch kind {
	case KindIncome:
		src = IncomeCategories
	case KindExpense:
		src = ExpenseCategories
	}
	return append([]string(nil), src...)
}
