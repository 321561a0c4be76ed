package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().String("email", "", "Account email")
	addWindowFlags(summaryCmd)
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print an account's summary as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		win, err := windowFlags(cmd)
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			u, err := e.userByEmail(ctx, email)
			if err != nil {
				return err
			}
			sum, err := e.app.Summaries.Summary(ctx, u.ID, win)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(newSummaryOutput(sum))
		})
	},
}

type monthOutput struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type summaryOutput struct {
	From              string            `json:"from,omitempty"`
	To                string            `json:"to,omitempty"`
	TransactionCount  int               `json:"transaction_count"`
	TotalIncome       string            `json:"total_income"`
	TotalExpense      string            `json:"total_expense"`
	Balance           string            `json:"balance"`
	IncomeByCategory  map[string]string `json:"income_by_category"`
	ExpenseByCategory map[string]string `json:"expense_by_category"`
	MonthlyTrend      []monthOutput     `json:"monthly_trend"`
}

func newSummaryOutput(s core.Summary) summaryOutput {
	out := summaryOutput{
		TransactionCount:  s.TransactionCount,
		TotalIncome:       s.TotalIncome.StringFixed(2),
		TotalExpense:      s.TotalExpense.StringFixed(2),
		Balance:           s.Balance.StringFixed(2),
		IncomeByCategory:  map[string]string{},
		ExpenseByCategory: map[string]string{},
		MonthlyTrend:      []monthOutput{},
	}
	if s.Window != nil {
		out.From, out.To = s.Window.Start.String(), s.Window.End.String()
	}
	for k, v := range s.IncomeByCategory {
		out.IncomeByCategory[k] = v.StringFixed(2)
	}
	for k, v := range s.ExpenseByCategory {
		out.ExpenseByCategory[k] = v.StringFixed(2)
	}
	for _, m := range s.MonthlyTrend {
		out.MonthlyTrend = append(out.MonthlyTrend, monthOutput{
			Month: m.Month.String(), Income: m.Income.StringFixed(2), Expense: m.Expense.StringFixed(2),
		})
	}
	return out
}
