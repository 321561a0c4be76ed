package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var sampleDescriptions = map[core.Kind][]string{
	core.KindIncome: {
		"Monthly salary payment", "Freelance project completed", "Investment dividend",
		"Bonus received", "Gift from family", "Side project income", "Consulting fee", "Stock profit",
	},
	core.KindExpense: {
		"Grocery shopping", "Gas station", "Online shopping", "Electricity bill",
		"Movie tickets", "Doctor visit", "Course enrollment", "Restaurant dinner",
		"Coffee shop", "Uber ride", "Internet bill", "Gym membership",
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("email", "demo@financetracker.com", "Demo user email")
	seedCmd.Flags().String("name", "Demo User", "Demo user name")
	seedCmd.Flags().String("password", "demo123", "Demo user password")
	seedCmd.Flags().Int("count", 50, "Number of transactions to create")
	seedCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one from the clock)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo user with random transactions",
	Long: `Create (or reuse) a demo user and add random transactions spread over the
last six months: about 60% expenses between 10 and 500, the rest income
between 500 and 5000, drawn from the suggested categories.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetUint64("seed")
	if count < 0 {
		return errors.New("--count must not be negative")
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	out := cmd.OutOrStdout()

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		user, err := e.userByEmail(ctx, email)
		switch {
		case err == nil:
			fmt.Fprintf(out, "Demo user %s already exists\n", user.Email)
		case errors.Is(err, storage.ErrNotFound):
			sess, err := e.app.Accounts.Register(ctx, services.RegisterInput{Name: name, Email: email, Password: password})
			if err != nil {
				return err
			}
			user = sess.User
			fmt.Fprintf(out, "Created demo user %s\n", user.Email)
		default:
			return err
		}

		rng := rand.New(rand.NewPCG(seed, seed>>1|1))
		today := time.Now().UTC()
		for _, in := range sampleTransactions(rng, today, count) {
			if _, err := e.app.Transactions.Create(ctx, user.ID, in); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
		}
		fmt.Fprintf(out, "Created %d transactions\n", count)

		sum, err := e.app.Summaries.Summary(ctx, user.ID, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Total income:  %s\nTotal expense: %s\nBalance:       %s\n",
			core.FormatAmount(sum.TotalIncome), core.FormatAmount(sum.TotalExpense), core.FormatAmount(sum.Balance))
		return nil
	})
}

// sampleTransactions draws n transactions dated within 180 days before today.
func sampleTransactions(rng *rand.Rand, today time.Time, n int) []services.TransactionInput {
	out := make([]services.TransactionInput, 0, n)
	for i := 0; i < n; i++ {
		kind, lo, hi := core.KindIncome, 500.0, 5000.0
		if rng.Float64() < 0.6 {
			kind, lo, hi = core.KindExpense, 10.0, 500.0
		}
		categories := core.SuggestedCategories(kind)
		descriptions := sampleDescriptions[kind]
		out = append(out, services.TransactionInput{
			Kind:        string(kind),
			Amount:      fmt.Sprintf("%.2f", lo+rng.Float64()*(hi-lo)),
			Category:    categories[rng.IntN(len(categories))],
			Date:        today.AddDate(0, 0, -rng.IntN(181)).Format("2006-01-02"),
			Description: descriptions[rng.IntN(len(descriptions))],
		})
	}
	return out
}
