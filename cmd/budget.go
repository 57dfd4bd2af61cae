package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
	"github.com/volako-app/volako/internal/model"
)

var (
	flagBudgetReference string
	flagBudgetNotes     string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <category> <amount>",
	Short: "Create or update the budget for a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runBudgetSet,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets with this month's spending",
	RunE:  runBudgetList,
}

var budgetDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a budget",
	Args:    cobra.ExactArgs(1),
	RunE:    runBudgetDelete,
}

func init() {
	budgetSetCmd.Flags().StringVar(&flagBudgetReference, "reference", "", "Free-text reference for the 'other' category")
	budgetSetCmd.Flags().StringVarP(&flagBudgetNotes, "notes", "m", "", "Notes")

	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetListCmd)
	budgetCmd.AddCommand(budgetDeleteCmd)
	rootCmd.AddCommand(budgetCmd)
}

func runBudgetSet(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	result, err := app.engine.SetBudget(args[0], amount, flagBudgetReference, flagBudgetNotes)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}

	fmt.Printf("  %s: %s for %s\n", result.Message, app.money(amount), args[0])
	return nil
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	budgets, err := app.store.Budgets()
	if err != nil {
		return err
	}
	expenses, err := app.store.Expenses()
	if err != nil {
		return err
	}

	// This month's plain spending per category. Savings mirrors are
	// excluded; moving money into savings is not category spending.
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	spent := make(map[string]decimal.Decimal)
	for _, exp := range expenses {
		if exp.Deleted || exp.Kind != model.KindPlain || exp.Date.Before(start) {
			continue
		}
		key := exp.Category
		if key == model.CategoryOther {
			key = key + "/" + exp.OtherReference
		}
		spent[key] = spent[key].Add(exp.Amount)
	}

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		if b.Deleted {
			continue
		}
		key := b.Category
		label := b.Category
		if b.Category == model.CategoryOther {
			key = key + "/" + b.OtherReference
			if b.OtherReference != "" {
				label = b.OtherReference
			}
		}
		used := spent[key]
		remaining := b.Amount.Sub(used)
		remainingCell := app.money(remaining)
		if remaining.IsNegative() {
			remainingCell = cli.Negative(remainingCell)
		}
		rows = append(rows, []string{
			label,
			app.money(b.Amount),
			app.money(used),
			remainingCell,
			b.ID,
		})
	}
	if len(rows) == 0 {
		fmt.Println("  No budgets yet.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Budgets (" + now.Format("January 2006") + ")",
		Headers: []string{"Category", "Budget", "Spent", "Remaining", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runBudgetDelete(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.engine.DeleteBudget(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted budget %s\n", args[0])
	return nil
}
