package cmd

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
	"github.com/volako-app/volako/internal/model"
)

var (
	flagExpenseCategory  string
	flagExpenseReference string
	flagExpenseNote      string
	flagExpenseDate      string
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Manage expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpenseAdd,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	RunE:  runExpenseList,
}

var expenseDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an expense",
	Args:    cobra.ExactArgs(1),
	RunE:    runExpenseDelete,
}

func init() {
	expenseAddCmd.Flags().StringVarP(&flagExpenseCategory, "category", "c", model.CategoryOther, "Expense category")
	expenseAddCmd.Flags().StringVar(&flagExpenseReference, "reference", "", "Free-text reference for the 'other' category")
	expenseAddCmd.Flags().StringVarP(&flagExpenseNote, "note", "m", "", "Description")
	expenseAddCmd.Flags().StringVar(&flagExpenseDate, "date", "", "Date (YYYY-MM-DD, default: today)")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseDeleteCmd)
	rootCmd.AddCommand(expenseCmd)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func runExpenseAdd(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	date, err := parseDay(flagExpenseDate)
	if err != nil {
		return err
	}

	result, err := app.engine.AddExpense(amount, flagExpenseCategory, flagExpenseReference, flagExpenseNote, date)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}

	fmt.Printf("  Recorded %s expense (%s)\n", app.money(amount), result.ID)
	return nil
}

func runExpenseList(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	expenses, err := app.store.Expenses()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(expenses))
	for _, exp := range expenses {
		if exp.Deleted {
			continue
		}
		sync := ""
		if exp.Unsynced() {
			sync = cli.Warn("pending")
		}
		rows = append(rows, []string{
			cli.FormatDate(exp.Date),
			exp.Category,
			exp.Description,
			app.money(exp.Amount),
			sync,
			exp.ID,
		})
	}
	if len(rows) == 0 {
		fmt.Println("  No expenses yet.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Expenses",
		Headers: []string{"Date", "Category", "Description", "Amount", "Sync", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runExpenseDelete(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.engine.DeleteExpense(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted expense %s\n", args[0])
	return nil
}
