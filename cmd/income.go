package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
)

var (
	flagIncomeSource string
	flagIncomeDate   string
)

var incomeCmd = &cobra.Command{
	Use:   "income",
	Short: "Manage incomes",
}

var incomeAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record an income",
	Args:  cobra.ExactArgs(1),
	RunE:  runIncomeAdd,
}

var incomeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incomes",
	RunE:  runIncomeList,
}

var incomeDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an income",
	Args:    cobra.ExactArgs(1),
	RunE:    runIncomeDelete,
}

func init() {
	incomeAddCmd.Flags().StringVarP(&flagIncomeSource, "source", "s", "", "Income source")
	incomeAddCmd.Flags().StringVar(&flagIncomeDate, "date", "", "Date (YYYY-MM-DD, default: today)")

	incomeCmd.AddCommand(incomeAddCmd)
	incomeCmd.AddCommand(incomeListCmd)
	incomeCmd.AddCommand(incomeDeleteCmd)
	rootCmd.AddCommand(incomeCmd)
}

func runIncomeAdd(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	date, err := parseDay(flagIncomeDate)
	if err != nil {
		return err
	}

	result, err := app.engine.AddIncome(amount, flagIncomeSource, date)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}

	fmt.Printf("  Recorded %s income (%s)\n", app.money(amount), result.ID)
	return nil
}

func runIncomeList(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	incomes, err := app.store.Incomes()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(incomes))
	for _, inc := range incomes {
		if inc.Deleted {
			continue
		}
		sync := ""
		if inc.Unsynced() {
			sync = cli.Warn("pending")
		}
		rows = append(rows, []string{
			cli.FormatDate(inc.Date),
			inc.Source,
			app.money(inc.Amount),
			sync,
			inc.ID,
		})
	}
	if len(rows) == 0 {
		fmt.Println("  No incomes yet.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Incomes",
		Headers: []string{"Date", "Source", "Amount", "Sync", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runIncomeDelete(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.engine.DeleteIncome(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted income %s\n", args[0])
	return nil
}
