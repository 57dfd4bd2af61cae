package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
	"github.com/volako-app/volako/internal/model"
)

var (
	flagBalanceFrom string
	flagBalanceTo   string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show available balance and period statistics",
	RunE:  runBalance,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the unified transaction history",
	RunE:  runHistory,
}

var flagHistoryLimit int

func init() {
	balanceCmd.Flags().StringVar(&flagBalanceFrom, "from", "", "Period start (YYYY-MM-DD, default: start of month)")
	balanceCmd.Flags().StringVar(&flagBalanceTo, "to", "", "Period end (YYYY-MM-DD, default: end of month)")
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 25, "Max entries shown")
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

func runBalance(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	from, err := parseDay(flagBalanceFrom)
	if err != nil {
		return err
	}
	to, err := parseDay(flagBalanceTo)
	if err != nil {
		return err
	}

	b, err := app.engine.Balances(from, to)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderTitle("Balance"))

	overview := cli.Table{
		Rows: [][]string{
			{"Available balance", app.money(b.AvailableBalance)},
			{"Total saved", app.money(b.TotalSaved)},
			{"Total with savings", app.money(b.TotalBalanceWithSavings)},
		},
	}
	fmt.Print(cli.RenderTable(overview))

	period := cli.Table{
		Title:   fmt.Sprintf("%s to %s", cli.FormatDate(b.PeriodStart), cli.FormatDate(b.PeriodEnd)),
		Headers: []string{"", "Amount", "Count"},
		Rows: [][]string{
			{"Income", app.money(b.TotalIncome), fmt.Sprintf("%d", b.IncomeCount)},
			{"Expenses", app.money(b.TotalExpenses), fmt.Sprintf("%d", b.ExpenseCount)},
			{"Net", app.signedMoney(b.PeriodBalance), ""},
			{"---"},
			{"Moved to savings", app.money(b.PeriodSavingsAdded), ""},
			{"Withdrawn from savings", app.money(b.PeriodSavingsWithdrawn), ""},
		},
	}
	fmt.Print(cli.RenderTable(period))
	return nil
}

func runHistory(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	entries, err := app.engine.TransactionHistory()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("  No transactions yet.")
		return nil
	}
	if flagHistoryLimit > 0 && len(entries) > flagHistoryLimit {
		entries = entries[:flagHistoryLimit]
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		kind := ""
		switch e.Kind {
		case model.KindSavingsTransfer:
			kind = "savings"
		case model.KindSavingsWithdrawal:
			kind = "savings"
		}
		rows = append(rows, []string{
			cli.FormatDate(e.Date),
			e.Description,
			e.Category,
			kind,
			app.signedMoney(e.Impact),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Transaction history",
		Headers: []string{"Date", "Description", "Category", "", "Impact"},
		Rows:    rows,
	}))
	return nil
}
