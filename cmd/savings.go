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
	flagSavingGoal         string
	flagSavingTargetDate   string
	flagSavingAutoAmount   string
	flagSavingAutoDate     string
	flagSavingNote         string
	flagSavingJobsListOnly bool
)

var savingsCmd = &cobra.Command{
	Use:     "savings",
	Aliases: []string{"saving"},
	Short:   "Manage savings pots",
}

var savingsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a savings pot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavingsCreate,
}

var savingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List savings pots",
	RunE:  runSavingsList,
}

var savingsAddCmd = &cobra.Command{
	Use:   "add <saving-id> <amount>",
	Short: "Move money from the general pool into a saving",
	Args:  cobra.ExactArgs(2),
	RunE:  runSavingsAdd,
}

var savingsWithdrawCmd = &cobra.Command{
	Use:   "withdraw <saving-id> <amount>",
	Short: "Move money from a saving back into the general pool",
	Args:  cobra.ExactArgs(2),
	RunE:  runSavingsWithdraw,
}

var savingsLogCmd = &cobra.Command{
	Use:   "log [saving-id]",
	Short: "Show the savings transaction log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSavingsLog,
}

var savingsJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run due scheduled withdrawals and show the job log",
	RunE:  runSavingsJobs,
}

func init() {
	savingsCreateCmd.Flags().StringVar(&flagSavingGoal, "goal", "", "Target amount, making this a goal saving")
	savingsCreateCmd.Flags().StringVar(&flagSavingTargetDate, "by", "", "Target date for the goal (YYYY-MM-DD)")
	savingsCreateCmd.Flags().StringVar(&flagSavingAutoAmount, "auto-amount", "", "Scheduled withdrawal amount")
	savingsCreateCmd.Flags().StringVar(&flagSavingAutoDate, "auto-date", "", "Scheduled withdrawal date (YYYY-MM-DD)")

	savingsAddCmd.Flags().StringVarP(&flagSavingNote, "note", "m", "", "Description")
	savingsWithdrawCmd.Flags().StringVarP(&flagSavingNote, "note", "m", "", "Description")

	savingsJobsCmd.Flags().BoolVar(&flagSavingJobsListOnly, "list", false, "Only show the job log, do not run due schedules")

	savingsCmd.AddCommand(savingsCreateCmd)
	savingsCmd.AddCommand(savingsListCmd)
	savingsCmd.AddCommand(savingsAddCmd)
	savingsCmd.AddCommand(savingsWithdrawCmd)
	savingsCmd.AddCommand(savingsLogCmd)
	savingsCmd.AddCommand(savingsJobsCmd)
	rootCmd.AddCommand(savingsCmd)
}

func runSavingsCreate(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	typ := model.SavingFree
	target := decimal.Zero
	if flagSavingGoal != "" {
		typ = model.SavingGoal
		target, err = parseAmount(flagSavingGoal)
		if err != nil {
			return err
		}
	}
	targetDate, err := parseDay(flagSavingTargetDate)
	if err != nil {
		return err
	}

	var auto *model.AutoWithdraw
	if flagSavingAutoAmount != "" {
		amount, err := parseAmount(flagSavingAutoAmount)
		if err != nil {
			return err
		}
		date, err := parseDay(flagSavingAutoDate)
		if err != nil {
			return err
		}
		if date.IsZero() {
			return errors.New("--auto-amount requires --auto-date")
		}
		auto = &model.AutoWithdraw{Enabled: true, Amount: amount, Date: date}
	}

	result, err := app.engine.CreateSaving(args[0], typ, target, targetDate, auto)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}

	fmt.Printf("  Created saving %q (%s)\n", args[0], result.ID)
	return nil
}

func runSavingsList(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	savings, err := app.store.Savings()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(savings))
	for _, s := range savings {
		if s.Deleted {
			continue
		}
		goal := ""
		if s.Type == model.SavingGoal && s.TargetAmount.IsPositive() {
			goal = cli.RenderGoalBar(s.Balance, s.TargetAmount, 12)
		}
		rows = append(rows, []string{
			s.Name,
			string(s.Type),
			app.money(s.Balance),
			goal,
			s.ID,
		})
	}
	if len(rows) == 0 {
		fmt.Println("  No savings yet.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Savings",
		Headers: []string{"Name", "Type", "Balance", "Goal", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runSavingsAdd(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	result, err := app.engine.AddToSaving(args[0], amount, flagSavingNote)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}
	fmt.Printf("  %s\n", result.Message)
	return nil
}

func runSavingsWithdraw(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	result, err := app.engine.WithdrawFromSaving(args[0], amount, flagSavingNote)
	if err != nil {
		return err
	}
	if !result.OK {
		return errors.New(result.Message)
	}
	fmt.Printf("  %s\n", result.Message)
	return nil
}

func runSavingsLog(_ *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	transactions, err := app.store.SavingsTransactions()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Deleted {
			continue
		}
		if len(args) == 1 && tx.SavingID != args[0] {
			continue
		}
		impact := tx.Amount
		if tx.Type == model.TransactionWithdraw {
			impact = impact.Neg()
		}
		rows = append(rows, []string{
			cli.FormatDate(tx.Date),
			string(tx.Type),
			app.signedMoney(impact),
			app.money(tx.BalanceAfter),
			tx.Description,
		})
	}
	if len(rows) == 0 {
		fmt.Println("  No savings transactions yet.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Savings transactions",
		Headers: []string{"Date", "Type", "Amount", "Balance after", "Description"},
		Rows:    rows,
	}))
	return nil
}

func runSavingsJobs(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if !flagSavingJobsListOnly {
		ran, err := app.engine.RunDueAutoWithdrawals(time.Now())
		if err != nil {
			return err
		}
		if len(ran) > 0 {
			fmt.Printf("  Ran %d scheduled withdrawal(s)\n", len(ran))
		}
	}

	jobs, err := app.store.WithdrawJobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("  No scheduled withdrawals have run.")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		state := string(job.State)
		if job.State == model.JobFailed {
			state = cli.Negative(state + ": " + job.Error)
		}
		rows = append(rows, []string{
			cli.FormatDate(job.ScheduledFor),
			job.SavingID,
			app.money(job.Amount),
			state,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Scheduled withdrawals",
		Headers: []string{"Due", "Saving", "Amount", "State"},
		Rows:    rows,
	}))
	return nil
}
