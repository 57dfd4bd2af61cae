package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the ledgers for inconsistencies",
	RunE:  runIntegrity,
}

func init() {
	rootCmd.AddCommand(integrityCmd)
}

func runIntegrity(_ *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	report, err := app.engine.CheckIntegrity()
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderTitle("Integrity check"))
	fmt.Printf("  Checked at: %s\n", cli.FormatDateTime(report.Timestamp))
	fmt.Printf("  Transactions replayed: %d\n", report.Rebuilt.TransactionCount)
	fmt.Printf("  Available balance: %s\n", app.money(report.Balances.AvailableBalance))
	fmt.Println()

	for _, msg := range report.Errors {
		fmt.Printf("  %s %s\n", cli.Negative("error:"), msg)
	}
	for _, msg := range report.Warnings {
		fmt.Printf("  %s %s\n", cli.Warn("warning:"), msg)
	}

	if !report.Valid {
		return errors.New("integrity check failed")
	}
	fmt.Println(cli.Positive("  All checks passed."))
	return nil
}
