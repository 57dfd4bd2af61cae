package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	dsn := cfg.Remote.DSN
	owner := cfg.Remote.OwnerID
	currency := cfg.Defaults.Currency
	theme := cfg.Defaults.Theme
	autoSync := cfg.Sync.AutoSync

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Remote store DSN").
				Description("SQLite path or connection string. Leave blank for local-only mode.").
				Value(&dsn),
			huh.NewInput().
				Title("Owner id").
				Description("Identifies your rows in the remote store.").
				Value(&owner),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Currency").
				Options(
					huh.NewOption("Malagasy ariary (MGA)", "MGA"),
					huh.NewOption("Euro (EUR)", "EUR"),
					huh.NewOption("US dollar (USD)", "USD"),
				).
				Value(&currency),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Light", "light"),
					huh.NewOption("Dark", "dark"),
				).
				Value(&theme),
			huh.NewConfirm().
				Title("Sync automatically in the background?").
				Value(&autoSync),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Remote.DSN = strings.TrimSpace(dsn)
	cfg.Remote.OwnerID = strings.TrimSpace(owner)
	cfg.Defaults.Currency = currency
	cfg.Defaults.Theme = theme
	cfg.Sync.AutoSync = autoSync

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `volako setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
