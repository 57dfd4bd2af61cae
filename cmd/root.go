package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
	"github.com/volako-app/volako/internal/config"
	"github.com/volako-app/volako/internal/engine"
	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/notify"
	"github.com/volako-app/volako/internal/remote"
	"github.com/volako-app/volako/internal/store"
	"github.com/volako-app/volako/internal/syncer"
)

var (
	flagDataDir string
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "volako",
	Short: "Offline-first personal finance tracker",
	Long:  "Track incomes, expenses, budgets and savings locally, syncing to a remote store when online.",
	RunE:  runBalance,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory (default: XDG data dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress notification output")
}

// appContext bundles everything a command needs. Commands construct it once
// at the start of their run and close it on the way out; nothing here is a
// package-level singleton.
type appContext struct {
	cfg      config.Config
	store    *store.Store
	engine   *engine.Engine
	remote   *remote.Store
	identity *remote.StaticIdentity
	manager  *syncer.Manager
	currency string
}

// openApp wires config, local store, engine and, when a remote DSN is
// configured, the remote store and sync manager. Commands that only read or
// write local records work with manager == nil.
func openApp() (*appContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}

	s, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	app := &appContext{
		cfg:    cfg,
		store:  s,
		engine: engine.New(s),
	}

	settings, err := s.Settings(model.Settings{
		Theme:    cfg.Defaults.Theme,
		Language: cfg.Defaults.Language,
		Currency: cfg.Defaults.Currency,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	app.currency = settings.Currency

	if cfg.Remote.DSN != "" {
		rs, err := remote.OpenGORM(cfg.Remote.DSN)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("opening remote store: %w", err)
		}
		app.remote = rs
		app.identity = remote.NewStaticIdentity(cfg.Remote.OwnerID)

		var notifier notify.Notifier = notify.Log{}
		if flagQuiet {
			notifier = notify.Discard{}
		}
		app.manager = syncer.New(s, rs, app.identity,
			syncer.WithInterval(cfg.SyncInterval()),
			syncer.WithNotifier(notifier),
		)
	}

	return app, nil
}

func (a *appContext) close() {
	_ = a.store.Close()
}

// money formats an amount in the user's configured currency.
func (a *appContext) money(amount decimal.Decimal) string {
	return cli.FormatMoney(amount, a.currency)
}

// signedMoney is money with an explicit leading sign for impact columns.
func (a *appContext) signedMoney(amount decimal.Decimal) string {
	return cli.FormatSignedMoney(amount, a.currency)
}
