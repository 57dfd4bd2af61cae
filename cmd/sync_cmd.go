package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/volako-app/volako/internal/cli"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending local records to the remote store",
	RunE:  runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending record counts and connectivity",
	RunE:  runSyncStatus,
}

var syncLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Pull remote records and merge them with local data",
	RunE:  runSyncLoad,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Load the configured owner's remote records",
	RunE:  runSyncLoad,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Flush pending records, then sign out and clear local data",
	RunE:  runLogout,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncLoadCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var errNoRemote = errors.New("no remote configured: set remote.dsn in config.toml or VOLAKO_REMOTE_DSN")

func runSync(cmd *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.manager == nil {
		return errNoRemote
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := app.manager.Sync(ctx); err != nil {
		return err
	}

	pending, err := app.manager.PendingCount()
	if err != nil {
		return err
	}
	if pending > 0 {
		fmt.Printf("  %d record(s) still pending\n", pending)
	} else {
		fmt.Println("  All records synchronized.")
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.manager == nil {
		fmt.Println("  Remote: not configured (local-only mode)")
		return nil
	}

	pending, err := app.manager.PendingCount()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	online := "online"
	if err := app.remote.Health.Ping(ctx); err != nil {
		online = cli.Warn("offline")
	}

	fmt.Printf("  Remote: %s\n", online)
	fmt.Printf("  Pending records: %d\n", pending)
	if last := app.manager.LastSync(); last != nil {
		fmt.Printf("  Last sync: %s\n", cli.FormatAgo(*last))
	}
	return nil
}

func runSyncLoad(cmd *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.manager == nil {
		return errNoRemote
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	identity, err := app.identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return errors.New("no owner configured: set remote.owner_id in config.toml or VOLAKO_OWNER_ID")
	}

	return app.manager.LoadRemote(ctx, identity)
}

func runLogout(cmd *cobra.Command, _ []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.manager != nil {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		result := app.manager.SyncBeforeLogout(ctx)
		if !result.Success {
			fmt.Printf("  %s\n", cli.Warn("final sync incomplete: "+result.Message))
		} else {
			fmt.Printf("  %s\n", result.Message)
		}
		app.identity.SignOut()

		if err := app.manager.ClearLocalData(); err != nil {
			return err
		}
	} else if err := app.store.Clear(); err != nil {
		return err
	}

	fmt.Println("  Signed out, local data cleared.")
	return nil
}
