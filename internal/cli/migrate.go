package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/delegate-desk/pkg/database"
)

func migrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			var applied int
			switch cfg.Database.Driver {
			case "postgres":
				pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Database.DSN}, logger)
				if err != nil {
					return err
				}
				defer pool.Close()

				if applied, err = postgres.Migrate(ctx, pool, database.PostgresMigrations(), logger); err != nil {
					return err
				}

			default:
				if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
					return fmt.Errorf("create database directory: %w", err)
				}
				db, err := database.New(ctx, database.Config{Path: cfg.Database.Path}, logger)
				if err != nil {
					return err
				}
				defer db.Close()

				if applied, err = database.NewMigrator(db, logger).Run(ctx, database.SQLiteMigrations()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if applied == 0 {
				fmt.Fprintf(out, "%s database is up to date\n", color.New(color.FgBlue).Sprint("OK"))
				return nil
			}
			fmt.Fprintf(out, "%s applied %d migration(s) to %s\n", color.New(color.FgGreen).Sprint("OK"), applied, cfg.Database.Driver)
			return nil
		},
	}
}
