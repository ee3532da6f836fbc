package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"

	"github.com/vitalpages/server/internal/storage/postgres"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Long: `Apply all pending schema migrations, then bring the River job queue
schema up to date.`,
		RunE: runMigrateUp,
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE:  runMigrateDown,
	}

	migrationsPath string
	migrateSteps   int
)

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", postgres.DefaultMigrationsPath, "migrations directory")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if err := postgres.MigrateUp(cfg.Database.URL, migrationsPath); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("init river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if err := postgres.MigrateDown(cfg.Database.URL, migrationsPath, migrateSteps); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", migrateSteps)
	return nil
}
