package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/backups"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
	}

	backupRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a database backup now",
		RunE:  runBackup,
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List existing backups",
		RunE:  runBackupList,
	}

	backupPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete backups past their retention",
		RunE:  runBackupPrune,
	}

	backupPruneDryRun bool
)

func init() {
	backupPruneCmd.Flags().BoolVar(&backupPruneDryRun, "dry-run", false, "show what would be deleted without deleting")

	backupCmd.AddCommand(backupRunCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPruneCmd)
}

func backupService() (*backups.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)
	return backups.NewService(cfg.Database.URL, cfg.Backups, nil, logger), nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	svc, err := backupService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	backup, err := svc.Run(ctx, "manual")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "backup written: %s (%d MB)\n", backup.Path, backup.SizeMB)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	svc, err := backupService()
	if err != nil {
		return err
	}

	list, err := svc.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no backups found")
		return nil
	}
	for _, b := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d MB\t%s old\n", b.Path, b.SizeMB, b.Age.Round(time.Minute))
	}
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	svc, err := backupService()
	if err != nil {
		return err
	}

	pruned, err := svc.Prune(backupPruneDryRun)
	if err != nil {
		return err
	}

	verb := "deleted"
	if backupPruneDryRun {
		verb = "would delete"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d backup(s)\n", verb, len(pruned))
	for _, b := range pruned {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", b.Path)
	}
	return nil
}
