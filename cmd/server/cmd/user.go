package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/email"
	"github.com/vitalpages/server/internal/storage/postgres"
)

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts",
	}

	userBootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial admin account if none exists",
		Long: `Create the bootstrap admin account from ADMIN_BOOTSTRAP_* environment
variables, or from the flags below. Does nothing if the account already
exists.`,
		RunE: runUserBootstrap,
	}

	bootstrapName     string
	bootstrapEmail    string
	bootstrapPassword string
)

func init() {
	userBootstrapCmd.Flags().StringVar(&bootstrapName, "name", "", "admin username (overrides ADMIN_BOOTSTRAP_USERNAME)")
	userBootstrapCmd.Flags().StringVar(&bootstrapEmail, "email", "", "admin email (overrides ADMIN_BOOTSTRAP_EMAIL)")
	userBootstrapCmd.Flags().StringVar(&bootstrapPassword, "password", "", "admin password (overrides ADMIN_BOOTSTRAP_PASSWORD)")

	userCmd.AddCommand(userBootstrapCmd)
}

func runUserBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	name := cfg.AdminBootstrap.Username
	if bootstrapName != "" {
		name = bootstrapName
	}
	emailAddr := cfg.AdminBootstrap.Email
	if bootstrapEmail != "" {
		emailAddr = bootstrapEmail
	}
	password := cfg.AdminBootstrap.Password
	if bootstrapPassword != "" {
		password = bootstrapPassword
	}
	if name == "" || password == "" {
		return fmt.Errorf("bootstrap admin requires a name and password")
	}

	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	emailSvc, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("init email service: %w", err)
	}

	svc := users.NewService(repo.Users(), emailSvc, auth.NewTwoFactor("VitalPages"), audit.NewLogger(logger), nil, cfg.Server.BaseURL, logger)
	if err := svc.EnsureBootstrapAdmin(ctx, name, emailAddr, password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "admin account %q ready\n", name)
	return nil
}
