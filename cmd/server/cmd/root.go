package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "VitalPages server - healthcare practice website and CMS backend",
		Long: `VitalPages server powers a healthcare practice's marketing website and its
admin content management panel.

The server provides:
- Public content APIs for pages, blog posts, navigation and SEO metadata
- An admin API with invitation-based accounts, roles and two-factor auth
- Contact form intake with captcha verification
- Email campaigns, webhooks and a plugin job queue
- Scheduled database backups and a live monitoring stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand: serve.
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(userCmd)
}
