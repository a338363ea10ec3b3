package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storyforge-api/internal/config"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/pkg/logger"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the StoryForge schema",
		Long: `Apply the StoryForge schema to the configured PostgreSQL database.

Connection settings are read from $CONFIG_DIR (default configs) and the
APP_ENV overlay, the same as storyforge-api.

Examples:
  storyctl migrate
  storyctl migrate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dryRun {
				printModels(cmd.OutOrStdout())
				return nil
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the models that would be migrated without connecting")

	return cmd
}

func runMigrate(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.App.Debug)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(out, "Migrated %d models on %s/%s\n",
		len(postgres.Models()), cfg.Database.Postgres.Host, cfg.Database.Postgres.Database)
	return nil
}

func printModels(out io.Writer) {
	for _, m := range postgres.Models() {
		fmt.Fprintf(out, "%T\n", m)
	}
}
