package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/dukerupert/eventboard/internal/config"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/logging"
)

const configFlag = "config"

func configFlagDef() cobraflags.Flag {
	return &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a config file (yaml, toml or json); EVENTBOARD_* variables override it",
	}
}

func main() {
	root := &cobra.Command{
		Use:           "eventboard",
		Short:         "Academic event board: events, subscriptions, announcements and notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newRemindCommand(),
		newHashKeyCommand(),
		newGrantAdminCommand(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration, installs the default logger and opens the
// database, which also applies pending migrations.
func setup(configPath string) (*config.Config, *database.DB, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := database.OpenDialect(database.Dialect(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, logger, nil
}

var migrateFlags = map[string]cobraflags.Flag{
	configFlag: configFlagDef(),
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, logger, err := setup(migrateFlags[configFlag].GetString())
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := db.Version()
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			logger.Info("database migrated", "dialect", db.Dialect(), "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, migrateFlags)
	return cmd
}
