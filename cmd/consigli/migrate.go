package main

import (
	"fmt"
	"os"
	"path/filepath"

	"consigli/internal/storage"

	"github.com/spf13/cobra"
)

func migrateCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the sqlite or postgres backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				dialect storage.Dialect
				dsn     string
			)
			switch st.cfg.DataBackend {
			case "sqlite":
				dialect, dsn = storage.SQLite, st.cfg.SQLiteDBPath
				if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
					return fmt.Errorf("create db directory: %w", err)
				}
			case "postgres":
				dialect, dsn = storage.Postgres, st.cfg.PostgresDSN
			default:
				return fmt.Errorf("backend %q has no schema to migrate", st.cfg.DataBackend)
			}

			st.logger.Info("Running database migrations", "backend", dialect)
			if err := storage.RunMigrations(dialect, dsn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", dialect)
			return nil
		},
	}
}
