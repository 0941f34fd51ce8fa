package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbonduro/photato/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := db.Migrate(cfg.DB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("migrations applied", "dialect", cfg.DB.Dialect)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
