package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/photato/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "photato",
	Short:         "Photo sharing API and gallery client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
}

// loadConfig reads --config when given, otherwise the environment alone.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}
