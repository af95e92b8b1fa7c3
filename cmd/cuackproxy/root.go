package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/config"
	cplog "github.com/cuackproxy/cuackproxy/internal/log"
)

// NewRootCmd creates the root command for CuackProxy.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cuackproxy",
		Short: "Route traffic through Tor with a fresh MAC address",
		Long: `CuackProxy is an interactive tool that randomizes a network interface's
MAC address, starts Tor (or reuses a running daemon) with an optional exit
country, and verifies the resulting exit IP and location.

Run without a subcommand to open the menu. The menu must run as root on Linux.
Errors are appended to an encrypted log; create its key with "cuackproxy keygen".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runMenuCmd,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .cuackproxy.yaml or $XDG_CONFIG_HOME/cuackproxy/config.yaml)")

	cmd.AddCommand(NewLogsCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewDoctorCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds the validated configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, _ = cmd.Root().PersistentFlags().GetString("config")
	}

	cfg, err := config.Load(path)
	if err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the console logger and makes it the default.
func setupLogger(verbose bool) *slog.Logger {
	logger := cplog.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return logger
}
