package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Decrypt and print the error log",
		Long: `Logs decrypts every entry of the encrypted error log and prints it in
file order. Entries that cannot be decrypted are shown as corrupt.

This is the same output as "Decrypt Logs" in the interactive menu and does
not require root.`,
		Args: cobra.NoArgs,
		RunE: runLogsCmd,
	}
}

func runLogsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Verbose)

	out := cmd.OutOrStdout()
	audit := auditlog.New(cfg.KeyFile, cfg.LogFile,
		auditlog.WithConsole(out),
		auditlog.WithLogger(logger),
	)
	fmt.Fprintln(out, audit.Decrypt())
	return nil
}
