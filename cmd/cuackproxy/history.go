package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/history"
	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/report"
)

// defaultHistoryLimit is how many attempts are listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded connect attempts",
		Long: `History lists connect attempts recorded by the interactive menu, newest
first. Recording is off by default; enable it with history.enabled in the
configuration file.

Examples:
  # Show the last 20 attempts
  cuackproxy history

  # Markdown report of the last 100 attempts
  cuackproxy history --markdown -n 100 -o history.md`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of attempts to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg.Verbose)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}

	format, err := historyFormat(cmd)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	attempts, err := loadAttempts(cmd, cfg.HistoryDir, limit)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := createOutputFile(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w, err := report.NewWriter(format, out)
	if err != nil {
		return err
	}
	if _, err := w.Write(model.NewHistoryReport(attempts, time.Now())); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
	}
	return nil
}

func historyFormat(cmd *cobra.Command) (string, error) {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return "", err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return "", err
	}
	switch {
	case asJSON:
		return report.FormatJSON, nil
	case asMarkdown:
		return report.FormatMarkdown, nil
	default:
		return report.FormatText, nil
	}
}

// loadAttempts reads the newest attempts. A missing database means no
// attempt was ever recorded.
func loadAttempts(cmd *cobra.Command, dir string, limit int) ([]*model.Attempt, error) {
	store, err := history.Open(dir, history.Options{CreateIfNotExists: false})
	if errors.Is(err, history.ErrDatabaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	attempts, err := store.List(cmd.Context(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return attempts, nil
}

func createOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
