package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/config"
)

//go:embed templates/cuackproxy.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new CuackProxy configuration file",
		Long: `Initialize creates a new .cuackproxy.yaml configuration file in the current
directory.

The generated file lists every setting with its default value and a short
description. Uncomment the lines you want to change.

Examples:
  # Create .cuackproxy.yaml in current directory
  cuackproxy init

  # Create the per-user configuration
  cuackproxy init -o ~/.config/cuackproxy/config.yaml

  # Force overwrite existing file
  cuackproxy init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/cuackproxy.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change settings such as:")
	fmt.Fprintln(out, "  - Proxy defaults offered at the connect prompt")
	fmt.Fprintln(out, "  - Tor binary, control port and startup timeout")
	fmt.Fprintln(out, "  - Error log key and file locations")
	fmt.Fprintln(out, "  - Connect history recording")

	return nil
}
