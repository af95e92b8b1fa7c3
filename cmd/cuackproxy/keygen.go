package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
)

// NewKeygenCmd creates the keygen command.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the Fernet key for the error log",
		Long: `Keygen writes a new random Fernet key with mode 0600 and prints its
fingerprint. Without a key, errors are not logged.

An existing key is never replaced unless --force is given, because entries
written with the old key can no longer be decrypted.

Examples:
  # Create fernet_key.key in the current directory
  cuackproxy keygen

  # Write the key somewhere else
  cuackproxy keygen -o /etc/cuackproxy/fernet.key`,
		Args: cobra.NoArgs,
		RunE: runKeygenCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Key file path (default: audit.key_file from the configuration)")
	cmd.Flags().BoolP("force", "f", false, "Replace an existing key")

	return cmd
}

func runKeygenCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.KeyFile
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	fp, err := auditlog.GenerateKey(path, force)
	if errors.Is(err, auditlog.ErrKeyExists) {
		return fmt.Errorf("key file already exists: %s (use -f to replace it; existing logs become unreadable)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created key file: %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
	return nil
}
