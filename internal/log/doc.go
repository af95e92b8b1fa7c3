// Package log provides the console logger for cuackproxy.
//
// It wraps a standard slog handler with SecureHandler, which masks values
// that must never reach a terminal or a shared log: Fernet keys and tokens,
// Tor control cookies, passwords and similar credentials.
//
// The encrypted error log kept on disk is a different thing and lives in
// package auditlog. This package only concerns the structured diagnostics
// printed to stderr.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("control port authenticated", "cookie_file", path)
//	slog.SetDefault(logger)
package log
