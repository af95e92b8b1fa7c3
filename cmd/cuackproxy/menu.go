package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
	"github.com/cuackproxy/cuackproxy/internal/config"
	"github.com/cuackproxy/cuackproxy/internal/doctor"
	"github.com/cuackproxy/cuackproxy/internal/history"
	"github.com/cuackproxy/cuackproxy/internal/ipcheck"
	"github.com/cuackproxy/cuackproxy/internal/menu"
	"github.com/cuackproxy/cuackproxy/internal/netid"
	"github.com/cuackproxy/cuackproxy/internal/pipeline"
	"github.com/cuackproxy/cuackproxy/internal/runner"
	"github.com/cuackproxy/cuackproxy/internal/session"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

// runMenuCmd runs the interactive menu.
func runMenuCmd(cmd *cobra.Command, _ []string) error {
	if err := doctor.RequirePlatform(runtime.GOOS); err != nil {
		return errors.New(doctor.MsgUnsupportedPlatform)
	}
	if err := doctor.RequireRoot(os.Geteuid()); err != nil {
		return errors.New(doctor.MsgNotRoot)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sess, closeHistory := newSession(cfg, runner.NewExec(), out, logger)
	defer closeHistory()

	opts := []menu.Option{menu.WithDefaults(cfg.ProxyHost, cfg.ProxyPort)}
	if shouldClearScreen(os.Stdout, os.Getenv("TERM")) {
		opts = append(opts, menu.WithClearScreen(menu.ClearScreen))
	}

	err = menu.New(sess, cmd.InOrStdin(), out, opts...).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// shouldClearScreen reports whether f is a terminal and TERM is set.
func shouldClearScreen(f *os.File, termEnv string) bool {
	return termEnv != "" && term.IsTerminal(int(f.Fd()))
}

// newSession wires the connect flow from cfg. The returned func closes the
// history store, if one was opened.
func newSession(cfg *config.Config, r runner.Runner, console io.Writer, logger *slog.Logger) (*session.Session, func()) {
	cookie := cfg.CookieFile
	if cookie == "" {
		cookie = tor.CookiePath(cfg.TorrcDirectory(), os.Getpid())
	}
	ctrl := tor.NewControlPort(cfg.ControlAddress, cookie, cfg.ControlTimeout)
	mgr := tor.NewManager(r, ctrl,
		tor.WithLogger(logger),
		tor.WithBinary(cfg.TorBinary),
		tor.WithTorrcDir(cfg.TorrcDirectory()),
		tor.WithControlPort(cfg.ControlPort()),
		tor.WithCookieFile(cookie),
		tor.WithStartupTimeout(cfg.StartupTimeout),
		tor.WithPollInterval(cfg.PollInterval),
	)

	deps := session.Deps{
		Tor: mgr,
		MAC: netid.NewRandomizer(r, netid.WithLogger(logger)),
		NewVerifier: func(proxyAddress string) (pipeline.ExitVerifier, error) {
			return ipcheck.NewForProxy(proxyAddress,
				ipcheck.WithEndpoint(cfg.VerifyEndpoint),
				ipcheck.WithTimeout(cfg.VerifyTimeout),
				ipcheck.WithLogger(logger),
			)
		},
		Audit: auditlog.New(cfg.KeyFile, cfg.LogFile,
			auditlog.WithConsole(console),
			auditlog.WithLogger(logger),
		),
		Console: console,
		Logger:  logger,
	}

	closeHistory := func() {}
	if cfg.HistoryEnabled {
		store, err := history.Open(cfg.HistoryDir, history.DefaultOptions())
		if err != nil {
			logger.Warn("history disabled", "dir", cfg.HistoryDir, "error", err)
		} else {
			deps.History = store
			closeHistory = func() {
				if err := store.Close(); err != nil {
					logger.Debug("close history failed", "error", err)
				}
			}
		}
	}

	return session.New(deps), closeHistory
}
