package tor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/runner"
	"github.com/cuackproxy/cuackproxy/internal/wait"
)

// State is the lifecycle state of the Tor daemon as seen by a Manager.
type State int

const (
	// StateNotStarted means no start has been attempted.
	StateNotStarted State = iota

	// StateConfigWritten means the torrc is on disk but tor is not running yet.
	StateConfigWritten

	// StateBootstrapping means tor was launched and we are polling it.
	StateBootstrapping

	// StateReady means the tor we launched finished bootstrapping.
	StateReady

	// StateFailed means the last launch failed.
	StateFailed

	// StateExternalReady means a tor we did not start is running and ready.
	StateExternalReady

	// StateExternalNotReady means a tor we did not start is running but not ready.
	StateExternalNotReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateConfigWritten:
		return "config written"
	case StateBootstrapping:
		return "bootstrapping"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateExternalReady:
		return "external ready"
	case StateExternalNotReady:
		return "external not ready"
	default:
		return "unknown"
	}
}

// StartResult describes the daemon a Start call left behind.
type StartResult struct {
	// Process is the tor launched by this call. It is set even when Start
	// fails on a timeout or cancellation, so the caller can terminate it.
	Process runner.Process

	// Reused is true when an already running tor was used.
	Reused bool

	// TorrcPath is the torrc written by this call, empty when reused.
	TorrcPath string

	// CookieFile is the control cookie the launched tor writes, empty when
	// reused.
	CookieFile string
}

// Manager launches and inspects the Tor daemon.
type Manager struct {
	runner         runner.Runner
	ctrl           Controller
	logger         *slog.Logger
	binary         string
	torrcDir       string
	pid            int
	controlPort    int
	cookieFile     string
	startupTimeout time.Duration
	pollInterval   time.Duration
	state          State
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBinary sets the tor executable name or path.
func WithBinary(binary string) Option {
	return func(m *Manager) {
		m.binary = binary
	}
}

// WithTorrcDir sets the directory that receives torrc_<pid>.
func WithTorrcDir(dir string) Option {
	return func(m *Manager) {
		m.torrcDir = dir
	}
}

// WithPID overrides the pid used in the torrc file name.
func WithPID(pid int) Option {
	return func(m *Manager) {
		m.pid = pid
	}
}

// WithControlPort sets the ControlPort written to the torrc.
func WithControlPort(port int) Option {
	return func(m *Manager) {
		m.controlPort = port
	}
}

// WithCookieFile sets the CookieAuthFile written to the torrc. Empty keeps
// CookiePath beside the torrc.
func WithCookieFile(path string) Option {
	return func(m *Manager) {
		m.cookieFile = path
	}
}

// WithStartupTimeout bounds the wait for bootstrap after launch.
func WithStartupTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.startupTimeout = timeout
	}
}

// WithPollInterval sets how often a launching tor is checked.
func WithPollInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.pollInterval = interval
	}
}

// NewManager returns a Manager that runs commands through r and queries
// the control port through ctrl.
func NewManager(r runner.Runner, ctrl Controller, opts ...Option) *Manager {
	m := &Manager{
		runner:         r,
		ctrl:           ctrl,
		binary:         "tor",
		torrcDir:       os.TempDir(),
		pid:            os.Getpid(),
		controlPort:    9051,
		startupTimeout: 60 * time.Second,
		pollInterval:   time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// State returns the state after the last Start.
func (m *Manager) State() State {
	return m.state
}

// TorrcPath returns the torrc path owned by this process.
func (m *Manager) TorrcPath() string {
	return TorrcPath(m.torrcDir, m.pid)
}

// CookieFile returns the CookieAuthFile written to the torrc.
func (m *Manager) CookieFile() string {
	if m.cookieFile != "" {
		return m.cookieFile
	}
	return CookiePath(m.torrcDir, m.pid)
}

// IsRunning reports whether a process named like the tor binary exists.
func (m *Manager) IsRunning(ctx context.Context) bool {
	err := m.runner.Run(ctx, "pgrep", "-x", filepath.Base(m.binary))
	if err != nil && runner.Classify(err) == runner.OutcomeExecFailure {
		m.logger.Debug("pgrep unavailable", "error", err)
	}
	return err == nil
}

// IsReady reports whether the control port says bootstrap is done. Any
// control error counts as not ready.
func (m *Manager) IsReady(ctx context.Context) bool {
	phase, err := m.ctrl.BootstrapPhase(ctx)
	if err != nil {
		m.logger.Debug("bootstrap phase unavailable", "error", err)
		return false
	}
	m.logger.Debug("bootstrap phase", "phase", phase)
	return BootstrapDone(phase)
}

// Start makes a ready Tor available for exit.
//
// The tor binary must be installed. A running tor is reused when ready and
// rejected with ErrRunningNotReady otherwise; it is never restarted.
// Without a running tor, Start writes the
// torrc, launches the binary and waits for bootstrap. On ErrBootstrapTimeout
// or cancellation the returned result still carries the launched process.
func (m *Manager) Start(ctx context.Context, exit model.CountryCode, socksPort int) (StartResult, error) {
	if !m.runner.LookPath(m.binary) {
		m.state = StateFailed
		return StartResult{}, ErrTorNotInstalled
	}

	if m.IsRunning(ctx) {
		if m.IsReady(ctx) {
			m.state = StateExternalReady
			m.logger.Info("Tor is already running and ready")
			return StartResult{Reused: true}, nil
		}
		m.state = StateExternalNotReady
		return StartResult{}, ErrRunningNotReady
	}

	path := m.TorrcPath()
	cookie := m.CookieFile()
	opts := TorrcOptions{
		Exit:        exit,
		SocksPort:   socksPort,
		ControlPort: m.controlPort,
		CookieFile:  cookie,
	}
	if err := RemoveCookie(cookie); err != nil {
		m.logger.Debug("remove stale cookie failed", "path", cookie, "error", err)
	}
	if err := WriteTorrc(path, opts); err != nil {
		m.state = StateFailed
		return StartResult{}, err
	}
	m.state = StateConfigWritten
	result := StartResult{TorrcPath: path, CookieFile: cookie}

	proc, err := m.runner.Start(ctx, m.binary, "-f", path)
	if err != nil {
		m.state = StateFailed
		if errors.Is(err, runner.ErrNotFound) {
			return result, ErrTorNotInstalled
		}
		return result, fmt.Errorf("launch tor: %w", err)
	}
	m.state = StateBootstrapping
	result.Process = proc
	m.logger.Debug("tor launched", "pid", proc.Pid(), "torrc", path, "exit", exit.String())

	err = wait.Until(ctx, m.pollInterval, m.startupTimeout, func(ctx context.Context) (bool, error) {
		if !proc.Alive() {
			return false, ErrProcessExited
		}
		return m.IsReady(ctx), nil
	})
	switch {
	case err == nil:
		m.state = StateReady
		return result, nil
	case errors.Is(err, wait.ErrTimeout):
		m.state = StateFailed
		return result, ErrBootstrapTimeout
	case errors.Is(err, ErrProcessExited):
		m.state = StateFailed
		result.Process = nil
		return result, err
	default:
		m.state = StateFailed
		return result, err
	}
}

// RenewIdentity asks Tor for new circuits.
func (m *Manager) RenewIdentity(ctx context.Context) error {
	if err := m.ctrl.NewIdentity(ctx); err != nil {
		return fmt.Errorf("renew identity: %w", err)
	}
	return nil
}
