package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
	"github.com/cuackproxy/cuackproxy/internal/ipcheck"
	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/netid"
	"github.com/cuackproxy/cuackproxy/internal/pipeline"
	"github.com/cuackproxy/cuackproxy/internal/runner"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

// Console messages.
const (
	MsgMACFailed       = "Error changing MAC address"
	MsgMACStepFailed   = "Error changing MAC. Is the interface valid? Do you have root permissions?"
	MsgInvalidIface    = "Invalid interface."
	MsgProxyFailed     = "Error configuring Tor proxy. Check the logs."
	MsgReusingTor      = "Using already running Tor..."
	MsgConnected       = "Connected to Tor"
	MsgTorFailed       = "Error starting Tor"
	MsgTorStartFailed  = "Failed to start the Tor process. Check the logs."
	MsgNoExitIP        = "[✘] Could not get IP via Tor."
	MsgIdentityRenewed = "Tor identity renewed."
	MsgTorTerminated   = "Tor process terminated."
)

// TorController is the part of tor.Manager a session drives.
type TorController interface {
	pipeline.TorStarter
	RenewIdentity(ctx context.Context) error
	TorrcPath() string
	State() tor.State
}

// AuditLog receives error entries.
type AuditLog interface {
	Append(message string) error
	Decrypt() string
}

// Recorder stores finished connect attempts.
type Recorder interface {
	Record(ctx context.Context, a *model.Attempt) (int64, error)
}

// VerifierFactory builds a verifier for the SOCKS5 endpoint at proxyAddress.
type VerifierFactory func(proxyAddress string) (pipeline.ExitVerifier, error)

// Deps are the collaborators of a Session.
type Deps struct {
	Tor         TorController
	MAC         pipeline.MACRandomizer
	NewVerifier VerifierFactory
	Audit       AuditLog
	// History is optional.
	History Recorder
	Console io.Writer
	Logger  *slog.Logger
	Now     func() time.Time
}

// Session is the state of one interactive run.
type Session struct {
	deps Deps

	mu         sync.Mutex
	process    runner.Process
	torrcPath  string
	cookiePath string
	closed     bool
}

// New returns a Session. Console defaults to io.Discard, Logger to
// slog.Default and Now to time.Now.
func New(deps Deps) *Session {
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{deps: deps, torrcPath: deps.Tor.TorrcPath()}
}

// Connect randomizes the MAC, starts or reuses Tor and verifies the exit,
// printing progress to the console. Failures are written to the audit log
// and returned; the attempt records how far the flow got.
func (s *Session) Connect(ctx context.Context, req model.ConnectRequest) (*model.Attempt, error) {
	attempt := model.NewAttempt(req, s.deps.Now())

	verifier, err := s.deps.NewVerifier(req.ProxyAddress())
	if err != nil {
		attempt.Error = err
		attempt.ErrorMessage = err.Error()
		s.println(MsgProxyFailed)
		s.audit(fmt.Sprintf("Error configuring Tor proxy: %v", err))
		s.record(ctx, attempt)
		return attempt, err
	}

	p := pipeline.New(pipeline.WithLogger(s.deps.Logger))
	p.AddSteps(
		pipeline.NewMACStep(s.deps.MAC),
		pipeline.NewTorStep(s.deps.Tor, s.adopt),
		pipeline.NewVerifyStep(verifier),
	)
	s.deps.Logger.Debug("connect started", "steps", p.StepNames(), "interface", req.Interface, "exit", req.Exit.String())

	err = p.Execute(ctx, attempt)
	s.report(attempt, err)
	s.record(ctx, attempt)
	return attempt, err
}

// report prints the console lines and writes audit entries for a finished
// pipeline run.
func (s *Session) report(a *model.Attempt, err error) {
	failed := ""
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		failed = stepErr.Step
	}
	if a.Cancelled {
		return
	}

	if failed == pipeline.StepMAC {
		cause := stepErr.Err
		switch {
		case errors.Is(cause, netid.ErrInvalidInterface):
			s.println(MsgInvalidIface)
		case errors.Is(cause, netid.ErrNoToolchain):
			s.audit("Neither ifconfig nor ip command found.")
		default:
			s.println(MsgMACStepFailed)
			s.audit(fmt.Sprintf("Error changing MAC address: %v", cause))
		}
		s.println(MsgMACFailed)
		return
	}
	s.printf("MAC address changed to %s\n", a.MAC)

	if failed == pipeline.StepTor {
		cause := stepErr.Err
		s.deps.Logger.Debug("tor step failed", "state", s.deps.Tor.State().String(), "error", cause)
		switch {
		case errors.Is(cause, tor.ErrRunningNotReady):
			s.audit("Tor is running but not ready.")
		case errors.Is(cause, tor.ErrBootstrapTimeout), errors.Is(cause, tor.ErrProcessExited):
			s.println(MsgTorStartFailed)
			s.audit(fmt.Sprintf("Error starting Tor: %v", cause))
		default:
			s.audit(fmt.Sprintf("Error starting Tor: %v", cause))
		}
		s.println(MsgTorFailed)
		return
	}
	if a.TorReused {
		s.println(MsgReusingTor)
	} else {
		s.println(MsgConnected)
	}

	if failed == pipeline.StepVerify {
		cause := stepErr.Err
		if errors.Is(cause, ipcheck.ErrProxyUnreachable) {
			s.audit("Error: Tor proxy is not working.")
		} else {
			s.audit(fmt.Sprintf("Error checking IP and location via Tor: %v", cause))
		}
		s.println(MsgNoExitIP)
		return
	}
	s.printf("IP: %s, Location: %s\n", a.ExitIP, a.Location)
}

// adopt takes ownership of a process launched by the Tor step. A reuse
// leaves any process owned from an earlier connect in place.
func (s *Session) adopt(res tor.StartResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.TorrcPath != "" {
		s.torrcPath = res.TorrcPath
	}
	if res.CookieFile != "" {
		s.cookiePath = res.CookieFile
	}
	if res.Process == nil {
		return
	}
	if s.process != nil && s.process != res.Process {
		s.deps.Logger.Debug("replacing owned tor process", "old_pid", s.process.Pid(), "new_pid", res.Process.Pid())
	}
	s.process = res.Process
}

// RenewIdentity sends NEWNYM. Failures go to the audit log only.
func (s *Session) RenewIdentity(ctx context.Context) bool {
	if err := s.deps.Tor.RenewIdentity(ctx); err != nil {
		s.audit(fmt.Sprintf("Error renewing Tor identity: %v", err))
		return false
	}
	s.println(MsgIdentityRenewed)
	return true
}

// DecryptLogs returns the decrypted audit log text.
func (s *Session) DecryptLogs() string {
	return s.deps.Audit.Decrypt()
}

// OwnedProcess returns the Tor process this session launched, or nil.
func (s *Session) OwnedProcess() runner.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process
}

// Close terminates the owned Tor process if it is still alive and removes
// this process's torrc and the cookie of a Tor it launched. Calling Close
// again does nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.process != nil && s.process.Alive() {
		if err := s.process.Terminate(); err != nil {
			s.deps.Logger.Warn("terminate tor failed", "pid", s.process.Pid(), "error", err)
		} else {
			s.println(MsgTorTerminated)
		}
	}
	s.process = nil

	if err := tor.RemoveTorrc(s.torrcPath); err != nil {
		s.deps.Logger.Debug("remove torrc failed", "path", s.torrcPath, "error", err)
	}
	if s.cookiePath != "" {
		if err := tor.RemoveCookie(s.cookiePath); err != nil {
			s.deps.Logger.Debug("remove cookie failed", "path", s.cookiePath, "error", err)
		}
	}
}

func (s *Session) audit(message string) {
	if err := s.deps.Audit.Append(message); err != nil {
		s.deps.Logger.Debug("audit append failed", "error", err)
	}
}

func (s *Session) record(ctx context.Context, a *model.Attempt) {
	if s.deps.History == nil {
		return
	}
	if _, err := s.deps.History.Record(context.WithoutCancel(ctx), a); err != nil {
		s.deps.Logger.Warn("record attempt failed", "error", err)
	}
}

func (s *Session) println(msg string) {
	fmt.Fprintln(s.deps.Console, msg)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.deps.Console, format, args...)
}

var (
	_ AuditLog      = (*auditlog.Log)(nil)
	_ TorController = (*tor.Manager)(nil)
)
