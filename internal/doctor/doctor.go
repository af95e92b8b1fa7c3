// Package doctor inspects the host for everything a connect needs.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
	"github.com/cuackproxy/cuackproxy/internal/netid"
	"github.com/cuackproxy/cuackproxy/internal/runner"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

// Check statuses.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

var (
	// ErrUnsupportedPlatform is returned by RequirePlatform on Windows.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNotRoot is returned by RequireRoot for a non-zero effective uid.
	ErrNotRoot = errors.New("not running as root")
)

// Console messages for the fatal startup checks.
const (
	MsgUnsupportedPlatform = "This script is only supported on Linux."
	MsgNotRoot             = "This script must be run as root."
)

// Check is one diagnostic.
type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	FixCommand string `json:"fix_command,omitempty"`
}

// Result is the outcome of Run.
type Result struct {
	Status      string   `json:"status"`
	Summary     string   `json:"summary"`
	FixCommands []string `json:"fix_commands"`
	Checks      []Check  `json:"checks"`
}

// MACTool reports which interface commands are installed and inspects
// interfaces.
type MACTool interface {
	Toolchain() (string, error)
	ValidateInterface(iface string) error
	CurrentMAC(iface string) (string, error)
}

// ProxyProber probes the SOCKS5 endpoint.
type ProxyProber interface {
	ProxyAddress() string
	CheckConnection(ctx context.Context) tor.ProxyStatus
}

// Options are the inputs of Run. Nil collaborators skip their checks.
type Options struct {
	GOOS string
	EUID int

	Runner    runner.Runner
	TorBinary string
	MAC       MACTool
	Interface string
	Proxy     ProxyProber

	CookieFile string
	KeyFile    string
}

// RequirePlatform fails on Windows.
func RequirePlatform(goos string) error {
	if goos == "windows" {
		return ErrUnsupportedPlatform
	}
	return nil
}

// RequireRoot fails unless euid is 0.
func RequireRoot(euid int) error {
	if euid != 0 {
		return ErrNotRoot
	}
	return nil
}

// Run executes every applicable check.
func Run(ctx context.Context, opts Options) Result {
	checks := []Check{
		checkPlatform(opts.GOOS),
		checkPrivileges(opts.EUID),
	}
	if opts.Runner != nil {
		binary := opts.TorBinary
		if binary == "" {
			binary = "tor"
		}
		checks = append(checks,
			checkCommand(opts.Runner, binary, "apt install tor"),
			checkCommand(opts.Runner, "pgrep", "apt install procps"),
		)
	}
	if opts.MAC != nil {
		checks = append(checks, checkToolchain(opts.MAC))
		if opts.Interface != "" {
			checks = append(checks, checkInterface(opts.MAC, opts.Interface))
		}
	}
	checks = append(checks, checkCookie(opts.CookieFile))
	if opts.KeyFile != "" {
		checks = append(checks, checkKey(opts.KeyFile))
	}
	if opts.Proxy != nil {
		checks = append(checks, checkProxy(ctx, opts.Proxy))
	}
	return summarize(checks)
}

func summarize(checks []Check) Result {
	failed, warned := 0, 0
	fixCommands := make([]string, 0, len(checks))
	seen := map[string]struct{}{}
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			failed++
		case StatusWarn:
			warned++
		}
		if c.FixCommand == "" {
			continue
		}
		if _, ok := seen[c.FixCommand]; !ok {
			seen[c.FixCommand] = struct{}{}
			fixCommands = append(fixCommands, c.FixCommand)
		}
	}
	sort.Strings(fixCommands)

	status := StatusPass
	if failed > 0 {
		status = StatusFail
	} else if warned > 0 {
		status = StatusWarn
	}

	return Result{
		Status:      status,
		Summary:     fmt.Sprintf("doctor: status=%s failed=%d warned=%d", status, failed, warned),
		FixCommands: fixCommands,
		Checks:      checks,
	}
}

func checkPlatform(goos string) Check {
	switch {
	case RequirePlatform(goos) != nil:
		return Check{Name: "platform", Status: StatusFail, Message: MsgUnsupportedPlatform}
	case goos != "linux":
		return Check{Name: "platform", Status: StatusWarn, Message: goos + ": interface checks read /sys/class/net and may not work"}
	default:
		return Check{Name: "platform", Status: StatusPass, Message: goos}
	}
}

func checkPrivileges(euid int) Check {
	if RequireRoot(euid) != nil {
		return Check{Name: "privileges", Status: StatusFail, Message: MsgNotRoot, FixCommand: "sudo cuackproxy"}
	}
	return Check{Name: "privileges", Status: StatusPass, Message: "running as root"}
}

func checkCommand(r runner.Runner, name, fix string) Check {
	if !r.LookPath(name) {
		return Check{Name: name, Status: StatusFail, Message: name + " not found in PATH", FixCommand: fix}
	}
	return Check{Name: name, Status: StatusPass, Message: name + " found"}
}

func checkToolchain(m MACTool) Check {
	name, err := m.Toolchain()
	if err != nil {
		return Check{Name: "mac_toolchain", Status: StatusFail, Message: "Neither ifconfig nor ip command found.", FixCommand: "apt install iproute2"}
	}
	return Check{Name: "mac_toolchain", Status: StatusPass, Message: "using " + name}
}

func checkInterface(m MACTool, iface string) Check {
	if err := m.ValidateInterface(iface); err != nil {
		return Check{Name: "interface", Status: StatusFail, Message: fmt.Sprintf("%s: %v", iface, err), FixCommand: "ip link show"}
	}
	mac, err := m.CurrentMAC(iface)
	if err != nil {
		return Check{Name: "interface", Status: StatusWarn, Message: fmt.Sprintf("%s: cannot read current MAC: %v", iface, err)}
	}
	return Check{Name: "interface", Status: StatusPass, Message: fmt.Sprintf("%s (current MAC %s)", iface, mac)}
}

func checkCookie(configured string) Check {
	path, err := tor.ResolveCookieFile(configured)
	if err != nil {
		return Check{
			Name:    "control_cookie",
			Status:  StatusWarn,
			Message: "no control auth cookie in " + strings.Join(tor.CookieCandidates(configured), ", ") + " (Tor may not be running)",
		}
	}
	return Check{Name: "control_cookie", Status: StatusPass, Message: path}
}

func checkKey(path string) Check {
	fp, err := auditlog.KeyFingerprint(path)
	switch {
	case errors.Is(err, auditlog.ErrKeyNotFound):
		return Check{Name: "audit_key", Status: StatusWarn, Message: path + " not found, errors will not be logged", FixCommand: "cuackproxy keygen"}
	case err != nil:
		return Check{Name: "audit_key", Status: StatusFail, Message: fmt.Sprintf("%s: %v", path, err), FixCommand: "cuackproxy keygen --force"}
	default:
		return Check{Name: "audit_key", Status: StatusPass, Message: fmt.Sprintf("%s (fingerprint %s)", path, fp)}
	}
}

func checkProxy(ctx context.Context, p ProxyProber) Check {
	status := p.CheckConnection(ctx)
	if status != tor.ProxyStatusOK {
		return Check{Name: "socks_proxy", Status: StatusWarn, Message: fmt.Sprintf("%s: %s", p.ProxyAddress(), status)}
	}
	return Check{Name: "socks_proxy", Status: StatusPass, Message: p.ProxyAddress() + " answers SOCKS5"}
}

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

// Print writes res as one line per check followed by the fix commands.
func Print(w io.Writer, res Result) {
	for _, c := range res.Checks {
		var mark string
		switch c.Status {
		case StatusPass:
			mark = passMark("[✔]")
		case StatusWarn:
			mark = warnMark("[!]")
		default:
			mark = failMark("[✘]")
		}
		fmt.Fprintf(w, "%s %-15s %s\n", mark, c.Name, c.Message)
	}
	if len(res.FixCommands) > 0 {
		fmt.Fprintln(w, "\nSuggested fixes:")
		for _, fix := range res.FixCommands {
			fmt.Fprintf(w, "  %s\n", fix)
		}
	}
	fmt.Fprintln(w, "\n"+res.Summary)
}

var (
	_ MACTool     = (*netid.Randomizer)(nil)
	_ ProxyProber = (*tor.Client)(nil)
)
