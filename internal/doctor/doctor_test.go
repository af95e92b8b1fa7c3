package doctor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuackproxy/cuackproxy/internal/auditlog"
	"github.com/cuackproxy/cuackproxy/internal/netid"
	"github.com/cuackproxy/cuackproxy/internal/runner/runnertest"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

type stubMAC struct {
	tool     string
	ifaceErr error
	mac      string
	macErr   error
}

func (s stubMAC) Toolchain() (string, error) {
	if s.tool == "" {
		return "", netid.ErrNoToolchain
	}
	return s.tool, nil
}

func (s stubMAC) ValidateInterface(string) error { return s.ifaceErr }

func (s stubMAC) CurrentMAC(string) (string, error) { return s.mac, s.macErr }

type stubProxy struct {
	status tor.ProxyStatus
}

func (stubProxy) ProxyAddress() string { return "127.0.0.1:9050" }

func (s stubProxy) CheckConnection(context.Context) tor.ProxyStatus { return s.status }

func findCheck(t *testing.T, res Result, name string) Check {
	t.Helper()
	for _, c := range res.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found in %+v", name, res.Checks)
	return Check{}
}

func writeCookie(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "control_auth_cookie")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xab}, 32), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRequirePlatform(t *testing.T) {
	t.Parallel()

	if err := RequirePlatform("windows"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("windows: got %v", err)
	}
	for _, goos := range []string{"linux", "darwin", "freebsd"} {
		if err := RequirePlatform(goos); err != nil {
			t.Errorf("%s: unexpected error %v", goos, err)
		}
	}
}

func TestRequireRoot(t *testing.T) {
	t.Parallel()

	if err := RequireRoot(0); err != nil {
		t.Errorf("root: unexpected error %v", err)
	}
	if err := RequireRoot(1000); !errors.Is(err, ErrNotRoot) {
		t.Errorf("uid 1000: got %v", err)
	}
}

func TestRun_AllPass(t *testing.T) {
	t.Parallel()

	keyFile := filepath.Join(t.TempDir(), "fernet_key.key")
	fp, err := auditlog.GenerateKey(keyFile, false)
	if err != nil {
		t.Fatal(err)
	}

	res := Run(context.Background(), Options{
		GOOS:       "linux",
		EUID:       0,
		Runner:     runnertest.NewFake("tor", "pgrep"),
		MAC:        stubMAC{tool: "ip", mac: "00:11:22:33:44:55"},
		Interface:  "eth0",
		Proxy:      stubProxy{status: tor.ProxyStatusOK},
		CookieFile: writeCookie(t),
		KeyFile:    keyFile,
	})

	if res.Status != StatusPass {
		t.Errorf("Status = %s, checks = %+v", res.Status, res.Checks)
	}
	if len(res.FixCommands) != 0 {
		t.Errorf("FixCommands = %v", res.FixCommands)
	}
	if got := len(res.Checks); got != 9 {
		t.Errorf("got %d checks, want 9", got)
	}
	if c := findCheck(t, res, "audit_key"); !strings.Contains(c.Message, fp) {
		t.Errorf("fingerprint missing: %s", c.Message)
	}
	if c := findCheck(t, res, "interface"); !strings.Contains(c.Message, "00:11:22:33:44:55") {
		t.Errorf("current MAC missing: %s", c.Message)
	}
	if c := findCheck(t, res, "mac_toolchain"); c.Message != "using ip" {
		t.Errorf("toolchain message = %q", c.Message)
	}
}

func TestRun_Failures(t *testing.T) {
	t.Parallel()

	badKey := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(badKey, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		opts       Options
		check      string
		wantStatus string
		wantFix    string
	}{
		{
			name:       "windows",
			opts:       Options{GOOS: "windows"},
			check:      "platform",
			wantStatus: StatusFail,
		},
		{
			name:       "darwin",
			opts:       Options{GOOS: "darwin"},
			check:      "platform",
			wantStatus: StatusWarn,
		},
		{
			name:       "not root",
			opts:       Options{GOOS: "linux", EUID: 1000},
			check:      "privileges",
			wantStatus: StatusFail,
			wantFix:    "sudo cuackproxy",
		},
		{
			name:       "tor missing",
			opts:       Options{GOOS: "linux", Runner: runnertest.NewFake("pgrep")},
			check:      "tor",
			wantStatus: StatusFail,
			wantFix:    "apt install tor",
		},
		{
			name:       "custom tor binary missing",
			opts:       Options{GOOS: "linux", Runner: runnertest.NewFake("tor", "pgrep"), TorBinary: "tor-nightly"},
			check:      "tor-nightly",
			wantStatus: StatusFail,
		},
		{
			name:       "no toolchain",
			opts:       Options{GOOS: "linux", MAC: stubMAC{}},
			check:      "mac_toolchain",
			wantStatus: StatusFail,
			wantFix:    "apt install iproute2",
		},
		{
			name:       "bad interface",
			opts:       Options{GOOS: "linux", MAC: stubMAC{tool: "ip", ifaceErr: netid.ErrInvalidInterface}, Interface: "eth9"},
			check:      "interface",
			wantStatus: StatusFail,
			wantFix:    "ip link show",
		},
		{
			name:       "unreadable mac",
			opts:       Options{GOOS: "linux", MAC: stubMAC{tool: "ip", macErr: os.ErrPermission}, Interface: "eth0"},
			check:      "interface",
			wantStatus: StatusWarn,
		},
		{
			name:       "missing key",
			opts:       Options{GOOS: "linux", KeyFile: filepath.Join(t.TempDir(), "missing.key")},
			check:      "audit_key",
			wantStatus: StatusWarn,
			wantFix:    "cuackproxy keygen",
		},
		{
			name:       "corrupt key",
			opts:       Options{GOOS: "linux", KeyFile: badKey},
			check:      "audit_key",
			wantStatus: StatusFail,
			wantFix:    "cuackproxy keygen --force",
		},
		{
			name:       "proxy down",
			opts:       Options{GOOS: "linux", Proxy: stubProxy{status: tor.ProxyStatusCannotConnect}},
			check:      "socks_proxy",
			wantStatus: StatusWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Run(context.Background(), tt.opts)
			c := findCheck(t, res, tt.check)
			if c.Status != tt.wantStatus {
				t.Errorf("%s status = %s, want %s (%s)", tt.check, c.Status, tt.wantStatus, c.Message)
			}
			if c.FixCommand != tt.wantFix {
				t.Errorf("%s fix = %q, want %q", tt.check, c.FixCommand, tt.wantFix)
			}
			if tt.wantStatus == StatusFail && res.Status != StatusFail {
				t.Errorf("overall status = %s, want fail", res.Status)
			}
		})
	}
}

func TestRun_SkipsNilCollaborators(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), Options{GOOS: "linux", EUID: 0, CookieFile: writeCookie(t)})
	if len(res.Checks) != 3 {
		t.Errorf("expected platform, privileges and cookie checks only, got %+v", res.Checks)
	}
	if res.Status != StatusPass {
		t.Errorf("Status = %s", res.Status)
	}
}

func TestSummarize_DedupesAndSortsFixes(t *testing.T) {
	t.Parallel()

	res := summarize([]Check{
		{Name: "a", Status: StatusFail, FixCommand: "z fix"},
		{Name: "b", Status: StatusWarn, FixCommand: "a fix"},
		{Name: "c", Status: StatusFail, FixCommand: "z fix"},
		{Name: "d", Status: StatusPass},
	})
	if strings.Join(res.FixCommands, "|") != "a fix|z fix" {
		t.Errorf("FixCommands = %v", res.FixCommands)
	}
	if res.Summary != "doctor: status=fail failed=2 warned=1" {
		t.Errorf("Summary = %q", res.Summary)
	}
}

func TestPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Print(&buf, summarize([]Check{
		{Name: "platform", Status: StatusPass, Message: "linux"},
		{Name: "tor", Status: StatusFail, Message: "tor not found in PATH", FixCommand: "apt install tor"},
		{Name: "socks_proxy", Status: StatusWarn, Message: "127.0.0.1:9050: cannot connect"},
	}))

	out := buf.String()
	for _, want := range []string{"[✔]", "platform", "[✘]", "tor not found in PATH", "[!]", "Suggested fixes:", "  apt install tor", "doctor: status=fail failed=1 warned=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
