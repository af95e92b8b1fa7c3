package netid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuackproxy/cuackproxy/internal/runner"
)

// DefaultSysfsRoot is where the kernel lists network interfaces.
const DefaultSysfsRoot = "/sys/class/net"

// toolchain builds the three commands that change an address.
type toolchain struct {
	name string
	down func(iface string) []string
	set  func(iface, mac string) []string
	up   func(iface string) []string
}

var ifconfigTool = toolchain{
	name: "ifconfig",
	down: func(iface string) []string { return []string{"ifconfig", iface, "down"} },
	set:  func(iface, mac string) []string { return []string{"ifconfig", iface, "hw", "ether", mac} },
	up:   func(iface string) []string { return []string{"ifconfig", iface, "up"} },
}

var ipTool = toolchain{
	name: "ip",
	down: func(iface string) []string { return []string{"ip", "link", "set", "dev", iface, "down"} },
	set:  func(iface, mac string) []string { return []string{"ip", "link", "set", "dev", iface, "address", mac} },
	up:   func(iface string) []string { return []string{"ip", "link", "set", "dev", iface, "up"} },
}

// Randomizer assigns random MAC addresses to interfaces.
type Randomizer struct {
	runner    runner.Runner
	sysfsRoot string
	rand      io.Reader
	logger    *slog.Logger
}

// Option configures a Randomizer.
type Option func(*Randomizer)

// WithSysfsRoot replaces /sys/class/net, for tests.
func WithSysfsRoot(root string) Option {
	return func(z *Randomizer) {
		z.sysfsRoot = root
	}
}

// WithRand replaces crypto/rand as the source of address bytes.
func WithRand(r io.Reader) Option {
	return func(z *Randomizer) {
		z.rand = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(z *Randomizer) {
		z.logger = logger
	}
}

// NewRandomizer returns a Randomizer that runs commands through r.
func NewRandomizer(r runner.Runner, opts ...Option) *Randomizer {
	z := &Randomizer{runner: r, sysfsRoot: DefaultSysfsRoot}
	for _, opt := range opts {
		opt(z)
	}
	if z.logger == nil {
		z.logger = slog.Default()
	}
	return z
}

// ValidateInterface checks that iface names an existing interface.
func (z *Randomizer) ValidateInterface(iface string) error {
	if iface == "" || iface == "." || iface == ".." || strings.ContainsAny(iface, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidInterface, iface)
	}
	if _, err := os.Stat(filepath.Join(z.sysfsRoot, iface)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInterface, iface)
	}
	return nil
}

// CurrentMAC reads the address the kernel reports for iface.
func (z *Randomizer) CurrentMAC(iface string) (string, error) {
	data, err := os.ReadFile(filepath.Join(z.sysfsRoot, iface, "address"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Toolchain returns the name of the command set that would be used, or
// ErrNoToolchain.
func (z *Randomizer) Toolchain() (string, error) {
	tc, err := z.toolchain()
	if err != nil {
		return "", err
	}
	return tc.name, nil
}

func (z *Randomizer) toolchain() (toolchain, error) {
	switch {
	case z.runner.LookPath(ifconfigTool.name):
		return ifconfigTool, nil
	case z.runner.LookPath(ipTool.name):
		return ipTool, nil
	default:
		return toolchain{}, ErrNoToolchain
	}
}

// Randomize assigns a fresh random address to iface and returns it.
func (z *Randomizer) Randomize(ctx context.Context, iface string) (string, error) {
	if err := z.ValidateInterface(iface); err != nil {
		return "", err
	}
	tc, err := z.toolchain()
	if err != nil {
		return "", err
	}
	hw, err := GenerateMAC(z.rand)
	if err != nil {
		return "", err
	}
	mac := hw.String()

	original, err := z.CurrentMAC(iface)
	if err != nil {
		z.logger.Debug("original MAC unavailable, rollback will only bring the interface up",
			"interface", iface, "error", err)
	}

	if err := z.run(ctx, tc.down(iface)); err != nil {
		return "", &StepError{Interface: iface, Step: "down", Err: err}
	}
	if err := z.run(ctx, tc.set(iface, mac)); err != nil {
		z.rollback(ctx, tc, iface, original)
		return "", &StepError{Interface: iface, Step: "set", Err: err}
	}
	if err := z.run(ctx, tc.up(iface)); err != nil {
		z.rollback(ctx, tc, iface, original)
		return "", &StepError{Interface: iface, Step: "up", Err: err}
	}

	z.logger.Debug("MAC address changed", "interface", iface, "mac", mac, "tool", tc.name)
	return mac, nil
}

// rollback restores original and brings iface up. Errors are only logged.
// It runs on a fresh context so an interrupt does not leave the link down.
func (z *Randomizer) rollback(ctx context.Context, tc toolchain, iface, original string) {
	ctx = context.WithoutCancel(ctx)
	if original != "" {
		if err := z.run(ctx, tc.set(iface, original)); err != nil {
			z.logger.Warn("restore original MAC failed", "interface", iface, "error", err)
		}
	}
	if err := z.run(ctx, tc.up(iface)); err != nil {
		z.logger.Warn("bring interface up failed", "interface", iface, "error", err)
	}
}

func (z *Randomizer) run(ctx context.Context, argv []string) error {
	return z.runner.Run(ctx, argv[0], argv[1:]...)
}
