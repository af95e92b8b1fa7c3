package tor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nao1215/tornago"
)

// bootstrapDoneTag marks a finished bootstrap in status/bootstrap-phase.
const bootstrapDoneTag = "TAG=done"

// SystemCookieFiles are the cookie locations used by distribution packages,
// tried after the configured path.
var SystemCookieFiles = []string{
	"/run/tor/control.authcookie",
	"/var/run/tor/control.authcookie",
	"/var/lib/tor/control_auth_cookie",
}

// Controller is the subset of the Tor control protocol cuackproxy needs.
type Controller interface {
	// BootstrapPhase returns the raw status/bootstrap-phase value.
	BootstrapPhase(ctx context.Context) (string, error)

	// NewIdentity sends SIGNAL NEWNYM.
	NewIdentity(ctx context.Context) error
}

// ControlPort is a Controller that opens one authenticated tornago control
// connection per call. Tor only keeps the bootstrap state, so there is
// nothing worth caching between calls.
type ControlPort struct {
	addr       string
	cookieFile string
	timeout    time.Duration
}

// NewControlPort returns a Controller for the control port at addr. The
// cookie is looked up at cookieFile first, then in SystemCookieFiles.
func NewControlPort(addr, cookieFile string, timeout time.Duration) *ControlPort {
	return &ControlPort{addr: addr, cookieFile: cookieFile, timeout: timeout}
}

// BootstrapPhase implements Controller.
func (c *ControlPort) BootstrapPhase(ctx context.Context) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}
	defer client.Close()

	phase, err := client.GetInfo(ctx, "status/bootstrap-phase")
	if err != nil {
		return "", fmt.Errorf("GETINFO status/bootstrap-phase: %w", err)
	}
	return phase, nil
}

// NewIdentity implements Controller.
func (c *ControlPort) NewIdentity(ctx context.Context) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.NewIdentity(ctx); err != nil {
		return fmt.Errorf("SIGNAL NEWNYM: %w", err)
	}
	return nil
}

func (c *ControlPort) connect() (*tornago.ControlClient, error) {
	cookie, err := ResolveCookieFile(c.cookieFile)
	if err != nil {
		return nil, err
	}

	client, err := tornago.NewControlClient(c.addr, tornago.ControlAuthFromCookie(cookie), c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to control port %s: %w", c.addr, err)
	}
	if err := client.Authenticate(); err != nil {
		_ = client.Close() //nolint:errcheck // best effort after failed auth
		return nil, fmt.Errorf("authenticate to control port %s: %w", c.addr, err)
	}
	return client, nil
}

// CookieCandidates returns the cookie paths to try, configured path first,
// without duplicates.
func CookieCandidates(configured string) []string {
	candidates := make([]string, 0, len(SystemCookieFiles)+1)
	seen := make(map[string]bool)
	for _, p := range append([]string{configured}, SystemCookieFiles...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		candidates = append(candidates, p)
	}
	return candidates
}

// ResolveCookieFile returns the first candidate that exists as a regular file.
func ResolveCookieFile(configured string) (string, error) {
	return firstRegularFile(CookieCandidates(configured))
}

func firstRegularFile(paths []string) (string, error) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoCookie, strings.Join(paths, ", "))
}

// BootstrapDone reports whether a status/bootstrap-phase reply means Tor
// has finished bootstrapping.
func BootstrapDone(phase string) bool {
	return strings.Contains(phase, bootstrapDoneTag)
}
