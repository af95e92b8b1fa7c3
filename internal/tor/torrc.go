package tor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// torrcFileMode keeps the generated configuration private to root.
const torrcFileMode = 0o600

// TorrcOptions are the settings written to the transient torrc.
type TorrcOptions struct {
	// Exit selects the exit country, or RandomExit.
	Exit model.CountryCode

	// SocksPort is the SOCKS5 listener port. Zero leaves Tor's default.
	SocksPort int

	// ControlPort is the control listener port.
	ControlPort int

	// CookieFile is where Tor writes the control auth cookie.
	CookieFile string
}

// RenderTorrc returns the torrc contents for opts.
//
// A country filter is written as "ExitNodes {CC}" with StrictNodes 1 so Tor
// never falls back to another country; a random exit writes StrictNodes 0.
func RenderTorrc(opts TorrcOptions) string {
	var b strings.Builder
	if opts.Exit.IsRandom() {
		b.WriteString("StrictNodes 0\n")
	} else {
		fmt.Fprintf(&b, "ExitNodes {%s}\n", opts.Exit.Code())
		b.WriteString("StrictNodes 1\n")
	}
	if opts.SocksPort > 0 {
		b.WriteString("SocksPort " + strconv.Itoa(opts.SocksPort) + "\n")
	}
	b.WriteString("ControlPort " + strconv.Itoa(opts.ControlPort) + "\n")
	b.WriteString("CookieAuthentication 1\n")
	if opts.CookieFile != "" {
		b.WriteString("CookieAuthFile " + opts.CookieFile + "\n")
	}
	return b.String()
}

// TorrcPath returns the torrc path for the process with the given pid.
func TorrcPath(dir string, pid int) string {
	return filepath.Join(dir, "torrc_"+strconv.Itoa(pid))
}

// CookiePath returns the control cookie path a launched Tor writes for the
// process with the given pid.
func CookiePath(dir string, pid int) string {
	return filepath.Join(dir, "cuackproxy_"+strconv.Itoa(pid)+".authcookie")
}

// WriteTorrc writes the rendered torrc to path with mode 0600. A previous
// file is removed first and the new one is created exclusively, so a
// symlink planted at path is never followed.
func WriteTorrc(path string, opts TorrcOptions) error {
	if err := removeIfExists(path); err != nil {
		return fmt.Errorf("remove stale torrc %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, torrcFileMode)
	if err != nil {
		return fmt.Errorf("create torrc %s: %w", path, err)
	}
	if _, err := f.WriteString(RenderTorrc(opts)); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("write torrc %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close torrc %s: %w", path, err)
	}
	return nil
}

// RemoveTorrc deletes the torrc at path. A missing file is not an error.
func RemoveTorrc(path string) error {
	return removeIfExists(path)
}

// RemoveCookie deletes the control cookie at path. A missing file is not
// an error.
func RemoveCookie(path string) error {
	return removeIfExists(path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
