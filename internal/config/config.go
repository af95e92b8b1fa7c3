package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory names.
	AppName = "cuackproxy"

	// DefaultProxyHost and DefaultProxyPort are offered at the connect prompt.
	DefaultProxyHost = "127.0.0.1"
	DefaultProxyPort = 9050

	// DefaultControlAddress is the Tor control port the tool authenticates to.
	DefaultControlAddress = "127.0.0.1:9051"

	// DefaultTorBinary is looked up on PATH.
	DefaultTorBinary = "tor"

	// DefaultStartupTimeout bounds the wait for a launched Tor to finish
	// bootstrapping; DefaultPollInterval is the gap between checks.
	DefaultStartupTimeout = 60 * time.Second
	DefaultPollInterval   = 1 * time.Second

	// DefaultControlTimeout bounds a single control port round trip.
	DefaultControlTimeout = 10 * time.Second

	// DefaultVerifyEndpoint answers with the caller's public IP and location.
	DefaultVerifyEndpoint = "https://ipinfo.io/json"

	// DefaultVerifyTimeout bounds the verification request.
	DefaultVerifyTimeout = 10 * time.Second

	// DefaultKeyFile and DefaultLogFile are resolved against the working directory.
	DefaultKeyFile = "fernet_key.key"
	DefaultLogFile = "error_log.txt"
)

// Config holds every tunable of the tool. It is built once by the CLI and
// passed down explicitly.
type Config struct {
	// ProxyHost and ProxyPort are the defaults shown at the connect prompt.
	ProxyHost string
	ProxyPort int

	// TorBinary is the Tor executable name or path.
	TorBinary string

	// ControlAddress is the Tor control port in host:port form.
	ControlAddress string

	// CookieFile is the control cookie path written into the torrc and tried
	// first when authenticating. Empty means cuackproxy_<pid>.authcookie
	// beside the torrc.
	CookieFile string

	// TorrcDir holds the transient torrc_<pid> file. Empty means os.TempDir().
	TorrcDir string

	// StartupTimeout and PollInterval drive the bootstrap wait.
	StartupTimeout time.Duration
	PollInterval   time.Duration

	// ControlTimeout bounds each control port exchange.
	ControlTimeout time.Duration

	// VerifyEndpoint is the IP geolocation JSON API.
	VerifyEndpoint string

	// VerifyTimeout bounds the verification request.
	VerifyTimeout time.Duration

	// KeyFile is the Fernet key; LogFile the encrypted error log.
	KeyFile string
	LogFile string

	// HistoryEnabled turns on the SQLite record of connect attempts.
	HistoryEnabled bool

	// HistoryDir holds the history database.
	HistoryDir string

	// Verbose switches console logging to debug level.
	Verbose bool

	// ConfigFilePath is the file the values were loaded from, if any.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		ProxyHost:      DefaultProxyHost,
		ProxyPort:      DefaultProxyPort,
		TorBinary:      DefaultTorBinary,
		ControlAddress: DefaultControlAddress,
		StartupTimeout: DefaultStartupTimeout,
		PollInterval:   DefaultPollInterval,
		ControlTimeout: DefaultControlTimeout,
		VerifyEndpoint: DefaultVerifyEndpoint,
		VerifyTimeout:  DefaultVerifyTimeout,
		KeyFile:        DefaultKeyFile,
		LogFile:        DefaultLogFile,
		HistoryDir:     XDGDataDir(),
	}
}

// ProxyAddress joins ProxyHost and ProxyPort.
func (c *Config) ProxyAddress() string {
	return net.JoinHostPort(c.ProxyHost, strconv.Itoa(c.ProxyPort))
}

// ControlPort returns the numeric port of ControlAddress, or 0 when it
// cannot be parsed.
func (c *Config) ControlPort() int {
	_, port, err := net.SplitHostPort(c.ControlAddress)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}

// TorrcDirectory returns TorrcDir, or the system temporary directory.
func (c *Config) TorrcDirectory() string {
	if c.TorrcDir != "" {
		return c.TorrcDir
	}
	return os.TempDir()
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/cuackproxy.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/cuackproxy.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !validHostPort(c.ProxyAddress()) {
		return ErrInvalidProxyAddress
	}
	if !validHostPort(c.ControlAddress) {
		return ErrInvalidControlAddress
	}
	if c.StartupTimeout <= 0 {
		return ErrInvalidStartupTimeout
	}
	if c.PollInterval <= 0 || c.PollInterval > c.StartupTimeout {
		return ErrInvalidPollInterval
	}
	if c.VerifyTimeout <= 0 {
		return ErrInvalidVerifyTimeout
	}
	if c.VerifyEndpoint == "" {
		return ErrEmptyEndpoint
	}
	if c.KeyFile == "" || c.LogFile == "" {
		return ErrEmptyAuditPath
	}
	return nil
}

func validHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
