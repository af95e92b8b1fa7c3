package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked for in the working directory.
const DefaultConfigFile = ".cuackproxy.yaml"

// XDGConfigFile is the file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the on-disk YAML layout. Zero values leave the defaults alone.
type File struct {
	Proxy   ProxySection   `yaml:"proxy,omitempty"`
	Tor     TorSection     `yaml:"tor,omitempty"`
	Verify  VerifySection  `yaml:"verify,omitempty"`
	Audit   AuditSection   `yaml:"audit,omitempty"`
	History HistorySection `yaml:"history,omitempty"`
}

// ProxySection holds the prompt defaults for the SOCKS endpoint.
type ProxySection struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// TorSection configures the daemon and its control port.
type TorSection struct {
	Binary         string        `yaml:"binary,omitempty"`
	ControlAddress string        `yaml:"control_address,omitempty"`
	CookieFile     string        `yaml:"cookie_file,omitempty"`
	TorrcDir       string        `yaml:"torrc_dir,omitempty"`
	StartupTimeout time.Duration `yaml:"startup_timeout,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	ControlTimeout time.Duration `yaml:"control_timeout,omitempty"`
}

// VerifySection configures the exit IP check.
type VerifySection struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// AuditSection locates the Fernet key and the encrypted log.
type AuditSection struct {
	KeyFile string `yaml:"key_file,omitempty"`
	LogFile string `yaml:"log_file,omitempty"`
}

// HistorySection controls the attempt history database.
type HistorySection struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// LoadConfigFile parses the YAML file at path.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile resolves the configuration file to use:
//  1. configPath, when given and present
//  2. .cuackproxy.yaml in the working directory
//  3. config.yaml in the XDG config directory
//
// It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Apply overrides c with every non-zero value in f.
func (f *File) Apply(c *Config) {
	setString(&c.ProxyHost, f.Proxy.Host)
	if f.Proxy.Port != 0 {
		c.ProxyPort = f.Proxy.Port
	}

	setString(&c.TorBinary, f.Tor.Binary)
	setString(&c.ControlAddress, f.Tor.ControlAddress)
	setString(&c.CookieFile, f.Tor.CookieFile)
	setString(&c.TorrcDir, f.Tor.TorrcDir)
	setDuration(&c.StartupTimeout, f.Tor.StartupTimeout)
	setDuration(&c.PollInterval, f.Tor.PollInterval)
	setDuration(&c.ControlTimeout, f.Tor.ControlTimeout)

	setString(&c.VerifyEndpoint, f.Verify.Endpoint)
	setDuration(&c.VerifyTimeout, f.Verify.Timeout)

	setString(&c.KeyFile, f.Audit.KeyFile)
	setString(&c.LogFile, f.Audit.LogFile)

	if f.History.Enabled != nil {
		c.HistoryEnabled = *f.History.Enabled
	}
	setString(&c.HistoryDir, f.History.Dir)
}

// Load builds a Config from defaults and the file found by FindConfigFile.
// A missing file is an error only when configPath was given explicitly.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, ErrConfigNotFound
		}
		return cfg, nil
	}

	f, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	f.Apply(cfg)
	cfg.ConfigFilePath = path
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
