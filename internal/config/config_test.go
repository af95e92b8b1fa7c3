package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig pins the defaults so that changing one is a deliberate act.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if got := cfg.ProxyAddress(); got != "127.0.0.1:9050" {
		t.Errorf("ProxyAddress() = %q, want 127.0.0.1:9050", got)
	}
	if cfg.ControlAddress != "127.0.0.1:9051" {
		t.Errorf("ControlAddress = %q, want 127.0.0.1:9051", cfg.ControlAddress)
	}
	if cfg.ControlPort() != 9051 {
		t.Errorf("ControlPort() = %d, want 9051", cfg.ControlPort())
	}
	if cfg.StartupTimeout != 60*time.Second {
		t.Errorf("StartupTimeout = %v, want 60s", cfg.StartupTimeout)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.VerifyEndpoint != "https://ipinfo.io/json" {
		t.Errorf("VerifyEndpoint = %q", cfg.VerifyEndpoint)
	}
	if cfg.VerifyTimeout != 10*time.Second {
		t.Errorf("VerifyTimeout = %v, want 10s", cfg.VerifyTimeout)
	}
	if cfg.KeyFile != "fernet_key.key" || cfg.LogFile != "error_log.txt" {
		t.Errorf("audit paths = %q, %q", cfg.KeyFile, cfg.LogFile)
	}
	if cfg.HistoryEnabled {
		t.Error("history must be opt-in")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty proxy host", func(c *Config) { c.ProxyHost = "" }, ErrInvalidProxyAddress},
		{"proxy port zero", func(c *Config) { c.ProxyPort = 0 }, ErrInvalidProxyAddress},
		{"proxy port too large", func(c *Config) { c.ProxyPort = 70000 }, ErrInvalidProxyAddress},
		{"control address without port", func(c *Config) { c.ControlAddress = "127.0.0.1" }, ErrInvalidControlAddress},
		{"zero startup timeout", func(c *Config) { c.StartupTimeout = 0 }, ErrInvalidStartupTimeout},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, ErrInvalidPollInterval},
		{"poll interval above timeout", func(c *Config) { c.PollInterval = 2 * time.Minute }, ErrInvalidPollInterval},
		{"zero verify timeout", func(c *Config) { c.VerifyTimeout = 0 }, ErrInvalidVerifyTimeout},
		{"empty endpoint", func(c *Config) { c.VerifyEndpoint = "" }, ErrEmptyEndpoint},
		{"empty key file", func(c *Config) { c.KeyFile = "" }, ErrEmptyAuditPath},
		{"empty log file", func(c *Config) { c.LogFile = "" }, ErrEmptyAuditPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTorrcDirectory(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if cfg.TorrcDirectory() != os.TempDir() {
		t.Errorf("TorrcDirectory() = %q, want %q", cfg.TorrcDirectory(), os.TempDir())
	}
	cfg.TorrcDir = "/var/tmp/cuack"
	if cfg.TorrcDirectory() != "/var/tmp/cuack" {
		t.Errorf("TorrcDirectory() = %q", cfg.TorrcDirectory())
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("tor: [unterminated"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("values override defaults", func(t *testing.T) {
		t.Parallel()

		content := `
proxy:
  port: 9150
tor:
  control_address: 127.0.0.1:9151
  startup_timeout: 90s
  poll_interval: 500ms
verify:
  endpoint: https://example.test/json
audit:
  key_file: /etc/cuackproxy/key
history:
  enabled: true
  dir: /var/lib/cuackproxy
`
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg := NewConfig()
		f.Apply(cfg)

		if cfg.ProxyAddress() != "127.0.0.1:9150" {
			t.Errorf("ProxyAddress() = %q", cfg.ProxyAddress())
		}
		if cfg.ControlPort() != 9151 {
			t.Errorf("ControlPort() = %d", cfg.ControlPort())
		}
		if cfg.StartupTimeout != 90*time.Second || cfg.PollInterval != 500*time.Millisecond {
			t.Errorf("timeouts = %v, %v", cfg.StartupTimeout, cfg.PollInterval)
		}
		if cfg.VerifyEndpoint != "https://example.test/json" {
			t.Errorf("VerifyEndpoint = %q", cfg.VerifyEndpoint)
		}
		if cfg.KeyFile != "/etc/cuackproxy/key" {
			t.Errorf("KeyFile = %q", cfg.KeyFile)
		}
		if cfg.LogFile != DefaultLogFile {
			t.Errorf("LogFile should keep its default, got %q", cfg.LogFile)
		}
		if !cfg.HistoryEnabled || cfg.HistoryDir != "/var/lib/cuackproxy" {
			t.Errorf("history = %v, %q", cfg.HistoryEnabled, cfg.HistoryDir)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit path is applied", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "c.yaml")
		if err := os.WriteFile(path, []byte("audit:\n  log_file: audit.log\n"), 0600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.LogFile != "audit.log" || cfg.ConfigFilePath != path {
			t.Errorf("LogFile = %q, ConfigFilePath = %q", cfg.LogFile, cfg.ConfigFilePath)
		}
	})
}

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.yaml")
	if FindConfigFile(path) != "" {
		t.Error("missing explicit path must resolve to empty string")
	}
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if FindConfigFile(path) != path {
		t.Errorf("FindConfigFile() = %q, want %q", FindConfigFile(path), path)
	}
}
