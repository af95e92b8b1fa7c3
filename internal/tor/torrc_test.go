package tor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

func TestRenderTorrc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts TorrcOptions
		want string
	}{
		{
			name: "country filter",
			opts: TorrcOptions{
				Exit:        model.MustParseCountryCode("us"),
				SocksPort:   9050,
				ControlPort: 9051,
				CookieFile:  "/run/tor/control.authcookie",
			},
			want: "ExitNodes {US}\n" +
				"StrictNodes 1\n" +
				"SocksPort 9050\n" +
				"ControlPort 9051\n" +
				"CookieAuthentication 1\n" +
				"CookieAuthFile /run/tor/control.authcookie\n",
		},
		{
			name: "random exit",
			opts: TorrcOptions{
				Exit:        model.RandomExit,
				SocksPort:   9150,
				ControlPort: 9051,
				CookieFile:  "/tmp/cookie",
			},
			want: "StrictNodes 0\n" +
				"SocksPort 9150\n" +
				"ControlPort 9051\n" +
				"CookieAuthentication 1\n" +
				"CookieAuthFile /tmp/cookie\n",
		},
		{
			name: "defaults left to tor",
			opts: TorrcOptions{Exit: model.RandomExit, ControlPort: 9051},
			want: "StrictNodes 0\n" +
				"ControlPort 9051\n" +
				"CookieAuthentication 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RenderTorrc(tt.opts); got != tt.want {
				t.Errorf("RenderTorrc() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestTorrcPath(t *testing.T) {
	t.Parallel()

	if got := TorrcPath("/tmp", 4242); got != "/tmp/torrc_4242" {
		t.Errorf("TorrcPath() = %q", got)
	}
}

func TestWriteAndRemoveTorrc(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "torrc_1")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := TorrcOptions{Exit: model.MustParseCountryCode("de"), ControlPort: 9051}
	if err := WriteTorrc(path, opts); err != nil {
		t.Fatalf("WriteTorrc() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != RenderTorrc(opts) {
		t.Errorf("unexpected contents: %q", data)
	}

	if err := RemoveTorrc(path); err != nil {
		t.Fatalf("RemoveTorrc() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("torrc still present: %v", err)
	}
	if err := RemoveTorrc(path); err != nil {
		t.Errorf("removing a missing torrc should succeed, got %v", err)
	}
}

func TestWriteTorrc_ReplacesSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "torrc_1")
	if err := os.Symlink(target, path); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	opts := TorrcOptions{Exit: model.RandomExit, ControlPort: 9051}
	if err := WriteTorrc(path, opts); err != nil {
		t.Fatalf("WriteTorrc() error: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "keep" {
		t.Errorf("symlink target was overwritten: %q", data)
	}
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 || info.Mode().Perm() != 0o600 {
		t.Errorf("torrc mode = %v, want a regular 0600 file", info.Mode())
	}
}

func TestCookiePath(t *testing.T) {
	t.Parallel()

	if got := CookiePath("/tmp", 4242); got != "/tmp/cuackproxy_4242.authcookie" {
		t.Errorf("CookiePath() = %q", got)
	}
}

func TestRemoveCookie(t *testing.T) {
	t.Parallel()

	path := CookiePath(t.TempDir(), 1)
	if err := os.WriteFile(path, make([]byte, 32), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := RemoveCookie(path); err != nil {
		t.Fatalf("RemoveCookie() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cookie still present: %v", err)
	}
	if err := RemoveCookie(path); err != nil {
		t.Errorf("removing a missing cookie should succeed, got %v", err)
	}
}

func TestWriteTorrc_BadDir(t *testing.T) {
	t.Parallel()

	err := WriteTorrc(filepath.Join(t.TempDir(), "missing", "torrc_1"), TorrcOptions{ControlPort: 9051})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
