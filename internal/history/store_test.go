package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newAttempt(started time.Time, iface, country string) *model.Attempt {
	req := model.ConnectRequest{
		ProxyHost: "127.0.0.1",
		ProxyPort: 9050,
		Exit:      model.MustParseCountryCode(country),
		Interface: iface,
	}
	return model.NewAttempt(req, started)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "data", "cuackproxy")
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		defer s.Close()

		info, err := os.Stat(s.Path())
		if err != nil {
			t.Fatalf("database file was not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("database mode = %o, want 600", perm)
		}
	})

	t.Run("requires existing database without CreateIfNotExists", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Record(context.Background(), newAttempt(time.Now(), "eth0", "us")); err != nil {
			t.Fatal(err)
		}
		_ = s.Close()

		s2, err := Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("reopen error: %v", err)
		}
		defer s2.Close()
		n, err := s2.Count(context.Background())
		if err != nil || n != 1 {
			t.Errorf("Count() = %d, %v; want 1", n, err)
		}
	})
}

func TestRecordAndGet(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	a := newAttempt(started, "wlan0", "de")
	a.MAC = "02:11:22:33:44:55"
	a.TorPID = 4242
	a.ExitIP = "185.220.101.4"
	a.Location = "Berlin, DE"
	a.PerformedSteps = []string{"mac", "tor", "verify"}

	id, err := s.Record(ctx, a)
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if id == 0 || a.ID != id {
		t.Fatalf("ID not assigned: id=%d a.ID=%d", id, a.ID)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Interface != "wlan0" || got.Country != "DE" || got.MAC != a.MAC || got.TorPID != 4242 {
		t.Errorf("unexpected attempt: %+v", got)
	}
	if got.ExitIP != a.ExitIP || got.Location != a.Location || got.TorReused {
		t.Errorf("unexpected attempt: %+v", got)
	}
	if !reflect.DeepEqual(got.PerformedSteps, a.PerformedSteps) {
		t.Errorf("PerformedSteps = %v", got.PerformedSteps)
	}
	if !got.Succeeded() {
		t.Error("stored successful attempt should read back as successful")
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	got, err := s.Get(context.Background(), 999)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, country := range []string{"us", "nl", "random"} {
		a := newAttempt(base.Add(time.Duration(i)*time.Hour), "eth0", country)
		if country == "nl" {
			a.Error = errors.New("tor is running but not ready")
			a.ErrorMessage = a.Error.Error()
		}
		if _, err := s.Record(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Country != "Random" || all[2].Country != "US" {
		t.Errorf("expected newest first, got %s..%s", all[0].Country, all[2].Country)
	}
	if all[1].ErrorMessage != "tor is running but not ready" {
		t.Errorf("ErrorMessage = %q", all[1].ErrorMessage)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T03:04:05.123456789Z", time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC)},
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02 03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"garbage", time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
