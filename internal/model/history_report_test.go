package model

import (
	"testing"
	"time"
)

func newTestAttempt(country string, mutate func(*Attempt)) *Attempt {
	a := NewAttempt(ConnectRequest{
		ProxyHost: "127.0.0.1",
		ProxyPort: 9050,
		Exit:      MustParseCountryCode(country),
		Interface: "eth0",
	}, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	a.PerformedSteps = []string{"mac", "tor", "verify"}
	a.ExitIP = "185.220.101.4"
	a.Location = "Berlin, DE"
	if mutate != nil {
		mutate(a)
	}
	return a
}

func TestAttempt_Outcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Attempt)
		want   string
		step   string
	}{
		{name: "success", want: OutcomeSucceeded},
		{
			name: "tor failure",
			mutate: func(a *Attempt) {
				a.PerformedSteps = []string{"mac", "tor"}
				a.ExitIP = ""
				a.ErrorMessage = "tor: bootstrap timeout"
			},
			want: OutcomeFailed,
			step: "tor",
		},
		{
			name: "verify sentinel",
			mutate: func(a *Attempt) {
				a.ExitIP = ErrorIP
				a.Location = UnknownValue
				a.ErrorMessage = "verify: Tor proxy is not working"
			},
			want: OutcomeFailed,
			step: "verify",
		},
		{
			name: "cancelled",
			mutate: func(a *Attempt) {
				a.PerformedSteps = []string{"mac"}
				a.Cancelled = true
				a.ExitIP = ""
			},
			want: OutcomeCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestAttempt("DE", tt.mutate)
			if got := a.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
			if got := a.FailedStep(); got != tt.step {
				t.Errorf("FailedStep() = %q, want %q", got, tt.step)
			}
		})
	}
}

func TestNewHistoryReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	r := NewHistoryReport([]*Attempt{
		newTestAttempt("DE", nil),
		newTestAttempt("DE", func(a *Attempt) { a.TorReused = true }),
		newTestAttempt("random", func(a *Attempt) { a.ErrorMessage = "mac: invalid"; a.ExitIP = "" }),
		newTestAttempt("US", func(a *Attempt) { a.Cancelled = true }),
	}, now)

	if r.Total != 4 || r.Succeeded != 2 || r.Failed != 1 || r.Cancelled != 1 || r.Reused != 1 {
		t.Errorf("unexpected tallies: %+v", r)
	}
	if r.Countries["DE"] != 2 || r.Countries["Random"] != 1 || r.Countries["US"] != 1 {
		t.Errorf("Countries = %v", r.Countries)
	}
	if !r.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
}

func TestNewHistoryReport_Empty(t *testing.T) {
	t.Parallel()

	r := NewHistoryReport(nil, time.Now())
	if !r.IsEmpty() {
		t.Error("expected empty report")
	}
	if r.Attempts == nil {
		t.Error("Attempts should be an empty slice for JSON output")
	}
}
