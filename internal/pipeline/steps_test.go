package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/cuackproxy/cuackproxy/internal/ipcheck"
	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/runner/runnertest"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

type fakeRandomizer struct {
	mac   string
	err   error
	iface string
}

func (f *fakeRandomizer) Randomize(_ context.Context, iface string) (string, error) {
	f.iface = iface
	return f.mac, f.err
}

type fakeStarter struct {
	res       tor.StartResult
	err       error
	exit      model.CountryCode
	socksPort int
}

func (f *fakeStarter) Start(_ context.Context, exit model.CountryCode, socksPort int) (tor.StartResult, error) {
	f.exit = exit
	f.socksPort = socksPort
	return f.res, f.err
}

type fakeVerifier struct {
	res ipcheck.Result
	err error
}

func (f *fakeVerifier) Check(context.Context) (ipcheck.Result, error) {
	return f.res, f.err
}

func TestMACStep(t *testing.T) {
	t.Parallel()

	r := &fakeRandomizer{mac: "02:aa:bb:cc:dd:ee"}
	a := testAttempt()
	step := NewMACStep(r)

	if step.Name() != StepMAC {
		t.Errorf("Name() = %q", step.Name())
	}
	if err := step.Do(context.Background(), a); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if r.iface != "eth0" || a.MAC != "02:aa:bb:cc:dd:ee" {
		t.Errorf("iface=%q mac=%q", r.iface, a.MAC)
	}

	failing := NewMACStep(&fakeRandomizer{err: errors.New("down failed")})
	b := testAttempt()
	if err := failing.Do(context.Background(), b); err == nil {
		t.Error("expected error")
	}
	if b.MAC != "" {
		t.Errorf("MAC should stay empty, got %q", b.MAC)
	}
}

func TestTorStep(t *testing.T) {
	t.Parallel()

	t.Run("launched process is adopted", func(t *testing.T) {
		t.Parallel()

		proc := runnertest.NewProcess(4242)
		starter := &fakeStarter{res: tor.StartResult{Process: proc, TorrcPath: "/tmp/torrc_1"}}
		var adopted []tor.StartResult
		step := NewTorStep(starter, func(res tor.StartResult) { adopted = append(adopted, res) })

		a := testAttempt()
		a.Request.Exit = model.MustParseCountryCode("se")
		a.Request.ProxyPort = 9150
		if err := step.Do(context.Background(), a); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if starter.exit.Code() != "SE" || starter.socksPort != 9150 {
			t.Errorf("starter got exit=%v port=%d", starter.exit, starter.socksPort)
		}
		if len(adopted) != 1 || adopted[0].Process != proc {
			t.Errorf("adopted = %+v", adopted)
		}
		if a.TorPID != 4242 || a.TorReused {
			t.Errorf("attempt = %+v", a)
		}
	})

	t.Run("process is adopted even on timeout", func(t *testing.T) {
		t.Parallel()

		proc := runnertest.NewProcess(7)
		starter := &fakeStarter{res: tor.StartResult{Process: proc}, err: tor.ErrBootstrapTimeout}
		var adopted tor.StartResult
		step := NewTorStep(starter, func(res tor.StartResult) { adopted = res })

		a := testAttempt()
		if err := step.Do(context.Background(), a); !errors.Is(err, tor.ErrBootstrapTimeout) {
			t.Fatalf("expected ErrBootstrapTimeout, got %v", err)
		}
		if adopted.Process != proc {
			t.Error("timed out process must be adopted for teardown")
		}
	})

	t.Run("reuse", func(t *testing.T) {
		t.Parallel()

		step := NewTorStep(&fakeStarter{res: tor.StartResult{Reused: true}}, nil)
		a := testAttempt()
		if err := step.Do(context.Background(), a); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if !a.TorReused || a.TorPID != 0 {
			t.Errorf("attempt = %+v", a)
		}
	})
}

func TestVerifyStep(t *testing.T) {
	t.Parallel()

	ok := NewVerifyStep(&fakeVerifier{res: ipcheck.Result{IP: "185.220.101.4", Location: "Paris, FR"}})
	a := testAttempt()
	if err := ok.Do(context.Background(), a); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if a.ExitIP != "185.220.101.4" || a.Location != "Paris, FR" {
		t.Errorf("attempt = %+v", a)
	}

	failing := NewVerifyStep(&fakeVerifier{res: ipcheck.ErrorResult, err: ipcheck.ErrProxyUnreachable})
	b := testAttempt()
	if err := failing.Do(context.Background(), b); !errors.Is(err, ipcheck.ErrProxyUnreachable) {
		t.Fatalf("expected ErrProxyUnreachable, got %v", err)
	}
	if b.ExitIP != model.ErrorIP || b.Location != model.UnknownValue {
		t.Errorf("sentinel not recorded: %+v", b)
	}
}
