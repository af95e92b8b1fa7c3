package pipeline

import (
	"context"

	"github.com/cuackproxy/cuackproxy/internal/ipcheck"
	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

// Step names.
const (
	StepMAC    = "mac"
	StepTor    = "tor"
	StepVerify = "verify"
)

// MACRandomizer changes an interface's MAC address.
type MACRandomizer interface {
	Randomize(ctx context.Context, iface string) (string, error)
}

// TorStarter makes a ready Tor available.
type TorStarter interface {
	Start(ctx context.Context, exit model.CountryCode, socksPort int) (tor.StartResult, error)
}

// ExitVerifier looks up the exit IP and location.
type ExitVerifier interface {
	Check(ctx context.Context) (ipcheck.Result, error)
}

// MACStep randomizes the requested interface.
type MACStep struct {
	randomizer MACRandomizer
}

// NewMACStep returns a MACStep.
func NewMACStep(r MACRandomizer) *MACStep {
	return &MACStep{randomizer: r}
}

// Name implements Step.
func (s *MACStep) Name() string {
	return StepMAC
}

// Do implements Step.
func (s *MACStep) Do(ctx context.Context, attempt *model.Attempt) error {
	mac, err := s.randomizer.Randomize(ctx, attempt.Request.Interface)
	if err != nil {
		return err
	}
	attempt.MAC = mac
	return nil
}

// TorStep starts or reuses Tor with the requested exit.
type TorStep struct {
	starter TorStarter
	adopt   func(tor.StartResult)
}

// NewTorStep returns a TorStep. adopt receives every StartResult, including
// those returned with an error, so a process left running after a failed
// bootstrap still gets an owner.
func NewTorStep(starter TorStarter, adopt func(tor.StartResult)) *TorStep {
	return &TorStep{starter: starter, adopt: adopt}
}

// Name implements Step.
func (s *TorStep) Name() string {
	return StepTor
}

// Do implements Step.
func (s *TorStep) Do(ctx context.Context, attempt *model.Attempt) error {
	res, err := s.starter.Start(ctx, attempt.Request.Exit, attempt.Request.ProxyPort)
	if s.adopt != nil {
		s.adopt(res)
	}
	attempt.TorReused = res.Reused
	if res.Process != nil {
		attempt.TorPID = res.Process.Pid()
	}
	return err
}

// VerifyStep checks the exit through the SOCKS5 endpoint.
type VerifyStep struct {
	verifier ExitVerifier
}

// NewVerifyStep returns a VerifyStep.
func NewVerifyStep(v ExitVerifier) *VerifyStep {
	return &VerifyStep{verifier: v}
}

// Name implements Step.
func (s *VerifyStep) Name() string {
	return StepVerify
}

// Do implements Step. The sentinel result is recorded even on failure.
func (s *VerifyStep) Do(ctx context.Context, attempt *model.Attempt) error {
	res, err := s.verifier.Check(ctx)
	attempt.ExitIP = res.IP
	attempt.Location = res.Location
	return err
}
