// Package tortest provides a scripted Tor controller for tests.
package tortest

import (
	"context"
	"sync"
)

// DonePhase is a status/bootstrap-phase reply for a bootstrapped Tor.
const DonePhase = `NOTICE BOOTSTRAP PROGRESS=100 TAG=done SUMMARY="Done"`

// StartingPhase is a status/bootstrap-phase reply for a Tor still bootstrapping.
const StartingPhase = `NOTICE BOOTSTRAP PROGRESS=5 TAG=conn SUMMARY="Connecting to a relay"`

// Controller replays bootstrap phases in order, repeating the last one.
type Controller struct {
	mu         sync.Mutex
	phases     []string
	calls      int
	renewCalls int

	// PhaseErr, when set, is returned by BootstrapPhase.
	PhaseErr error

	// RenewErr, when set, is returned by NewIdentity.
	RenewErr error
}

// NewController returns a Controller that answers with phases.
func NewController(phases ...string) *Controller {
	return &Controller{phases: phases}
}

// Ready returns a Controller that always reports bootstrap done.
func Ready() *Controller {
	return NewController(DonePhase)
}

// BootstrapPhase implements tor.Controller.
func (c *Controller) BootstrapPhase(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.PhaseErr != nil {
		return "", c.PhaseErr
	}
	if len(c.phases) == 0 {
		return "", nil
	}
	i := min(c.calls-1, len(c.phases)-1)
	return c.phases[i], nil
}

// NewIdentity implements tor.Controller.
func (c *Controller) NewIdentity(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.renewCalls++
	return c.RenewErr
}

// PhaseCalls returns how many times BootstrapPhase was called.
func (c *Controller) PhaseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// RenewCalls returns how many times NewIdentity was called.
func (c *Controller) RenewCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renewCalls
}
