package netid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterface is returned when the interface does not exist.
	ErrInvalidInterface = errors.New("invalid network interface")

	// ErrNoToolchain is returned when neither ifconfig nor ip is installed.
	ErrNoToolchain = errors.New("neither ifconfig nor ip command found")
)

// StepError reports which command of the down, set, up sequence failed.
type StepError struct {
	// Interface is the interface being changed.
	Interface string

	// Step is "down", "set" or "up".
	Step string

	// Err is the runner error.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Interface, e.Step, e.Err)
}

// Unwrap returns the runner error.
func (e *StepError) Unwrap() error {
	return e.Err
}
