package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the requested binary is not on PATH.
var ErrNotFound = errors.New("command not found")

// Outcome classifies the result of running a command.
type Outcome int

const (
	// OutcomeSuccess means the command ran and exited with status 0.
	OutcomeSuccess Outcome = iota

	// OutcomeNonZeroExit means the command ran and exited with a non-zero status.
	OutcomeNonZeroExit

	// OutcomeExecFailure means the command could not be started.
	OutcomeExecFailure
)

// String returns a human-readable outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNonZeroExit:
		return "non-zero exit"
	case OutcomeExecFailure:
		return "exec failure"
	default:
		return "unknown"
	}
}

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	// Command is the full argument vector.
	Command []string

	// Code is the exit status.
	Code int

	// Output is the trimmed combined output, if it was captured.
	Output string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Command, " "), e.Code)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Classify maps an error returned by Run or Start to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return OutcomeNonZeroExit
	}
	return OutcomeExecFailure
}
