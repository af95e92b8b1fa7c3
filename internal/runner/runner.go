package runner

import "context"

// Runner runs external commands.
type Runner interface {
	// LookPath reports whether name resolves to an executable on PATH.
	LookPath(name string) bool

	// Run executes the command synchronously with no stdin and returns nil,
	// an *ExitError, or an execution error.
	Run(ctx context.Context, name string, args ...string) error

	// Start launches a long-running command in the background. Its output
	// is discarded.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// Process is a handle to a command started with Runner.Start.
type Process interface {
	// Pid returns the operating system process id.
	Pid() int

	// Alive reports whether the process has not exited yet. It never blocks.
	Alive() bool

	// Terminate asks the process to exit (SIGTERM). It is a no-op on a
	// process that already exited.
	Terminate() error
}
