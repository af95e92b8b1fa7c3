package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// maxOutputTail bounds the command output kept in an ExitError.
const maxOutputTail = 512

// Exec is the Runner backed by os/exec.
type Exec struct{}

// NewExec returns a Runner that executes real commands.
func NewExec() *Exec {
	return &Exec{}
}

// LookPath implements Runner.
func (*Exec) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run implements Runner.
func (*Exec) Run(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return &ExitError{
			Command: append([]string{name}, args...),
			Code:    exitErr.ExitCode(),
			Output:  tail(out.String()),
		}
	}
	return fmt.Errorf("run %s: %w", name, err)
}

// Start implements Runner. The child is not bound to ctx: its lifetime is
// owned by whoever holds the Process and calls Terminate.
func (*Exec) Start(_ context.Context, name string, args ...string) (Process, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	cmd := exec.Command(name, args...) //nolint:noctx // lifetime is managed through Terminate
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait() //nolint:errcheck // exit status is observed through Alive
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execProcess) Terminate() error {
	if !p.Alive() {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputTail {
		s = s[len(s)-maxOutputTail:]
	}
	return s
}
