// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cuackproxy/cuackproxy/internal/runner"
)

// Fake is an in-memory runner.Runner. Commands listed in the constructor are
// "installed"; every other name behaves like a missing binary.
type Fake struct {
	mu        sync.Mutex
	installed map[string]bool
	results   map[string]error
	calls     []string
	started   []*Process

	// StartErr, when set, is returned by Start for installed commands.
	StartErr error
}

// NewFake returns a Fake on which the given commands are installed.
func NewFake(installed ...string) *Fake {
	f := &Fake{
		installed: make(map[string]bool),
		results:   make(map[string]error),
	}
	for _, name := range installed {
		f.installed[name] = true
	}
	return f
}

// SetResult makes Run return err for the exact argument vector argv.
func (f *Fake) SetResult(err error, argv ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[strings.Join(argv, " ")] = err
}

// Fail makes Run report a non-zero exit for argv.
func (f *Fake) Fail(code int, argv ...string) {
	f.SetResult(&runner.ExitError{Command: argv, Code: code}, argv...)
}

// Calls returns every Run and Start invocation as a space-joined line.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Started returns the processes handed out by Start.
func (f *Fake) Started() []*Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Process(nil), f.started...)
}

// LookPath implements runner.Runner.
func (f *Fake) LookPath(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed[name]
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if !f.installed[name] {
		return fmt.Errorf("%s: %w", name, runner.ErrNotFound)
	}
	return f.results[line]
}

// Start implements runner.Runner.
func (f *Fake) Start(_ context.Context, name string, args ...string) (runner.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	if !f.installed[name] {
		return nil, fmt.Errorf("%s: %w", name, runner.ErrNotFound)
	}
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	p := &Process{pid: 4000 + len(f.started), alive: true}
	f.started = append(f.started, p)
	return p, nil
}

// Process is a fake runner.Process.
type Process struct {
	mu         sync.Mutex
	pid        int
	alive      bool
	terminated bool
}

// NewProcess returns a live fake process with the given pid.
func NewProcess(pid int) *Process {
	return &Process{pid: pid, alive: true}
}

// Pid implements runner.Process.
func (p *Process) Pid() int {
	return p.pid
}

// Alive implements runner.Process.
func (p *Process) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

// Terminate implements runner.Process.
func (p *Process) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.alive {
		p.terminated = true
		p.alive = false
	}
	return nil
}

// Exit simulates the process dying on its own.
func (p *Process) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = false
}

// Terminated reports whether Terminate stopped the process.
func (p *Process) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}
