package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// Step is one stage of the connect flow.
type Step interface {
	// Do runs the step and records its outcome in attempt.
	Do(ctx context.Context, attempt *model.Attempt) error

	// Name identifies the step in logs, errors and the attempt record.
	Name() string
}

// StepError reports which step stopped the pipeline.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline executes steps in order and stops at the first failure.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0, 3)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends steps in execution order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against attempt. Cancellation is checked between
// steps; a cancelled run marks the attempt and returns ctx.Err().
func (p *Pipeline) Execute(ctx context.Context, attempt *model.Attempt) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			attempt.Cancelled = true
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "interface", attempt.Interface)

		err := step.Do(ctx, attempt)
		attempt.PerformedSteps = append(attempt.PerformedSteps, step.Name())
		if err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "error", err)
			stepErr := &StepError{Step: step.Name(), Err: err}
			attempt.Error = stepErr
			attempt.ErrorMessage = stepErr.Error()
			if ctx.Err() != nil {
				attempt.Cancelled = true
			}
			return stepErr
		}
	}
	return nil
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
