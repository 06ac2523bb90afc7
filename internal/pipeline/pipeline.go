package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/contactscan/internal/model"
)

// Step is one stage of the per-business pipeline.
//
// Design decision: Steps are an interface rather than function types because:
//  1. Steps carry their collaborators (history, crawler, database)
//  2. Name() gives every log line a step label
//  3. Tests can substitute any single step
type Step interface {
	// Do executes the step against record. Steps that do not apply to a
	// record (no website, already skipped) return nil without changes.
	Do(ctx context.Context, record *model.BusinessRecord) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps executing later steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. A failed history write must not hide the
// emails the crawl already attached.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order. With continueOnError the step errors
// are joined and returned after the last step; otherwise the first error
// stops the pipeline.
//
// Design decision: Cancellation is checked before each step rather than
// inside it. Steps that block, such as the crawl, take the context
// themselves, and a record is never left between two steps mid-write.
func (p *Pipeline) Execute(ctx context.Context, record *model.BusinessRecord) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"business", record.Name,
				"reason", err,
			)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"business", record.Name,
		)

		if err := step.Do(ctx, record); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"business", record.Name,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
