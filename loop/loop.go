package loop

import (
	"context"
	"fmt"

	"bork/change"
	"bork/checker"
	"bork/config"
	"bork/llm"
	"bork/prompt"
	"bork/snapshot"
)

// MaxIterations is the default bound on one reconciliation. The bound is a
// safety valve, not a convergence claim: hitting it escalates to a human.
const MaxIterations = 5

// Termination is the final state of a reconciliation run.
type Termination int

const (
	// TerminateClean: the checker (when configured) emitted zero findings
	// on the final state.
	TerminateClean Termination = iota
	// TerminateEscalate: the iteration cap was hit with unresolved
	// findings. The last proposal is committed; a human must review.
	TerminateEscalate
	// TerminateError: a cross-cutting failure (LLM, checker, snapshot).
	TerminateError
)

// ExitCode maps the termination to the harness process exit code.
func (t Termination) ExitCode() int {
	switch t {
	case TerminateClean:
		return 0
	case TerminateEscalate:
		return 1
	default:
		return 2
	}
}

// State is the controller's loop state: the iteration counter and the
// findings carried into the next prompt. Only the controller mutates it.
type State struct {
	Iteration  int
	LastReport *checker.Report
}

// Options wires a controller.
type Options struct {
	Root     string
	Config   *config.Config
	Adapter  llm.Adapter
	Approver change.Approver
	Printer  *change.Printer

	// MaxIterations overrides the default iteration cap when positive.
	MaxIterations int

	// RunChecker overrides checker execution; nil runs the configured
	// checker subprocess.
	RunChecker func(ctx context.Context) *checker.Result
}

// Controller drives the reconciliation: snapshot, prompt, LLM, validate,
// commit, check, repeat. Single-threaded and sequential; within an
// iteration all accepted changes are committed before the checker runs, so
// the checker always observes the post-commit state.
type Controller struct {
	opts  Options
	state State
}

// New creates a controller.
func New(opts Options) *Controller {
	return &Controller{opts: opts}
}

// State returns a copy of the current loop state.
func (c *Controller) State() State {
	return c.state
}

// Run executes the reconciliation until termination. Commits are never
// rolled back; a later iteration's edits overwrite earlier ones naturally.
func (c *Controller) Run(ctx context.Context) (Termination, error) {
	cfg := c.opts.Config
	printer := c.opts.Printer
	applier := change.NewApplier(c.opts.Root, c.opts.Approver, printer)

	checkerMode := cfg.CheckerConfigured()
	max := MaxIterations
	if c.opts.MaxIterations > 0 {
		max = c.opts.MaxIterations
	}
	if !checkerMode {
		// Without a checker there is nothing to converge on.
		max = 1
	}

	for c.state.Iteration = 1; c.state.Iteration <= max; c.state.Iteration++ {
		if err := ctx.Err(); err != nil {
			return TerminateError, err
		}

		snap, err := snapshot.Take(c.opts.Root)
		if err != nil {
			return TerminateError, fmt.Errorf("snapshotting repository: %w", err)
		}

		request := prompt.Build(prompt.Params{
			Snapshot:      snap,
			LastReport:    c.state.LastReport,
			Iteration:     c.state.Iteration,
			MaxIterations: max,
			CheckerMode:   checkerMode,
		})

		printer.Dimf("Collected %d files; iteration %d/%d; sending to %s...",
			len(snap.Files), c.state.Iteration, max, c.opts.Adapter.ModelName())

		raw, err := c.opts.Adapter.Complete(ctx, request)
		if err != nil {
			return TerminateError, err
		}

		set, err := change.ParseReply(raw)
		if err != nil {
			// Zero changes are applied from an unparseable reply.
			return TerminateError, err
		}

		if !set.Empty() {
			applier.Apply(change.Validate(set, cfg, printer))
		} else {
			printer.Dimf("Model requested no changes.")
		}

		if !checkerMode {
			printer.Dimf("No correctness checker configured; single iteration complete.")
			return TerminateClean, nil
		}

		result := c.runChecker(ctx)
		switch result.Outcome {
		case checker.Clean:
			printer.Dimf("No findings from correctness checker; ending loop.")
			return TerminateClean, nil

		case checker.Failed:
			return TerminateError, fmt.Errorf("correctness checker failed: %s", result.Detail)

		case checker.Findings:
			c.state.LastReport = result.Report
			if c.state.Iteration == max {
				printer.Warnf("Iteration cap (%d) reached with %d unresolved findings; human intervention requested.",
					max, result.Report.Count())
				return TerminateEscalate, nil
			}
			printer.Dimf("Correctness checker reported %d findings; commencing next iteration.",
				result.Report.Count())
		}
	}

	return TerminateEscalate, nil
}

func (c *Controller) runChecker(ctx context.Context) *checker.Result {
	if c.opts.RunChecker != nil {
		return c.opts.RunChecker(ctx)
	}
	return checker.Run(ctx, c.opts.Root, c.opts.Config.CorrectnessChecker)
}
