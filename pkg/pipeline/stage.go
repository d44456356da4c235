package pipeline

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/types"
)

// Action performs a stage's remediation. It reads and replaces run.Env.
type Action func(ctx context.Context, run *Run) error

// Stage describes one named step.
type Stage struct {
	Name     string
	Optional bool
	// Description says what the action does, for plans and dry runs.
	Description string
	// Precondition skips the action when satisfied. Nil always acts.
	Precondition probe.Probe
	Action       Action
	// Postcondition is re-checked after a successful action. Nil accepts.
	Postcondition probe.Probe
}

// Run is the mutable state handed to each action.
type Run struct {
	Env      hostenv.Env
	reporter types.Reporter
	current  *StageReport
}

// Info prints an informational line for the current stage.
func (r *Run) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.reporter.Info("%s: %s", r.current.Name, msg)
	r.current.Notes = append(r.current.Notes, msg)
}

// Warn records a non-fatal problem for the current stage.
func (r *Run) Warn(err error) {
	r.reporter.Warn("%s: %v", r.current.Name, err)
	r.current.Warnings = append(r.current.Warnings, err.Error())
}

// Detail sets the one-line summary shown for the stage.
func (r *Run) Detail(format string, args ...interface{}) {
	r.current.Detail = fmt.Sprintf(format, args...)
}
