package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a Driver.
type Options struct {
	Reporter types.Reporter
	DryRun   bool
	// Skip names optional stages to skip.
	Skip   []string
	Logger zerolog.Logger
	// Now is the clock, for tests.
	Now func() time.Time
}

// Driver executes stages in order.
type Driver struct {
	reporter types.Reporter
	dryRun   bool
	skip     map[string]bool
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a driver.
func New(opts Options) *Driver {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("pipeline")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = true
	}
	return &Driver{
		reporter: opts.Reporter,
		dryRun:   opts.DryRun,
		skip:     skip,
		logger:   logger,
		now:      now,
	}
}

// Validate checks that stage names are unique and that only known optional
// stages are skipped.
func (d *Driver) Validate(stages []Stage) error {
	byName := make(map[string]Stage, len(stages))
	for _, s := range stages {
		if _, dup := byName[s.Name]; dup {
			return errors.Newf(errors.ErrInternal, "duplicate stage %q", s.Name)
		}
		if s.Action == nil {
			return errors.Newf(errors.ErrInternal, "stage %q has no action", s.Name)
		}
		byName[s.Name] = s
	}
	for name := range d.skip {
		s, ok := byName[name]
		if !ok {
			return errors.Newf(errors.ErrInvalidInput, "unknown stage %q", name)
		}
		if !s.Optional {
			return errors.Newf(errors.ErrInvalidInput, "stage %q is required and cannot be skipped", name)
		}
	}
	return nil
}

// Execute runs stages against env. It returns the report and the final
// environment.
func (d *Driver) Execute(ctx context.Context, stages []Stage, env hostenv.Env) (Report, hostenv.Env) {
	report := Report{
		RunID:   uuid.NewString(),
		Started: d.now(),
		DryRun:  d.dryRun,
	}
	logger := logging.WithRun(d.logger, report.RunID)
	run := &Run{Env: env, reporter: d.reporter}

	fatal := false
	for _, stage := range stages {
		sr := StageReport{Name: stage.Name, Optional: stage.Optional}
		if fatal {
			sr.Status = StatusNotRun
			report.Stages = append(report.Stages, sr)
			continue
		}

		start := d.now()
		run.current = &sr
		d.runStage(ctx, logger, stage, run)
		sr.Duration = d.now().Sub(start)
		report.Stages = append(report.Stages, sr)

		if sr.Status == StatusFailed {
			fatal = true
			report.ExitCode = ExitFatal
		}
	}

	report.Duration = d.now().Sub(report.Started)
	return report, run.Env
}

func (d *Driver) runStage(ctx context.Context, logger zerolog.Logger, stage Stage, run *Run) {
	sr := run.current
	logger = logging.WithStage(logger, stage.Name, stage.Optional)
	done := logging.LogStage(logger, stage.Name)
	defer func() { done(string(sr.Status)) }()
	ctx = logging.NewContext(ctx, logger)

	if d.skip[stage.Name] {
		sr.Status = StatusSkipped
		sr.Detail = "skipped on request"
		d.reporter.Info("%s: skipped on request", stage.Name)
		return
	}

	if stage.Precondition != nil && stage.Precondition.Satisfied(run.Env) {
		sr.Status = StatusSatisfied
		sr.Detail = fmt.Sprintf("%s already present", stage.Precondition)
		d.reporter.Success("%s: already satisfied", stage.Name)
		logger.Debug().Str("probe", stage.Precondition.String()).Msg("Precondition satisfied")
		return
	}

	if d.dryRun {
		sr.Status = StatusSkipped
		sr.Detail = "would " + stage.Description
		d.reporter.Info("%s: would %s", stage.Name, stage.Description)
		return
	}

	err := stage.Action(ctx, run)
	if err == nil && stage.Postcondition != nil && !stage.Postcondition.Satisfied(run.Env) {
		err = errors.Newf(errors.ErrRemediationIneffective, "%s still missing", stage.Postcondition).
			WithDetail("stage", stage.Name)
	}

	switch {
	case err == nil && len(sr.Warnings) > 0:
		sr.Status = StatusWarning
	case err == nil:
		sr.Status = StatusApplied
		if sr.Detail == "" {
			sr.Detail = stage.Description
		}
		d.reporter.Success("%s: done", stage.Name)
	case stage.Optional:
		sr.Status = StatusWarning
		sr.Error = err.Error()
		sr.Code = string(errors.GetErrorCode(err))
		d.reporter.Warn("%s: %s", stage.Name, describe(err))
		logger.Warn().Err(err).Fields(errors.GetErrorDetails(err)).Msg("Optional stage did not complete")
	default:
		sr.Status = StatusFailed
		sr.Error = err.Error()
		sr.Code = string(errors.GetErrorCode(err))
		d.reporter.Fatal("%s: %s", stage.Name, describe(err))
		logger.Error().Err(err).Fields(errors.GetErrorDetails(err)).Msg("Stage failed")
	}
}

// describe prefers the outermost message over the full chain.
func describe(err error) string {
	var bootErr *errors.BootError
	if !stderrors.As(err, &bootErr) {
		return err.Error()
	}
	if bootErr.Wrapped != nil {
		return fmt.Sprintf("%s (%v)", bootErr.Message, bootErr.Wrapped)
	}
	return bootErr.Message
}
