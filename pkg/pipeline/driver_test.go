package pipeline_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	ran []string
}

func (r *recorder) action(name string, err error) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		r.ran = append(r.ran, name)
		return err
	}
}

func TestExecute_OrderAndStatuses(t *testing.T) {
	bin := testutil.BinDir(t, "git")
	env := testutil.EnvWithPath(t.TempDir(), bin)
	rec := &recorder{}
	rep := &testutil.CaptureReporter{}

	stages := []pipeline.Stage{
		{Name: "git", Precondition: probe.Command("git"), Action: rec.action("git", nil)},
		{Name: "config", Action: rec.action("config", nil), Description: "write config"},
		{Name: "agent", Optional: true, Action: rec.action("agent", errors.New(errors.ErrMissingCapability, "no ssh-agent"))},
		{Name: "repo", Action: rec.action("repo", nil)},
	}

	d := pipeline.New(pipeline.Options{Reporter: rep})
	require.NoError(t, d.Validate(stages))
	report, _ := d.Execute(context.Background(), stages, env)

	assert.Equal(t, []string{"config", "agent", "repo"}, rec.ran)
	assert.Equal(t, pipeline.ExitOK, report.ExitCode)
	assert.NotEmpty(t, report.RunID)

	want := map[string]pipeline.Status{
		"git":    pipeline.StatusSatisfied,
		"config": pipeline.StatusApplied,
		"agent":  pipeline.StatusWarning,
		"repo":   pipeline.StatusApplied,
	}
	for name, status := range want {
		sr, ok := report.Stage(name)
		require.True(t, ok, name)
		assert.Equal(t, status, sr.Status, name)
	}
	agent, _ := report.Stage("agent")
	assert.Equal(t, string(errors.ErrMissingCapability), agent.Code)
	assert.Equal(t, []string{"agent: no ssh-agent"}, rep.Messages(testutil.LevelWarn))
}

func TestExecute_FatalStopsRun(t *testing.T) {
	rec := &recorder{}
	rep := &testutil.CaptureReporter{}
	stages := []pipeline.Stage{
		{Name: "package-manager", Action: rec.action("package-manager", errors.New(errors.ErrNoRemediation, "no installer"))},
		{Name: "nix", Action: rec.action("nix", nil)},
		{Name: "session", Optional: true, Action: rec.action("session", nil)},
	}

	report, _ := pipeline.New(pipeline.Options{Reporter: rep}).Execute(context.Background(), stages, hostenv.FromMap(nil))

	assert.Equal(t, pipeline.ExitFatal, report.ExitCode)
	assert.Equal(t, []string{"package-manager"}, rec.ran)
	failed, ok := report.Failed()
	require.True(t, ok)
	assert.Equal(t, "package-manager", failed.Name)
	assert.Equal(t, 2, report.Counts()[pipeline.StatusNotRun])
	assert.Equal(t, []string{"package-manager: no installer"}, rep.Messages(testutil.LevelFatal))
}

func TestExecute_PostconditionFailure(t *testing.T) {
	rec := &recorder{}
	stages := []pipeline.Stage{{
		Name:          "nix",
		Precondition:  probe.Command("nix"),
		Action:        rec.action("nix", nil),
		Postcondition: probe.Command("nix"),
	}}

	report, _ := pipeline.New(pipeline.Options{Reporter: &testutil.CaptureReporter{}}).
		Execute(context.Background(), stages, testutil.EnvWithPath(t.TempDir()))

	sr, _ := report.Stage("nix")
	assert.Equal(t, pipeline.StatusFailed, sr.Status)
	assert.Equal(t, string(errors.ErrRemediationIneffective), sr.Code)
}

func TestExecute_EnvFlowsBetweenStages(t *testing.T) {
	dir := testutil.BinDir(t, "git")
	var seen string
	stages := []pipeline.Stage{
		{Name: "supply", Action: func(ctx context.Context, run *pipeline.Run) error {
			run.Env = run.Env.PrependPath(dir)
			return nil
		}},
		{Name: "use", Precondition: probe.Command("git"), Action: func(ctx context.Context, run *pipeline.Run) error {
			seen = "ran"
			return nil
		}},
	}

	report, env := pipeline.New(pipeline.Options{Reporter: &testutil.CaptureReporter{}}).
		Execute(context.Background(), stages, testutil.EnvWithPath(t.TempDir()))

	assert.Empty(t, seen)
	sr, _ := report.Stage("use")
	assert.Equal(t, pipeline.StatusSatisfied, sr.Status)
	assert.Equal(t, []string{dir}, env.PathList())
}

func TestExecute_WarningsFromAction(t *testing.T) {
	stages := []pipeline.Stage{{Name: "repository", Action: func(ctx context.Context, run *pipeline.Run) error {
		run.Warn(errors.New(errors.ErrSyncConflict, "local branch has diverged"))
		run.Detail("left as is")
		return nil
	}}}
	rep := &testutil.CaptureReporter{}

	report, _ := pipeline.New(pipeline.Options{Reporter: rep}).Execute(context.Background(), stages, hostenv.FromMap(nil))

	sr, _ := report.Stage("repository")
	assert.Equal(t, pipeline.StatusWarning, sr.Status)
	assert.Equal(t, "left as is", sr.Detail)
	assert.Len(t, sr.Warnings, 1)
	assert.Equal(t, pipeline.ExitOK, report.ExitCode)
	assert.Len(t, rep.Messages(testutil.LevelWarn), 1)
}

func TestExecute_DryRun(t *testing.T) {
	rec := &recorder{}
	stages := []pipeline.Stage{
		{Name: "git", Precondition: probe.Command("git"), Action: rec.action("git", nil), Description: "supply git"},
		{Name: "switch", Optional: true, Action: rec.action("switch", nil), Description: "apply the flake"},
	}
	rep := &testutil.CaptureReporter{}

	report, _ := pipeline.New(pipeline.Options{Reporter: rep, DryRun: true}).
		Execute(context.Background(), stages, testutil.EnvWithPath(t.TempDir()))

	assert.Empty(t, rec.ran)
	assert.True(t, report.DryRun)
	sr, _ := report.Stage("switch")
	assert.Equal(t, pipeline.StatusSkipped, sr.Status)
	assert.Equal(t, "would apply the flake", sr.Detail)
	assert.Contains(t, rep.Messages(testutil.LevelInfo), "git: would supply git")
}

func TestSkipAndValidate(t *testing.T) {
	rec := &recorder{}
	stages := []pipeline.Stage{
		{Name: "repository", Action: rec.action("repository", nil)},
		{Name: "session", Optional: true, Action: rec.action("session", nil)},
	}

	d := pipeline.New(pipeline.Options{Reporter: &testutil.CaptureReporter{}, Skip: []string{"session"}})
	require.NoError(t, d.Validate(stages))
	report, _ := d.Execute(context.Background(), stages, hostenv.FromMap(nil))
	assert.Equal(t, []string{"repository"}, rec.ran)
	sr, _ := report.Stage("session")
	assert.Equal(t, pipeline.StatusSkipped, sr.Status)

	tests := []struct {
		name   string
		skip   []string
		stages []pipeline.Stage
	}{
		{"required", []string{"repository"}, stages},
		{"unknown", []string{"nope"}, stages},
		{"duplicate", nil, append(stages, stages[0])},
		{"no action", nil, []pipeline.Stage{{Name: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pipeline.New(pipeline.Options{Skip: tt.skip}).Validate(tt.stages)
			assert.Error(t, err)
		})
	}
}

func TestExecute_StageLoggerCarriesRunAndStage(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	stages := []pipeline.Stage{{
		Name: "nix-config",
		Action: func(ctx context.Context, run *pipeline.Run) error {
			logger := logging.FromContext(ctx, "confline")
			logger.Info().Msg("appending line")
			return nil
		},
	}}

	d := pipeline.New(pipeline.Options{Reporter: &testutil.CaptureReporter{}, Logger: zerolog.New(&buf)})
	report, _ := d.Execute(context.Background(), stages, hostenv.FromMap(nil))

	out := buf.String()
	assert.Contains(t, out, `"run_id":"`+report.RunID+`"`)
	assert.Contains(t, out, `"stage":"nix-config"`)
	assert.Contains(t, out, `"component":"confline"`)
	assert.Contains(t, out, `"status":"applied"`)
}

func TestExecute_FailureLogCarriesErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	stages := []pipeline.Stage{{
		Name: "repository",
		Action: func(context.Context, *pipeline.Run) error {
			return errors.New(errors.ErrCloneFailed, "cannot clone").WithDetail("transport", "https")
		},
	}}

	d := pipeline.New(pipeline.Options{Reporter: &testutil.CaptureReporter{}, Logger: zerolog.New(&buf)})
	report, _ := d.Execute(context.Background(), stages, hostenv.FromMap(nil))

	assert.Equal(t, pipeline.ExitFatal, report.ExitCode)
	assert.Contains(t, buf.String(), `"transport":"https"`)
}
