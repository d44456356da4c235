package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/dotboot/pkg/bootstrap"
	"github.com/arthur-debert/dotboot/pkg/filesystem"
	"github.com/arthur-debert/dotboot/pkg/history"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type runOptions struct {
	dryRun bool
	yes    bool
	skip   []string
	output string
}

func newRunCmd(g *globals) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:     "run",
		Short:   MsgRunShort,
		Long:    MsgRunLong,
		Example: MsgRunExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, g, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, MsgFlagDryRun)
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, MsgFlagYes)
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, MsgFlagSkip)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "auto", MsgFlagOutput)
	return cmd
}

func runBootstrap(cmd *cobra.Command, g *globals, opts *runOptions) error {
	format, err := ui.ParseFormat(opts.output)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: err}
	}

	env := hostenv.FromOS()
	loaded, err := g.load(cmd, env)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	// Diagnostics move to stderr when stdout carries the YAML report.
	out := cmd.OutOrStdout()
	diag, diagFile := out, os.Stdout
	if format == ui.FormatYAML {
		diag, diagFile = cmd.ErrOrStderr(), os.Stderr
	}
	diagFormat := ui.FormatAuto.Resolve(diagFile, env)
	if format != ui.FormatYAML {
		diagFormat = format.Resolve(diagFile, env)
	}
	reporter := ui.NewReporter(diag, diagFormat)

	automatic := opts.yes || env.IsSet(cfg.Interaction.CIEnvVar)
	interaction := ui.NewInteraction(os.Stdin, automatic, reporter)

	boot := bootstrap.New(bootstrap.Options{
		Config:   cfg,
		Runner:   runner.NewExecRunner(),
		FS:       filesystem.NewOS(),
		Confirm:  interaction.Confirm,
		Prompter: interaction.Prompter,
		Secrets:  interaction.Secrets,
		Terminal: interaction.Interactive && ui.IsTerminal(os.Stdout),
	})

	driver := pipeline.New(pipeline.Options{
		Reporter: reporter,
		DryRun:   opts.dryRun,
		Skip:     opts.skip,
	})
	stages := boot.Stages()
	if err := driver.Validate(stages); err != nil {
		return &ExitError{Code: ExitConfig, Err: err}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, final := driver.Execute(ctx, stages, env)
	for key, value := range final.Diff(env) {
		log.Debug().Str("key", key).Str("value", value).Msg("Environment changed during run")
	}

	if format == ui.FormatYAML {
		if err := ui.WriteYAML(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, ui.RenderSummary(report, diagFormat.Styled()))
	}

	if !report.DryRun {
		if err := recordRun(ctx, env, report); err != nil {
			reporter.Warn(MsgHistoryFailed, err)
		}
	}

	if report.ExitCode != ExitOK {
		return &ExitError{Code: report.ExitCode}
	}
	if boot.Stale() {
		reporter.Warn(MsgCheckoutStale)
	}

	if handoff, ok := boot.Handoff(); ok {
		stop()
		reporter.Info(MsgHandoff, cfg.Session.Name)
		if err := handoff.Exec(runner.UnixExecer{}); err != nil {
			reporter.Warn(MsgHandoffFailed, err)
		}
	}
	return nil
}

// recordRun appends report to the run ledger.
func recordRun(ctx context.Context, env hostenv.Env, report pipeline.Report) error {
	store, err := history.Open(ctx, paths.New(env).HistoryDB())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close run history")
		}
	}()
	log.Debug().Str("path", store.Path()).Str("run", report.RunID).Msg("Recording run")
	return store.Record(ctx, report)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
