// Package switcher applies the flake with home-manager.
//
// The installed home-manager is probed with "--version" first. Only when that
// answers is it used for the switch. Otherwise the same switch runs through
// "nix run <installable> --". With neither home-manager nor nix available the
// switch is reported as unavailable.
package switcher

import (
	"context"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/runner"
)

// Strategy names.
const (
	StrategyInstalled = "home-manager"
	StrategyNixRun    = "nix run"
)

// DefaultInstallable is the flake used by the fallback strategy.
const DefaultInstallable = "home-manager/master"

// Switcher runs the switch through a Runner.
type Switcher struct {
	Runner runner.Runner
	// Installable is the home-manager flake for the fallback strategy.
	Installable string
	// NixArgs are placed before "run" in the fallback invocation.
	NixArgs []string
	// BackupExtension is passed as -b so existing files are moved aside.
	BackupExtension string
	ProbeTimeout    time.Duration
}

// Result names the strategy that performed the switch.
type Result struct {
	Strategy string
	Argv     []string
}

// SwitchArgs are the home-manager arguments shared by both strategies.
func (s Switcher) SwitchArgs(flakeRef string) []string {
	args := []string{"switch", "--flake", flakeRef}
	if s.BackupExtension != "" {
		args = append(args, "-b", s.BackupExtension)
	}
	return args
}

// Primary is the invocation through an installed home-manager.
func (s Switcher) Primary(flakeRef string) runner.Command {
	return runner.Command{Name: "home-manager", Args: s.SwitchArgs(flakeRef), Interactive: true}
}

// Fallback is the invocation through nix run.
func (s Switcher) Fallback(flakeRef string) runner.Command {
	installable := s.Installable
	if installable == "" {
		installable = DefaultInstallable
	}
	args := append([]string{}, s.NixArgs...)
	args = append(args, "run", installable, "--")
	args = append(args, s.SwitchArgs(flakeRef)...)
	return runner.Command{Name: "nix", Args: args, Interactive: true}
}

// PrimaryUsable runs the cheap version probe.
func (s Switcher) PrimaryUsable(ctx context.Context, env hostenv.Env) bool {
	if !probe.Command("home-manager").Satisfied(env) {
		return false
	}
	_, err := s.Runner.Run(ctx, runner.Command{
		Name:    "home-manager",
		Args:    []string{"--version"},
		Env:     env,
		Timeout: s.ProbeTimeout,
	})
	return err == nil
}

// Choose picks the strategy without applying anything.
func (s Switcher) Choose(ctx context.Context, env hostenv.Env, flakeRef string) (runner.Command, string, error) {
	if s.PrimaryUsable(ctx, env) {
		return s.Primary(flakeRef), StrategyInstalled, nil
	}
	if probe.Command("nix").Satisfied(env) {
		return s.Fallback(flakeRef), StrategyNixRun, nil
	}
	return runner.Command{}, "", errors.New(errors.ErrOptionalUnavailable,
		"neither home-manager nor nix is available")
}

// Apply switches to flakeRef.
func (s Switcher) Apply(ctx context.Context, env hostenv.Env, flakeRef string) (Result, error) {
	logger := logging.FromContext(ctx, "switcher").With().Str("flake", flakeRef).Logger()

	cmd, strategy, err := s.Choose(ctx, env, flakeRef)
	if err != nil {
		logger.Warn().Err(err).Msg("Switch unavailable")
		return Result{}, err
	}

	cmd.Env = env
	res := Result{Strategy: strategy, Argv: append([]string{cmd.Name}, cmd.Args...)}
	logger.Info().Str("strategy", strategy).Msg("Applying configuration")
	if _, err := s.Runner.Run(ctx, cmd); err != nil {
		return res, errors.Wrapf(err, errors.ErrCommandFailed, "%s switch failed", strategy).
			WithDetail("strategy", strategy)
	}
	return res, nil
}
