// Package remediation picks and runs an installer for a missing capability.
//
// Candidates are tried in declared priority order. A candidate is eligible
// when its detector is satisfied (its package manager or download tool is
// present). The first eligible candidate's install action runs; if it exits
// non-zero the next eligible candidate is tried. Once an install action
// succeeds the target probe is re-evaluated and the outcome is final: a target
// that is still missing is RemediationIneffective, and no further candidates
// run.
package remediation

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/runner"
)

// Action performs an installation. It returns the environment later stages
// should see, which lets an installer fold new directories into PATH.
type Action func(ctx context.Context, env hostenv.Env) (hostenv.Env, error)

// Candidate is one (detector, install-action) entry.
type Candidate struct {
	Name    string
	Detect  probe.Probe
	Install Action
}

// Selector installs Target using the first working candidate.
type Selector struct {
	Capability string
	Target     probe.Probe
	Candidates []Candidate
}

// Outcome describes what the selector did.
type Outcome struct {
	// Used is the candidate whose install satisfied the target.
	Used string
	// Attempted lists candidates whose install action ran, in order.
	Attempted []string
	// AlreadyPresent is set when the target was satisfied before any install.
	AlreadyPresent bool
}

// Eligible returns the names of candidates whose detector is satisfied.
func (s Selector) Eligible(env hostenv.Env) []string {
	var out []string
	for _, c := range s.Candidates {
		if c.Detect == nil || c.Detect.Satisfied(env) {
			out = append(out, c.Name)
		}
	}
	return out
}

// Remediate brings Target into existence. The returned Env is env with any
// changes made by the successful install action.
func (s Selector) Remediate(ctx context.Context, env hostenv.Env) (Outcome, hostenv.Env, error) {
	logger := logging.FromContext(ctx, "remediation").With().Str("capability", s.Capability).Logger()
	var out Outcome

	if s.Target.Satisfied(env) {
		out.AlreadyPresent = true
		return out, env, nil
	}

	eligible := s.Eligible(env)
	if len(eligible) == 0 {
		return out, env, errors.Newf(errors.ErrNoRemediation,
			"no installer available for %s", s.Capability).
			WithDetail("capability", s.Capability).
			WithDetail("candidates", s.names())
	}
	logger.Debug().Strs("eligible", eligible).Msg("Installers detected")

	var lastErr error
	for _, c := range s.Candidates {
		if c.Detect != nil && !c.Detect.Satisfied(env) {
			logger.Debug().Str("candidate", c.Name).Msg("Candidate not detected")
			continue
		}

		out.Attempted = append(out.Attempted, c.Name)
		logger.Info().Str("candidate", c.Name).Msg("Running install action")

		next, err := c.Install(ctx, env)
		if err != nil {
			logger.Warn().Err(err).Str("candidate", c.Name).Msg("Install action failed")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if !s.Target.Satisfied(next) {
			return out, next, errors.Newf(errors.ErrRemediationIneffective,
				"%s still missing after installing with %s", s.Capability, c.Name).
				WithDetail("capability", s.Capability).
				WithDetail("candidate", c.Name).
				WithDetail("probe", s.Target.String())
		}

		out.Used = c.Name
		logger.Info().Str("candidate", c.Name).Msg("Capability installed")
		return out, next, nil
	}

	return out, env, errors.Wrapf(lastErr, errors.ErrMissingCapability,
		"every installer for %s failed", s.Capability).
		WithDetail("capability", s.Capability).
		WithDetail("attempted", out.Attempted)
}

func (s Selector) names() []string {
	names := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		names[i] = c.Name
	}
	return names
}

// RunCommand returns an Action that runs c with the current environment.
func RunCommand(r runner.Runner, c runner.Command) Action {
	return func(ctx context.Context, env hostenv.Env) (hostenv.Env, error) {
		c.Env = env
		if _, err := r.Run(ctx, c); err != nil {
			return env, err
		}
		return env, nil
	}
}

// Then runs a, then b with the environment a produced.
func Then(a, b Action) Action {
	return func(ctx context.Context, env hostenv.Env) (hostenv.Env, error) {
		next, err := a(ctx, env)
		if err != nil {
			return next, err
		}
		return b(ctx, next)
	}
}

// PackageInstall returns the argv installing pkg with the given package manager.
// Managers other than brew are run through sudo.
func PackageInstall(manager, pkg string) (runner.Command, error) {
	switch manager {
	case "brew":
		return runner.Command{Name: "brew", Args: []string{"install", pkg}}, nil
	case "apt-get":
		return runner.Command{Name: "sudo", Args: []string{"apt-get", "install", "-y", pkg}}, nil
	case "dnf":
		return runner.Command{Name: "sudo", Args: []string{"dnf", "install", "-y", pkg}}, nil
	case "pacman":
		return runner.Command{Name: "sudo", Args: []string{"pacman", "-S", "--noconfirm", pkg}}, nil
	case "nix":
		return runner.Command{Name: "nix", Args: []string{"profile", "install", fmt.Sprintf("nixpkgs#%s", pkg)}}, nil
	}
	return runner.Command{}, errors.Newf(errors.ErrInvalidInput, "unknown package manager %q", manager)
}

// PackageCandidates builds one candidate per manager, each detected by the
// manager's own command.
func PackageCandidates(r runner.Runner, pkg string, managers []string) ([]Candidate, error) {
	var out []Candidate
	for _, m := range managers {
		c, err := PackageInstall(m, pkg)
		if err != nil {
			return nil, err
		}
		c.Interactive = true
		out = append(out, Candidate{
			Name:    m,
			Detect:  probe.Command(m),
			Install: RunCommand(r, c),
		})
	}
	return out, nil
}
