package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/confline"
	"github.com/arthur-debert/dotboot/pkg/ephemeral"
	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/params"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/remediation"
	"github.com/arthur-debert/dotboot/pkg/reposync"
	"github.com/arthur-debert/dotboot/pkg/session"
	"github.com/arthur-debert/dotboot/pkg/sshagent"
	"github.com/arthur-debert/dotboot/pkg/switcher"
)

func (b *Bootstrap) managersProbe() probe.Probe {
	var managers probe.AnyOf
	for _, m := range b.cfg.PackageManager.Managers {
		managers = append(managers, probe.Command(m))
	}
	return managers
}

func (b *Bootstrap) packageManagerStage() pipeline.Stage {
	target := b.managersProbe()
	return pipeline.Stage{
		Name:         StagePackageManager,
		Description:  "install Homebrew (macOS only)",
		Precondition: target,
		Action: func(ctx context.Context, run *pipeline.Run) error {
			sel := remediation.Selector{
				Capability: "package manager",
				Target:     target,
				Candidates: []remediation.Candidate{b.homebrewCandidate()},
			}
			out, env, err := sel.Remediate(ctx, run.Env)
			if errors.IsErrorCode(err, errors.ErrNoRemediation) {
				return errors.Wrapf(err, errors.ErrMissingCapability,
					"no package manager detected (looked for %s)", strings.Join(b.cfg.PackageManager.Managers, ", "))
			}
			if err != nil {
				return err
			}
			run.Env = env
			name, _ := probe.FirstCommand(env, b.cfg.PackageManager.Managers...)
			run.Detail("%s installed with %s", name, out.Used)
			return nil
		},
		Postcondition: target,
	}
}

func (b *Bootstrap) nixStage() pipeline.Stage {
	target := probe.Command("nix")
	return pipeline.Stage{
		Name:         StageNix,
		Description:  "install Nix and add its profile to PATH",
		Precondition: target,
		Action: func(ctx context.Context, run *pipeline.Run) error {
			// installed by an earlier run but not on PATH in this shell
			if env := fold(run.Env, "nix", b.cfg.Nix.ProfileBinDirs); target.Satisfied(env) {
				run.Env = env
				run.Detail("found in the Nix profile")
				return nil
			}

			ok, err := b.confirm.Confirm("Nix is not installed. Install it now?", true)
			if err != nil {
				return errors.Wrap(err, errors.ErrMissingCapability, "cannot confirm the Nix installation")
			}
			if !ok {
				return errors.New(errors.ErrMissingCapability, "Nix is required and its installation was declined")
			}

			sel := remediation.Selector{
				Capability: "nix",
				Target:     target,
				Candidates: b.nixCandidates(),
			}
			out, env, err := sel.Remediate(ctx, run.Env)
			if err != nil {
				return err
			}
			run.Env = env
			if len(out.Attempted) > 1 {
				run.Info("installed with %s after %s failed", out.Used, strings.Join(out.Attempted[:len(out.Attempted)-1], ", "))
			}
			run.Detail("installed with %s", out.Used)
			return nil
		},
		Postcondition: target,
	}
}

func (b *Bootstrap) nixConfigStage() pipeline.Stage {
	lines := b.cfg.Nix.ConfLines
	return pipeline.Stage{
		Name:        StageNixConfig,
		Description: fmt.Sprintf("add %d line(s) to nix.conf", len(lines)),
		Precondition: probe.Func{
			Desc: "nix.conf has the required lines",
			Fn: func(env hostenv.Env) bool {
				data, err := b.fs.ReadFile(paths.New(env).NixConf())
				if err != nil {
					return len(lines) == 0
				}
				return len(confline.Missing(string(data), lines)) == 0
			},
		},
		Action: func(_ context.Context, run *pipeline.Run) error {
			path := paths.New(run.Env).NixConf()
			changed, err := confline.EnsureLines(b.fs, path, lines)
			if err != nil {
				return err
			}
			if changed {
				run.Detail("updated %s", path)
			} else {
				run.Detail("%s already configured", path)
			}
			return nil
		},
	}
}

func (b *Bootstrap) gitStage() pipeline.Stage {
	target := probe.Command("git")
	spec := ephemeral.ToolSpec{Installable: b.cfg.Git.Installable, Binary: "git"}
	return pipeline.Stage{
		Name:         StageGit,
		Description:  fmt.Sprintf("supply git from `nix shell %s`", spec.Installable),
		Precondition: target,
		Action: func(ctx context.Context, run *pipeline.Run) error {
			supplier := ephemeral.Supplier{
				Runner:  b.runner,
				NixArgs: b.cfg.Nix.ExtraArgs,
				Timeout: b.cfg.Timeouts.Network.Std(),
			}
			got, env, err := supplier.Supply(ctx, run.Env, spec)
			if err != nil {
				return err
			}
			run.Env = env
			run.Detail("using %s", got.Path)
			return nil
		},
		Postcondition: target,
	}
}

func (b *Bootstrap) sshAgentStage() pipeline.Stage {
	return pipeline.Stage{
		Name:        StageSSHAgent,
		Optional:    true,
		Description: "start or reuse ssh-agent and load the default keys",
		Action: func(ctx context.Context, run *pipeline.Run) error {
			loader := sshagent.Loader{
				Runner:  b.runner,
				Secrets: b.secrets,
				Keys:    b.cfg.SSH.Keys,
			}
			report, env, err := loader.Prepare(ctx, run.Env)
			if err != nil {
				return err
			}
			run.Env = env

			how := "reused"
			if report.Spawned {
				how = "started"
			}
			if report.Found() == 0 {
				run.Detail("agent %s, no keys", how)
				run.Warn(errors.New(errors.ErrPartialCredentialLoad,
					"no SSH keys found; the repository will be cloned over HTTPS"))
				return nil
			}
			for _, k := range report.Failed() {
				run.Info("%s not loaded: %v", k.Path, k.Err)
			}
			run.Detail("agent %s, %d of %d keys loaded", how, report.Loaded(), report.Found())
			return nil
		},
	}
}

func (b *Bootstrap) repositoryStage() pipeline.Stage {
	return pipeline.Stage{
		Name:        StageRepository,
		Description: "clone the configuration repository, or fast-forward it",
		Action: func(ctx context.Context, run *pipeline.Run) error {
			sshURL, httpsURL := b.cfg.Repository.ResolveRemotes()
			repo := reposync.Repo{
				Path:     b.Checkout(run.Env),
				SSHURL:   sshURL,
				HTTPSURL: httpsURL,
				Branch:   b.cfg.Repository.Branch,
			}
			syncer := reposync.Syncer{
				Runner:         b.runner,
				NetworkTimeout: b.cfg.Timeouts.Network.Std(),
				ProbeTimeout:   b.cfg.Timeouts.Probe.Std(),
			}
			res, err := syncer.Sync(ctx, run.Env, repo)
			if err != nil {
				return err
			}
			if res.Notice != nil {
				run.Info("%v, cloned over %s", res.Notice, res.Transport)
			}
			if res.Stale() {
				b.stale = true
				run.Warn(res.Warning)
			}

			switch res.Action {
			case reposync.ActionCloned:
				run.Detail("cloned over %s at %s", res.Transport, short(res.Head))
			default:
				run.Detail("%s at %s", res.Action, short(res.Head))
			}
			return nil
		},
	}
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	if rev == "" {
		return "unknown revision"
	}
	return rev
}

func (b *Bootstrap) userParamsStage() pipeline.Stage {
	return pipeline.Stage{
		Name:        StageUserParams,
		Description: fmt.Sprintf("write %s with the user name and home directory", b.cfg.Params.File),
		Action: func(ctx context.Context, run *pipeline.Run) error {
			p, err := params.Capture(b.prompter, params.Defaults(run.Env))
			if err != nil {
				return err
			}
			checkout := b.Checkout(run.Env)
			path := filepath.Join(checkout, b.cfg.Params.File)
			if err := params.Write(b.fs, path, p); err != nil {
				return err
			}
			if err := params.Track(ctx, b.runner, run.Env, checkout, path); err != nil {
				run.Warn(err)
			}
			run.Detail("%s for %s", path, p.Username)
			return nil
		},
	}
}

func (b *Bootstrap) switchStage() pipeline.Stage {
	return pipeline.Stage{
		Name:        StageSwitch,
		Optional:    true,
		Description: "apply the flake with home-manager",
		Action: func(ctx context.Context, run *pipeline.Run) error {
			if b.stale && !b.cfg.Switch.ApplyWhenStale {
				return errors.New(errors.ErrOptionalUnavailable,
					"repository is not up to date and switch.apply_when_stale is off")
			}
			s := switcher.Switcher{
				Runner:          b.runner,
				Installable:     b.cfg.Switch.FallbackInstallable,
				NixArgs:         b.cfg.Nix.ExtraArgs,
				BackupExtension: b.cfg.Switch.BackupExtension,
				ProbeTimeout:    b.cfg.Timeouts.Probe.Std(),
			}
			ref := b.cfg.Repository.FlakeRef(b.Checkout(run.Env))
			res, err := s.Apply(ctx, run.Env, ref)
			if err != nil {
				return err
			}
			// a first switch puts home-manager into the user profile
			run.Env = fold(run.Env, "home-manager", b.cfg.Nix.ProfileBinDirs)
			if b.stale {
				run.Info("applied a checkout that may be behind its upstream")
			}
			run.Detail("applied %s with %s", ref, res.Strategy)
			return nil
		},
	}
}

func (b *Bootstrap) sessionStage() pipeline.Stage {
	return pipeline.Stage{
		Name:         StageSession,
		Optional:     true,
		Description:  fmt.Sprintf("attach to tmux session %q", b.cfg.Session.Name),
		Precondition: probe.EnvVar(session.EnvTmux),
		Action: func(ctx context.Context, run *pipeline.Run) error {
			candidates, err := remediation.PackageCandidates(b.runner, session.Binary, b.cfg.Session.Managers)
			if err != nil {
				return err
			}
			l := session.Launcher{
				Name:    b.cfg.Session.Name,
				Confirm: b.confirm,
				Install: remediation.Selector{
					Capability: session.Binary,
					Target:     probe.Command(session.Binary),
					Candidates: candidates,
				},
				Terminal: b.terminal,
			}
			h, env, err := l.Prepare(ctx, run.Env)
			if err != nil {
				return err
			}
			run.Env = env
			b.handoff = &h
			run.Detail("handing off to tmux session %q", b.cfg.Session.Name)
			return nil
		},
	}
}
