// Package session prepares the final handoff into a tmux session.
//
// Prepare never replaces the process itself. It returns a Handoff, and the
// caller executes it once everything else (the run ledger, the summary) is
// written. "tmux new-session -A" attaches when the session exists and
// creates it otherwise.
package session

import (
	"context"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/remediation"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/types"
)

const (
	Binary  = "tmux"
	EnvTmux = "TMUX"

	DefaultName = "main"
)

// Handoff is a prepared execve(2).
type Handoff struct {
	Path string
	Argv []string
	Env  []string
}

// Exec replaces the current process. It only returns on failure.
func (h Handoff) Exec(e runner.Execer) error {
	if err := e.Exec(h.Path, h.Argv, h.Env); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "cannot exec %s", h.Path)
	}
	return nil
}

// Launcher ensures tmux is present and prepares the handoff.
type Launcher struct {
	Name    string
	Confirm types.ConfirmationSource
	// Install installs tmux when it is missing.
	Install remediation.Selector
	// Terminal reports whether stdin and stdout are a terminal.
	Terminal bool
}

// InSession reports whether the run is already inside tmux.
func InSession(env hostenv.Env) bool {
	return probe.EnvVar(EnvTmux).Satisfied(env)
}

// Argv is the tmux invocation for a session name.
func Argv(name string) []string {
	if name == "" {
		name = DefaultName
	}
	return []string{Binary, "new-session", "-A", "-s", name}
}

// Prepare returns the handoff. Every error is an optional-stage outcome:
// ErrOptionalUnavailable, ErrPromptDeclined or the installer's error.
func (l Launcher) Prepare(ctx context.Context, env hostenv.Env) (Handoff, hostenv.Env, error) {
	logger := logging.FromContext(ctx, "session")

	if InSession(env) {
		return Handoff{}, env, errors.New(errors.ErrOptionalUnavailable, "already inside a tmux session")
	}
	if !l.Terminal {
		return Handoff{}, env, errors.New(errors.ErrOptionalUnavailable, "no interactive terminal to attach")
	}

	if !probe.Command(Binary).Satisfied(env) {
		ok, err := l.Confirm.Confirm("tmux is not installed. Install it now?", true)
		if err != nil {
			return Handoff{}, env, errors.Wrap(err, errors.ErrPromptDeclined, "confirmation failed")
		}
		if !ok {
			return Handoff{}, env, errors.New(errors.ErrPromptDeclined, "tmux installation declined")
		}
		_, next, err := l.Install.Remediate(ctx, env)
		if err != nil {
			return Handoff{}, env, err
		}
		env = next
	}

	path, err := env.LookPath(Binary)
	if err != nil {
		return Handoff{}, env, errors.Wrap(err, errors.ErrRemediationIneffective, "tmux not found after installation")
	}

	h := Handoff{Path: path, Argv: Argv(l.Name), Env: env.Environ()}
	logger.Info().Str("path", path).Strs("argv", h.Argv).Msg("Session handoff prepared")
	return h, env, nil
}
