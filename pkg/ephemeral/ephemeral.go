// Package ephemeral supplies a tool from a throwaway Nix shell.
//
// When a tool is missing and nothing installs it permanently, Supply builds a
// disposable environment containing only that package (nix shell), asks it
// for its PATH, resolves the binary there and folds the binary's directory
// into the run's environment. The store path stays valid for the rest of the
// run; nothing is added to a profile.
package ephemeral

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/runner"
)

// ToolSpec names a package and the binary it provides.
type ToolSpec struct {
	// Installable is a flake installable such as "nixpkgs#git".
	Installable string
	// Binary is the executable to resolve inside the shell.
	Binary string
}

// Supplier runs nix shell through a Runner.
type Supplier struct {
	Runner runner.Runner
	// NixArgs are inserted before the nix subcommand, for example
	// --extra-experimental-features.
	NixArgs []string
	Timeout time.Duration
}

// Supplied is a resolved tool.
type Supplied struct {
	Path string
	Dir  string
}

// Command returns the nix invocation used to construct the shell.
func (s Supplier) Command(spec ToolSpec) runner.Command {
	args := append([]string{}, s.NixArgs...)
	args = append(args, "shell", spec.Installable, "--command", "printenv", hostenv.EnvPath)
	return runner.Command{Name: "nix", Args: args, Timeout: s.Timeout}
}

// Supply constructs the shell and returns the tool together with env
// extended so that spec.Binary resolves. On error env is returned unchanged.
func (s Supplier) Supply(ctx context.Context, env hostenv.Env, spec ToolSpec) (Supplied, hostenv.Env, error) {
	logger := logging.FromContext(ctx, "ephemeral").With().Str("installable", spec.Installable).Logger()

	cmd := s.Command(spec)
	cmd.Env = env
	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		return Supplied{}, env, errors.Wrapf(err, errors.ErrMissingCapability,
			"cannot build a shell with %s", spec.Installable).
			WithDetail("installable", spec.Installable)
	}

	shellPath := strings.TrimSpace(lastLine(res.Stdout))
	inner := hostenv.FromMap(map[string]string{hostenv.EnvPath: shellPath})
	path, err := inner.LookPath(spec.Binary)
	if err != nil {
		return Supplied{}, env, errors.Wrapf(err, errors.ErrMissingCapability,
			"%s not found inside the %s shell", spec.Binary, spec.Installable).
			WithDetail("installable", spec.Installable).
			WithDetail("shell_path", shellPath)
	}

	dir := filepath.Dir(path)
	logger.Info().Str("binary", path).Msg("Supplied tool from ephemeral shell")
	return Supplied{Path: path, Dir: dir}, env.PrependPath(dir), nil
}

// nix may print build progress on stdout before the command's own output.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
