package reposync

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/rs/zerolog"
)

// State of the local checkout.
type State string

const (
	StateAbsent  State = "absent"
	StatePresent State = "present"
)

// Transport names.
const (
	TransportSSH   = "ssh"
	TransportHTTPS = "https"
)

// Action taken by Sync.
type Action string

const (
	ActionCloned      Action = "cloned"
	ActionFastForward Action = "fast-forwarded"
	ActionUpToDate    Action = "up-to-date"
	ActionLeftAsIs    Action = "left-as-is"
)

// Repo is the local path and its two remotes.
type Repo struct {
	Path     string
	SSHURL   string
	HTTPSURL string
	// Branch to check out on clone. Empty uses the remote's default.
	Branch string
}

// Result reports what happened.
type Result struct {
	State     State
	Action    Action
	Transport string
	Head      string
	// Warning is set when an update degraded and the checkout was left as is.
	Warning error
	// Notice is set when the clone fell back to HTTPS.
	Notice error
}

// Stale reports whether the checkout may be behind its upstream.
func (r Result) Stale() bool {
	return r.Warning != nil
}

// Syncer runs git through a Runner.
type Syncer struct {
	Runner runner.Runner
	// NetworkTimeout bounds clone and fetch.
	NetworkTimeout time.Duration
	// ProbeTimeout bounds the ls-remote reachability probe.
	ProbeTimeout time.Duration
}

// Inspect returns the state of repo.Path without touching the network.
func Inspect(path string) (State, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return StatePresent, nil
	}
	entries, err := os.ReadDir(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return StateAbsent, nil
	}
	if err != nil {
		return StateAbsent, errors.Wrapf(err, errors.ErrFileAccess, "cannot inspect %s", path)
	}
	if len(entries) == 0 {
		return StateAbsent, nil
	}
	return StateAbsent, errors.Newf(errors.ErrCloneFailed, "%s exists and is not a git repository", path).
		WithDetail("path", path)
}

// Sync clones or updates repo. A returned error is fatal; recoverable problems
// are reported through Result.Warning.
func (s Syncer) Sync(ctx context.Context, env hostenv.Env, repo Repo) (Result, error) {
	logger := logging.FromContext(ctx, "reposync").With().Str("path", repo.Path).Logger()
	env = gitEnv(env)

	state, err := Inspect(repo.Path)
	if err != nil {
		return Result{State: state}, err
	}
	if state == StateAbsent {
		return s.clone(ctx, logger, env, repo)
	}
	return s.update(ctx, logger, env, repo), nil
}

// gitEnv keeps git from prompting: ssh runs in batch mode and HTTPS never
// asks for credentials on a terminal. Repository overrides inherited from a
// calling git (hooks, aliases) are dropped so -C and clone paths win.
func gitEnv(env hostenv.Env) hostenv.Env {
	for _, key := range []string{"GIT_DIR", "GIT_WORK_TREE", "GIT_INDEX_FILE"} {
		env = env.Without(key)
	}
	if !env.IsSet("GIT_SSH_COMMAND") {
		env = env.With("GIT_SSH_COMMAND", "ssh -o BatchMode=yes -o ConnectTimeout=10")
	}
	return env.With("GIT_TERMINAL_PROMPT", "0")
}

func (s Syncer) git(ctx context.Context, env hostenv.Env, timeout time.Duration, args ...string) (runner.Result, error) {
	return s.Runner.Run(ctx, runner.Command{Name: "git", Args: args, Env: env, Timeout: timeout})
}

// Reachable probes url with a cheap remote listing.
func (s Syncer) Reachable(ctx context.Context, env hostenv.Env, url string) bool {
	_, err := s.git(ctx, gitEnv(env), s.ProbeTimeout, "ls-remote", "--heads", url)
	return err == nil
}

// clone makes exactly one clone attempt: over SSH when the SSH remote
// answers, over HTTPS otherwise.
func (s Syncer) clone(ctx context.Context, logger zerolog.Logger, env hostenv.Env, repo Repo) (Result, error) {
	res := Result{State: StateAbsent}

	transport, url := "", ""
	switch {
	case repo.SSHURL != "" && s.Reachable(ctx, env, repo.SSHURL):
		transport, url = TransportSSH, repo.SSHURL
	case repo.HTTPSURL != "":
		if repo.SSHURL != "" {
			logger.Info().Str("url", repo.SSHURL).Msg("SSH remote unreachable, using HTTPS")
			res.Notice = errors.Newf(errors.ErrTransportUnreachable, "%s is unreachable", repo.SSHURL)
		}
		transport, url = TransportHTTPS, repo.HTTPSURL
	default:
		if repo.SSHURL == "" {
			return res, errors.Newf(errors.ErrCloneFailed, "cannot clone into %s: no usable remote configured", repo.Path)
		}
		return res, errors.Newf(errors.ErrCloneFailed,
			"cannot clone into %s: %s is unreachable and no HTTPS remote is configured", repo.Path, repo.SSHURL).
			WithDetail("url", repo.SSHURL)
	}

	args := []string{"clone"}
	if repo.Branch != "" {
		args = append(args, "--branch", repo.Branch)
	}
	args = append(args, url, repo.Path)

	if _, err := s.git(ctx, env, s.NetworkTimeout, args...); err != nil {
		logger.Warn().Err(err).Str("transport", transport).Msg("Clone failed")
		return res, errors.Wrapf(err, errors.ErrCloneFailed, "cannot clone into %s", repo.Path).
			WithDetail("transport", transport).
			WithDetail("url", url)
	}

	res.State = StatePresent
	res.Action = ActionCloned
	res.Transport = transport
	if transport == TransportHTTPS && repo.SSHURL != "" {
		// later pushes go over SSH once keys are set up
		if _, err := s.git(ctx, env, 0, "-C", repo.Path, "remote", "set-url", "--push", "origin", repo.SSHURL); err != nil {
			logger.Warn().Err(err).Msg("Cannot set SSH push URL")
		}
	}
	res.Head = s.head(ctx, env, repo.Path, "HEAD")
	logger.Info().Str("transport", transport).Str("head", res.Head).Msg("Repository cloned")
	return res, nil
}

func (s Syncer) update(ctx context.Context, logger zerolog.Logger, env hostenv.Env, repo Repo) Result {
	res := s.fastForward(ctx, env, repo.Path)
	if res.Warning != nil {
		logger.Warn().Err(res.Warning).Msg("Repository left as is")
	} else if res.Action == ActionFastForward {
		logger.Info().Msg("Repository fast-forwarded")
	}
	res.Head = s.head(ctx, env, repo.Path, "HEAD")
	return res
}

func (s Syncer) fastForward(ctx context.Context, env hostenv.Env, dir string) Result {
	res := Result{State: StatePresent, Action: ActionLeftAsIs}
	warn := func(err *errors.BootError) Result {
		res.Warning = err.WithDetail("path", dir)
		return res
	}

	if _, err := s.git(ctx, env, s.NetworkTimeout, "-C", dir, "fetch", "--prune", "origin"); err != nil {
		return warn(errors.Wrap(err, errors.ErrTransportUnreachable, "fetch failed"))
	}

	upstream := s.head(ctx, env, dir, "@{u}")
	if upstream == "" {
		return warn(errors.New(errors.ErrSyncConflict, "current branch has no upstream"))
	}
	if s.head(ctx, env, dir, "HEAD") == upstream {
		res.Action = ActionUpToDate
		return res
	}

	if _, err := s.git(ctx, env, 0, "-C", dir, "merge-base", "--is-ancestor", "HEAD", "@{u}"); err != nil {
		if _, aheadErr := s.git(ctx, env, 0, "-C", dir, "merge-base", "--is-ancestor", "@{u}", "HEAD"); aheadErr == nil {
			res.Action = ActionUpToDate
			return res
		}
		return warn(errors.New(errors.ErrSyncConflict, "local branch has diverged from upstream"))
	}

	if _, err := s.git(ctx, env, 0, "-C", dir, "rebase", "--autostash", "@{u}"); err != nil {
		_, _ = s.git(ctx, env, 0, "-C", dir, "rebase", "--abort")
		return warn(errors.Wrap(err, errors.ErrSyncConflict, "rebase onto upstream failed"))
	}

	res.Action = ActionFastForward
	return res
}

func (s Syncer) head(ctx context.Context, env hostenv.Env, dir, rev string) string {
	out, err := s.git(ctx, env, 0, "-C", dir, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}
