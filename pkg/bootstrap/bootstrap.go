package bootstrap

import (
	"runtime"

	"github.com/arthur-debert/dotboot/pkg/config"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/session"
	"github.com/arthur-debert/dotboot/pkg/types"
)

// Stage names
const (
	StagePackageManager = "package-manager"
	StageNix            = "nix"
	StageNixConfig      = "nix-config"
	StageGit            = "git"
	StageSSHAgent       = "ssh-agent"
	StageRepository     = "repository"
	StageUserParams     = "user-params"
	StageSwitch         = "switch"
	StageSession        = "session"
)

// Options are the collaborators of a bootstrap run.
type Options struct {
	Config *config.Config
	Runner runner.Runner
	FS     types.FS

	Confirm  types.ConfirmationSource
	Prompter types.Prompter
	Secrets  types.SecretPrompter
	// Terminal reports whether the run can hand off to an interactive session.
	Terminal bool

	// GOOS overrides runtime.GOOS, for tests.
	GOOS string
}

// Bootstrap builds stages and carries state between them.
type Bootstrap struct {
	cfg      *config.Config
	runner   runner.Runner
	fs       types.FS
	confirm  types.ConfirmationSource
	prompter types.Prompter
	secrets  types.SecretPrompter
	terminal bool
	goos     string

	stale   bool
	handoff *session.Handoff
}

// New creates a Bootstrap.
func New(opts Options) *Bootstrap {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Bootstrap{
		cfg:      opts.Config,
		runner:   opts.Runner,
		fs:       opts.FS,
		confirm:  opts.Confirm,
		prompter: opts.Prompter,
		secrets:  opts.Secrets,
		terminal: opts.Terminal,
		goos:     goos,
	}
}

// Stages returns the nine stages in order.
func (b *Bootstrap) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		b.packageManagerStage(),
		b.nixStage(),
		b.nixConfigStage(),
		b.gitStage(),
		b.sshAgentStage(),
		b.repositoryStage(),
		b.userParamsStage(),
		b.switchStage(),
		b.sessionStage(),
	}
}

// Handoff returns the prepared session handoff, if the session stage made one.
func (b *Bootstrap) Handoff() (session.Handoff, bool) {
	if b.handoff == nil {
		return session.Handoff{}, false
	}
	return *b.handoff, true
}

// Stale reports whether the repository stage left the checkout behind its
// upstream.
func (b *Bootstrap) Stale() bool {
	return b.stale
}

// Checkout is the local repository path for env.
func (b *Bootstrap) Checkout(env hostenv.Env) string {
	return paths.New(env).Resolve(b.cfg.Repository.Path)
}
