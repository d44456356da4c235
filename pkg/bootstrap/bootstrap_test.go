// TEST TYPE: Unit Test
// DEPENDENCIES: ScriptedRunner, MemoryFS, temporary bin directories

package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/bootstrap"
	"github.com/arthur-debert/dotboot/pkg/config"
	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nixArgs = []string{"nix", "--extra-experimental-features", "nix-command flakes"}

func nixCmd(args ...string) []string {
	return append(append([]string{}, nixArgs...), args...)
}

type fixture struct {
	t        *testing.T
	home     string
	bin      string
	profile  string
	runner   *testutil.ScriptedRunner
	fs       *testutil.MemoryFS
	cfg      *config.Config
	confirm  *testutil.FixedConfirm
	prompter *testutil.StaticPrompter
	reporter *testutil.CaptureReporter
	goos     string
	terminal bool
}

func newFixture(t *testing.T, tools ...string) *fixture {
	t.Helper()
	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Repository.GitHub = "ada/dotfiles"

	home := t.TempDir()
	profile := filepath.Join(home, ".nix-profile", "bin")
	cfg.Nix.ProfileBinDirs = []string{profile}

	return &fixture{
		t:        t,
		home:     home,
		bin:      testutil.BinDir(t, tools...),
		profile:  profile,
		runner:   testutil.NewScriptedRunner(),
		fs:       testutil.NewMemoryFS(),
		cfg:      cfg,
		confirm:  &testutil.FixedConfirm{Answer: true},
		prompter: &testutil.StaticPrompter{},
		reporter: &testutil.CaptureReporter{},
		goos:     "linux",
	}
}

func (f *fixture) env() hostenv.Env {
	return testutil.EnvWithPath(f.home, f.bin).With(hostenv.EnvUser, "ada")
}

func (f *fixture) checkout() string {
	return filepath.Join(f.home, ".dotfiles")
}

func (f *fixture) bootstrap() *bootstrap.Bootstrap {
	return bootstrap.New(bootstrap.Options{
		Config:   f.cfg,
		Runner:   f.runner,
		FS:       f.fs,
		Confirm:  f.confirm,
		Prompter: f.prompter,
		Terminal: f.terminal,
		GOOS:     f.goos,
	})
}

// run executes the named stages, or all of them when names is empty.
func (f *fixture) run(b *bootstrap.Bootstrap, opts pipeline.Options, names ...string) (pipeline.Report, hostenv.Env) {
	f.t.Helper()
	stages := b.Stages()
	if len(names) > 0 {
		var picked []pipeline.Stage
		for _, s := range stages {
			for _, n := range names {
				if s.Name == n {
					picked = append(picked, s)
				}
			}
		}
		stages = picked
	}
	opts.Reporter = f.reporter
	d := pipeline.New(opts)
	require.NoError(f.t, d.Validate(stages))
	return d.Execute(context.Background(), stages, f.env())
}

func status(t *testing.T, report pipeline.Report, name string) pipeline.StageReport {
	t.Helper()
	sr, ok := report.Stage(name)
	require.True(t, ok, "stage %s missing from report", name)
	return sr
}

// scriptGitClone makes "git clone" create the checkout and every other git
// call succeed.
func (f *fixture) scriptGitClone() {
	f.runner.On("git").Succeed("")
	f.runner.On("git", "clone").Do(func(c runner.Command) runner.Result {
		dest := c.Args[len(c.Args)-1]
		require.NoError(f.t, os.MkdirAll(filepath.Join(dest, ".git"), 0755))
		return runner.Result{}
	})
	f.runner.On("git", "-C", f.checkout(), "rev-parse").Succeed("0123456789abcdef0123\n")
}

// scriptNixInstall makes the installer script drop nix into the profile.
func (f *fixture) scriptNixInstall() {
	f.runner.On("curl").Succeed("")
	f.runner.On("sh").Do(func(runner.Command) runner.Result {
		require.NoError(f.t, os.MkdirAll(f.profile, 0755))
		testutil.AddExecutable(f.t, f.profile, "nix")
		return runner.Result{}
	})
}

func TestStages_Order(t *testing.T) {
	f := newFixture(t)

	var names []string
	var optional []string
	for _, s := range f.bootstrap().Stages() {
		names = append(names, s.Name)
		if s.Optional {
			optional = append(optional, s.Name)
		}
	}

	assert.Equal(t, []string{
		"package-manager", "nix", "nix-config", "git", "ssh-agent",
		"repository", "user-params", "switch", "session",
	}, names)
	assert.Equal(t, []string{"ssh-agent", "switch", "session"}, optional)
}

func TestRun_FreshMachine(t *testing.T) {
	f := newFixture(t, "apt-get", "curl")
	gitDir := testutil.BinDir(t, "git")
	f.scriptNixInstall()
	f.runner.On(nixCmd("shell")...).Succeed("copying path...\n" + gitDir + "\n")
	f.runner.On(nixCmd("run")...).Succeed("")
	f.scriptGitClone()

	b := f.bootstrap()
	report, env := f.run(b, pipeline.Options{Skip: []string{"ssh-agent"}})

	require.Equal(t, pipeline.ExitOK, report.ExitCode, "%+v", report.Stages)
	assert.Equal(t, pipeline.StatusSatisfied, status(t, report, "package-manager").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "nix").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "nix-config").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "git").Status)
	assert.Equal(t, pipeline.StatusSkipped, status(t, report, "ssh-agent").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "repository").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "user-params").Status)
	assert.Equal(t, pipeline.StatusApplied, status(t, report, "switch").Status)
	// no terminal to attach
	assert.Equal(t, pipeline.StatusWarning, status(t, report, "session").Status)
	assert.Equal(t, string(errors.ErrOptionalUnavailable), status(t, report, "session").Code)

	conf, err := f.fs.ReadFile(filepath.Join(f.home, ".config", "nix", "nix.conf"))
	require.NoError(t, err)
	assert.Equal(t, "experimental-features = nix-command flakes\n", string(conf))

	record, err := f.fs.ReadFile(filepath.Join(f.checkout(), "user.nix"))
	require.NoError(t, err)
	assert.Contains(t, string(record), `username = "ada";`)
	assert.Contains(t, string(record), `homeDirectory = "`+f.home+`";`)

	assert.True(t, f.runner.Ran("git", "clone", "git@github.com:ada/dotfiles.git", f.checkout()), f.runner.String())
	assert.True(t, f.runner.Ran(nixCmd("run", "home-manager/master", "--", "switch", "--flake", f.checkout(), "-b", "backup")...),
		f.runner.String())
	assert.Contains(t, env.PathList(), gitDir)
	assert.Contains(t, env.PathList(), f.profile)

	_, handoff := b.Handoff()
	assert.False(t, handoff)
	assert.False(t, b.Stale())
}

func TestRun_SecondRunConverges(t *testing.T) {
	f := newFixture(t, "apt-get", "curl", "nix", "git", "home-manager")
	f.scriptGitClone()
	f.runner.On("home-manager").Succeed("")

	_, _ = f.run(f.bootstrap(), pipeline.Options{Skip: []string{"ssh-agent"}})
	clones := f.runner.CountPrefix("git", "clone")
	report, _ := f.run(f.bootstrap(), pipeline.Options{Skip: []string{"ssh-agent"}})

	require.Equal(t, pipeline.ExitOK, report.ExitCode, "%+v", report.Stages)
	assert.Equal(t, 1, clones)
	assert.Equal(t, 1, f.runner.CountPrefix("git", "clone"), "second run must sync, not clone")
	assert.True(t, f.runner.Ran("git", "-C", f.checkout(), "fetch"))
	assert.Equal(t, pipeline.StatusSatisfied, status(t, report, "nix-config").Status)
	assert.Equal(t, 1, f.fs.WriteCount(filepath.Join(f.home, ".config", "nix", "nix.conf")))
	// the record is regenerated on every run
	assert.Equal(t, 2, f.fs.WriteCount(filepath.Join(f.checkout(), "user.nix")))
	assert.False(t, f.runner.Ran("nix"), "primary strategy only")
}

func TestPackageManager_NoneOnLinux(t *testing.T) {
	f := newFixture(t, "curl")

	report, _ := f.run(f.bootstrap(), pipeline.Options{})

	assert.Equal(t, pipeline.ExitFatal, report.ExitCode)
	pm := status(t, report, "package-manager")
	assert.Equal(t, pipeline.StatusFailed, pm.Status)
	assert.Equal(t, string(errors.ErrMissingCapability), pm.Code)
	assert.Equal(t, pipeline.StatusNotRun, status(t, report, "nix").Status)
	assert.Empty(t, f.runner.Calls())
}

func TestPackageManager_HomebrewOnMacOS(t *testing.T) {
	f := newFixture(t, "curl")
	f.goos = "darwin"
	f.runner.On("curl").Succeed("")
	f.runner.On("bash").Do(func(runner.Command) runner.Result {
		testutil.AddExecutable(t, f.bin, "brew")
		return runner.Result{}
	})

	report, _ := f.run(f.bootstrap(), pipeline.Options{}, "package-manager")

	require.Equal(t, pipeline.ExitOK, report.ExitCode, "%+v", report.Stages)
	pm := status(t, report, "package-manager")
	assert.Equal(t, pipeline.StatusApplied, pm.Status)
	assert.Equal(t, "brew installed with homebrew", pm.Detail)

	calls := f.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "curl", calls[0].Name)
	assert.Contains(t, calls[0].Args, f.cfg.PackageManager.HomebrewInstallerURL)
	assert.Equal(t, "1", calls[1].Env.Get("NONINTERACTIVE"))
	assert.True(t, calls[1].Interactive)
}

func TestNix_FallsBackToSecondInstaller(t *testing.T) {
	f := newFixture(t, "curl")
	f.runner.On("curl").Succeed("")
	attempts := 0
	f.runner.On("sh").Do(func(runner.Command) runner.Result {
		attempts++
		if attempts == 1 {
			return runner.Result{ExitCode: 1, Stderr: "unsupported"}
		}
		require.NoError(t, os.MkdirAll(f.profile, 0755))
		testutil.AddExecutable(t, f.profile, "nix")
		return runner.Result{}
	})

	report, env := f.run(f.bootstrap(), pipeline.Options{}, "nix")

	require.Equal(t, pipeline.ExitOK, report.ExitCode, "%+v", report.Stages)
	nix := status(t, report, "nix")
	assert.Equal(t, "installed with nixos.org", nix.Detail)
	require.Len(t, nix.Notes, 1)
	assert.Contains(t, nix.Notes[0], "after install.determinate.systems failed")
	assert.Equal(t, f.profile, env.PathList()[0])

	calls := f.runner.Calls()
	var scripts [][]string
	for _, c := range calls {
		if c.Name == "sh" {
			scripts = append(scripts, c.Args[1:])
		}
	}
	assert.Equal(t, [][]string{{"install", "--no-confirm"}, {"--daemon", "--yes"}}, scripts)
}

func TestNix_Declined(t *testing.T) {
	f := newFixture(t, "curl")
	f.confirm.Answer = false

	report, _ := f.run(f.bootstrap(), pipeline.Options{}, "nix")

	nix := status(t, report, "nix")
	assert.Equal(t, pipeline.StatusFailed, nix.Status)
	assert.Equal(t, string(errors.ErrMissingCapability), nix.Code)
	assert.Len(t, f.confirm.Questions, 1)
	assert.Empty(t, f.runner.Calls())
}

func TestNix_FoundInProfile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.profile, 0755))
	testutil.AddExecutable(t, f.profile, "nix")

	report, env := f.run(f.bootstrap(), pipeline.Options{}, "nix")

	nix := status(t, report, "nix")
	assert.Equal(t, pipeline.StatusApplied, nix.Status)
	assert.Equal(t, "found in the Nix profile", nix.Detail)
	assert.Empty(t, f.confirm.Questions)
	assert.Contains(t, env.PathList(), f.profile)
}

func TestRepository_DivergedLeavesCheckoutAndHonoursStalePolicy(t *testing.T) {
	f := newFixture(t, "git", "nix", "home-manager")
	f.cfg.Switch.ApplyWhenStale = false
	require.NoError(t, os.MkdirAll(filepath.Join(f.checkout(), ".git"), 0755))

	revParse := []string{"git", "-C", f.checkout(), "rev-parse", "--verify", "--quiet"}
	f.runner.On("git").Succeed("")
	f.runner.On(append(revParse, "HEAD")...).Succeed("aaaa\n")
	f.runner.On(append(revParse, "@{u}")...).Succeed("bbbb\n")
	f.runner.On("git", "-C", f.checkout(), "merge-base").Fail(1, "")
	f.runner.On("home-manager").Succeed("")

	b := f.bootstrap()
	report, _ := f.run(b, pipeline.Options{}, "repository", "user-params", "switch")

	require.Equal(t, pipeline.ExitOK, report.ExitCode, "%+v", report.Stages)
	repo := status(t, report, "repository")
	assert.Equal(t, pipeline.StatusWarning, repo.Status)
	require.Len(t, repo.Warnings, 1)
	assert.Contains(t, repo.Warnings[0], "diverged")
	assert.True(t, b.Stale())
	assert.False(t, f.runner.Ran("git", "-C", f.checkout(), "rebase"))

	sw := status(t, report, "switch")
	assert.Equal(t, pipeline.StatusWarning, sw.Status)
	assert.Equal(t, string(errors.ErrOptionalUnavailable), sw.Code)
	assert.False(t, f.runner.Ran("home-manager", "switch"))
}

func TestRepository_CloneFailsIsFatal(t *testing.T) {
	f := newFixture(t, "git")
	f.runner.On("git").Fail(128, "unreachable")

	report, _ := f.run(f.bootstrap(), pipeline.Options{}, "repository", "user-params")

	assert.Equal(t, pipeline.ExitFatal, report.ExitCode)
	assert.Equal(t, string(errors.ErrCloneFailed), status(t, report, "repository").Code)
	assert.Equal(t, pipeline.StatusNotRun, status(t, report, "user-params").Status)
}

func TestUserParams_UsesAnswers(t *testing.T) {
	f := newFixture(t, "git")
	f.prompter.Answers = map[string]string{"Username": "grace"}
	f.runner.On("git").Succeed("")

	report, _ := f.run(f.bootstrap(), pipeline.Options{}, "user-params")

	require.Equal(t, pipeline.ExitOK, report.ExitCode)
	assert.Equal(t, []string{"Username", "Home directory"}, f.prompter.Asked)
	record, err := f.fs.ReadFile(filepath.Join(f.checkout(), "user.nix"))
	require.NoError(t, err)
	assert.Contains(t, string(record), `username = "grace";`)
}

func TestSSHAgent_UnavailableIsWarning(t *testing.T) {
	f := newFixture(t)

	report, _ := f.run(f.bootstrap(), pipeline.Options{}, "ssh-agent")

	assert.Equal(t, pipeline.ExitOK, report.ExitCode)
	agent := status(t, report, "ssh-agent")
	assert.Equal(t, pipeline.StatusWarning, agent.Status)
	assert.Equal(t, string(errors.ErrMissingCapability), agent.Code)
}

func TestSession_PreparesHandoff(t *testing.T) {
	f := newFixture(t, "tmux")
	f.terminal = true

	b := f.bootstrap()
	report, _ := f.run(b, pipeline.Options{}, "session")

	assert.Equal(t, pipeline.StatusApplied, status(t, report, "session").Status)
	h, ok := b.Handoff()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(f.bin, "tmux"), h.Path)
	assert.Equal(t, []string{"tmux", "new-session", "-A", "-s", "main"}, h.Argv)
}

func TestSession_InstallFailsStillExitsZero(t *testing.T) {
	f := newFixture(t, "apt-get")
	f.terminal = true
	f.runner.On("sudo", "apt-get").Fail(100, "E: Unable to locate package tmux")

	b := f.bootstrap()
	report, _ := f.run(b, pipeline.Options{}, "session")

	assert.Equal(t, pipeline.ExitOK, report.ExitCode)
	assert.Equal(t, pipeline.StatusWarning, status(t, report, "session").Status)
	assert.True(t, f.runner.Ran("sudo", "apt-get", "install", "-y", "tmux"))
	_, ok := b.Handoff()
	assert.False(t, ok)
}

func TestDryRun_TouchesNothing(t *testing.T) {
	f := newFixture(t, "apt-get", "curl")

	report, _ := f.run(f.bootstrap(), pipeline.Options{DryRun: true})

	assert.Equal(t, pipeline.ExitOK, report.ExitCode)
	assert.Empty(t, f.runner.Calls())
	assert.Empty(t, f.fs.Files())
	assert.Empty(t, f.confirm.Questions)
	for _, s := range report.Stages[1:] {
		assert.Equal(t, pipeline.StatusSkipped, s.Status, s.Name)
		assert.True(t, strings.HasPrefix(s.Detail, "would "), s.Detail)
	}
}
