package switcher_test

import (
	"context"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/switcher"
	"github.com/arthur-debert/dotboot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flake = "/home/ada/.dotfiles#ada"

func newSwitcher(r *testutil.ScriptedRunner) switcher.Switcher {
	return switcher.Switcher{Runner: r, BackupExtension: "backup"}
}

func TestApply_Primary(t *testing.T) {
	env := testutil.EnvWithPath(t.TempDir(), testutil.BinDir(t, "home-manager", "nix"))
	r := testutil.NewScriptedRunner()
	r.On("home-manager", "--version").Succeed("25.05\n")
	r.On("home-manager", "switch").Succeed("")

	res, err := newSwitcher(r).Apply(context.Background(), env, flake)

	require.NoError(t, err)
	assert.Equal(t, switcher.StrategyInstalled, res.Strategy)
	assert.Equal(t, []string{"home-manager --version", "home-manager switch --flake " + flake + " -b backup"}, r.Argvs())
}

func TestApply_PrimaryProbeFailsUsesFallback(t *testing.T) {
	env := testutil.EnvWithPath(t.TempDir(), testutil.BinDir(t, "home-manager", "nix"))
	r := testutil.NewScriptedRunner()
	r.On("home-manager", "--version").Fail(1, "broken install")
	r.On("nix", "run").Succeed("")

	res, err := newSwitcher(r).Apply(context.Background(), env, flake)

	require.NoError(t, err)
	assert.Equal(t, switcher.StrategyNixRun, res.Strategy)
	assert.False(t, r.Ran("home-manager", "switch"), "primary apply must not run")
	assert.True(t, r.Ran("nix", "run", "home-manager/master", "--", "switch", "--flake", flake, "-b", "backup"))
}

func TestApply_NoHomeManagerBinary(t *testing.T) {
	env := testutil.EnvWithPath(t.TempDir(), testutil.BinDir(t, "nix"))
	r := testutil.NewScriptedRunner()
	r.On("nix", "--extra-experimental-features").Succeed("")

	s := newSwitcher(r)
	s.NixArgs = []string{"--extra-experimental-features", "nix-command flakes"}
	s.Installable = "github:nix-community/home-manager/release-25.05"
	_, err := s.Apply(context.Background(), env, flake)

	require.NoError(t, err)
	assert.False(t, r.Ran("home-manager"))
	assert.Equal(t, []string{
		"nix --extra-experimental-features nix-command flakes run github:nix-community/home-manager/release-25.05 -- switch --flake " + flake + " -b backup",
	}, r.Argvs())
}

func TestApply_NothingAvailable(t *testing.T) {
	env := testutil.EnvWithPath(t.TempDir())
	r := testutil.NewScriptedRunner()

	_, err := newSwitcher(r).Apply(context.Background(), env, flake)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrOptionalUnavailable))
	assert.Empty(t, r.Calls())
}

func TestApply_SwitchFails(t *testing.T) {
	env := testutil.EnvWithPath(t.TempDir(), testutil.BinDir(t, "home-manager"))
	r := testutil.NewScriptedRunner()
	r.On("home-manager", "--version").Succeed("")
	r.On("home-manager", "switch").Fail(1, "collision")

	res, err := newSwitcher(r).Apply(context.Background(), env, flake)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	assert.Equal(t, switcher.StrategyInstalled, res.Strategy)
}

func TestSwitchArgsWithoutBackup(t *testing.T) {
	s := switcher.Switcher{}
	assert.Equal(t, []string{"switch", "--flake", flake}, s.SwitchArgs(flake))
}
