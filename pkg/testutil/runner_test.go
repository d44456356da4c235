package testutil

import (
	"context"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedRunner_LongestPrefixWins(t *testing.T) {
	r := NewScriptedRunner()
	r.On("git").Succeed("generic")
	r.On("git", "ls-remote").Fail(128, "unreachable")

	res, err := r.Run(context.Background(), runner.Command{Name: "git", Args: []string{"ls-remote", "x"}})
	require.Error(t, err)
	assert.Equal(t, 128, res.ExitCode)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))

	res, err = r.Run(context.Background(), runner.Command{Name: "git", Args: []string{"fetch"}})
	require.NoError(t, err)
	assert.Equal(t, "generic", res.Stdout)
}

func TestScriptedRunner_SequenceIsSticky(t *testing.T) {
	r := NewScriptedRunner()
	r.On("nix").Fail(1, "").Succeed("ok")

	_, err := r.Run(context.Background(), runner.Command{Name: "nix"})
	assert.Error(t, err)
	for i := 0; i < 2; i++ {
		_, err = r.Run(context.Background(), runner.Command{Name: "nix"})
		assert.NoError(t, err)
	}
}

func TestScriptedRunner_Unscripted(t *testing.T) {
	r := NewScriptedRunner()

	res, err := r.Run(context.Background(), runner.Command{Name: "tmux"})
	require.Error(t, err)
	assert.Equal(t, runner.ExitNotStarted, res.ExitCode)
	assert.True(t, r.Ran("tmux"))
	assert.Equal(t, 0, r.IndexOf("tmux"))
	assert.Equal(t, -1, r.IndexOf("git"))
}

func TestScriptedRunner_Do(t *testing.T) {
	r := NewScriptedRunner()
	var seen []string
	r.On("brew", "install").Do(func(c runner.Command) runner.Result {
		seen = c.Args
		return runner.Result{Stdout: "installed"}
	})

	res, err := r.Run(context.Background(), runner.Command{Name: "brew", Args: []string{"install", "tmux"}})
	require.NoError(t, err)
	assert.Equal(t, "installed", res.Stdout)
	assert.Equal(t, []string{"install", "tmux"}, seen)
	assert.Equal(t, 1, r.CountPrefix("brew", "install", "tmux"))
}

func TestCaptureReporter(t *testing.T) {
	c := &CaptureReporter{}
	c.Info("a %d", 1)
	c.Warn("b")
	c.Warn("c")
	c.Fatal("d")

	assert.Equal(t, []string{"a 1"}, c.Messages(LevelInfo))
	assert.Equal(t, []string{"b", "c"}, c.Messages(LevelWarn))
	assert.Equal(t, []string{"d"}, c.Messages(LevelFatal))
}
