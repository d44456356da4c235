package probe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	bin := testutil.BinDir(t, "brew")
	env := testutil.EnvWithPath(t.TempDir(), bin)

	assert.True(t, probe.Command("brew").Satisfied(env))
	assert.False(t, probe.Command("apt-get").Satisfied(env))
	assert.False(t, probe.Command("brew").Satisfied(hostenv.FromMap(nil)))
}

func TestFileAndExecutable(t *testing.T) {
	home := t.TempDir()
	env := testutil.EnvWithPath(home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ssh", "id_ed25519"), []byte("k"), 0600))
	testutil.AddExecutable(t, home, "nix")

	tests := []struct {
		name string
		p    probe.Probe
		want bool
	}{
		{"tilde file exists", probe.File("~/.ssh/id_ed25519"), true},
		{"tilde file missing", probe.File("~/.ssh/id_rsa"), false},
		{"absolute file", probe.File(filepath.Join(home, ".ssh")), true},
		{"executable", probe.Executable("~/nix"), true},
		{"non-executable file", probe.Executable("~/.ssh/id_ed25519"), false},
		{"directory is not executable", probe.Executable("~/.ssh"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Satisfied(env))
		})
	}
}

func TestEnvVar(t *testing.T) {
	env := hostenv.FromMap(map[string]string{"TMUX": "/tmp/tmux-1000/default,1,0", "EMPTY": ""})
	assert.True(t, probe.EnvVar("TMUX").Satisfied(env))
	assert.False(t, probe.EnvVar("EMPTY").Satisfied(env))
	assert.False(t, probe.EnvVar("SSH_AUTH_SOCK").Satisfied(env))
}

func TestCombinators(t *testing.T) {
	bin := testutil.BinDir(t, "dnf")
	env := testutil.EnvWithPath(t.TempDir(), bin)

	either := probe.AnyOf{probe.Command("brew"), probe.Command("dnf")}
	both := probe.AllOf{probe.Command("brew"), probe.Command("dnf")}

	assert.True(t, either.Satisfied(env))
	assert.False(t, both.Satisfied(env))
	assert.False(t, probe.AnyOf{}.Satisfied(env))
	assert.True(t, probe.AllOf{}.Satisfied(env))
	assert.Equal(t, "any of (command brew, command dnf)", either.String())
}

func TestFirstCommand(t *testing.T) {
	bin := testutil.BinDir(t, "pacman", "dnf")
	env := testutil.EnvWithPath(t.TempDir(), bin)

	name, ok := probe.FirstCommand(env, "brew", "apt-get", "dnf", "pacman")
	assert.True(t, ok)
	assert.Equal(t, "dnf", name)

	_, ok = probe.FirstCommand(env, "brew")
	assert.False(t, ok)
}
