// pkg/testutil/memoryfs_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test MemoryFS implementation

package testutil

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFS_WriteCreatesParents(t *testing.T) {
	m := NewMemoryFS()

	require.NoError(t, m.WriteFile("/home/me/.config/nix/nix.conf", []byte("a\n"), 0644))

	info, err := m.Stat("/home/me/.config/nix")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	data, err := m.ReadFile("/home/me/.config/nix/nix.conf")
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))
	assert.Equal(t, 1, m.WriteCount("/home/me/.config/nix/nix.conf"))
	assert.Equal(t, []string{"/home/me/.config/nix/nix.conf"}, m.Files())
}

func TestMemoryFS_ReadReturnsCopy(t *testing.T) {
	m := NewMemoryFS()
	require.NoError(t, m.WriteFile("/f", []byte("abc"), 0644))

	data, _ := m.ReadFile("/f")
	data[0] = 'X'

	again, _ := m.ReadFile("/f")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryFS_Missing(t *testing.T) {
	m := NewMemoryFS()

	_, err := m.Stat("/nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = m.ReadFile("/nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.True(t, errors.Is(m.Remove("/nope"), fs.ErrNotExist))
}

func TestMemoryFS_RemoveNonEmptyDir(t *testing.T) {
	m := NewMemoryFS()
	require.NoError(t, m.WriteFile("/d/f", []byte("x"), 0644))

	assert.Error(t, m.Remove("/d"))
	require.NoError(t, m.Remove("/d/f"))
	require.NoError(t, m.Remove("/d"))
}

func TestMemoryFS_WithError(t *testing.T) {
	boom := errors.New("permission denied")
	m := NewMemoryFS().WithError("/etc/nix/nix.conf", boom)

	assert.ErrorIs(t, m.WriteFile("/etc/nix/nix.conf", nil, 0644), boom)
	_, err := m.ReadFile("/etc/nix/nix.conf")
	assert.ErrorIs(t, err, boom)
}

func TestMemoryFS_MkdirOverFile(t *testing.T) {
	m := NewMemoryFS()
	require.NoError(t, m.WriteFile("/f", []byte("x"), 0644))
	assert.Error(t, m.MkdirAll("/f/sub", 0755))
}
