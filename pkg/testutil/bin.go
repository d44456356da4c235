package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/hostenv"
)

// BinDir creates a temporary directory holding empty executables with the given names.
func BinDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		AddExecutable(t, dir, name)
	}
	return dir
}

// AddExecutable places an executable stub named name in dir.
func AddExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("write executable %s: %v", path, err)
	}
	return path
}

// EnvWithPath returns an Env whose PATH is exactly dirs, with HOME set to home.
func EnvWithPath(home string, dirs ...string) hostenv.Env {
	env := hostenv.FromMap(map[string]string{hostenv.EnvHome: home})
	return env.PrependPath(dirs...)
}
