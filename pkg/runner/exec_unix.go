//go:build unix

package runner

import (
	"golang.org/x/sys/unix"
)

// Execer replaces the current process image. On success Exec does not return.
type Execer interface {
	Exec(path string, argv []string, env []string) error
}

// UnixExecer performs execve(2).
type UnixExecer struct{}

// Exec implements Execer.
func (UnixExecer) Exec(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}
