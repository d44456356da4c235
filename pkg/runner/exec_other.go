//go:build !unix

package runner

import "fmt"

// Execer replaces the current process image. On success Exec does not return.
type Execer interface {
	Exec(path string, argv []string, env []string) error
}

// UnixExecer is unavailable on this platform.
type UnixExecer struct{}

// Exec implements Execer.
func (UnixExecer) Exec(path string, argv []string, env []string) error {
	return fmt.Errorf("process replacement is not supported on this platform")
}
