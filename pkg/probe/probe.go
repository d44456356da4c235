// Package probe holds the cheap capability checks that gate every stage.
//
// A probe never spawns a process and never touches the network: it looks a
// command up on the PATH of the environment it is given, stats a file, or
// reads a variable. Stages evaluate probes before and after remediation so a
// second run skips everything the first run already satisfied.
package probe

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
)

// Probe reports whether a capability is present in env.
type Probe interface {
	Satisfied(env hostenv.Env) bool
	String() string
}

// Command is satisfied when the named executable is on env's PATH.
type Command string

func (c Command) Satisfied(env hostenv.Env) bool {
	_, err := env.LookPath(string(c))
	return err == nil
}

func (c Command) String() string {
	return fmt.Sprintf("command %s", string(c))
}

// File is satisfied when the path exists. A leading "~/" expands to env's HOME.
type File string

func (f File) Satisfied(env hostenv.Env) bool {
	_, err := os.Stat(paths.Expand(env, string(f)))
	return err == nil
}

func (f File) String() string {
	return fmt.Sprintf("file %s", string(f))
}

// Executable is satisfied when the path exists and is executable.
type Executable string

func (x Executable) Satisfied(env hostenv.Env) bool {
	info, err := os.Stat(paths.Expand(env, string(x)))
	return err == nil && !info.IsDir() && info.Mode()&0111 != 0
}

func (x Executable) String() string {
	return fmt.Sprintf("executable %s", string(x))
}

// EnvVar is satisfied when the variable is set to a non-empty value.
type EnvVar string

func (v EnvVar) Satisfied(env hostenv.Env) bool {
	return env.IsSet(string(v))
}

func (v EnvVar) String() string {
	return fmt.Sprintf("env %s", string(v))
}

// AnyOf is satisfied when at least one member is.
type AnyOf []Probe

func (a AnyOf) Satisfied(env hostenv.Env) bool {
	for _, p := range a {
		if p.Satisfied(env) {
			return true
		}
	}
	return false
}

func (a AnyOf) String() string {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.String()
	}
	return "any of (" + strings.Join(parts, ", ") + ")"
}

// AllOf is satisfied when every member is.
type AllOf []Probe

func (a AllOf) Satisfied(env hostenv.Env) bool {
	for _, p := range a {
		if !p.Satisfied(env) {
			return false
		}
	}
	return true
}

func (a AllOf) String() string {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.String()
	}
	return "all of (" + strings.Join(parts, ", ") + ")"
}

// Func adapts a function. Desc is used by String.
type Func struct {
	Desc string
	Fn   func(env hostenv.Env) bool
}

func (f Func) Satisfied(env hostenv.Env) bool { return f.Fn(env) }
func (f Func) String() string                 { return f.Desc }

// FirstCommand returns the first of names found on PATH.
func FirstCommand(env hostenv.Env, names ...string) (string, bool) {
	for _, name := range names {
		if Command(name).Satisfied(env) {
			return name, true
		}
	}
	return "", false
}
