package hostenv

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known variable names
const (
	EnvPath = "PATH"
	EnvHome = "HOME"
	EnvUser = "USER"
)

// ErrNotFound is returned by LookPath when no executable matches.
var ErrNotFound = errors.New("executable not found in PATH")

// Env is an immutable set of environment variables.
type Env struct {
	vars map[string]string
}

// FromOS snapshots the current process environment.
func FromOS() Env {
	return FromList(os.Environ())
}

// FromList builds an Env from KEY=VALUE pairs. Later pairs win.
func FromList(pairs []string) Env {
	vars := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return Env{vars: vars}
}

// FromMap builds an Env from a map. The map is copied.
func FromMap(m map[string]string) Env {
	vars := make(map[string]string, len(m))
	for k, v := range m {
		vars[k] = v
	}
	return Env{vars: vars}
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e.vars[key]
}

// IsSet reports whether key is set to a non-empty value.
func (e Env) IsSet(key string) bool {
	return e.vars[key] != ""
}

// With returns a copy of e with key set to value.
func (e Env) With(key, value string) Env {
	next := e.clone()
	next.vars[key] = value
	return next
}

// WithAll returns a copy of e with every entry of m applied.
func (e Env) WithAll(m map[string]string) Env {
	next := e.clone()
	for k, v := range m {
		next.vars[k] = v
	}
	return next
}

// Without returns a copy of e with key removed.
func (e Env) Without(key string) Env {
	next := e.clone()
	delete(next.vars, key)
	return next
}

// Home returns $HOME.
func (e Env) Home() string {
	return e.vars[EnvHome]
}

// PathList splits $PATH into its directories, dropping empty entries.
func (e Env) PathList() []string {
	raw := e.vars[EnvPath]
	if raw == "" {
		return nil
	}
	var dirs []string
	for _, d := range filepath.SplitList(raw) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// PrependPath returns a copy of e with dir moved to the front of $PATH.
// A dir already on PATH is not duplicated.
func (e Env) PrependPath(dirs ...string) Env {
	existing := e.PathList()
	seen := make(map[string]bool, len(existing)+len(dirs))
	out := make([]string, 0, len(existing)+len(dirs))
	for _, d := range dirs {
		d = filepath.Clean(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	for _, d := range existing {
		if seen[filepath.Clean(d)] {
			continue
		}
		seen[filepath.Clean(d)] = true
		out = append(out, d)
	}
	return e.With(EnvPath, strings.Join(out, string(os.PathListSeparator)))
}

// LookPath resolves name against this Env's $PATH. Names containing a
// separator are checked as-is.
func (e Env) LookPath(name string) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", ErrNotFound
	}
	for _, dir := range e.PathList() {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}

// Environ renders e as sorted KEY=VALUE pairs, suitable for exec.Cmd.Env.
func (e Env) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Diff returns the entries of e that are new or changed relative to base.
func (e Env) Diff(base Env) map[string]string {
	changed := make(map[string]string)
	for k, v := range e.vars {
		if old, ok := base.vars[k]; !ok || old != v {
			changed[k] = v
		}
	}
	return changed
}

func (e Env) clone() Env {
	vars := make(map[string]string, len(e.vars)+1)
	for k, v := range e.vars {
		vars[k] = v
	}
	return Env{vars: vars}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
