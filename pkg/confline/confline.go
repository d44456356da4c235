// Package confline ensures that a text configuration file contains a line
// exactly once.
//
//	file exists | line present | action
//	no          | n/a          | create file (and parents), write line
//	yes         | yes          | no-op, the file is not rewritten
//	yes         | no           | append line with trailing newline
//
// Matching compares whole lines, so "experimental-features = nix-command"
// does not satisfy "experimental-features = nix-command flakes". Existing
// content is never reordered or rewritten.
package confline

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/types"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// EnsureLines makes path contain every line, appending the missing ones in a
// single write. It reports whether the file changed.
func EnsureLines(fsys types.FS, path string, lines []string) (bool, error) {
	for _, l := range lines {
		if l == "" || strings.ContainsAny(l, "\r\n") {
			return false, errors.Newf(errors.ErrInvalidInput, "invalid config line %q", l)
		}
	}

	mode := fs.FileMode(defaultFileMode)
	data, err := fsys.ReadFile(path)
	switch {
	case err == nil:
		if info, statErr := fsys.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case stderrors.Is(err, fs.ErrNotExist):
		data = nil
		if err := fsys.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
			return false, errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(path))
		}
	default:
		return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
	}

	missing := Missing(string(data), lines)
	if len(missing) == 0 {
		return false, nil
	}

	var b strings.Builder
	b.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, l := range missing {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	if err := fsys.WriteFile(path, []byte(b.String()), mode); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path)
	}
	return true, nil
}

// Missing returns the members of want that are not a whole line of content,
// in order and without duplicates.
func Missing(content string, want []string) []string {
	present := make(map[string]bool)
	for _, l := range strings.Split(content, "\n") {
		present[strings.TrimSuffix(l, "\r")] = true
	}
	var out []string
	for _, l := range want {
		if present[l] {
			continue
		}
		present[l] = true
		out = append(out, l)
	}
	return out
}
