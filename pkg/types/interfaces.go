package types

import (
	"io/fs"
)

// FS is the filesystem surface used by the config writer and the record writer.
// Implementations: filesystem.NewOS for the host, testutil.MemoryFS for tests.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error

	// Lstat may fall back to Stat on filesystems without symlinks
	Lstat(name string) (fs.FileInfo, error)
}

// ConfirmationSource answers yes/no questions asked before a side-effecting remediation.
//
// Two implementations exist: an interactive terminal prompt and an always-accept
// source used when running non-interactively (CI, --yes).
type ConfirmationSource interface {
	Confirm(question string, defaultYes bool) (bool, error)
}

// Prompter reads a free-text value. An empty answer yields defaultValue.
type Prompter interface {
	Ask(label, defaultValue string) (string, error)
}

// SecretPrompter reads a secret (key passphrase) without echo.
// Implementations return an error when no terminal is available.
type SecretPrompter interface {
	AskSecret(label string) ([]byte, error)
}

// Reporter prints operator-facing diagnostics. Info is rendered blue,
// Warn yellow and Fatal red.
type Reporter interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Fatal(format string, args ...interface{})
}
