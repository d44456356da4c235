// Package types defines the collaborator interfaces shared across dotboot:
// the filesystem, the prompt sources and the operator-facing reporter.
package types
