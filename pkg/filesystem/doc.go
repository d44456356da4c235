// Package filesystem provides filesystem implementations for dotboot.
//
// This package contains the host implementation of the types.FS interface.
// The in-memory implementation used by tests lives in pkg/testutil.
package filesystem
