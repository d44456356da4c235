// Package testutil provides fakes for testing dotboot components without
// touching the host.
//
// Key components:
//   - MemoryFS: in-memory types.FS
//   - ScriptedRunner: runner.Runner returning scripted results per argv prefix
//   - FixedConfirm, StaticPrompter, StaticSecret: prompt fakes
//   - CaptureReporter: types.Reporter that records lines by severity
//   - Executable helpers that place fake binaries on a temporary PATH
package testutil
