// Package pipeline runs an ordered list of stages.
//
// Each Stage carries a precondition probe, an action, an optional
// postcondition probe and an optional flag. The driver evaluates stages in
// order: a satisfied precondition skips the action, a failed required stage
// stops the run, a failed optional stage is reported as a warning. The
// resulting Report records every stage's outcome and the exit code.
package pipeline
