package pipeline

import (
	"time"
)

// Status of one stage.
type Status string

const (
	// StatusSatisfied means the precondition held and nothing ran.
	StatusSatisfied Status = "satisfied"
	StatusApplied   Status = "applied"
	// StatusWarning is an optional stage that failed, or a stage that degraded.
	StatusWarning Status = "warning"
	// StatusSkipped is a stage skipped by request or in a dry run.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusNotRun follows a fatal failure.
	StatusNotRun Status = "not-run"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFatal  = 1
	ExitConfig = 2
)

// StageReport is the outcome of one stage.
type StageReport struct {
	Name     string        `yaml:"name"`
	Optional bool          `yaml:"optional"`
	Status   Status        `yaml:"status"`
	Detail   string        `yaml:"detail,omitempty"`
	Notes    []string      `yaml:"notes,omitempty"`
	Warnings []string      `yaml:"warnings,omitempty"`
	Error    string        `yaml:"error,omitempty"`
	Code     string        `yaml:"code,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// Report is the outcome of a whole run.
type Report struct {
	RunID    string        `yaml:"run_id"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	DryRun   bool          `yaml:"dry_run"`
	ExitCode int           `yaml:"exit_code"`
	Stages   []StageReport `yaml:"stages"`
}

// Failed returns the fatal stage, if any.
func (r Report) Failed() (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return s, true
		}
	}
	return StageReport{}, false
}

// Stage returns the report for name.
func (r Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Counts tallies stages by status.
func (r Report) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, s := range r.Stages {
		out[s.Status]++
	}
	return out
}
