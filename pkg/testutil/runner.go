package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/runner"
)

// ScriptedRunner is a runner.Runner that never spawns processes.
//
// Results are scripted per argv prefix. The longest matching prefix wins, so
// a rule for "git ls-remote" overrides one for "git". Each rule replays its
// results in order and keeps returning the last one. Calls without a matching
// rule fail as if the binary were not on PATH.
type ScriptedRunner struct {
	mu    sync.Mutex
	rules []*ScriptRule
	calls []runner.Command
}

// ScriptRule is one scripted response set.
type ScriptRule struct {
	prefix  []string
	results []runner.Result
	hook    func(runner.Command) runner.Result
	hits    int
}

// NewScriptedRunner creates a runner with no rules.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{}
}

// On starts a rule matching commands whose argv begins with argv.
func (s *ScriptedRunner) On(argv ...string) *ScriptRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule := &ScriptRule{prefix: argv}
	s.rules = append(s.rules, rule)
	return rule
}

// Return queues results for the rule.
func (r *ScriptRule) Return(results ...runner.Result) *ScriptRule {
	r.results = append(r.results, results...)
	return r
}

// Succeed queues a zero-exit result with the given stdout.
func (r *ScriptRule) Succeed(stdout string) *ScriptRule {
	return r.Return(runner.Result{Stdout: stdout})
}

// Fail queues a result with the given exit code and stderr.
func (r *ScriptRule) Fail(code int, stderr string) *ScriptRule {
	return r.Return(runner.Result{ExitCode: code, Stderr: stderr})
}

// Do computes the result from the command, after any side effect the test needs.
func (r *ScriptRule) Do(fn func(runner.Command) runner.Result) *ScriptRule {
	r.hook = fn
	return r
}

// Run implements runner.Runner.
func (s *ScriptedRunner) Run(ctx context.Context, c runner.Command) (runner.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	rule := s.match(c)
	var res runner.Result
	switch {
	case rule == nil:
		s.mu.Unlock()
		res = runner.Result{ExitCode: runner.ExitNotStarted}
		return res, errors.Newf(errors.ErrCommandFailed, "%s: command not found", c.Name).
			WithDetail("exit_code", runner.ExitNotStarted)
	case rule.hook != nil:
		hook := rule.hook
		rule.hits++
		s.mu.Unlock()
		res = hook(c)
	default:
		idx := rule.hits
		if idx >= len(rule.results) {
			idx = len(rule.results) - 1
		}
		rule.hits++
		if idx >= 0 {
			res = rule.results[idx]
		}
		s.mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		res.ExitCode = runner.ExitNotStarted
		return res, runner.Failed(c, res, err)
	}
	if res.Path == "" {
		res.Path = c.Name
	}
	if res.ExitCode != 0 {
		return res, runner.Failed(c, res, nil)
	}
	return res, nil
}

func (s *ScriptedRunner) match(c runner.Command) *ScriptRule {
	argv := append([]string{c.Name}, c.Args...)
	var best *ScriptRule
	for _, rule := range s.rules {
		if len(rule.prefix) > len(argv) {
			continue
		}
		ok := true
		for i, p := range rule.prefix {
			if argv[i] != p {
				ok = false
				break
			}
		}
		if ok && (best == nil || len(rule.prefix) > len(best.prefix)) {
			best = rule
		}
	}
	return best
}

// Calls returns every command run so far.
func (s *ScriptedRunner) Calls() []runner.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]runner.Command, len(s.calls))
	copy(out, s.calls)
	return out
}

// Argvs renders each call as a single space-joined string.
func (s *ScriptedRunner) Argvs() []string {
	var out []string
	for _, c := range s.Calls() {
		out = append(out, c.String())
	}
	return out
}

// Ran reports whether a command starting with argv was run.
func (s *ScriptedRunner) Ran(argv ...string) bool {
	return s.CountPrefix(argv...) > 0
}

// CountPrefix counts calls whose argv begins with argv.
func (s *ScriptedRunner) CountPrefix(argv ...string) int {
	want := strings.Join(argv, " ")
	n := 0
	for _, line := range s.Argvs() {
		if line == want || strings.HasPrefix(line, want+" ") {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the first call starting with argv, or -1.
func (s *ScriptedRunner) IndexOf(argv ...string) int {
	want := strings.Join(argv, " ")
	for i, line := range s.Argvs() {
		if line == want || strings.HasPrefix(line, want+" ") {
			return i
		}
	}
	return -1
}

// String is handy in assertion messages.
func (s *ScriptedRunner) String() string {
	return fmt.Sprintf("%q", s.Argvs())
}
