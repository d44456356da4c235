package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
)

// ExitNotStarted is reported when the process could not be started at all.
const ExitNotStarted = -1

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  hostenv.Env

	// Interactive connects the operator's terminal: stdin is inherited and
	// output is shown live while still being captured.
	Interactive bool

	// Timeout bounds the invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// String renders the argv for logs and messages.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result carries everything observable about a finished invocation.
type Result struct {
	Path     string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Runner runs commands.
//
// Run returns a populated Result in every case. The error is non-nil when the
// command could not start, timed out or exited non-zero; it is an
// errors.ErrCommandFailed BootError carrying the exit code.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner creates a runner wired to the process's standard streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	start := time.Now()
	logger := logging.FromContext(ctx, "runner")
	logging.LogCommand(logger, c.Name, c.Args, c.Dir)

	path, err := c.Env.LookPath(c.Name)
	if err != nil {
		res := Result{ExitCode: ExitNotStarted, Duration: time.Since(start)}
		return res, errors.Wrapf(err, errors.ErrCommandFailed, "%s: command not found", c.Name).
			WithDetail("command", c.Name).
			WithDetail("exit_code", ExitNotStarted)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Env = c.Env.Environ()
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = r.stdin
		cmd.Stdout = io.MultiWriter(r.stdout, &stdout)
		cmd.Stderr = io.MultiWriter(r.stderr, &stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	runErr := cmd.Run()
	res := Result{
		Path:     path,
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		logger.Debug().
			Str("command", c.Name).
			Dur("duration", res.Duration).
			Msg("Command succeeded")
		return res, nil
	}

	res.ExitCode = ExitNotStarted
	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.TimedOut = stderrors.Is(ctxErr, context.DeadlineExceeded)
		runErr = fmt.Errorf("%w: %v", ctxErr, runErr)
	}

	logger.Debug().
		Err(runErr).
		Str("command", c.Name).
		Strs("args", c.Args).
		Int("exit_code", res.ExitCode).
		Bool("timed_out", res.TimedOut).
		Str("stderr", res.Stderr).
		Dur("duration", res.Duration).
		Msg("Command failed")

	return res, Failed(c, res, runErr)
}

// Failed builds the ErrCommandFailed error for a finished invocation.
func Failed(c Command, res Result, cause error) error {
	msg := fmt.Sprintf("%s exited with code %d", c.String(), res.ExitCode)
	if res.TimedOut {
		msg = fmt.Sprintf("%s timed out after %s", c.String(), c.Timeout)
	}
	if cause == nil {
		cause = stderrors.New(strings.TrimSpace(res.Stderr))
	}
	return errors.Wrap(cause, errors.ErrCommandFailed, msg).
		WithDetail("command", c.Name).
		WithDetail("exit_code", res.ExitCode).
		WithDetail("stderr", strings.TrimSpace(res.Stderr))
}
