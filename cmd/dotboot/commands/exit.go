package commands

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
)

// Process exit codes.
const (
	ExitOK     = pipeline.ExitOK
	ExitFatal  = pipeline.ExitFatal
	ExitConfig = pipeline.ExitConfig
)

// ExitError makes a command exit with Code. A nil Err means the failure was
// already reported to the operator.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if stderrors.As(err, &exit) {
		return exit.Code
	}
	for _, code := range []errors.ErrorCode{errors.ErrConfigLoad, errors.ErrConfigParse, errors.ErrConfigValid} {
		if errors.HasErrorCode(err, code) {
			return ExitConfig
		}
	}
	return ExitFatal
}

// ReportError prints err unless it was already reported.
func ReportError(w io.Writer, err error) {
	var exit *ExitError
	if stderrors.As(err, &exit) && exit.Err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
