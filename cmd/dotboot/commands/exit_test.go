// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test exit code mapping and error reporting

package commands

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: stderrors.New("boom"), want: ExitFatal},
		{name: "config parse", err: errors.New(errors.ErrConfigParse, "bad toml"), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("load: %w", errors.New(errors.ErrConfigValid, "bad")), want: ExitConfig},
		{name: "config cause under another code", err: errors.Wrap(errors.New(errors.ErrConfigLoad, "unreadable"), errors.ErrInternal, "setup"), want: ExitConfig},
		{name: "stage failure", err: errors.New(errors.ErrCloneFailed, "clone"), want: ExitFatal},
		{name: "explicit", err: &ExitError{Code: 7}, want: 7},
		{name: "wrapped explicit", err: fmt.Errorf("x: %w", &ExitError{Code: ExitConfig}), want: ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	ReportError(&buf, &ExitError{Code: ExitFatal})
	assert.Empty(t, buf.String())

	ReportError(&buf, &ExitError{Code: ExitConfig, Err: stderrors.New("no repository")})
	assert.Equal(t, "Error: no repository\n", buf.String())
}
