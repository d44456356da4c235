package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Reporter prints operator diagnostics. In styled mode it uses pterm prefix
// printers: info blue, warning yellow, fatal red. Plain mode prints an
// upper-case level tag instead.
type Reporter struct {
	w      io.Writer
	styled bool

	info    pterm.PrefixPrinter
	success pterm.PrefixPrinter
	warn    pterm.PrefixPrinter
	fatal   pterm.PrefixPrinter
}

// NewReporter writes to w. Styling follows format.
func NewReporter(w io.Writer, format Format) *Reporter {
	r := &Reporter{w: w, styled: format.Styled()}
	if r.styled {
		r.info = *pterm.Info.WithWriter(w)
		r.success = *pterm.Success.WithWriter(w)
		r.warn = *pterm.Warning.WithWriter(w)
		// pterm.Fatal exits the process; use the error printer for red output
		r.fatal = *pterm.Error.WithWriter(w).WithPrefix(pterm.Prefix{
			Text:  " FATAL ",
			Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
		})
	}
	return r
}

func (r *Reporter) print(p pterm.PrefixPrinter, tag, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.styled {
		p.Println(msg)
		return
	}
	fmt.Fprintf(r.w, "%-7s %s\n", tag, strings.TrimRight(msg, "\n"))
}

func (r *Reporter) Info(format string, args ...interface{}) {
	r.print(r.info, "INFO", format, args)
}

func (r *Reporter) Success(format string, args ...interface{}) {
	r.print(r.success, "OK", format, args)
}

func (r *Reporter) Warn(format string, args ...interface{}) {
	r.print(r.warn, "WARNING", format, args)
}

func (r *Reporter) Fatal(format string, args ...interface{}) {
	r.print(r.fatal, "FATAL", format, args)
}
