package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/dotboot/pkg/history"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

var (
	accent = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	blue   = lipgloss.Color("39")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

func statusColor(s pipeline.Status) lipgloss.Color {
	switch s {
	case pipeline.StatusApplied:
		return green
	case pipeline.StatusSatisfied:
		return blue
	case pipeline.StatusWarning:
		return yellow
	case pipeline.StatusFailed:
		return red
	default:
		return dim
	}
}

// renderTable draws a rounded table. Unstyled tables keep the borders but
// carry no colour.
func renderTable(styled bool, headers []string, rows [][]string, colour func(row, col int) (lipgloss.Color, bool)) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(styled)
	if styled {
		header = header.Foreground(accent)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if styled && colour != nil {
				if c, ok := colour(row, col); ok {
					return cell.Foreground(c)
				}
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)
	if styled {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(faint))
	}
	return t.String()
}

func round(d time.Duration) string {
	switch {
	case d == 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

// RenderSummary draws the end-of-run stage table followed by a one-line verdict.
func RenderSummary(report pipeline.Report, styled bool) string {
	rows := make([][]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		detail := s.Detail
		if s.Error != "" {
			detail = s.Error
		}
		name := s.Name
		if s.Optional {
			name += " (optional)"
		}
		rows = append(rows, []string{name, string(s.Status), detail, round(s.Duration)})
	}

	var sb strings.Builder
	sb.WriteString(renderTable(styled, []string{"Stage", "Status", "Detail", "Time"}, rows,
		func(row, col int) (lipgloss.Color, bool) {
			if col != 1 || row < 0 || row >= len(report.Stages) {
				return "", false
			}
			return statusColor(report.Stages[row].Status), true
		}))
	sb.WriteString("\n")
	sb.WriteString(verdict(report, styled))
	sb.WriteString("\n")
	return sb.String()
}

func verdict(report pipeline.Report, styled bool) string {
	counts := report.Counts()
	prefix := ""
	if report.DryRun {
		prefix = "dry run: "
	}
	var msg string
	var c lipgloss.Color
	if failed, ok := report.Failed(); ok {
		msg = fmt.Sprintf("%sbootstrap failed at %s (exit %d)", prefix, failed.Name, report.ExitCode)
		c = red
	} else {
		msg = fmt.Sprintf("%sbootstrap complete: %d applied, %d satisfied, %d warnings, %d skipped in %s",
			prefix, counts[pipeline.StatusApplied], counts[pipeline.StatusSatisfied],
			counts[pipeline.StatusWarning], counts[pipeline.StatusSkipped], round(report.Duration))
		c = green
		if counts[pipeline.StatusWarning] > 0 {
			c = yellow
		}
	}
	if !styled {
		return msg
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(msg)
}

// WriteYAML writes the report as a YAML document.
func WriteYAML(w io.Writer, report pipeline.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// RenderHistory draws recorded runs, newest first.
func RenderHistory(runs []history.Run, styled bool) string {
	if len(runs) == 0 {
		return "No runs recorded yet.\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		outcome := "ok"
		if st, failed := r.Failed(); failed {
			outcome = "failed: " + st.Name
		} else if w := warnings(r); w > 0 {
			outcome = fmt.Sprintf("ok, %d warnings", w)
		}
		if r.DryRun {
			outcome += " (dry run)"
		}
		rows = append(rows, []string{
			r.Started.Local().Format("2006-01-02 15:04:05"),
			shortID(r.ID),
			strconv.Itoa(r.ExitCode),
			round(r.Duration),
			outcome,
		})
	}
	return renderTable(styled, []string{"Started", "Run", "Exit", "Time", "Outcome"}, rows,
		func(row, col int) (lipgloss.Color, bool) {
			if col != 2 || row < 0 || row >= len(runs) {
				return "", false
			}
			if runs[row].ExitCode == pipeline.ExitOK {
				return green, true
			}
			return red, true
		}) + "\n"
}

func warnings(r history.Run) int {
	n := 0
	for _, st := range r.Stages {
		if st.Status == pipeline.StatusWarning {
			n++
		}
	}
	return n
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
