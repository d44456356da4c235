package ui

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/charmbracelet/glamour"
)

// PlanMarkdown describes the stages in order as a markdown document.
func PlanMarkdown(stages []pipeline.Stage) string {
	var sb strings.Builder
	sb.WriteString("# Bootstrap plan\n\n")
	sb.WriteString("Stages run in order. A failed required stage stops the run; optional stages only warn.\n\n")
	for i, s := range stages {
		kind := "required"
		if s.Optional {
			kind = "optional"
		}
		fmt.Fprintf(&sb, "## %d. %s (%s)\n\n", i+1, s.Name, kind)
		if s.Description != "" {
			sb.WriteString(s.Description)
			sb.WriteString("\n\n")
		}
		if s.Precondition != nil {
			fmt.Fprintf(&sb, "- skipped when: `%s`\n", s.Precondition)
		}
		if s.Postcondition != nil {
			fmt.Fprintf(&sb, "- verified by: `%s`\n", s.Postcondition)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MarkdownRenderer renders markdown for the terminal.
type MarkdownRenderer struct {
	// Style is a glamour style name or path; empty or "auto" detects.
	Style string
	// Width wraps output; 0 keeps glamour's default.
	Width int
}

// Render returns the rendered document, or content unchanged when rendering
// fails.
func (r MarkdownRenderer) Render(content string) string {
	var options []glamour.TermRendererOption
	if r.Style != "" && r.Style != "auto" {
		options = append(options, glamour.WithStylePath(r.Style))
	} else {
		options = append(options, glamour.WithAutoStyle())
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// NewMarkdownRenderer picks a style for format.
func NewMarkdownRenderer(format Format) MarkdownRenderer {
	if format.Styled() {
		return MarkdownRenderer{Style: "auto"}
	}
	return MarkdownRenderer{Style: "notty"}
}
