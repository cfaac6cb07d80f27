package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/signalhouse/crashtrack/internal/crash"
)

// Markdown builds a human-readable summary document for one report.
func Markdown(r *crash.Report) string {
	var sb strings.Builder
	sum := r.Summarize()

	fmt.Fprintf(&sb, "# Crash Report `%s`\n\n", r.UUID)
	fmt.Fprintf(&sb, "%s\n\n", sum.Message)

	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Signal | %s (%d) |\n", sum.Signame, sum.Signum)
	fmt.Fprintf(&sb, "| PID | %d |\n", sum.PID)
	if !r.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "| Time | %s |\n", r.Timestamp.UTC())
	}
	fmt.Fprintf(&sb, "| Crash | %v |\n", r.IsCrash)
	fmt.Fprintf(&sb, "| Complete | %v |\n", !r.Incomplete)
	if r.OSInfo.OSType != "" {
		fmt.Fprintf(&sb, "| OS | %s %s %s |\n", r.OSInfo.OSType, r.OSInfo.Version, r.OSInfo.Architecture)
	}
	sb.WriteString("\n")

	if frames := r.Error.Stack.Frames; len(frames) > 0 {
		sb.WriteString("## Stack\n\n```\n")
		for i, f := range frames {
			line := f.IP
			if len(f.Names) > 0 && f.Names[0].Name != "" {
				n := f.Names[0]
				line = n.Name
				if n.Filename != "" {
					line += fmt.Sprintf(" (%s:%d)", n.Filename, n.LineNo)
				}
			}
			fmt.Fprintf(&sb, "#%-3d %s\n", i, line)
		}
		sb.WriteString("```\n\n")
	}

	if len(r.SpanIDs) > 0 || len(r.TraceIDs) > 0 {
		sb.WriteString("## Tracing\n\n")
		if len(r.SpanIDs) > 0 {
			fmt.Fprintf(&sb, "- Active spans: %s\n", strings.Join(r.SpanIDs, ", "))
		}
		if len(r.TraceIDs) > 0 {
			fmt.Fprintf(&sb, "- Active traces: %s\n", strings.Join(r.TraceIDs, ", "))
		}
		sb.WriteString("\n")
	}

	if len(r.Counters) > 0 {
		sb.WriteString("## Operations in flight\n\n")
		for name, v := range r.Counters {
			fmt.Fprintf(&sb, "- `%s`: %d\n", name, v)
		}
		sb.WriteString("\n")
	}

	if len(r.Files) > 0 {
		sb.WriteString("## Attached files\n\n")
		for name, body := range r.Files {
			fmt.Fprintf(&sb, "- `%s` (%d bytes)\n", name, len(body))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderMarkdown renders the summary for a terminal. Falls back to the
// raw markdown when styling fails (no TTY capabilities, odd TERM).
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
