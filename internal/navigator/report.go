package navigator

import (
	"fmt"
	"strings"

	"faulttree/internal/model"

	"github.com/muesli/reflow/wordwrap"
)

// ReportOptions controls GenerateReport.
type ReportOptions struct {
	Verbose bool // Include page content, root causes and measures
	Width   int  // Wrap width for notes and page text; 0 disables wrapping
}

// GenerateReport renders the visible tree as an indented plain-text outline.
func GenerateReport(c *Controller, opts ReportOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fault tree report (root: %s)\n", c.RootPath())
	if err := c.RootError(); err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", err)
		return b.String()
	}

	visible := c.Visible()
	if f := c.ActiveFilter(); f != nil {
		fmt.Fprintf(&b, "Filter: %q (%s), %d match(es)\n", f.Keyword, c.Policy(), len(f.Matches))
		if f.NoResults {
			b.WriteString("\nNo results.\n")
			return b.String()
		}
	}
	b.WriteString("\n")

	for _, h := range visible {
		indent := strings.Repeat("  ", h.Depth)
		marker := ""
		if f := c.ActiveFilter(); f != nil && f.IsMatch(h) {
			marker = " " + model.IconMatch
		}
		fmt.Fprintf(&b, "%s%s %s%s\n", indent, h.Icon(), h.Title(), marker)

		detail := indent + "    "
		if h.Node.Notes != "" {
			writeWrapped(&b, detail, model.IconNote+" "+h.Node.Notes, opts.Width)
		}
		if err := h.LoadErr(); err != nil {
			writeWrapped(&b, detail, "error: "+err.Error(), opts.Width)
		}
		if !opts.Verbose || !h.IsPage() {
			continue
		}
		p := h.Node.Payload()
		if p.Content != "" {
			writeWrapped(&b, detail, p.Content, opts.Width)
		}
		if p.RootCause != "" {
			writeWrapped(&b, detail, "Root cause: "+p.RootCause, opts.Width)
		}
		for i, m := range p.Measures {
			writeWrapped(&b, detail, fmt.Sprintf("%d. %s", i+1, m), opts.Width)
		}
	}
	return b.String()
}

func writeWrapped(b *strings.Builder, indent, text string, width int) {
	if width > len(indent)+10 {
		text = wordwrap.String(text, width-len(indent))
	}
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
}
