// Package render turns page payloads into displayable markup. The navigator
// decides what to show; this package only decides how it looks.
package render

import (
	"strings"

	"faulttree/internal/model"
)

// Section headings used by Markdown.
const (
	HeadingMeasures  = "Remediation"
	HeadingRootCause = "Root cause"
	Placeholder      = "No content."
)

// Renderer renders a page payload.
type Renderer interface {
	Render(p model.Payload) (string, error)
}

// Markdown lays a payload out as markdown: remediation measures first, then
// the root cause, then the free text. Text is passed through untouched, so
// inline HTML in the knowledge base reaches the final renderer.
func Markdown(p model.Payload) string {
	if p.Empty() {
		return "_" + Placeholder + "_\n"
	}

	var b strings.Builder
	if len(p.Measures) > 0 {
		b.WriteString("### " + HeadingMeasures + "\n\n")
		for _, m := range p.Measures {
			b.WriteString("- " + m + "\n")
		}
		b.WriteString("\n")
	}
	if p.RootCause != "" {
		b.WriteString("### " + HeadingRootCause + "\n\n")
		b.WriteString(p.RootCause + "\n\n")
	}
	if p.Content != "" {
		b.WriteString(p.Content + "\n")
	}
	return b.String()
}

// Plain returns the markdown unchanged. It is the renderer of last resort.
type Plain struct{}

func (Plain) Render(p model.Payload) (string, error) {
	return Markdown(p), nil
}
