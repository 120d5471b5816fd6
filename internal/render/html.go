package render

import (
	"bytes"

	"faulttree/internal/model"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// HTML renders payloads to HTML for the web mode.
type HTML struct {
	md goldmark.Markdown
}

func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Knowledge-base content embeds <image> tags; keep them.
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (h *HTML) Render(p model.Payload) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(Markdown(p)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
