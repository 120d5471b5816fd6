package render

import (
	"fmt"
	"sync"

	"faulttree/internal/model"

	"github.com/charmbracelet/glamour"
)

// Terminal renders payloads with glamour for display in the TUI.
type Terminal struct {
	style string // glamour standard style name; "auto" detects the terminal background

	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

func NewTerminal(style string, width int) *Terminal {
	if style == "" {
		style = "auto"
	}
	return &Terminal{style: style, width: width}
}

// SetWidth changes the wrap width; the glamour renderer is rebuilt lazily.
func (t *Terminal) SetWidth(width int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if width != t.width {
		t.width = width
		t.renderer = nil
	}
}

func (t *Terminal) Render(p model.Payload) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.renderer == nil {
		styleOpt := glamour.WithStandardStyle(t.style)
		if t.style == "auto" {
			styleOpt = glamour.WithAutoStyle()
		}
		opts := []glamour.TermRendererOption{styleOpt, glamour.WithPreservedNewLines()}
		if t.width > 0 {
			opts = append(opts, glamour.WithWordWrap(t.width))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return "", fmt.Errorf("glamour renderer: %w", err)
		}
		t.renderer = r
	}
	return t.renderer.Render(Markdown(p))
}
