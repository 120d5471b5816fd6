package tui

import (
	"fmt"
	"strings"

	"faulttree/internal/model"
	"faulttree/internal/navigator"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true) // Sky Blue/Cyan
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // Orange
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	borderColor = lipgloss.Color("63")
)

// layout returns the interior widths of both panels and their interior height.
func (m AppModel) layout() (left, right, height int) {
	netWidth := m.WindowSize.Width - 6
	if netWidth < 20 {
		netWidth = 20
	}
	left = netWidth * 2 / 5
	right = netWidth - left

	boxHeight := m.WindowSize.Height - 6
	if boxHeight < 6 {
		boxHeight = 6
	}
	height = boxHeight - 2
	return left, right, height
}

// contentHeight is what remains of the right panel below breadcrumb and notes.
func contentHeight(interior, notes int) int {
	used := 2 // breadcrumb + blank
	if notes > 0 {
		used += notes + 2
	}
	if h := interior - used; h > 1 {
		return h
	}
	return 1
}

func (m AppModel) View() string {
	if m.ShowHelp {
		return m.renderHelpDialog()
	}

	leftWidth, rightWidth, interiorHeight := m.layout()

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(m.renderTree(leftWidth, interiorHeight))

	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(m.renderContent(rightWidth))

	header := titleStyle.Render("Fault Tree")
	if root := m.Nav.RootPath(); root != "" {
		header += " " + dimStyle.Render(string(root))
	}

	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n" + m.renderFooter()
}

func (m AppModel) renderTree(width, height int) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Catalog"))
	b.WriteString("\n\n")

	switch {
	case m.Loading:
		b.WriteString(m.Spinner.View() + " Loading catalog...")
		return b.String()
	case m.Nav.RootError() != nil:
		b.WriteString(errorStyle.Render(wordwrap.String(m.Nav.RootError().Error(), width)))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Press r to retry."))
		return b.String()
	}

	visible := m.Nav.Visible()
	if m.Filter != nil && m.Filter.NoResults {
		b.WriteString(dimStyle.Render(fmt.Sprintf("No results for %q", m.Filter.Keyword)))
		return b.String()
	}

	// Keep the cursor roughly centred once the list outgrows the panel.
	rows := height - 2
	if rows < 1 {
		rows = 1
	}
	start, end := 0, len(visible)
	if len(visible) > rows {
		if m.Cursor >= rows/2 {
			start = m.Cursor - rows/2
		}
		if start+rows > len(visible) {
			start = len(visible) - rows
		}
		end = start + rows
	}

	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(visible[i], i == m.Cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m AppModel) renderRow(h *navigator.Handle, atCursor bool, width int) string {
	icon := h.Icon()
	if h.Loading() {
		icon = m.Spinner.View()
	}
	line := strings.Repeat("  ", h.Depth) + icon + " " + h.Title()
	if m.Filter != nil && m.Filter.IsMatch(h) {
		line += " " + model.IconMatch
	}
	if lipgloss.Width(line) > width && width > 3 {
		line = truncate(line, width-1) + "…"
	}

	switch {
	case h.Selected():
		return selectedStyle.Render(line)
	case atCursor:
		return cursorStyle.Render("> " + line)
	case h.LoadErr() != nil:
		return errorStyle.Render(line)
	case m.Filter != nil && m.Filter.IsMatch(h):
		return matchStyle.Render(line)
	case m.Filter != nil:
		return dimStyle.Render(line)
	default:
		return normalStyle.Render(line)
	}
}

func (m AppModel) renderContent(width int) string {
	var b strings.Builder

	crumb := m.Nav.Breadcrumb()
	if crumb == "" {
		crumb = dimStyle.Render("nothing selected")
	}
	b.WriteString(headingStyle.Render("Path: ") + wordwrap.String(crumb, width-6))
	b.WriteString("\n\n")

	if notes := m.Nav.Notes(); len(notes) > 0 {
		b.WriteString(headingStyle.Render("Notes"))
		b.WriteString("\n")
		for _, n := range notes {
			b.WriteString(noteStyle.Render(wordwrap.String(model.IconNote+" "+n, width)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if h := m.Nav.Selected(); h != nil && h.LoadErr() != nil {
		b.WriteString(errorStyle.Render(wordwrap.String(h.LoadErr().Error(), width)))
		b.WriteString("\n")
	}

	if m.Content != "" {
		b.WriteString(m.ContentViewport.View())
	}
	return b.String()
}

func (m AppModel) renderFooter() string {
	if m.InputMode {
		return fmt.Sprintf("Search: %s", m.InputBuffer.View())
	}
	var parts []string
	if m.SearchActive && m.Filter != nil {
		label := fmt.Sprintf("Filter: %q (%d matches)", m.Filter.Keyword, len(m.Filter.Matches))
		if m.Filter.NoResults {
			label = fmt.Sprintf("Filter: %q (no results)", m.Filter.Keyword)
		}
		parts = append(parts, matchStyle.Render(label))
	}
	if m.Status != "" {
		status := m.Status
		if m.busy() {
			status = m.Spinner.View() + " " + status
		}
		if m.StatusErr {
			parts = append(parts, errorStyle.Render(status))
		} else {
			parts = append(parts, statusStyle.Render(status))
		}
	}
	parts = append(parts, m.Help.ShortHelpView(m.Keys.ShortHelp()))
	return strings.Join(parts, "\n")
}

func (m AppModel) renderHelpDialog() string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	helpWidth := w * 80 / 100
	if helpWidth < 40 {
		helpWidth = 40
	}
	if helpWidth > w-4 {
		helpWidth = w - 4
	}

	hm := m.Help
	hm.ShowAll = true
	content := titleStyle.Render("Keys") + "\n\n" + hm.View(m.Keys) +
		"\n\n" + dimStyle.Render(fmt.Sprintf("Search is %s. Press ? or esc to close.", m.Nav.Policy()))

	dialog := lipgloss.NewStyle().
		Width(helpWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Render(content)

	return lipgloss.Place(w, h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

// truncate cuts s to at most n cells.
func truncate(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > n {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
