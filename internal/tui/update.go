package tui

import (
	"errors"
	"fmt"

	"faulttree/internal/model"
	"faulttree/internal/navigator"
	"faulttree/internal/render"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type widthSetter interface {
	SetWidth(int)
}

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		_, rightWidth, interiorHeight := m.layout()
		m.ContentViewport.Width = rightWidth
		m.ContentViewport.Height = contentHeight(interiorHeight, len(m.Nav.Notes()))
		m.Help.Width = msg.Width
		if ws, ok := m.Deps.Renderer.(widthSetter); ok {
			ws.SetWidth(rightWidth - 2)
		}
		if sel := m.Nav.Selected(); sel != nil && sel.IsPage() {
			m.showPage(sel.Node.Payload())
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case MsgRootLoaded:
		m.Loading = false
		m.Err = m.Nav.SeedRoot(msg.Path, msg.Nodes, msg.Err)
		m.Cursor = 0
		if m.Err == nil && m.SearchActive {
			m.Filter = filterPtr(m.Nav.ApplyFilter(m.InputBuffer.Value()))
		}
		return m, nil

	case MsgFragmentLoaded:
		if m.Pending > 0 {
			m.Pending--
		}
		cur := m.current()
		err := m.Nav.Complete(msg.Expansion, msg.Nodes, msg.Err)
		switch {
		case errors.Is(err, navigator.ErrStaleExpansion):
		case err != nil:
			m.setError(fmt.Sprintf("Could not open %q: %v", msg.Expansion.Handle.Title(), err))
		default:
			m.Status = ""
		}
		m.syncFilter()
		m.follow(cur)
		return m, nil

	case MsgPrefetched:
		m.Expanding = false
		cur := m.current()
		// Prefetch ran off the event loop; only cached fragments are opened here.
		err := m.Nav.ExpandCached()
		if msg.Err != nil {
			err = msg.Err
		}
		if err != nil {
			m.setError(fmt.Sprintf("Expanded with errors: %v", err))
		} else {
			m.Status = fmt.Sprintf("Expanded %d fragments", msg.Count)
			m.StatusErr = false
		}
		m.syncFilter()
		m.follow(cur)
		return m, nil

	case MsgPreloaded:
		m.Deps.Log.WithField("count", msg.Count).Debug("images preloaded")
		return m, nil

	case MsgCopied:
		if msg.Err != nil {
			m.setError(fmt.Sprintf("Copy failed: %v", msg.Err))
		} else {
			m.Status = "Copied page to clipboard"
			m.StatusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		if m.InputMode {
			switch msg.Type {
			case tea.KeyEnter:
				// Keep the filter, leave the input.
				m.InputMode = false
				m.InputBuffer.Blur()
				m.performSearch()
				return m, nil
			case tea.KeyEsc:
				m.clearSearch()
				return m, nil
			}
			m.InputBuffer, cmd = m.InputBuffer.Update(msg)
			m.performSearch()
			return m, cmd
		}

		if m.ShowHelp {
			if key.Matches(msg, m.Keys.Help, m.Keys.ClearSearch, m.Keys.Quit) {
				m.ShowHelp = false
			}
			return m, nil
		}

		visible := m.Nav.Visible()
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.ClearSearch):
			if m.SearchActive {
				m.clearSearch()
			}
		case key.Matches(msg, m.Keys.Up):
			if m.Cursor > 0 {
				m.Cursor--
			}
		case key.Matches(msg, m.Keys.Down):
			if m.Cursor < len(visible)-1 {
				m.Cursor++
			}
		case key.Matches(msg, m.Keys.PageUp):
			m.Cursor -= m.pageSize()
			m.clampCursor(len(visible))
		case key.Matches(msg, m.Keys.PageDown):
			m.Cursor += m.pageSize()
			m.clampCursor(len(visible))
		case key.Matches(msg, m.Keys.Top):
			m.Cursor = 0
		case key.Matches(msg, m.Keys.Bottom):
			m.Cursor = len(visible) - 1
			m.clampCursor(len(visible))
		case key.Matches(msg, m.Keys.Select):
			return m.selectCurrent()
		case key.Matches(msg, m.Keys.Parent):
			if h := m.current(); h != nil && h.Parent != nil {
				m.follow(h.Parent)
			}
		case key.Matches(msg, m.Keys.Search):
			m.InputMode = true
			m.InputBuffer.Focus()
			return m, textinput.Blink
		case key.Matches(msg, m.Keys.ExpandAll):
			if m.Nav.RootError() != nil || m.Loading || m.Expanding {
				return m, nil
			}
			m.Expanding = true
			m.Status = "Expanding all folders..."
			m.StatusErr = false
			return m, tea.Batch(prefetchCmd(m.Deps.Cache, m.Deps.Resolver, m.Deps.Root), m.Spinner.Tick)
		case key.Matches(msg, m.Keys.Reload):
			if m.Nav.RootError() == nil || m.Loading {
				return m, nil
			}
			m.Loading = true
			m.Err = nil
			return m, tea.Batch(loadRootCmd(m.Deps.Cache, m.Deps.Root), m.Spinner.Tick)
		case key.Matches(msg, m.Keys.Copy):
			if sel := m.Nav.Selected(); sel != nil && sel.IsPage() {
				text := m.Nav.Breadcrumb() + "\n\n" + render.Markdown(sel.Node.Payload())
				return m, copyCmd(text)
			}
		case key.Matches(msg, m.Keys.ScrollUp):
			m.ContentViewport.SetYOffset(m.ContentViewport.YOffset - m.ContentViewport.Height/2)
		case key.Matches(msg, m.Keys.ScrollDown):
			m.ContentViewport.SetYOffset(m.ContentViewport.YOffset + m.ContentViewport.Height/2)
		case key.Matches(msg, m.Keys.Help):
			m.ShowHelp = true
		}
	}

	return m, cmd
}

func (m AppModel) selectCurrent() (tea.Model, tea.Cmd) {
	h := m.current()
	if h == nil {
		return m, nil
	}
	sel := m.Nav.Select(h)
	var cmds []tea.Cmd
	switch {
	case sel.Page != nil:
		m.Status = ""
		m.showPage(*sel.Page)
		if len(sel.Preload) > 0 && m.Deps.Preloader != nil {
			cmds = append(cmds, preloadCmd(m.Deps.Preloader, sel.Preload))
		}
	case sel.Pending != nil:
		m.Pending++
		m.Status = fmt.Sprintf("Loading %s...", sel.Pending.Path)
		m.StatusErr = false
		cmds = append(cmds, loadFragmentCmd(m.Deps.Cache, sel.Pending), m.Spinner.Tick)
	case sel.Err != nil:
		m.setError(fmt.Sprintf("Cannot open %q: %v", h.Title(), sel.Err))
	case sel.Cancelled:
		m.Status = fmt.Sprintf("Stopped loading %q", h.Title())
		m.StatusErr = false
	default:
		m.Status = ""
	}
	m.syncFilter()
	m.follow(h)
	_, _, interiorHeight := m.layout()
	m.ContentViewport.Height = contentHeight(interiorHeight, len(m.Nav.Notes()))
	return m, tea.Batch(cmds...)
}

func (m *AppModel) showPage(p model.Payload) {
	out, err := m.Deps.Renderer.Render(p)
	if err != nil {
		m.Deps.Log.WithError(err).Warn("render failed, showing markdown")
		out = render.Markdown(p)
	}
	m.Content = out
	m.ContentViewport.SetContent(out)
	m.ContentViewport.GotoTop()
}

func (m *AppModel) performSearch() {
	keyword := m.InputBuffer.Value()
	cur := m.current()
	res := m.Nav.ApplyFilter(keyword)
	if res.Keyword == "" {
		m.SearchActive = false
		m.Filter = nil
	} else {
		m.SearchActive = true
		m.Filter = &res
	}
	m.follow(cur)
}

func (m *AppModel) clearSearch() {
	m.InputMode = false
	m.InputBuffer.Blur()
	m.InputBuffer.SetValue("")
	m.performSearch()
}

// syncFilter picks up a filter the controller recomputed after the tree changed.
func (m *AppModel) syncFilter() {
	m.Filter = m.Nav.ActiveFilter()
}

func (m *AppModel) setError(s string) {
	m.Status = s
	m.StatusErr = true
	m.Deps.Log.Warn(s)
}

func (m AppModel) current() *navigator.Handle {
	visible := m.Nav.Visible()
	if m.Cursor < 0 || m.Cursor >= len(visible) {
		return nil
	}
	return visible[m.Cursor]
}

// follow moves the cursor onto h if it is still rendered.
func (m *AppModel) follow(h *navigator.Handle) {
	visible := m.Nav.Visible()
	for i, v := range visible {
		if v == h {
			m.Cursor = i
			return
		}
	}
	m.clampCursor(len(visible))
}

func (m *AppModel) clampCursor(n int) {
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m AppModel) pageSize() int {
	_, _, h := m.layout()
	if h < 4 {
		return 1
	}
	return h - 3
}

func (m AppModel) busy() bool {
	return m.Loading || m.Pending > 0 || m.Expanding
}

func filterPtr(r navigator.FilterResult) *navigator.FilterResult {
	if r.Keyword == "" {
		return nil
	}
	return &r
}
