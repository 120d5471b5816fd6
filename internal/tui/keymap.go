package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the browser.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Select      key.Binding
	Parent      key.Binding
	Search      key.Binding
	ClearSearch key.Binding
	ExpandAll   key.Binding
	Reload      key.Binding
	Copy        key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
		Top:         key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Select:      key.NewBinding(key.WithKeys("enter", " ", "l", "right"), key.WithHelp("enter", "open/toggle")),
		Parent:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "parent")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ClearSearch: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload root")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy page")),
		ScrollUp:    key.NewBinding(key.WithKeys("K", "ctrl+u"), key.WithHelp("K", "scroll content up")),
		ScrollDown:  key.NewBinding(key.WithKeys("J", "ctrl+d"), key.WithHelp("J", "scroll content down")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Search, k.ExpandAll, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Select, k.Parent, k.ExpandAll, k.Reload},
		{k.Search, k.ClearSearch, k.Copy, k.ScrollUp, k.ScrollDown},
		{k.Help, k.Quit},
	}
}
