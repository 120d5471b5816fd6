package tui

import (
	"faulttree/internal/fragment"
	"faulttree/internal/model"
	"faulttree/internal/navigator"
	"faulttree/internal/render"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the browser needs.
type Deps struct {
	Cache     *fragment.Cache
	Resolver  fragment.Resolver
	Root      model.FragmentPath
	Renderer  render.Renderer
	Preloader *navigator.Preloader
	Policy    navigator.MatchPolicy
	Log       *logrus.Entry
}

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Deps    Deps
	Nav     *navigator.Controller
	Loading bool // Root fragment in flight
	Err     error

	// UI State
	Cursor     int
	WindowSize tea.WindowSizeMsg
	Pending    int // Fragment loads in flight
	Expanding  bool
	Status     string
	StatusErr  bool
	ShowHelp   bool

	// Search State
	InputMode    bool
	InputBuffer  textinput.Model
	SearchActive bool
	Filter       *navigator.FilterResult

	// Content
	Content         string // Rendered page
	ContentViewport viewport.Model

	// Components
	Keys    KeyMap
	Help    help.Model
	Spinner spinner.Model
}

// InitialModel returns the initial state.
func InitialModel(deps Deps) AppModel {
	if deps.Renderer == nil {
		deps.Renderer = render.Plain{}
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	ti := textinput.New()
	ti.Placeholder = "Filter titles..."
	ti.CharLimit = 80
	ti.Width = 30

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	nav := navigator.New(deps.Cache,
		navigator.WithLogger(deps.Log),
		navigator.WithResolver(deps.Resolver),
		navigator.WithPreloader(deps.Preloader),
		navigator.WithMatchPolicy(deps.Policy),
	)

	return AppModel{
		Deps:            deps,
		Nav:             nav,
		Loading:         true,
		InputBuffer:     ti,
		ContentViewport: viewport.New(40, 10),
		Keys:            DefaultKeyMap(),
		Help:            help.New(),
		Spinner:         sp,
	}
}

// Init starts loading the root fragment.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(loadRootCmd(m.Deps.Cache, m.Deps.Root), m.Spinner.Tick)
}
