package tui

import (
	"context"

	"faulttree/internal/fragment"
	"faulttree/internal/model"
	"faulttree/internal/navigator"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgRootLoaded carries the root fragment, or the reason it is missing.
type MsgRootLoaded struct {
	Path  model.FragmentPath
	Nodes []model.Node
	Err   error
}

// MsgFragmentLoaded carries the fragment of a pending folder expansion.
type MsgFragmentLoaded struct {
	Expansion *navigator.Expansion
	Nodes     []model.Node
	Err       error
}

// MsgPrefetched indicates every fragment reachable from the root is cached.
type MsgPrefetched struct {
	Count int
	Err   error
}

// MsgPreloaded reports how many images were requested.
type MsgPreloaded struct {
	Count int
}

// MsgCopied reports the outcome of a clipboard write.
type MsgCopied struct {
	Err error
}

var clipboardWrite = clipboard.WriteAll

func loadRootCmd(cache *fragment.Cache, path model.FragmentPath) tea.Cmd {
	return func() tea.Msg {
		nodes, err := cache.Load(context.Background(), path)
		return MsgRootLoaded{Path: path, Nodes: nodes, Err: err}
	}
}

func loadFragmentCmd(cache *fragment.Cache, exp *navigator.Expansion) tea.Cmd {
	return func() tea.Msg {
		nodes, err := cache.Load(context.Background(), exp.Path)
		return MsgFragmentLoaded{Expansion: exp, Nodes: nodes, Err: err}
	}
}

func prefetchCmd(cache *fragment.Cache, resolver fragment.Resolver, root model.FragmentPath) tea.Cmd {
	return func() tea.Msg {
		n, err := fragment.Prefetch(context.Background(), cache, resolver, root)
		return MsgPrefetched{Count: n, Err: err}
	}
}

func preloadCmd(p *navigator.Preloader, srcs []string) tea.Cmd {
	return func() tea.Msg {
		return MsgPreloaded{Count: p.Preload(context.Background(), srcs)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return MsgCopied{Err: clipboardWrite(text)}
	}
}
