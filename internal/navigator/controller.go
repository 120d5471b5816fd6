package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faulttree/internal/fragment"
	"faulttree/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrStaleExpansion is returned by Complete when the expansion was cancelled,
// superseded, or its folder is no longer part of the rendered tree.
var ErrStaleExpansion = errors.New("expansion is stale")

// Loader returns the parsed fragment at a path. *fragment.Cache implements it.
type Loader interface {
	Load(ctx context.Context, path model.FragmentPath) ([]model.Node, error)
}

// Peeker returns fragments already at hand without any I/O. *fragment.Cache implements it.
type Peeker interface {
	Peek(path model.FragmentPath) ([]model.Node, bool)
}

// ErrNotLoaded marks a folder whose fragment was not cached when ExpandCached ran.
var ErrNotLoaded = errors.New("fragment not loaded")

type peekLoader struct{ p Peeker }

func (l peekLoader) Load(_ context.Context, path model.FragmentPath) ([]model.Node, error) {
	if nodes, ok := l.p.Peek(path); ok {
		return nodes, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotLoaded)
}

// Expansion is an outstanding fragment load for a folder.
type Expansion struct {
	Handle *Handle
	Path   model.FragmentPath
	gen    uint64
}

// Selection describes what a Select did.
type Selection struct {
	Handle *Handle

	Page    *model.Payload // Set for pages: content for the renderer
	Preload []string       // Image sources first seen on this page

	Expanded  bool       // Folder opened from data already at hand
	Collapsed bool       // Folder closed
	Cancelled bool       // A pending expansion of this folder was abandoned
	Pending   *Expansion // Folder needs a fragment; finish with Complete
	Err       error      // The folder's source could not be resolved
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) { c.log = log }
}

// WithResolver sets the path resolver used for folder sources.
func WithResolver(r fragment.Resolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithPreloader scans every selected page for images.
func WithPreloader(p *Preloader) Option {
	return func(c *Controller) { c.preloader = p }
}

// WithMatchPolicy sets how search keywords are matched.
func WithMatchPolicy(p MatchPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// Controller owns the tree of handles, the single selection and the active
// filter. It is not safe for concurrent use: drive it from one goroutine and
// run fragment loads elsewhere, handing results back through Complete.
type Controller struct {
	loader    Loader
	resolver  fragment.Resolver
	preloader *Preloader
	policy    MatchPolicy
	log       *logrus.Entry

	rootPath model.FragmentPath
	roots    []*Handle
	rootErr  error

	selected *Handle
	active   []*Handle
	notes    []string

	filter *FilterResult
}

// New creates a controller that loads fragments through loader.
func New(loader Loader, opts ...Option) *Controller {
	c := &Controller{
		loader:   loader,
		resolver: fragment.Resolver{Prefix: fragment.DefaultPrefix},
		notes:    []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = fragment.DiscardLogger()
	}
	c.log = c.log.WithField("component", "navigator")
	return c
}

// LoadRoot loads the root fragment and seeds the root handles.
func (c *Controller) LoadRoot(ctx context.Context, path model.FragmentPath) error {
	nodes, err := c.loader.Load(ctx, path)
	return c.SeedRoot(path, nodes, err)
}

// SeedRoot installs a root fragment that was loaded elsewhere. On error the
// tree is left empty and the error is kept for display.
func (c *Controller) SeedRoot(path model.FragmentPath, nodes []model.Node, err error) error {
	c.rootPath = path
	c.roots = nil
	c.selected = nil
	c.active = nil
	c.notes = []string{}
	c.filter = nil
	if err != nil {
		c.rootErr = fmt.Errorf("failed to load root fragment: %w", err)
		c.log.WithError(err).WithField("path", path).Warn("root fragment unavailable")
		return c.rootErr
	}
	c.rootErr = nil
	c.roots = newHandles(nil, path, nodes)
	return nil
}

// RootPath returns the path of the root fragment.
func (c *Controller) RootPath() model.FragmentPath { return c.rootPath }

// RootError returns why the root fragment is missing, or nil.
func (c *Controller) RootError() error { return c.rootErr }

// Roots returns the top-level handles.
func (c *Controller) Roots() []*Handle { return c.roots }

// Selected returns the selected handle, or nil.
func (c *Controller) Selected() *Handle { return c.selected }

// Policy returns the search match policy.
func (c *Controller) Policy() MatchPolicy { return c.policy }

// ActivePath returns the handles from the root to the selection.
func (c *Controller) ActivePath() []*Handle { return c.active }

// Notes returns the inherited notes of the active path, root first.
func (c *Controller) Notes() []string { return c.notes }

// Breadcrumb joins the titles of the active path.
func (c *Controller) Breadcrumb() string {
	return Breadcrumb(c.active)
}

// Breadcrumb joins the titles of path with " > ".
func Breadcrumb(path []*Handle) string {
	titles := make([]string, len(path))
	for i, h := range path {
		titles[i] = h.Title()
	}
	return strings.Join(titles, " > ")
}

// Select makes h the one selected handle and acts on it: pages yield their
// content, folders toggle. A folder whose children live in another fragment
// is not expanded here; the returned Pending expansion must be loaded and
// passed to Complete.
func (c *Controller) Select(h *Handle) Selection {
	if c.selected != nil {
		c.selected.selected = false
	}
	h.selected = true
	c.selected = h
	c.active = h.Lineage()
	c.notes = CollectNotes(c.active)

	sel := Selection{Handle: h}
	if h.IsPage() {
		payload := h.Node.Payload()
		sel.Page = &payload
		if c.preloader != nil {
			sel.Preload = c.preloader.Scan(payload)
		}
		return sel
	}

	switch {
	case h.state == Expanded:
		c.collapse(h)
		sel.Collapsed = true
	case h.loading:
		// Second select while loading abandons the load; the fetch still fills the cache.
		h.loading = false
		h.gen++
		sel.Cancelled = true
	case h.Node.HasInlineChildren():
		c.attach(h, h.Path, h.Node.Children)
		sel.Expanded = true
	case h.Node.HasSource():
		path, err := c.resolver.Check(h.Path, h.Node.Source)
		if err != nil {
			h.loadErr = err
			sel.Err = err
			return sel
		}
		h.gen++
		h.loading = true
		h.loadErr = nil
		sel.Pending = &Expansion{Handle: h, Path: path, gen: h.gen}
	}
	return sel
}

// Complete applies the result of loading a pending expansion. Children are
// built in one step from the whole fragment. On failure the folder stays
// collapsed and remembers the error; selecting it again retries.
func (c *Controller) Complete(exp *Expansion, nodes []model.Node, err error) error {
	h := exp.Handle
	if !h.loading || exp.gen != h.gen || h.detached {
		c.log.WithField("path", exp.Path).Debug("discarding stale expansion")
		return ErrStaleExpansion
	}
	h.loading = false
	if err != nil {
		h.loadErr = err
		c.log.WithError(err).WithFields(logrus.Fields{
			"folder": h.Title(),
			"path":   exp.Path,
		}).Warn("folder expansion failed")
		return err
	}
	c.attach(h, exp.Path, nodes)
	return nil
}

// Toggle selects h and, when that starts a fragment load, performs it and
// completes the expansion before returning.
func (c *Controller) Toggle(ctx context.Context, h *Handle) Selection {
	sel := c.Select(h)
	if sel.Pending != nil {
		nodes, err := c.loader.Load(ctx, sel.Pending.Path)
		if err := c.Complete(sel.Pending, nodes, err); err != nil {
			sel.Err = err
		} else {
			sel.Expanded = true
		}
	}
	return sel
}

// ExpandAll opens every folder reachable from the roots, loading fragments
// as needed, without touching the selection. A source already open on the
// way down from the root is not followed again. Failed folders keep their
// error and stay collapsed; all failures are returned joined.
func (c *Controller) ExpandAll(ctx context.Context) error {
	return c.expandAll(ctx, c.loader)
}

// ExpandCached is ExpandAll restricted to fragments the loader already holds.
// It never fetches: folders whose fragment is missing get ErrNotLoaded as
// their load error. The loader must implement Peeker.
func (c *Controller) ExpandCached() error {
	p, ok := c.loader.(Peeker)
	if !ok {
		return errors.New("loader cannot report cached fragments")
	}
	return c.expandAll(context.Background(), peekLoader{p})
}

func (c *Controller) expandAll(ctx context.Context, loader Loader) error {
	var errs []error
	var visit func(hs []*Handle, open map[model.FragmentPath]bool)
	visit = func(hs []*Handle, open map[model.FragmentPath]bool) {
		for _, h := range hs {
			if !h.IsFolder() {
				continue
			}
			if h.state != Expanded {
				if err := c.expand(ctx, loader, h, open); err != nil {
					errs = append(errs, err)
					continue
				}
			}
			next := open
			if len(h.children) > 0 && h.children[0].Path != h.Path {
				next = make(map[model.FragmentPath]bool, len(open)+1)
				for p := range open {
					next[p] = true
				}
				next[h.children[0].Path] = true
			}
			visit(h.children, next)
		}
	}
	visit(c.roots, map[model.FragmentPath]bool{c.rootPath: true})
	c.refreshFilter()
	return errors.Join(errs...)
}

func (c *Controller) expand(ctx context.Context, loader Loader, h *Handle, open map[model.FragmentPath]bool) error {
	switch {
	case h.Node.HasInlineChildren():
		c.attach(h, h.Path, h.Node.Children)
	case h.Node.HasSource():
		path, err := c.resolver.Check(h.Path, h.Node.Source)
		if err == nil && open[path] {
			err = &model.ResolutionError{Base: h.Path, Ref: h.Node.Source, Reason: "source refers back to an enclosing fragment"}
		}
		if err != nil {
			h.loadErr = err
			return err
		}
		h.gen++
		h.loading = true
		h.loadErr = nil
		nodes, err := loader.Load(ctx, path)
		return c.Complete(&Expansion{Handle: h, Path: path, gen: h.gen}, nodes, err)
	}
	return nil
}

func (c *Controller) attach(h *Handle, path model.FragmentPath, nodes []model.Node) {
	h.loadErr = nil
	h.children = newHandles(h, path, nodes)
	h.state = Expanded
	c.refreshFilter()
}

func (c *Controller) collapse(h *Handle) {
	h.detach()
	h.children = nil
	h.state = Collapsed
	c.refreshFilter()
}

// ApplyFilter filters the rendered tree by keyword and opens every ancestor
// of a match. An empty keyword clears the filter.
func (c *Controller) ApplyFilter(keyword string) FilterResult {
	res := Filter(c.roots, keyword, c.policy)
	for _, h := range res.Expand {
		if h.state != Expanded && h.children != nil {
			h.state = Expanded
		}
	}
	if res.Keyword == "" {
		c.filter = nil
	} else {
		c.filter = &res
	}
	return res
}

// ActiveFilter returns the filter in effect, or nil.
func (c *Controller) ActiveFilter() *FilterResult { return c.filter }

// refreshFilter recomputes an active filter after the tree changed shape.
// Handles shown before stay shown while they are still rendered, so a folder
// collapsed under the filter keeps its row even when its matches are gone.
func (c *Controller) refreshFilter() {
	if c.filter == nil {
		return
	}
	prev := c.filter.Visible
	res := Filter(c.roots, c.filter.Keyword, c.policy)
	walk(c.roots, func(h *Handle) {
		if prev[h] {
			res.Visible[h] = true
		}
	})
	res.NoResults = len(res.Visible) == 0
	c.filter = &res
}

// Visible returns the rendered handles in display order, honouring the
// active filter. Collapsed folders contribute only themselves.
func (c *Controller) Visible() []*Handle {
	var out []*Handle
	var add func(hs []*Handle)
	add = func(hs []*Handle) {
		for _, h := range hs {
			if c.filter != nil && !c.filter.Visible[h] {
				continue
			}
			out = append(out, h)
			if h.state == Expanded {
				add(h.children)
			}
		}
	}
	add(c.roots)
	return out
}

// Find follows a trail of positional keys from the roots, expanding folders
// on the way. It is how non-interactive callers address a handle.
func (c *Controller) Find(ctx context.Context, trail []int) (*Handle, error) {
	if len(trail) == 0 {
		return nil, errors.New("empty trail")
	}
	hs := c.roots
	var h *Handle
	for depth, key := range trail {
		if key < 0 || key >= len(hs) {
			return nil, fmt.Errorf("no node at position %d of level %d", key, depth)
		}
		h = hs[key]
		if depth == len(trail)-1 {
			break
		}
		if !h.IsFolder() {
			return nil, fmt.Errorf("%q is a page and has no children", h.Title())
		}
		if h.state != Expanded {
			if err := c.expand(ctx, c.loader, h, nil); err != nil {
				return nil, err
			}
		}
		hs = h.children
	}
	return h, nil
}

