package navigator

import (
	"context"
	"errors"
	"testing"

	"faulttree/internal/fragment"
	"faulttree/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRoot(t *testing.T) {
	c, _ := newTestController(t)

	assert.Equal(t, rootPath, c.RootPath())
	assert.NoError(t, c.RootError())
	assert.Equal(t, []string{"Engine", "Brakes", "Gearbox", "Overview"}, titles(c.Roots()))
	assert.Equal(t, titles(c.Roots()), titles(c.Visible()))
	assert.Nil(t, c.Selected())
	assert.Empty(t, c.Notes())

	engine := c.Roots()[0]
	assert.Nil(t, engine.Parent)
	assert.Equal(t, 0, engine.Depth)
	assert.Equal(t, rootPath, engine.Path)
	assert.Equal(t, model.IconFolder, engine.Icon())
	assert.Equal(t, model.IconPage, c.Roots()[3].Icon())
}

func TestLoadRootFailure(t *testing.T) {
	c := New(fragment.NewCache(newKB(), nil))
	err := c.LoadRoot(context.Background(), "data/none.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load root fragment")
	var fe *model.FetchError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, err, c.RootError())
	assert.Empty(t, c.Roots())
	assert.Empty(t, c.Visible())

	// Reload succeeds once the fragment exists.
	require.NoError(t, c.LoadRoot(context.Background(), rootPath))
	assert.NoError(t, c.RootError())
	assert.Len(t, c.Roots(), 4)
}

func TestSelectPage(t *testing.T) {
	c, _ := newTestController(t)
	brakes := child(t, c.Roots(), "Brakes")
	open(t, c, brakes)

	page := child(t, brakes.Children(), "Brake Fault")
	sel := c.Select(page)

	require.NotNil(t, sel.Page)
	assert.Equal(t, "Worn pads", sel.Page.RootCause)
	assert.Equal(t, []string{"Replace pads"}, sel.Page.Measures)
	assert.Same(t, page, c.Selected())
	assert.Equal(t, []*Handle{brakes, page}, c.ActivePath())
	assert.Equal(t, "Brakes > Brake Fault", c.Breadcrumb())
	assert.Equal(t, []int{1, 0}, page.Trail())
	assert.Equal(t, Collapsed, page.State())
}

func TestToggleLaw(t *testing.T) {
	c, kb := newTestController(t)
	engine := child(t, c.Roots(), "Engine")

	open(t, c, engine)
	first := engine.Children()
	require.Len(t, first, 2)
	assert.Equal(t, model.FragmentPath("data/engine/main.json"), first[0].Path)
	assert.Same(t, engine, first[0].Parent)
	assert.Equal(t, 1, first[0].Depth)

	sel := c.Toggle(context.Background(), engine)
	assert.True(t, sel.Collapsed)
	assert.False(t, engine.Expanded())
	assert.Nil(t, engine.Children())
	assert.Equal(t, []string{"Engine", "Brakes", "Gearbox", "Overview"}, titles(c.Visible()))

	open(t, c, engine)
	second := engine.Children()
	assert.Equal(t, titles(first), titles(second))
	for i := range first {
		assert.Same(t, first[i].Node, second[i].Node, "children are rebuilt from the cached fragment")
	}
	assert.Equal(t, 1, kb.count("data/engine/main.json"))
}

func TestInlineChildren(t *testing.T) {
	c, kb := newTestController(t)
	brakes := child(t, c.Roots(), "Brakes")

	sel := c.Select(brakes)
	assert.True(t, sel.Expanded)
	assert.Nil(t, sel.Pending)
	assert.Equal(t, rootPath, brakes.Children()[0].Path, "inline children belong to their folder's fragment")
	assert.Equal(t, 1, kb.count(rootPath))
}

func TestSelectionExclusivity(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")
	brakes := child(t, c.Roots(), "Brakes")

	open(t, c, engine)
	open(t, c, brakes)
	electrical := child(t, engine.Children(), "Electrical")
	open(t, c, electrical)

	sequence := []*Handle{
		child(t, electrical.Children(), "Battery Fault"),
		child(t, brakes.Children(), "Brake Fault"),
		electrical,
		child(t, c.Roots(), "Overview"),
		engine,
	}
	for _, h := range sequence {
		c.Select(h)
		count := 0
		walk(c.Roots(), func(x *Handle) {
			if x.Selected() {
				count++
			}
		})
		assert.Equal(t, 1, count, "after selecting %q", h.Title())
		assert.True(t, h.Selected())
	}
}

func TestNotesFollowActivePath(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")
	open(t, c, engine)
	electrical := child(t, engine.Children(), "Electrical")
	open(t, c, electrical)
	starter := child(t, electrical.Children(), "Starter")
	open(t, c, starter)

	c.Select(child(t, starter.Children(), "Starter Fault"))
	assert.Equal(t, []string{"n1", "n3"}, c.Notes())
	assert.Equal(t, "Engine > Electrical > Starter > Starter Fault", c.Breadcrumb())

	c.Select(child(t, c.Roots(), "Overview"))
	assert.Equal(t, []string{}, c.Notes())
}

func TestFetchFailureContainment(t *testing.T) {
	c, kb := newTestController(t)
	brakes := child(t, c.Roots(), "Brakes")
	open(t, c, brakes)
	before := brakes.Children()

	gearbox := child(t, c.Roots(), "Gearbox")
	sel := c.Toggle(context.Background(), gearbox)

	var fe *model.FetchError
	require.ErrorAs(t, sel.Err, &fe)
	assert.False(t, gearbox.Expanded())
	assert.False(t, gearbox.Loading())
	assert.Equal(t, model.IconError, gearbox.Icon())
	assert.ErrorAs(t, gearbox.LoadErr(), &fe)

	// Unrelated subtrees are untouched and still work.
	assert.True(t, brakes.Expanded())
	assert.Equal(t, before, brakes.Children())
	page := c.Select(child(t, brakes.Children(), "Brake Fault"))
	assert.NotNil(t, page.Page)

	// The failure was not cached: the next attempt fetches again.
	kb.add("data/gearbox.json", `[{"type":"page","title":"Slipping Clutch"}]`)
	sel = c.Toggle(context.Background(), gearbox)
	require.NoError(t, sel.Err)
	assert.True(t, gearbox.Expanded())
	assert.NoError(t, gearbox.LoadErr())
	assert.Equal(t, []string{"Slipping Clutch"}, titles(gearbox.Children()))
	assert.Equal(t, 2, kb.count("data/gearbox.json"))
}

func TestPendingExpansion(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")

	sel := c.Select(engine)
	require.NotNil(t, sel.Pending)
	assert.Equal(t, model.FragmentPath("data/engine/main.json"), sel.Pending.Path)
	assert.True(t, engine.Loading())
	assert.Equal(t, model.IconLoading, engine.Icon())
	assert.False(t, engine.Expanded())

	nodes, err := fragment.NewCache(newKB(), nil).Load(context.Background(), sel.Pending.Path)
	require.NoError(t, err)
	require.NoError(t, c.Complete(sel.Pending, nodes, nil))
	assert.True(t, engine.Expanded())
	assert.False(t, engine.Loading())
	assert.Len(t, engine.Children(), 2)

	// A completion delivered twice is stale the second time.
	assert.ErrorIs(t, c.Complete(sel.Pending, nodes, nil), ErrStaleExpansion)
}

func TestCancelledExpansionIsDiscarded(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")

	first := c.Select(engine)
	require.NotNil(t, first.Pending)
	again := c.Select(engine)
	assert.True(t, again.Cancelled)
	assert.False(t, engine.Loading())

	err := c.Complete(first.Pending, []model.Node{{Type: model.KindPage, Title: "late"}}, nil)
	assert.ErrorIs(t, err, ErrStaleExpansion)
	assert.False(t, engine.Expanded())
	assert.Nil(t, engine.Children())
}

func TestDetachedExpansionIsDiscarded(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")
	open(t, c, engine)
	electrical := child(t, engine.Children(), "Electrical")

	sel := c.Select(electrical)
	require.NotNil(t, sel.Pending)
	c.Select(engine) // collapses the parent while the load is outstanding

	err := c.Complete(sel.Pending, []model.Node{{Type: model.KindPage, Title: "late"}}, nil)
	assert.ErrorIs(t, err, ErrStaleExpansion)
	assert.Equal(t, []string{"Engine", "Brakes", "Gearbox", "Overview"}, titles(c.Visible()))
}

func TestCompleteFailure(t *testing.T) {
	c, _ := newTestController(t)
	engine := child(t, c.Roots(), "Engine")
	sel := c.Select(engine)
	require.NotNil(t, sel.Pending)

	boom := errors.New("boom")
	err := c.Complete(sel.Pending, nil, boom)
	assert.ErrorIs(t, err, boom)
	assert.False(t, engine.Expanded())
	assert.ErrorIs(t, engine.LoadErr(), boom)

	retry := c.Select(engine)
	assert.NotNil(t, retry.Pending, "a failed folder retries on the next select")
}

func TestUnresolvableSource(t *testing.T) {
	kb := newKB()
	kb.add("data/main.json", `[{"type":"folder","title":"Escape","source":"../../etc.json"}]`)
	c := New(fragment.NewCache(kb, nil))
	require.NoError(t, c.LoadRoot(context.Background(), rootPath))

	sel := c.Select(c.Roots()[0])
	var re *model.ResolutionError
	require.ErrorAs(t, sel.Err, &re)
	assert.Nil(t, sel.Pending)
	assert.Equal(t, model.IconError, c.Roots()[0].Icon())
}

func TestExpandAll(t *testing.T) {
	c, kb := newTestController(t)
	overview := child(t, c.Roots(), "Overview")
	c.Select(overview)

	err := c.ExpandAll(context.Background())
	require.Error(t, err)
	var fe *model.FetchError
	assert.ErrorAs(t, err, &fe, "missing gearbox fragment")
	var re *model.ResolutionError
	assert.ErrorAs(t, err, &re, "loop back to the root fragment")

	assert.Equal(t, []string{
		"Engine", "Electrical", "Battery Fault", "Starter", "Starter Fault", "Loop",
		"Brakes", "Brake Fault",
		"Gearbox",
		"Overview",
	}, titles(c.Visible()))
	assert.Same(t, overview, c.Selected(), "expanding does not move the selection")

	engine := child(t, c.Roots(), "Engine")
	loop := child(t, engine.Children(), "Loop")
	assert.False(t, loop.Expanded())
	assert.ErrorAs(t, loop.LoadErr(), &re)
	assert.Equal(t, 1, kb.count(rootPath))
}

func TestExpandCached(t *testing.T) {
	kb := newKB()
	cache := fragment.NewCache(kb, nil)
	c := New(cache)
	require.NoError(t, c.LoadRoot(context.Background(), rootPath))
	_, _ = fragment.Prefetch(context.Background(), cache, fragment.Resolver{Prefix: fragment.DefaultPrefix}, rootPath)

	fetches := cache.Fetches()
	err := c.ExpandCached()
	require.Error(t, err)
	assert.Equal(t, fetches, cache.Fetches(), "nothing is fetched")

	gearbox := child(t, c.Roots(), "Gearbox")
	assert.False(t, gearbox.Expanded())
	assert.ErrorIs(t, gearbox.LoadErr(), ErrNotLoaded)
	assert.Equal(t, []string{
		"Engine", "Electrical", "Battery Fault", "Starter", "Starter Fault", "Loop",
		"Brakes", "Brake Fault",
		"Gearbox",
		"Overview",
	}, titles(c.Visible()))
}

func TestExpandCachedNeedsPeeker(t *testing.T) {
	c := New(loaderFunc(func(ctx context.Context, path model.FragmentPath) ([]model.Node, error) {
		return []model.Node{{Type: model.KindFolder, Title: "A", Source: "a.json"}}, nil
	}))
	require.NoError(t, c.LoadRoot(context.Background(), rootPath))
	assert.Error(t, c.ExpandCached())
	assert.False(t, c.Roots()[0].Expanded())
}

func TestFind(t *testing.T) {
	c, _ := newTestController(t)

	h, err := c.Find(context.Background(), []int{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "Battery Fault", h.Title())
	assert.Equal(t, []int{0, 0, 0}, h.Trail())

	_, err = c.Find(context.Background(), []int{9})
	assert.Error(t, err)
	_, err = c.Find(context.Background(), []int{3, 0})
	assert.ErrorContains(t, err, "is a page")
	_, err = c.Find(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.Find(context.Background(), []int{2, 0})
	var fe *model.FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestSelectScansImages(t *testing.T) {
	var requested []string
	pre := NewPreloader(func(ctx context.Context, src string) error {
		requested = append(requested, src)
		return nil
	}, nil)
	c, _ := newTestController(t, WithPreloader(pre))
	overview := child(t, c.Roots(), "Overview")

	sel := c.Select(overview)
	assert.Equal(t, []string{"img/overview.png"}, sel.Preload)
	assert.Equal(t, 1, pre.Preload(context.Background(), sel.Preload))
	assert.Equal(t, []string{"img/overview.png"}, requested)

	sel = c.Select(overview)
	assert.Empty(t, sel.Preload, "each image is preloaded once per session")
}

type loaderFunc func(ctx context.Context, path model.FragmentPath) ([]model.Node, error)

func (f loaderFunc) Load(ctx context.Context, path model.FragmentPath) ([]model.Node, error) {
	return f(ctx, path)
}
