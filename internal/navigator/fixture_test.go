package navigator

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"faulttree/internal/fragment"
	"faulttree/internal/model"

	"github.com/stretchr/testify/require"
)

const rootPath model.FragmentPath = "data/main.json"

// kbFetcher serves a small knowledge base from memory and counts fetches.
type kbFetcher struct {
	mu    sync.Mutex
	files map[model.FragmentPath]string
	calls map[model.FragmentPath]int
}

func newKB() *kbFetcher {
	return &kbFetcher{
		files: map[model.FragmentPath]string{
			"data/main.json": `[
				{"type":"folder","title":"Engine","notes":"n1","source":"engine/main.json"},
				{"type":"folder","title":"Brakes","children":[
					{"type":"page","title":"Brake Fault","rootCause":"Worn pads","measures":["Replace pads"]}
				]},
				{"type":"folder","title":"Gearbox","source":"gearbox.json"},
				{"type":"page","title":"Overview","content":"See <img src=\"img/overview.png\"> first"}
			]`,
			"data/engine/main.json": `[
				{"type":"folder","title":"Electrical","source":"electrical.json"},
				{"type":"folder","title":"Loop","source":"data/main.json"}
			]`,
			"data/engine/electrical.json": `[
				{"type":"page","title":"Battery Fault","content":"Check terminals"},
				{"type":"folder","title":"Starter","notes":"n3","children":[
					{"type":"page","title":"Starter Fault"}
				]}
			]`,
		},
		calls: make(map[model.FragmentPath]int),
	}
}

func (f *kbFetcher) Name() string { return "kb" }

func (f *kbFetcher) Fetch(ctx context.Context, path model.FragmentPath) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	body, ok := f.files[path]
	if !ok {
		return nil, &model.FetchError{Path: path, Status: http.StatusNotFound}
	}
	return []byte(body), nil
}

func (f *kbFetcher) add(path model.FragmentPath, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = body
}

func (f *kbFetcher) count(path model.FragmentPath) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// newTestController returns a controller with the root fragment loaded.
func newTestController(t *testing.T, opts ...Option) (*Controller, *kbFetcher) {
	t.Helper()
	kb := newKB()
	c := New(fragment.NewCache(kb, nil), opts...)
	require.NoError(t, c.LoadRoot(context.Background(), rootPath))
	return c, kb
}

// child finds the rendered handle titled title among hs.
func child(t *testing.T, hs []*Handle, title string) *Handle {
	t.Helper()
	for _, h := range hs {
		if h.Title() == title {
			return h
		}
	}
	require.Failf(t, "handle not found", "%q", title)
	return nil
}

// open toggles a collapsed folder open and fails the test if that does not work.
func open(t *testing.T, c *Controller, h *Handle) {
	t.Helper()
	sel := c.Toggle(context.Background(), h)
	require.NoError(t, sel.Err)
	require.True(t, h.Expanded(), "%q should be expanded", h.Title())
}

func titles(hs []*Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Title()
	}
	return out
}
