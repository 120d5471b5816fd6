package fragment

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"faulttree/internal/model"

	"github.com/sirupsen/logrus"
)

// Cache holds every parsed fragment of the session, keyed by resolved path.
// Entries are inserted once and never evicted or replaced, so slices handed
// out by Load stay valid (and unchanged) for the life of the cache.
//
// Concurrent misses for the same path are not de-duplicated: each performs
// its own fetch and the first insert wins. Later results for the path are
// dropped in favour of the stored entry; there is no last-write-wins.
type Cache struct {
	fetcher Fetcher
	log     *logrus.Entry

	mu      sync.RWMutex
	entries map[model.FragmentPath][]model.Node

	fetches atomic.Int64
}

// NewCache creates an empty cache in front of fetcher.
func NewCache(fetcher Fetcher, log *logrus.Entry) *Cache {
	if log == nil {
		log = DiscardLogger()
	}
	return &Cache{
		fetcher: fetcher,
		log:     log.WithField("component", "cache"),
		entries: make(map[model.FragmentPath][]model.Node),
	}
}

// Load returns the fragment at path, fetching and parsing it on a miss.
// Failures are never cached; the next Load retries.
func (c *Cache) Load(ctx context.Context, path model.FragmentPath) ([]model.Node, error) {
	if nodes, ok := c.Peek(path); ok {
		return nodes, nil
	}

	c.fetches.Add(1)
	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, path)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("fragment fetch failed")
		return nil, err
	}

	nodes, err := Parse(path, data)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("fragment rejected")
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"path":     path,
		"nodes":    len(nodes),
		"duration": time.Since(start),
	}).Debug("fragment cached")
	return c.insert(path, nodes), nil
}

// Peek returns a cached fragment without any I/O.
func (c *Cache) Peek(path model.FragmentPath) ([]model.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes, ok := c.entries[path]
	return nodes, ok
}

// Has reports whether path has been loaded.
func (c *Cache) Has(path model.FragmentPath) bool {
	_, ok := c.Peek(path)
	return ok
}

// insert stores nodes unless path is already present, and returns the stored entry.
func (c *Cache) insert(path model.FragmentPath, nodes []model.Node) []model.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[path]; ok {
		return existing
	}
	c.entries[path] = nodes
	return nodes
}

// Len returns the number of cached fragments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fetches returns how many network fetches the cache has issued.
func (c *Cache) Fetches() int64 {
	return c.fetches.Load()
}

// Paths lists the cached fragment paths in sorted order.
func (c *Cache) Paths() []model.FragmentPath {
	c.mu.RLock()
	paths := make([]model.FragmentPath, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	c.mu.RUnlock()
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

// Fetcher returns the transport behind the cache.
func (c *Cache) Fetcher() Fetcher {
	return c.fetcher
}
