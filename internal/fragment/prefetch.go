package fragment

import (
	"context"
	"errors"

	"faulttree/internal/model"
)

// Prefetch loads every fragment reachable from root into the cache, walking
// inline children and following source references breadth first. Each
// fragment is visited once, so reference cycles terminate. Failures are
// collected and returned together; the walk continues past them.
func Prefetch(ctx context.Context, cache *Cache, resolver Resolver, root model.FragmentPath) (int, error) {
	seen := map[model.FragmentPath]bool{root: true}
	queue := []model.FragmentPath{root}
	var errs []error

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		path := queue[0]
		queue = queue[1:]

		nodes, err := cache.Load(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		var visit func(nodes []model.Node)
		visit = func(nodes []model.Node) {
			for i := range nodes {
				n := &nodes[i]
				switch {
				case n.HasInlineChildren():
					visit(n.Children)
				case n.HasSource():
					next, err := resolver.Check(path, n.Source)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					if !seen[next] {
						seen[next] = true
						queue = append(queue, next)
					}
				}
			}
		}
		visit(nodes)
	}
	return len(seen), errors.Join(errs...)
}
