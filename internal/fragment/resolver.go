package fragment

import (
	"path"
	"strings"

	"faulttree/internal/model"
)

// DefaultPrefix is the directory every fragment path lives under.
const DefaultPrefix = "data/"

// Resolver turns a folder's relative source reference into a fragment path.
type Resolver struct {
	Prefix string
}

// Resolve joins ref onto the directory of base, unless ref is already rooted
// under the fragment namespace. It does no I/O and does not look at the cache.
func (r Resolver) Resolve(base model.FragmentPath, ref string) model.FragmentPath {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if strings.HasPrefix(ref, prefix) {
		return model.FragmentPath(ref)
	}

	b := string(base)
	dir := b[:strings.LastIndex(b, "/")+1]
	joined := dir + ref
	if hasDotSegment(joined) {
		joined = path.Clean(joined)
	}
	return model.FragmentPath(joined)
}

// Check resolves ref like Resolve but rejects references that cannot name a fragment.
func (r Resolver) Check(base model.FragmentPath, ref string) (model.FragmentPath, error) {
	if strings.TrimSpace(ref) == "" {
		return "", &model.ResolutionError{Base: base, Ref: ref, Reason: "empty source"}
	}
	resolved := r.Resolve(base, ref)
	p := string(resolved)
	if p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
		return "", &model.ResolutionError{Base: base, Ref: ref, Reason: "escapes the fragment namespace"}
	}
	return resolved, nil
}

// Resolve applies the default resolver.
func Resolve(base model.FragmentPath, ref string) model.FragmentPath {
	return Resolver{Prefix: DefaultPrefix}.Resolve(base, ref)
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}
