package navigator

import (
	"faulttree/internal/model"
)

// State is the expand/collapse state of a folder handle.
type State int

const (
	Collapsed State = iota
	Expanded
)

func (s State) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Handle is the live instance of one Node in the tree.
//
// Node points into the cached fragment the handle was built from; cache
// entries are immutable, so the pointer is stable. Parent is a back-reference
// for walking toward the root; children are owned by their parent and are
// dropped when the parent collapses.
type Handle struct {
	Node   *model.Node
	Parent *Handle
	Path   model.FragmentPath // Fragment the node was parsed from
	Key    int                // Index within the sequence it was parsed from
	Depth  int                // 0 for roots

	state    State
	selected bool
	loading  bool
	loadErr  error
	gen      uint64 // Bumped on every expansion attempt; stale completions are ignored
	detached bool   // An ancestor collapsed after this handle was built
	children []*Handle
}

func newHandles(parent *Handle, path model.FragmentPath, nodes []model.Node) []*Handle {
	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}
	handles := make([]*Handle, len(nodes))
	for i := range nodes {
		handles[i] = &Handle{
			Node:   &nodes[i],
			Parent: parent,
			Path:   path,
			Key:    i,
			Depth:  depth,
		}
	}
	return handles
}

// Title returns the node title.
func (h *Handle) Title() string { return h.Node.Title }

// IsFolder reports whether the node is a folder.
func (h *Handle) IsFolder() bool { return h.Node.IsFolder() }

// IsPage reports whether the node is a page.
func (h *Handle) IsPage() bool { return h.Node.IsPage() }

// State returns the folder state; pages are always Collapsed.
func (h *Handle) State() State { return h.state }

// Expanded reports whether the folder is open.
func (h *Handle) Expanded() bool { return h.state == Expanded }

// Selected reports whether h is the controller's selection.
func (h *Handle) Selected() bool { return h.selected }

// Loading reports whether an expansion fetch is outstanding.
func (h *Handle) Loading() bool { return h.loading }

// LoadErr returns the error of the last failed expansion, cleared on the next attempt.
func (h *Handle) LoadErr() error { return h.loadErr }

// Children returns the currently rendered child handles (nil when collapsed).
func (h *Handle) Children() []*Handle { return h.children }

// Lineage returns the handles from the root down to h, inclusive.
func (h *Handle) Lineage() []*Handle {
	var chain []*Handle
	for cur := h; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Trail returns the positional keys from the root down to h. Unlike a single
// key, the trail identifies a handle uniquely within the tree.
func (h *Handle) Trail() []int {
	lineage := h.Lineage()
	trail := make([]int, len(lineage))
	for i, l := range lineage {
		trail[i] = l.Key
	}
	return trail
}

// Icon picks the tree icon for the handle's current state.
func (h *Handle) Icon() string {
	switch {
	case h.IsPage():
		return model.IconPage
	case h.loading:
		return model.IconLoading
	case h.loadErr != nil:
		return model.IconError
	case h.state == Expanded:
		return model.IconFolderOpen
	case !h.Node.Expandable():
		return model.IconFolderLeaf
	default:
		return model.IconFolder
	}
}

func (h *Handle) detach() {
	for _, c := range h.children {
		c.detached = true
		c.detach()
	}
}
