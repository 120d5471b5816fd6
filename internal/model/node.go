package model

// FragmentPath identifies one loadable fragment (e.g. data/engine/electrical.json).
// Two paths are the same fragment only if the strings are equal.
type FragmentPath string

// Kind is the node type as written in the fragment.
type Kind string

const (
	KindFolder Kind = "folder"
	KindPage   Kind = "page"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	return k == KindFolder || k == KindPage
}

// Node is one entry of a fragment, exactly as parsed.
type Node struct {
	Type  Kind   `json:"type"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"` // Inherited by every descendant

	// Folder
	Children []Node `json:"children,omitempty"` // Inline sub-tree (same fragment)
	Source   string `json:"source,omitempty"`   // Relative path of a fragment loaded on demand

	// Page
	Content   string   `json:"content,omitempty"`
	RootCause string   `json:"rootCause,omitempty"`
	Measures  []string `json:"measures,omitempty"` // Remediation steps, in order
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool { return n.Type == KindFolder }

// IsPage reports whether the node is a page.
func (n *Node) IsPage() bool { return n.Type == KindPage }

// HasInlineChildren is true when the folder carries a children array, even an empty one.
func (n *Node) HasInlineChildren() bool { return n.IsFolder() && n.Children != nil }

// HasSource is true when the folder's children live in another fragment.
func (n *Node) HasSource() bool { return n.IsFolder() && n.Source != "" }

// Expandable reports whether selecting the folder can produce children.
func (n *Node) Expandable() bool { return n.HasInlineChildren() || n.HasSource() }

// Payload is what a page hands to the document renderer.
type Payload struct {
	Title     string
	Content   string
	RootCause string
	Measures  []string
}

// Payload extracts the renderable fields of a page.
func (n *Node) Payload() Payload {
	return Payload{
		Title:     n.Title,
		Content:   n.Content,
		RootCause: n.RootCause,
		Measures:  n.Measures,
	}
}

// Empty reports whether the payload has nothing to render.
func (p Payload) Empty() bool {
	return p.Content == "" && p.RootCause == "" && len(p.Measures) == 0
}

// Texts returns every free-text field of the payload in display order.
func (p Payload) Texts() []string {
	texts := make([]string, 0, len(p.Measures)+2)
	texts = append(texts, p.Content, p.RootCause)
	return append(texts, p.Measures...)
}
