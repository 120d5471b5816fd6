package navigator

import (
	"faulttree/internal/model"
)

// ExportNode is the JSON shape of one rendered handle.
type ExportNode struct {
	Title     string             `json:"title"`
	Type      model.Kind         `json:"type"`
	Fragment  model.FragmentPath `json:"fragment"`
	Key       int                `json:"key"`
	Trail     []int              `json:"trail"`
	Notes     string             `json:"notes,omitempty"`
	Source    string             `json:"source,omitempty"`
	Content   string             `json:"content,omitempty"`
	RootCause string             `json:"rootCause,omitempty"`
	Measures  []string           `json:"measures,omitempty"`
	State     string             `json:"state,omitempty"`
	Error     string             `json:"error,omitempty"`
	Children  []ExportNode       `json:"children,omitempty"`
}

// Export converts the visible tree into plain data for JSON output.
func Export(c *Controller) []ExportNode {
	visible := make(map[*Handle]bool)
	for _, h := range c.Visible() {
		visible[h] = true
	}
	return exportHandles(c.Roots(), visible)
}

func exportHandles(hs []*Handle, visible map[*Handle]bool) []ExportNode {
	out := []ExportNode{}
	for _, h := range hs {
		if !visible[h] {
			continue
		}
		n := h.Node
		e := ExportNode{
			Title:     n.Title,
			Type:      n.Type,
			Fragment:  h.Path,
			Key:       h.Key,
			Trail:     h.Trail(),
			Notes:     n.Notes,
			Source:    n.Source,
			Content:   n.Content,
			RootCause: n.RootCause,
			Measures:  n.Measures,
		}
		if h.IsFolder() {
			e.State = h.State().String()
			e.Children = exportHandles(h.children, visible)
		}
		if err := h.LoadErr(); err != nil {
			e.Error = err.Error()
		}
		out = append(out, e)
	}
	return out
}
