package navigator

// CollectNotes returns the notes carried by the handles of an active path, in
// root-to-leaf order. Notes are read from the node each handle was built
// from, never looked up again by key.
func CollectNotes(path []*Handle) []string {
	notes := []string{}
	for _, h := range path {
		if h == nil || h.Node == nil {
			continue
		}
		if h.Node.Notes != "" {
			notes = append(notes, h.Node.Notes)
		}
	}
	return notes
}
