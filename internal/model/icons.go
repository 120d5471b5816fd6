package model

// Centralized icons for the UI components
// Using simple single-width characters for consistent terminal rendering
const (
	IconFolder     = "▸" // Collapsed folder
	IconFolderOpen = "▾" // Expanded folder
	IconFolderLeaf = "▫" // Folder with nothing to expand
	IconPage       = "•" // Page
	IconLoading    = "…" // Fragment fetch in flight
	IconError      = "✗" // Last expansion failed
	IconNote       = "⚠" // Inherited note marker
	IconMatch      = "◆" // Search match
)
