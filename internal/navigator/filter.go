package navigator

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchPolicy decides how a search keyword is compared with titles.
type MatchPolicy int

const (
	// CaseInsensitive compares Unicode case-folded strings. It is the default.
	CaseInsensitive MatchPolicy = iota
	CaseSensitive
)

func (p MatchPolicy) String() string {
	if p == CaseSensitive {
		return "case-sensitive"
	}
	return "case-insensitive"
}

// Match reports whether title contains keyword as a substring.
func (p MatchPolicy) Match(title, keyword string) bool {
	if p == CaseSensitive {
		return strings.Contains(title, keyword)
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(title), fold.String(keyword))
}

// FilterResult is the outcome of filtering the rendered tree by a keyword.
type FilterResult struct {
	Keyword   string
	Visible   map[*Handle]bool // Matches, their ancestors and rows kept across tree changes
	Matches   []*Handle        // In tree order
	Expand    []*Handle        // Ancestors of matches, forced open so matches are reachable
	NoResults bool
}

// IsVisible reports whether h stays shown under the filter.
func (r FilterResult) IsVisible(h *Handle) bool {
	return r.Visible[h]
}

// IsMatch reports whether h's title matched the keyword.
func (r FilterResult) IsMatch(h *Handle) bool {
	for _, m := range r.Matches {
		if m == h {
			return true
		}
	}
	return false
}

// Filter computes which rendered handles stay visible for keyword. It reads
// the tree and changes nothing. An empty keyword keeps everything visible.
func Filter(roots []*Handle, keyword string, policy MatchPolicy) FilterResult {
	keyword = strings.TrimSpace(keyword)
	res := FilterResult{
		Keyword: keyword,
		Visible: make(map[*Handle]bool),
	}

	if keyword == "" {
		walk(roots, func(h *Handle) { res.Visible[h] = true })
		return res
	}

	expand := make(map[*Handle]bool)
	walk(roots, func(h *Handle) {
		if !policy.Match(h.Title(), keyword) {
			return
		}
		res.Matches = append(res.Matches, h)
		res.Visible[h] = true
		for p := h.Parent; p != nil; p = p.Parent {
			res.Visible[p] = true
			if !expand[p] {
				expand[p] = true
				res.Expand = append(res.Expand, p)
			}
		}
	})
	res.NoResults = len(res.Matches) == 0
	return res
}

// walk visits every rendered handle depth first, in tree order.
func walk(hs []*Handle, fn func(*Handle)) {
	for _, h := range hs {
		fn(h)
		walk(h.children, fn)
	}
}
