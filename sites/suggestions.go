package sites

import "github.com/andreiashu/ubigeo"

// SuggestionSource tells where a quick suggestion came from.
type SuggestionSource string

const (
	SourcePreferred SuggestionSource = "preferred"
	SourceSite      SuggestionSource = "site"
	SourceFavorite  SuggestionSource = "favorite"
	SourceRecent    SuggestionSource = "recent"
)

// Per-source caps for GetQuickSuggestions.
const (
	maxSuggestedSites     = 3
	maxSuggestedFavorites = 2
	maxSuggestedRecents   = 3
)

// Suggestion is one entry of the quick-pick list.
type Suggestion struct {
	Location ubigeo.Location  `json:"location"`
	Source   SuggestionSource `json:"source"`
	SiteName string           `json:"site_name,omitempty"`
}

// GetQuickSuggestions assembles the quick-pick list: the preferred location,
// up to three active sites (primary first), up to two favorites and up to
// three recents. A location already suggested by an earlier source is
// skipped and does not count toward the later source's cap.
func (c *Cache) GetQuickSuggestions() []Suggestion {
	var out []Suggestion
	seen := make(map[string]bool)
	add := func(s Suggestion) bool {
		if s.Location.IsZero() {
			return false
		}
		k := s.Location.Key()
		if seen[k] {
			return false
		}
		seen[k] = true
		out = append(out, s)
		return true
	}

	if loc, ok := c.GetPreferredLocation(); ok {
		add(Suggestion{Location: loc, Source: SourcePreferred})
	}

	n := 0
	for _, s := range activeSitesPrimaryFirst(c.sites.Get()) {
		if n == maxSuggestedSites {
			break
		}
		if add(Suggestion{Location: s.Location, Source: SourceSite, SiteName: s.Name}) {
			n++
		}
	}

	n = 0
	for _, loc := range c.favorites.Get() {
		if n == maxSuggestedFavorites {
			break
		}
		if add(Suggestion{Location: loc, Source: SourceFavorite}) {
			n++
		}
	}

	n = 0
	for _, loc := range c.recent.Get() {
		if n == maxSuggestedRecents {
			break
		}
		if add(Suggestion{Location: loc, Source: SourceRecent}) {
			n++
		}
	}

	if out == nil {
		return []Suggestion{}
	}
	return out
}

func activeSitesPrimaryFirst(sites []Site) []Site {
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		if s.IsActive && s.IsPrimary {
			out = append(out, s)
		}
	}
	for _, s := range sites {
		if s.IsActive && !s.IsPrimary {
			out = append(out, s)
		}
	}
	return out
}
