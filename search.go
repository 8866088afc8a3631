package ubigeo

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSearchLimit is used when SearchOptions.Limit is zero or negative.
	DefaultSearchLimit = 10

	// minQueryRunes is the shortest normalized query Search will run.
	minQueryRunes = 2
)

// SearchOptions configures Search behavior.
type SearchOptions struct {
	Limit  int    // maximum results; <= 0 means DefaultSearchLimit
	Region string // restrict traversal to one region; empty searches everything
}

// Search scores every region, subregion and locality name against query and
// returns the best matches, highest score first. Region hits get a +10 bonus
// and subregion hits +5 so that broader units outrank same-named localities.
// Equal scores keep dataset order.
//
// The returned slice is never nil. Queries shorter than two characters after
// normalization return no results.
func (h *Hierarchy) Search(query string, opts ...SearchOptions) []SearchResult {
	options := SearchOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}
	limit := options.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	q := Normalize(query)
	if utf8.RuneCountInString(q) < minQueryRunes {
		return []SearchResult{}
	}

	regions := h.regions
	if options.Region != "" {
		r := h.findRegion(Normalize(options.Region))
		if r == nil {
			return []SearchResult{}
		}
		regions = []region{*r}
	}

	var results []SearchResult
	seen := make(map[string]bool)
	add := func(res SearchResult) {
		k := res.key()
		if seen[k] {
			return
		}
		seen[k] = true
		results = append(results, res)
	}

	for _, r := range regions {
		if s := scoreNormalized(q, r.norm); s > 0 {
			add(SearchResult{
				MatchedText:  r.name,
				Level:        LevelRegion,
				Region:       r.name,
				DisplayLabel: h.displayLabel(LevelRegion, r.name),
				Score:        s + LevelRegion.bonus(),
			})
		}
		for _, sr := range r.subs {
			if s := scoreNormalized(q, sr.norm); s > 0 {
				add(SearchResult{
					MatchedText:  sr.name,
					Level:        LevelSubRegion,
					Region:       r.name,
					SubRegion:    sr.name,
					DisplayLabel: h.displayLabel(LevelSubRegion, sr.name, r.name),
					Score:        s + LevelSubRegion.bonus(),
				})
			}
			for _, l := range sr.localities {
				if s := scoreNormalized(q, l.norm); s > 0 {
					add(SearchResult{
						MatchedText:  l.name,
						Level:        LevelLocality,
						Region:       r.name,
						SubRegion:    sr.name,
						Locality:     l.name,
						DisplayLabel: h.displayLabel(LevelLocality, l.name, sr.name, r.name),
						Score:        s + LevelLocality.bonus(),
					})
				}
			}
		}
	}

	if len(results) == 0 {
		return []SearchResult{}
	}

	// Stable so that ties keep traversal order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// displayLabel renders "Miraflores, Lima, Lima (distrito)": the matched name,
// its ancestry narrowest-first, then the dataset's name for the level.
func (h *Hierarchy) displayLabel(l Level, names ...string) string {
	return strings.Join(names, ", ") + " (" + h.LevelName(l) + ")"
}
