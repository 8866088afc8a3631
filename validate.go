package ubigeo

// IsValid reports whether loc names an existing region > subregion > locality
// path. Comparison ignores case, accents and surrounding whitespace; address
// and coordinates are not inspected.
func (h *Hierarchy) IsValid(loc Location) bool {
	_, ok := h.Canonicalize(loc)
	return ok
}

// Canonicalize returns loc with its names replaced by the dataset's spelling,
// e.g. "ancash/huaraz/huaraz" becomes "Áncash/Huaraz/Huaraz". Address and
// coordinates are carried over unchanged. The boolean is false when any level
// of the path does not exist.
func (h *Hierarchy) Canonicalize(loc Location) (Location, bool) {
	r := h.findRegion(Normalize(loc.Region))
	if r == nil {
		return Location{}, false
	}
	sr := r.findSubRegion(Normalize(loc.SubRegion))
	if sr == nil {
		return Location{}, false
	}
	l := sr.findLocality(Normalize(loc.Locality))
	if l == nil {
		return Location{}, false
	}

	loc.Region = r.name
	loc.SubRegion = sr.name
	loc.Locality = l.name
	return loc, true
}

// ResolveFromLocality finds the full path of a locality given only its name.
// Locality names repeat across subregions ("Miraflores" exists in Arequipa,
// Huánuco and Lima); the first match in dataset order wins. Use
// ResolveAllFromLocality to see every candidate.
func (h *Hierarchy) ResolveFromLocality(name string) (Location, bool) {
	norm := Normalize(name)
	if norm == "" {
		return Location{}, false
	}
	for _, r := range h.regions {
		for _, sr := range r.subs {
			if l := sr.findLocality(norm); l != nil {
				return Location{Region: r.name, SubRegion: sr.name, Locality: l.name}, true
			}
		}
	}
	return Location{}, false
}

// ResolveAllFromLocality returns every path whose locality matches name, in
// dataset order. The result is nil when nothing matches.
func (h *Hierarchy) ResolveAllFromLocality(name string) []Location {
	norm := Normalize(name)
	if norm == "" {
		return nil
	}
	var locs []Location
	for _, r := range h.regions {
		for _, sr := range r.subs {
			if l := sr.findLocality(norm); l != nil {
				locs = append(locs, Location{Region: r.name, SubRegion: sr.name, Locality: l.name})
			}
		}
	}
	return locs
}
