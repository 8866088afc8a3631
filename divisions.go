package ubigeo

import (
	"bytes"
	"fmt"
	"io"
)

// Regions returns the region names in dataset order.
func (h *Hierarchy) Regions() []string {
	names := make([]string, len(h.regions))
	for i, r := range h.regions {
		names[i] = r.name
	}
	return names
}

// SubRegions returns the subregion names of a region in dataset order, or
// nil when the region is unknown. Matching ignores case and accents.
func (h *Hierarchy) SubRegions(regionName string) []string {
	r := h.findRegion(Normalize(regionName))
	if r == nil {
		return nil
	}
	names := make([]string, len(r.subs))
	for i, sr := range r.subs {
		names[i] = sr.name
	}
	return names
}

// Localities returns the locality names of a subregion in dataset order, or
// nil when the region or subregion is unknown.
func (h *Hierarchy) Localities(regionName, subRegionName string) []string {
	r := h.findRegion(Normalize(regionName))
	if r == nil {
		return nil
	}
	sr := r.findSubRegion(Normalize(subRegionName))
	if sr == nil {
		return nil
	}
	names := make([]string, len(sr.localities))
	for i, l := range sr.localities {
		names[i] = l.name
	}
	return names
}

// Stats counts the nodes on each level.
type Stats struct {
	Regions    int
	SubRegions int
	Localities int
}

// Stats returns node counts per level.
func (h *Hierarchy) Stats() Stats {
	var s Stats
	s.Regions = len(h.regions)
	for _, r := range h.regions {
		s.SubRegions += len(r.subs)
		for _, sr := range r.subs {
			s.Localities += len(sr.localities)
		}
	}
	return s
}

// DatasetIssue describes one violation of the tree invariants.
type DatasetIssue struct {
	Path    string // e.g. "Lima/Lima/Miraflores"
	Problem string
}

func (i DatasetIssue) String() string {
	if i.Path == "" {
		return i.Problem
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Problem)
}

// EmbeddedDataset returns the YAML dataset compiled into the package.
func EmbeddedDataset() io.Reader {
	return bytes.NewReader(embeddedDataset)
}

// CheckDataset decodes a YAML dataset and reports every structural problem
// without building a Hierarchy. A nil slice means the dataset loads cleanly.
func CheckDataset(r io.Reader) ([]DatasetIssue, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	ds, err := decodeDataset(b)
	if err != nil {
		return nil, err
	}
	return ds.check(), nil
}

// check enforces: at least one region, non-empty names, every parent has
// children, and sibling names are unique after normalization.
func (ds *dataset) check() []DatasetIssue {
	var issues []DatasetIssue
	if len(ds.Regions) == 0 {
		return []DatasetIssue{{Problem: "no regions"}}
	}

	seenRegions := make(map[string]bool, len(ds.Regions))
	for i, r := range ds.Regions {
		rName := clean(r.Name)
		rPath := rName
		if rName == "" {
			rPath = fmt.Sprintf("#%d", i)
			issues = append(issues, DatasetIssue{Path: rPath, Problem: "empty region name"})
		} else if key := Normalize(rName); seenRegions[key] {
			issues = append(issues, DatasetIssue{Path: rPath, Problem: "duplicate region"})
		} else {
			seenRegions[key] = true
		}
		if len(r.SubRegions) == 0 {
			issues = append(issues, DatasetIssue{Path: rPath, Problem: "region has no subregions"})
		}

		seenSubs := make(map[string]bool, len(r.SubRegions))
		for j, sr := range r.SubRegions {
			srName := clean(sr.Name)
			srPath := rPath + "/" + srName
			if srName == "" {
				srPath = fmt.Sprintf("%s/#%d", rPath, j)
				issues = append(issues, DatasetIssue{Path: srPath, Problem: "empty subregion name"})
			} else if key := Normalize(srName); seenSubs[key] {
				issues = append(issues, DatasetIssue{Path: srPath, Problem: "duplicate subregion"})
			} else {
				seenSubs[key] = true
			}
			if len(sr.Localities) == 0 {
				issues = append(issues, DatasetIssue{Path: srPath, Problem: "subregion has no localities"})
			}

			seenLocalities := make(map[string]bool, len(sr.Localities))
			for k, l := range sr.Localities {
				lName := clean(l)
				if lName == "" {
					issues = append(issues, DatasetIssue{Path: fmt.Sprintf("%s/#%d", srPath, k), Problem: "empty locality name"})
					continue
				}
				key := Normalize(lName)
				if seenLocalities[key] {
					issues = append(issues, DatasetIssue{Path: srPath + "/" + lName, Problem: "duplicate locality"})
					continue
				}
				seenLocalities[key] = true
			}
		}
	}
	return issues
}
