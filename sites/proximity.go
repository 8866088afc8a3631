package sites

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used to turn s2 angles into
// kilometres.
const earthRadiusKm = 6371.0088

// SiteDistance is a site paired with its great-circle distance from a query
// point.
type SiteDistance struct {
	Site       Site    `json:"site"`
	DistanceKm float64 `json:"distance_km"`
}

// NearbySites ranks the sites that carry valid coordinates by distance from
// (lat, lng), nearest first. maxKm <= 0 disables the radius cut-off. Invalid
// query coordinates return nil.
func (c *Cache) NearbySites(lat, lng, maxKm float64) []SiteDistance {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return nil
	}
	query := s2.LatLngFromDegrees(lat, lng)
	if !query.IsValid() {
		return nil
	}

	var out []SiteDistance
	for _, s := range c.sites.Get() {
		ll, ok := s.Location.Coordinates()
		if !ok {
			continue
		}
		d := query.Distance(ll).Radians() * earthRadiusKm
		if maxKm > 0 && d > maxKm {
			continue
		}
		out = append(out, SiteDistance{Site: s, DistanceKm: d})
	}

	// Distance, then name, then id for a deterministic order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		if out[i].Site.Name != out[j].Site.Name {
			return out[i].Site.Name < out[j].Site.Name
		}
		return out[i].Site.ID < out[j].Site.ID
	})
	return out
}
