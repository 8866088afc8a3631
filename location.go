package ubigeo

import (
	"math"
	"strings"

	"github.com/golang/geo/s2"
)

// Level identifies a tier of the administrative hierarchy.
type Level int

const (
	LevelRegion Level = iota
	LevelSubRegion
	LevelLocality
)

// String returns the generic level name ("region", "subregion", "locality").
func (l Level) String() string {
	switch l {
	case LevelRegion:
		return "region"
	case LevelSubRegion:
		return "subregion"
	case LevelLocality:
		return "locality"
	}
	return "unknown"
}

// levelBonus biases ranking toward broader administrative matches.
func (l Level) bonus() int {
	switch l {
	case LevelRegion:
		return 10
	case LevelSubRegion:
		return 5
	}
	return 0
}

// Location is a resolved (region, subregion, locality) triple. Address and
// coordinates travel with the location but are never checked against the
// hierarchy.
type Location struct {
	Region    string   `json:"region"`
	SubRegion string   `json:"sub_region"`
	Locality  string   `json:"locality"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Key returns the normalized triple used to decide whether two locations
// name the same administrative unit.
func (l Location) Key() string {
	return Normalize(l.Region) + "|" + Normalize(l.SubRegion) + "|" + Normalize(l.Locality)
}

// SameUnit reports whether both locations refer to the same triple,
// ignoring case, accents, address and coordinates.
func (l Location) SameUnit(o Location) bool {
	return l.Key() == o.Key()
}

// IsZero reports whether the location carries no triple at all.
func (l Location) IsZero() bool {
	return l.Region == "" && l.SubRegion == "" && l.Locality == ""
}

// String renders the location narrowest-first: "Miraflores, Lima, Lima".
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Locality, l.SubRegion, l.Region} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Coordinates returns the location's point when both latitude and longitude
// are present and describe a real position on the sphere.
func (l Location) Coordinates() (s2.LatLng, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return s2.LatLng{}, false
	}
	lat, lng := *l.Latitude, *l.Longitude
	// Reject values that would make s2 distance math meaningless.
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return s2.LatLng{}, false
	}
	ll := s2.LatLngFromDegrees(lat, lng)
	if !ll.IsValid() {
		return s2.LatLng{}, false
	}
	return ll, true
}

// WithCoordinates returns a copy of l carrying the given point.
func (l Location) WithCoordinates(lat, lng float64) Location {
	l.Latitude = &lat
	l.Longitude = &lng
	return l
}

// SearchResult is one ranked hit produced by Search.
type SearchResult struct {
	MatchedText  string `json:"matched_text"`
	Level        Level  `json:"level"`
	Region       string `json:"region"`
	SubRegion    string `json:"sub_region,omitempty"`
	Locality     string `json:"locality,omitempty"`
	DisplayLabel string `json:"display_label"`
	Score        int    `json:"score"`
}

// Location converts the result into a Location. Region and subregion hits
// yield a partial triple.
func (r SearchResult) Location() Location {
	return Location{Region: r.Region, SubRegion: r.SubRegion, Locality: r.Locality}
}

func (r SearchResult) key() string {
	return r.Level.String() + "|" + r.Region + "|" + r.SubRegion + "|" + r.Locality
}
