package ubigeo

import (
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type HierarchySuite struct {
	h             *Hierarchy
	testLocations []map[string]string
}

var _ = Suite(&HierarchySuite{})

func (s *HierarchySuite) SetUpSuite(c *C) {
	var err error
	s.h, err = New()
	c.Assert(err, IsNil)
	c.Assert(s.h, NotNil)

	s.testLocations = append(s.testLocations, map[string]string{"query": "Huaraz", "region": "Áncash", "subregion": "Huaraz", "locality": "Huaraz"})
	s.testLocations = append(s.testLocations, map[string]string{"query": "Tambopata", "region": "Madre de Dios", "subregion": "Tambopata", "locality": "Tambopata"})
	s.testLocations = append(s.testLocations, map[string]string{"query": "bellavista", "region": "Cajamarca", "subregion": "Jaén", "locality": "Bellavista"})
	s.testLocations = append(s.testLocations, map[string]string{"query": "Iñapari", "region": "Madre de Dios", "subregion": "Tahuamanu", "locality": "Iñapari"})
}

func (s *HierarchySuite) TestLoaded(c *C) {
	c.Assert(s.h.Country(), Equals, "Perú")
	c.Assert(len(s.h.regions), Equals, 25)
	c.Assert(s.h.regions, FitsTypeOf, []region(nil))
	c.Assert(s.h.LevelName(LevelLocality), Equals, "distrito")
}

func (s *HierarchySuite) TestResolveRoundTrip(c *C) {
	for _, v := range s.testLocations {
		loc, ok := s.h.ResolveFromLocality(v["query"])
		c.Assert(ok, Equals, true, Commentf("query %q", v["query"]))
		c.Assert(loc.Region, Equals, v["region"])
		c.Assert(loc.SubRegion, Equals, v["subregion"])
		c.Assert(loc.Locality, Equals, v["locality"])
		c.Assert(s.h.IsValid(loc), Equals, true)

		canon, ok := s.h.Canonicalize(Location{
			Region:    Normalize(loc.Region),
			SubRegion: Normalize(loc.SubRegion),
			Locality:  Normalize(loc.Locality),
		})
		c.Assert(ok, Equals, true)
		c.Assert(canon.SameUnit(loc), Equals, true)
		c.Assert(canon.Region, Equals, loc.Region)
	}
}

func (s *HierarchySuite) TestSearch(c *C) {
	r := s.h.Search("cusco")
	c.Assert(r, HasLen, 3)
	c.Assert(r[0].Level, Equals, LevelRegion)
	c.Assert(r[0].DisplayLabel, Equals, "Cusco (departamento)")
	c.Assert(r[1].Level, Equals, LevelSubRegion)
	c.Assert(r[2].Level, Equals, LevelLocality)
	c.Assert(r[2].DisplayLabel, Equals, "Cusco, Cusco, Cusco (distrito)")

	r = s.h.Search("")
	c.Assert(r, NotNil)
	c.Assert(r, HasLen, 0)

	r = s.h.Search("zzzz")
	c.Assert(r, HasLen, 0)
}

func (s *HierarchySuite) TestEveryLocalityResolvable(c *C) {
	for _, rg := range s.h.Regions() {
		for _, sr := range s.h.SubRegions(rg) {
			for _, l := range s.h.Localities(rg, sr) {
				loc := Location{Region: rg, SubRegion: sr, Locality: l}
				c.Assert(s.h.IsValid(loc), Equals, true, Commentf("%s", loc))

				found := false
				for _, cand := range s.h.ResolveAllFromLocality(l) {
					if cand.SameUnit(loc) {
						found = true
						break
					}
				}
				c.Assert(found, Equals, true, Commentf("%s", loc))
			}
		}
	}
}

func (s *HierarchySuite) TestDefaultIsShared(c *C) {
	a, err := Default()
	c.Assert(err, IsNil)
	b, err := Default()
	c.Assert(err, IsNil)
	c.Assert(a == b, Equals, true)
	c.Assert(a.Stats(), DeepEquals, s.h.Stats())
}
