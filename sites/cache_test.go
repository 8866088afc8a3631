package sites_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/kvstore"
	"github.com/andreiashu/ubigeo/sites"
)

var errDiskFull = errors.New("disk full")

// flakyStore wraps a Memory store and can be told to fail writes.
type flakyStore struct {
	*kvstore.Memory
	mu       sync.Mutex
	failPuts bool
}

func (f *flakyStore) setFailPuts(v bool) {
	f.mu.Lock()
	f.failPuts = v
	f.mu.Unlock()
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failPuts
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.Memory.Put(ctx, key, value)
}

func loc(region, sub, locality string) ubigeo.Location {
	return ubigeo.Location{Region: region, SubRegion: sub, Locality: locality}
}

var (
	miraflores   = loc("Lima", "Lima", "Miraflores")
	barranco     = loc("Lima", "Lima", "Barranco")
	huaraz       = loc("Áncash", "Huaraz", "Huaraz")
	independenci = loc("Áncash", "Huaraz", "Independencia")
	cusco        = loc("Cusco", "Cusco", "Cusco")
)

// fixedClock returns a deterministic time source.
func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

type CacheSuite struct {
	suite.Suite
	ctx   context.Context
	store *flakyStore
	logs  *bytes.Buffer
	cache *sites.Cache
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &flakyStore{Memory: kvstore.NewMemory()}
	s.logs = &bytes.Buffer{}
	s.cache = s.open()
}

func (s *CacheSuite) open() *sites.Cache {
	logger := slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := sites.Open(s.ctx, s.store, sites.WithLogger(logger), sites.WithClock(fixedClock()))
	s.Require().NoError(err)
	return c
}

func (s *CacheSuite) TestDefaults() {
	s.Empty(s.cache.GetRecent())
	s.Empty(s.cache.GetFavorites())
	s.Empty(s.cache.GetSites())
	s.True(s.cache.IsSearchNationwide())
	s.False(s.cache.IsOnboardingCompleted())
	_, ok := s.cache.GetPreferredLocation()
	s.False(ok)
	_, ok = s.cache.GetPrimarySite()
	s.False(ok)
}

func (s *CacheSuite) TestRecentMoveToFront() {
	s.Require().NoError(s.cache.AddToRecent(s.ctx, miraflores))
	s.Require().NoError(s.cache.AddToRecent(s.ctx, huaraz))
	s.Require().NoError(s.cache.AddToRecent(s.ctx, loc("lima", "LIMA", "miraflores")))

	got := s.cache.GetRecent()
	s.Require().Len(got, 2)
	s.Equal("miraflores", got[0].Locality, "re-inserted entry moves to the front with its new spelling")
	s.True(got[1].SameUnit(huaraz))
}

func (s *CacheSuite) TestRecentBounded() {
	for i := 0; i < 15; i++ {
		s.Require().NoError(s.cache.AddToRecent(s.ctx, loc("Lima", "Lima", fmt.Sprintf("Distrito %d", i))))
	}

	got := s.cache.GetRecent()
	s.Require().Len(got, sites.MaxRecent)
	s.Equal("Distrito 14", got[0].Locality)
	s.Equal("Distrito 5", got[9].Locality)
}

func (s *CacheSuite) TestRecentIgnoresZero() {
	s.Require().NoError(s.cache.AddToRecent(s.ctx, ubigeo.Location{}))
	s.Empty(s.cache.GetRecent())
}

func (s *CacheSuite) TestClearRecent() {
	s.Require().NoError(s.cache.AddToRecent(s.ctx, miraflores))
	s.Require().NoError(s.cache.ClearRecent(s.ctx))
	s.Empty(s.cache.GetRecent())

	reopened := s.open()
	s.Empty(reopened.GetRecent())
}

func (s *CacheSuite) TestFavorites() {
	s.Require().NoError(s.cache.AddToFavorites(s.ctx, miraflores))
	s.Require().NoError(s.cache.AddToFavorites(s.ctx, huaraz))

	s.Run("re-adding is a no-op", func() {
		s.Require().NoError(s.cache.AddToFavorites(s.ctx, loc("LIMA", "lima", "Miraflores")))
		got := s.cache.GetFavorites()
		s.Require().Len(got, 2)
		s.Equal("Miraflores", got[0].Locality)
	})

	s.Run("membership ignores case and accents", func() {
		s.True(s.cache.IsFavorite(loc("ancash", "huaraz", "huaraz")))
		s.False(s.cache.IsFavorite(cusco))
	})

	s.Run("remove", func() {
		s.Require().NoError(s.cache.RemoveFromFavorites(s.ctx, loc("Ancash", "Huaraz", "Huaraz")))
		s.False(s.cache.IsFavorite(huaraz))
		s.Len(s.cache.GetFavorites(), 1)
		s.Require().NoError(s.cache.RemoveFromFavorites(s.ctx, cusco))
		s.Len(s.cache.GetFavorites(), 1)
	})
}

func (s *CacheSuite) TestAddSitePrimaryDemotesOthers() {
	first, err := s.cache.AddSite(s.ctx, sites.Site{ID: "s1", Name: "Sede Central", Location: miraflores, IsPrimary: true, IsActive: true})
	s.Require().NoError(err)
	s.Equal("s1", first.ID)

	_, err = s.cache.AddSite(s.ctx, sites.Site{ID: "s2", Name: "Almacén", Location: huaraz, IsActive: true})
	s.Require().NoError(err)
	primary, ok := s.cache.GetPrimarySite()
	s.Require().True(ok)
	s.Equal("s1", primary.ID)

	_, err = s.cache.AddSite(s.ctx, sites.Site{ID: "s3", Name: "Obra Cusco", Location: cusco, IsPrimary: true})
	s.Require().NoError(err)

	primaries := 0
	for _, site := range s.cache.GetSites() {
		if site.IsPrimary {
			primaries++
			s.Equal("s3", site.ID)
		}
	}
	s.Equal(1, primaries)
}

func (s *CacheSuite) TestAddSiteAssignsLocalIDAndReplacesExisting() {
	site, err := s.cache.AddSite(s.ctx, sites.Site{Name: "Nueva"})
	s.Require().NoError(err)
	s.True(site.HasLocalID(), "got id %q", site.ID)
	s.False(site.UpdatedAt.IsZero())

	site.Name = "Renombrada"
	_, err = s.cache.AddSite(s.ctx, site)
	s.Require().NoError(err)

	got := s.cache.GetSites()
	s.Require().Len(got, 1)
	s.Equal("Renombrada", got[0].Name)
}

func (s *CacheSuite) TestUpdateSite() {
	_, err := s.cache.AddSite(s.ctx, sites.Site{ID: "s1", Name: "Sede", IsPrimary: true})
	s.Require().NoError(err)
	_, err = s.cache.AddSite(s.ctx, sites.Site{ID: "s2", Name: "Almacén"})
	s.Require().NoError(err)

	s.Require().NoError(s.cache.UpdateSite(s.ctx, sites.Site{ID: "s2", Name: "Almacén Norte", IsPrimary: true}))
	primary, ok := s.cache.GetPrimarySite()
	s.Require().True(ok)
	s.Equal("s2", primary.ID)
	s.Equal("Almacén Norte", primary.Name)

	got := s.cache.GetSites()
	s.Equal([]string{"s1", "s2"}, []string{got[0].ID, got[1].ID}, "update keeps position")

	err = s.cache.UpdateSite(s.ctx, sites.Site{ID: "missing"})
	s.ErrorIs(err, sites.ErrSiteNotFound)
}

func (s *CacheSuite) TestRemoveSite() {
	_, err := s.cache.AddSite(s.ctx, sites.Site{ID: "s1"})
	s.Require().NoError(err)
	s.Require().NoError(s.cache.RemoveSite(s.ctx, "s1"))
	s.Empty(s.cache.GetSites())
	s.Require().NoError(s.cache.RemoveSite(s.ctx, "s1"))
}

func (s *CacheSuite) TestReplaceSitesNormalizes() {
	s.Require().NoError(s.cache.ReplaceSites(s.ctx, []sites.Site{
		{ID: "a", IsPrimary: true},
		{ID: "b", IsPrimary: true},
		{ID: "a", Name: "dup"},
		{Name: "no id"},
	}))

	got := s.cache.GetSites()
	s.Require().Len(got, 2)
	s.True(got[0].IsPrimary)
	s.False(got[1].IsPrimary)
	s.Empty(got[0].Name)
}

func (s *CacheSuite) TestPreferences() {
	s.Require().NoError(s.cache.SetPreferredLocation(s.ctx, huaraz))
	s.Require().NoError(s.cache.SetSearchNationwide(s.ctx, false))
	s.Require().NoError(s.cache.SetOnboardingCompleted(s.ctx, true))

	got, ok := s.cache.GetPreferredLocation()
	s.Require().True(ok)
	s.True(got.SameUnit(huaraz))
	s.False(s.cache.IsSearchNationwide())
	s.True(s.cache.IsOnboardingCompleted())
	s.Equal("Áncash", s.cache.SearchScope())
	s.Equal(ubigeo.SearchOptions{Limit: 5, Region: "Áncash"}, s.cache.SearchOptions(5))

	s.Run("nationwide clears scope", func() {
		s.Require().NoError(s.cache.SetSearchNationwide(s.ctx, true))
		s.Empty(s.cache.SearchScope())
		s.Require().NoError(s.cache.SetSearchNationwide(s.ctx, false))
	})

	s.Run("clearing preferred location", func() {
		s.Require().NoError(s.cache.SetPreferredLocation(s.ctx, ubigeo.Location{}))
		_, ok := s.cache.GetPreferredLocation()
		s.False(ok)
		s.Empty(s.cache.SearchScope(), "no scope without a preferred region")
	})
}

func (s *CacheSuite) TestPersistenceRoundTrip() {
	s.Require().NoError(s.cache.AddToRecent(s.ctx, miraflores))
	s.Require().NoError(s.cache.AddToRecent(s.ctx, barranco))
	s.Require().NoError(s.cache.AddToFavorites(s.ctx, huaraz.WithCoordinates(-9.53, -77.53)))
	_, err := s.cache.AddSite(s.ctx, sites.Site{ID: "s1", Name: "Sede", Location: cusco, IsPrimary: true, SyncState: sites.SyncStateSynced})
	s.Require().NoError(err)
	s.Require().NoError(s.cache.SetPreferredLocation(s.ctx, independenci))
	s.Require().NoError(s.cache.SetSearchNationwide(s.ctx, false))
	s.Require().NoError(s.cache.SetOnboardingCompleted(s.ctx, true))

	reopened := s.open()

	s.Equal(s.cache.GetRecent(), reopened.GetRecent())
	fav := reopened.GetFavorites()
	s.Require().Len(fav, 1)
	s.Require().NotNil(fav[0].Latitude)
	s.InDelta(-9.53, *fav[0].Latitude, 1e-9)

	site, ok := reopened.GetPrimarySite()
	s.Require().True(ok)
	s.Equal("s1", site.ID)
	s.Equal(sites.SyncStateSynced, site.SyncState)
	s.True(site.UpdatedAt.Equal(fixedClock()()))

	pref, ok := reopened.GetPreferredLocation()
	s.Require().True(ok)
	s.True(pref.SameUnit(independenci))
	s.False(reopened.IsSearchNationwide())
	s.True(reopened.IsOnboardingCompleted())
}

func (s *CacheSuite) TestCorruptedDataLoadsEmpty() {
	for _, key := range []string{
		sites.KeyRecentLocations, sites.KeyFavoriteLocations, sites.KeyOrganizationSites,
		sites.KeyPreferredLocation, sites.KeySearchNationwide, sites.KeyOnboardingCompleted,
	} {
		s.Require().NoError(s.store.Memory.Put(s.ctx, key, []byte("{not json")))
	}

	c := s.open()
	s.Empty(c.GetRecent())
	s.Empty(c.GetFavorites())
	s.Empty(c.GetSites())
	_, ok := c.GetPreferredLocation()
	s.False(ok)
	s.True(c.IsSearchNationwide())
	s.False(c.IsOnboardingCompleted())
	s.Contains(s.logs.String(), "ignoring corrupted cache data")
	s.Contains(s.logs.String(), "key=organization_sites")
}

func (s *CacheSuite) TestWrongShapeLoadsEmpty() {
	s.Require().NoError(s.store.Memory.Put(s.ctx, sites.KeyRecentLocations, []byte(`{"region":"Lima"}`)))
	s.Require().NoError(s.store.Memory.Put(s.ctx, sites.KeySearchNationwide, []byte(`"yes"`)))

	c := s.open()
	s.Empty(c.GetRecent())
	s.True(c.IsSearchNationwide())
}

func (s *CacheSuite) TestPersistFailureKeepsMemoryState() {
	s.store.setFailPuts(true)

	err := s.cache.AddToRecent(s.ctx, miraflores)
	s.Require().Error(err)
	s.ErrorIs(err, errDiskFull)
	s.Len(s.cache.GetRecent(), 1, "in-memory state stays authoritative")
	s.Contains(s.logs.String(), "failed to persist cache collection")

	s.store.setFailPuts(false)
	s.Empty(s.open().GetRecent(), "nothing reached the store")
}

func (s *CacheSuite) TestReturnedSlicesAreCopies() {
	s.Require().NoError(s.cache.AddToRecent(s.ctx, miraflores))
	got := s.cache.GetRecent()
	got[0].Locality = "changed"
	s.Equal("Miraflores", s.cache.GetRecent()[0].Locality)
}

func (s *CacheSuite) TestConcurrentMutationsAreNotLost() {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := loc("Lima", "Lima", fmt.Sprintf("Distrito %d", i))
			if err := s.cache.AddToFavorites(s.ctx, l); err != nil {
				s.T().Errorf("AddToFavorites: %v", err)
			}
		}(i)
	}
	wg.Wait()

	s.Len(s.cache.GetFavorites(), 10)
	s.Len(s.open().GetFavorites(), 10, "persisted collection holds every write")
}

func TestOpenFailsOnStoreError(t *testing.T) {
	st := kvstore.NewMemory()
	_ = st.Close()

	_, err := sites.Open(context.Background(), st)
	if !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("Open() error = %v, want kvstore.ErrClosed", err)
	}
}
