package sites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/kvstore"
)

// Preferences are the user's search settings.
type Preferences struct {
	PreferredLocation   *ubigeo.Location `json:"preferred_location,omitempty"`
	SearchNationwide    bool             `json:"search_nationwide"`
	OnboardingCompleted bool             `json:"onboarding_completed"`
}

func defaultPreferences() Preferences {
	return Preferences{SearchNationwide: true}
}

// Cache is the local source of truth for recents, favorites, sites and
// preferences. Reads are served from memory; every mutation replaces the
// affected collection, notifies subscribers and writes it to the store.
//
// Mutations are serialized, so two concurrent writers never lose each
// other's changes. A Cache is safe for concurrent use.
type Cache struct {
	store  kvstore.Store
	logger *slog.Logger
	clock  func() time.Time

	mu sync.Mutex // held across read-modify-persist of a collection

	recent    *Observable[[]ubigeo.Location]
	favorites *Observable[[]ubigeo.Location]
	sites     *Observable[[]Site]
	prefs     *Observable[Preferences]
}

// Open loads every collection from store. Missing keys start empty (or at
// their defaults) and malformed documents are logged and ignored, so Open
// only fails when the store itself cannot be read.
func Open(ctx context.Context, store kvstore.Store, opts ...Option) (*Cache, error) {
	o := buildOptions(opts)
	c := &Cache{
		store:  store,
		logger: o.logger,
		clock:  o.clock,
	}

	var recent, favorites []ubigeo.Location
	var sites []Site
	prefs := defaultPreferences()

	if err := c.load(ctx, KeyRecentLocations, &recent); err != nil {
		return nil, err
	}
	if err := c.load(ctx, KeyFavoriteLocations, &favorites); err != nil {
		return nil, err
	}
	if err := c.load(ctx, KeyOrganizationSites, &sites); err != nil {
		return nil, err
	}
	var preferred *ubigeo.Location
	if err := c.load(ctx, KeyPreferredLocation, &preferred); err != nil {
		return nil, err
	}
	if preferred != nil && !preferred.IsZero() {
		prefs.PreferredLocation = preferred
	}
	if err := c.load(ctx, KeySearchNationwide, &prefs.SearchNationwide); err != nil {
		return nil, err
	}
	if err := c.load(ctx, KeyOnboardingCompleted, &prefs.OnboardingCompleted); err != nil {
		return nil, err
	}

	c.recent = newObservable(dedupeLocations(recent, MaxRecent))
	c.favorites = newObservable(dedupeLocations(favorites, 0))
	c.sites = newObservable(normalizeSites(sites))
	c.prefs = newObservable(prefs)
	return c, nil
}

// load decodes key into dst. A missing key leaves dst untouched; a malformed
// document is logged and dst is reset to its zero value.
func (c *Cache) load(ctx context.Context, key string, dst any) error {
	b, err := c.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.logger.Warn("ignoring corrupted cache data", "key", key, "error", err)
		resetTo(dst, key)
	}
	return nil
}

// resetTo restores the default for a key after a failed decode; Unmarshal
// may have partially written dst.
func resetTo(dst any, key string) {
	switch v := dst.(type) {
	case *[]ubigeo.Location:
		*v = nil
	case *[]Site:
		*v = nil
	case **ubigeo.Location:
		*v = nil
	case *bool:
		*v = key == KeySearchNationwide
	}
}

func (c *Cache) persist(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.store.Put(ctx, key, b); err != nil {
		c.logger.Error("failed to persist cache collection", "key", key, "error", err)
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Recent publishes the recent-locations queue, most recent first.
func (c *Cache) Recent() *Observable[[]ubigeo.Location] { return c.recent }

// Favorites publishes the favorite locations in insertion order.
func (c *Cache) Favorites() *Observable[[]ubigeo.Location] { return c.favorites }

// Sites publishes the organization's site collection.
func (c *Cache) Sites() *Observable[[]Site] { return c.sites }

// Preferences publishes the user's preferences.
func (c *Cache) Preferences() *Observable[Preferences] { return c.prefs }

// AddToRecent moves loc to the front of the recent queue, dropping any
// equivalent entry and trimming the queue to MaxRecent. Zero locations are
// ignored.
func (c *Cache) AddToRecent(ctx context.Context, loc ubigeo.Location) error {
	if loc.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.recent.Get()
	next := make([]ubigeo.Location, 0, len(current)+1)
	next = append(next, loc)
	next = append(next, current...)
	next = dedupeLocations(next, MaxRecent)

	c.recent.publish(next)
	return c.persist(ctx, KeyRecentLocations, next)
}

// GetRecent returns a copy of the recent queue.
func (c *Cache) GetRecent() []ubigeo.Location {
	return cloneLocations(c.recent.Get())
}

// ClearRecent empties the recent queue.
func (c *Cache) ClearRecent(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := []ubigeo.Location{}
	c.recent.publish(next)
	return c.persist(ctx, KeyRecentLocations, next)
}

// AddToFavorites appends loc unless an equivalent favorite already exists.
func (c *Cache) AddToFavorites(ctx context.Context, loc ubigeo.Location) error {
	if loc.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.favorites.Get()
	if indexOfLocation(current, loc) >= 0 {
		return nil
	}
	next := make([]ubigeo.Location, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, loc)

	c.favorites.publish(next)
	return c.persist(ctx, KeyFavoriteLocations, next)
}

// RemoveFromFavorites drops the favorite equivalent to loc, if any.
func (c *Cache) RemoveFromFavorites(ctx context.Context, loc ubigeo.Location) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.favorites.Get()
	i := indexOfLocation(current, loc)
	if i < 0 {
		return nil
	}
	next := make([]ubigeo.Location, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)

	c.favorites.publish(next)
	return c.persist(ctx, KeyFavoriteLocations, next)
}

// IsFavorite reports whether an equivalent location is a favorite.
func (c *Cache) IsFavorite(loc ubigeo.Location) bool {
	return indexOfLocation(c.favorites.Get(), loc) >= 0
}

// GetFavorites returns a copy of the favorites.
func (c *Cache) GetFavorites() []ubigeo.Location {
	return cloneLocations(c.favorites.Get())
}

// AddSite inserts site, or replaces the site with the same id. A site without
// an id gets a local one. If site is primary every other site is demoted.
func (c *Cache) AddSite(ctx context.Context, site Site) (Site, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if site.ID == "" {
		site.ID = newLocalID()
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = c.clock()
	}
	next := upsertSite(c.sites.Get(), "", site)
	c.sites.publish(next)
	return site, c.persist(ctx, KeyOrganizationSites, next)
}

// UpdateSite replaces the site with the same id, demoting every other site
// when the update makes it primary. It returns ErrSiteNotFound for an unknown
// id.
func (c *Cache) UpdateSite(ctx context.Context, site Site) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.sites.Get()
	if indexOfSite(current, site.ID) < 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, site.ID)
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = c.clock()
	}
	next := upsertSite(current, "", site)
	c.sites.publish(next)
	return c.persist(ctx, KeyOrganizationSites, next)
}

// replaceSiteID swaps the entry stored under oldID for site, keeping its
// position. Used when the server assigns an id to a site created offline.
func (c *Cache) replaceSiteID(ctx context.Context, oldID string, site Site) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = c.clock()
	}
	next := upsertSite(c.sites.Get(), oldID, site)
	c.sites.publish(next)
	return c.persist(ctx, KeyOrganizationSites, next)
}

// RemoveSite deletes the site with id. Unknown ids are ignored.
func (c *Cache) RemoveSite(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.sites.Get()
	i := indexOfSite(current, id)
	if i < 0 {
		return nil
	}
	next := make([]Site, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)

	c.sites.publish(next)
	return c.persist(ctx, KeyOrganizationSites, next)
}

// ReplaceSites swaps the whole collection. Duplicate ids keep their first
// occurrence and only the first primary stays primary.
func (c *Cache) ReplaceSites(ctx context.Context, sites []Site) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := normalizeSites(sites)
	c.sites.publish(next)
	return c.persist(ctx, KeyOrganizationSites, next)
}

// GetSites returns a copy of the site collection.
func (c *Cache) GetSites() []Site {
	return cloneSites(c.sites.Get())
}

// GetSite returns the site with id.
func (c *Cache) GetSite(id string) (Site, bool) {
	current := c.sites.Get()
	if i := indexOfSite(current, id); i >= 0 {
		return current[i], true
	}
	return Site{}, false
}

// GetPrimarySite returns the primary site, if one is set.
func (c *Cache) GetPrimarySite() (Site, bool) {
	for _, s := range c.sites.Get() {
		if s.IsPrimary {
			return s, true
		}
	}
	return Site{}, false
}

// PendingSites returns the sites with changes the server has not seen.
func (c *Cache) PendingSites() []Site {
	var pending []Site
	for _, s := range c.sites.Get() {
		if s.Pending() {
			pending = append(pending, s)
		}
	}
	return pending
}

// SetPreferredLocation stores loc as the preferred location. A zero loc
// clears it.
func (c *Cache) SetPreferredLocation(ctx context.Context, loc ubigeo.Location) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.prefs.Get()
	if loc.IsZero() {
		next.PreferredLocation = nil
		c.prefs.publish(next)
		if err := c.store.Delete(ctx, KeyPreferredLocation); err != nil {
			c.logger.Error("failed to persist cache collection", "key", KeyPreferredLocation, "error", err)
			return fmt.Errorf("persist %s: %w", KeyPreferredLocation, err)
		}
		return nil
	}
	next.PreferredLocation = &loc
	c.prefs.publish(next)
	return c.persist(ctx, KeyPreferredLocation, loc)
}

// GetPreferredLocation returns the preferred location, if set.
func (c *Cache) GetPreferredLocation() (ubigeo.Location, bool) {
	p := c.prefs.Get().PreferredLocation
	if p == nil {
		return ubigeo.Location{}, false
	}
	return *p, true
}

// SetSearchNationwide toggles nationwide search. When off, SearchScope
// narrows search to the preferred location's region.
func (c *Cache) SetSearchNationwide(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.prefs.Get()
	next.SearchNationwide = enabled
	c.prefs.publish(next)
	return c.persist(ctx, KeySearchNationwide, enabled)
}

// IsSearchNationwide reports the nationwide flag. It defaults to true.
func (c *Cache) IsSearchNationwide() bool {
	return c.prefs.Get().SearchNationwide
}

// SetOnboardingCompleted records whether onboarding has been completed.
func (c *Cache) SetOnboardingCompleted(ctx context.Context, done bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.prefs.Get()
	next.OnboardingCompleted = done
	c.prefs.publish(next)
	return c.persist(ctx, KeyOnboardingCompleted, done)
}

// IsOnboardingCompleted reports the onboarding flag. It defaults to false.
func (c *Cache) IsOnboardingCompleted() bool {
	return c.prefs.Get().OnboardingCompleted
}

// SearchScope returns the region searches should be restricted to, or ""
// for nationwide search. Scoping needs both the flag turned off and a
// preferred location to take the region from.
func (c *Cache) SearchScope() string {
	p := c.prefs.Get()
	if p.SearchNationwide || p.PreferredLocation == nil {
		return ""
	}
	return p.PreferredLocation.Region
}

// SearchOptions returns ubigeo search options honoring SearchScope.
func (c *Cache) SearchOptions(limit int) ubigeo.SearchOptions {
	return ubigeo.SearchOptions{Limit: limit, Region: c.SearchScope()}
}

func indexOfLocation(locs []ubigeo.Location, loc ubigeo.Location) int {
	key := loc.Key()
	for i, l := range locs {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// dedupeLocations keeps the first occurrence of every triple and drops zero
// locations. limit <= 0 means unbounded.
func dedupeLocations(locs []ubigeo.Location, limit int) []ubigeo.Location {
	out := make([]ubigeo.Location, 0, len(locs))
	seen := make(map[string]bool, len(locs))
	for _, l := range locs {
		if l.IsZero() {
			continue
		}
		k := l.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func cloneLocations(locs []ubigeo.Location) []ubigeo.Location {
	out := make([]ubigeo.Location, len(locs))
	copy(out, locs)
	return out
}

func cloneSites(sites []Site) []Site {
	out := make([]Site, len(sites))
	copy(out, sites)
	return out
}

func indexOfSite(sites []Site, id string) int {
	for i, s := range sites {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// upsertSite returns a new collection with site stored in place of the entry
// with id replaceID (or site.ID when replaceID is empty), appended when no
// such entry exists. A primary site demotes all others.
func upsertSite(current []Site, replaceID string, site Site) []Site {
	if replaceID == "" {
		replaceID = site.ID
	}
	next := make([]Site, 0, len(current)+1)
	replaced := false
	for _, s := range current {
		if s.ID == replaceID || s.ID == site.ID {
			if !replaced {
				next = append(next, site)
				replaced = true
			}
			continue
		}
		if site.IsPrimary {
			s.IsPrimary = false
		}
		next = append(next, s)
	}
	if !replaced {
		next = append(next, site)
	}
	return next
}

// normalizeSites drops entries without an id or with a repeated id and
// enforces a single primary.
func normalizeSites(sites []Site) []Site {
	out := make([]Site, 0, len(sites))
	seen := make(map[string]bool, len(sites))
	primary := false
	for _, s := range sites {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if s.IsPrimary {
			if primary {
				s.IsPrimary = false
			}
			primary = true
		}
		out = append(out, s)
	}
	return out
}
