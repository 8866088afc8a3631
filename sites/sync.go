package sites

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SyncStatusState is the coarse state of the coordinator.
type SyncStatusState string

const (
	StatusIdle    SyncStatusState = "idle"
	StatusSyncing SyncStatusState = "syncing"
	StatusError   SyncStatusState = "error"
)

// SyncStatus reports the outcome of the most recent remote operation.
type SyncStatus struct {
	State        SyncStatusState
	LastError    error
	LastSyncedAt time.Time // last successful Pull; zero if none
}

// PushReport summarizes a PushPending run.
type PushReport struct {
	Created int
	Updated int
	Failed  int
	Errors  []*SyncError
}

// Coordinator reconciles a Cache's site collection with a Remote. Local
// writes always win in the cache: when the remote call fails the change is
// kept and marked local-only so PushPending can retry it later. Remote calls
// are made once; there is no retry loop.
type Coordinator struct {
	cache   *Cache
	remote  Remote
	logger  *slog.Logger
	clock   func() time.Time
	metrics *Metrics
	status  *Observable[SyncStatus]

	syncMu sync.Mutex // one Pull or PushPending at a time
}

// NewCoordinator wires cache to remote.
func NewCoordinator(cache *Cache, remote Remote, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	return &Coordinator{
		cache:   cache,
		remote:  remote,
		logger:  o.logger,
		clock:   o.clock,
		metrics: o.metrics,
		status:  newObservable(SyncStatus{State: StatusIdle}),
	}
}

// Status publishes the coordinator's sync status.
func (c *Coordinator) Status() *Observable[SyncStatus] {
	return c.status
}

func (c *Coordinator) setState(state SyncStatusState) {
	next := c.status.Get()
	next.State = state
	c.status.publish(next)
}

func (c *Coordinator) recordFailure(se *SyncError) {
	next := c.status.Get()
	next.State = StatusError
	next.LastError = se
	c.status.publish(next)
}

func (c *Coordinator) recordSuccess(pulled bool) {
	next := c.status.Get()
	next.State = StatusIdle
	next.LastError = nil
	if pulled {
		next.LastSyncedAt = c.clock()
	}
	c.status.publish(next)
}

// Pull fetches the organization's sites and replaces the local collection
// with them, all marked synced. On failure the local collection is left
// untouched and the returned error is a *SyncError.
//
// Local-only changes are overwritten; call Sync to push them first.
func (c *Coordinator) Pull(ctx context.Context, orgID string) error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.pull(ctx, orgID)
}

func (c *Coordinator) pull(ctx context.Context, orgID string) error {
	c.setState(StatusSyncing)
	start := time.Now()
	remoteSites, err := c.remote.ListSites(ctx, orgID)
	if err != nil {
		se := asSyncError("pull", orgID, "", err)
		c.metrics.Observe("pull", OutcomeFailure, time.Since(start))
		c.logger.Warn("site pull failed", "org_id", orgID, "category", se.Category, "error", err)
		c.recordFailure(se)
		return se
	}
	c.metrics.Observe("pull", OutcomeSuccess, time.Since(start))

	now := c.clock()
	for i := range remoteSites {
		remoteSites[i].SyncState = SyncStateSynced
		if remoteSites[i].UpdatedAt.IsZero() {
			remoteSites[i].UpdatedAt = now
		}
	}
	if err := c.cache.ReplaceSites(ctx, remoteSites); err != nil {
		c.setState(StatusError)
		return err
	}
	c.logger.Info("sites pulled", "org_id", orgID, "count", len(remoteSites))
	c.recordSuccess(true)
	return nil
}

// Create registers site remotely and stores the server's copy. If the remote
// call fails the caller's site is stored instead, with a local id when it has
// none and marked local-only. The returned error reports only local
// persistence failures; check the returned site's SyncState to see whether
// the server accepted it.
//
// A server id on site is ignored: Create always registers a new site and
// never replaces the one already stored under that id.
func (c *Coordinator) Create(ctx context.Context, orgID string, site Site) (Site, error) {
	if !site.HasLocalID() {
		site.ID = ""
	}
	localID := site.ID
	created, err := c.createRemote(ctx, orgID, site)
	if err != nil {
		site.SyncState = SyncStateLocalOnly
		site.UpdatedAt = c.clock()
		if site.ID == "" {
			site.ID = newLocalID()
		}
		return c.cache.AddSite(ctx, site)
	}
	if localID != "" && localID != created.ID {
		return created, c.cache.replaceSiteID(ctx, localID, created)
	}
	return c.cache.AddSite(ctx, created)
}

// createRemote calls CreateSite and returns the server copy marked synced.
func (c *Coordinator) createRemote(ctx context.Context, orgID string, site Site) (Site, error) {
	start := time.Now()
	created, err := c.remote.CreateSite(ctx, orgID, site)
	if err == nil && created.ID == "" {
		err = &SyncError{Category: CategoryDecode, Err: errors.New("server returned a site without id")}
	}
	if err != nil {
		se := asSyncError("create", orgID, site.ID, err)
		c.metrics.Observe("create", OutcomeFallback, time.Since(start))
		c.logger.Warn("remote site create failed, keeping local copy",
			"org_id", orgID, "site_name", site.Name, "category", se.Category, "error", err)
		c.recordFailure(se)
		return Site{}, se
	}
	c.metrics.Observe("create", OutcomeSuccess, time.Since(start))
	c.recordSuccess(false)
	created.SyncState = SyncStateSynced
	return created, nil
}

// Update pushes site to the remote service and stores the result. It returns
// true when the server accepted the change. On failure the caller's version
// is stored marked local-only. Sites that never reached the server are
// updated locally without a remote call.
//
// A site unknown to the cache is added.
func (c *Coordinator) Update(ctx context.Context, orgID string, site Site) (bool, error) {
	site.UpdatedAt = c.clock()
	if site.HasLocalID() {
		site.SyncState = SyncStateLocalOnly
		return false, c.storeUpdate(ctx, site)
	}
	updated, err := c.updateRemote(ctx, orgID, site)
	if err != nil {
		site.SyncState = SyncStateLocalOnly
		return false, c.storeUpdate(ctx, site)
	}
	return true, c.storeUpdate(ctx, updated)
}

func (c *Coordinator) updateRemote(ctx context.Context, orgID string, site Site) (Site, error) {
	start := time.Now()
	updated, err := c.remote.UpdateSite(ctx, orgID, site)
	if err != nil {
		se := asSyncError("update", orgID, site.ID, err)
		c.metrics.Observe("update", OutcomeFallback, time.Since(start))
		c.logger.Warn("remote site update failed, keeping local copy",
			"org_id", orgID, "site_id", site.ID, "category", se.Category, "error", err)
		c.recordFailure(se)
		return Site{}, se
	}
	c.metrics.Observe("update", OutcomeSuccess, time.Since(start))
	c.recordSuccess(false)
	if updated.ID == "" {
		updated.ID = site.ID
	}
	updated.SyncState = SyncStateSynced
	return updated, nil
}

func (c *Coordinator) storeUpdate(ctx context.Context, site Site) error {
	err := c.cache.UpdateSite(ctx, site)
	if errors.Is(err, ErrSiteNotFound) {
		_, err = c.cache.AddSite(ctx, site)
	}
	return err
}

// Delete removes the site remotely and locally. The local copy is removed
// even when the remote call fails; the boolean reports remote success.
// Sites that never reached the server skip the remote call.
func (c *Coordinator) Delete(ctx context.Context, orgID, siteID string) (bool, error) {
	if (Site{ID: siteID}).HasLocalID() {
		return false, c.cache.RemoveSite(ctx, siteID)
	}

	start := time.Now()
	ok := true
	if err := c.remote.DeleteSite(ctx, orgID, siteID); err != nil {
		ok = false
		se := asSyncError("delete", orgID, siteID, err)
		c.metrics.Observe("delete", OutcomeFallback, time.Since(start))
		c.logger.Warn("remote site delete failed, removing local copy anyway",
			"org_id", orgID, "site_id", siteID, "category", se.Category, "error", err)
		c.recordFailure(se)
	} else {
		c.metrics.Observe("delete", OutcomeSuccess, time.Since(start))
		c.recordSuccess(false)
	}
	return ok, c.cache.RemoveSite(ctx, siteID)
}

// PushPending retries every local-only site: sites with a local id are
// created, the rest updated. Remote failures are counted in the report and
// leave the site pending; the returned error is a local persistence failure
// or the context's error.
func (c *Coordinator) PushPending(ctx context.Context, orgID string) (PushReport, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.pushPending(ctx, orgID)
}

func (c *Coordinator) pushPending(ctx context.Context, orgID string) (PushReport, error) {
	var report PushReport
	pending := c.cache.PendingSites()
	if len(pending) == 0 {
		return report, nil
	}
	c.setState(StatusSyncing)

	for _, site := range pending {
		if err := ctx.Err(); err != nil {
			c.setState(StatusError)
			return report, err
		}

		if site.HasLocalID() {
			created, err := c.createRemote(ctx, orgID, site)
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, asSyncError("create", orgID, site.ID, err))
				continue
			}
			if err := c.cache.replaceSiteID(ctx, site.ID, created); err != nil {
				return report, err
			}
			report.Created++
			continue
		}

		updated, err := c.updateRemote(ctx, orgID, site)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, asSyncError("update", orgID, site.ID, err))
			continue
		}
		if err := c.storeUpdate(ctx, updated); err != nil {
			return report, err
		}
		report.Updated++
	}

	if report.Failed == 0 {
		c.setState(StatusIdle)
	} else {
		c.setState(StatusError)
	}
	c.logger.Info("pending sites pushed", "org_id", orgID,
		"created", report.Created, "updated", report.Updated, "failed", report.Failed)
	return report, nil
}

// Sync pushes pending local changes and then pulls the authoritative
// collection. When any push fails the pull is skipped, leaving pending sites
// in place, and the first push failure is returned.
func (c *Coordinator) Sync(ctx context.Context, orgID string) (PushReport, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	report, err := c.pushPending(ctx, orgID)
	if err != nil {
		return report, err
	}
	if len(report.Errors) > 0 {
		return report, report.Errors[0]
	}
	return report, c.pull(ctx, orgID)
}
