package sites

import "context"

//go:generate mockgen -source=remote.go -destination=mocks/remote.go -package=mocks Remote

// Remote is the site-management service. Implementations should return
// *SyncError so failures are classified; any other error counts as a network
// failure.
type Remote interface {
	// ListSites returns every site of the organization.
	ListSites(ctx context.Context, orgID string) ([]Site, error)
	// CreateSite registers site and returns it with its server id.
	CreateSite(ctx context.Context, orgID string, site Site) (Site, error)
	// UpdateSite replaces the site stored under site.ID.
	UpdateSite(ctx context.Context, orgID string, site Site) (Site, error)
	// DeleteSite removes the site.
	DeleteSite(ctx context.Context, orgID, siteID string) error
}
