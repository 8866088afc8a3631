package remote

import (
	"fmt"
	"time"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/sites"
)

// siteData is the request body for create and update. Address is always
// sent so an empty string clears it on the server.
type siteData struct {
	Name      string   `json:"name"`
	Region    string   `json:"region"`
	SubRegion string   `json:"sub_region"`
	Locality  string   `json:"locality"`
	Address   string   `json:"address"`
	IsPrimary bool     `json:"is_primary"`
	IsActive  bool     `json:"is_active"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func newSiteData(s sites.Site) siteData {
	return siteData{
		Name:      s.Name,
		Region:    s.Location.Region,
		SubRegion: s.Location.SubRegion,
		Locality:  s.Location.Locality,
		Address:   s.Location.Address,
		IsPrimary: s.IsPrimary,
		IsActive:  s.IsActive,
		Latitude:  s.Location.Latitude,
		Longitude: s.Location.Longitude,
	}
}

// siteRecord is a site as the server returns it.
type siteRecord struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	siteData
}

func (r siteRecord) site() sites.Site {
	return sites.Site{
		ID:   r.ID,
		Name: r.Name,
		Location: ubigeo.Location{
			Region:    r.Region,
			SubRegion: r.SubRegion,
			Locality:  r.Locality,
			Address:   r.Address,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		},
		IsPrimary: r.IsPrimary,
		IsActive:  r.IsActive,
		UpdatedAt: r.UpdatedAt,
	}
}

type listResponse struct {
	Sites []siteRecord `json:"sites"`
}

// siteResponse answers create, update and delete. A reply without a success
// field is treated as accepted.
type siteResponse struct {
	Success *bool       `json:"success"`
	Site    *siteRecord `json:"site"`
	Message string      `json:"message,omitempty"`
}

func (r siteResponse) check(op, orgID, siteID string) error {
	if r.Success == nil || *r.Success {
		return nil
	}
	err := ErrRejected
	if r.Message != "" {
		err = fmt.Errorf("%w: %s", ErrRejected, r.Message)
	}
	return &sites.SyncError{Op: op, OrgID: orgID, SiteID: siteID, Category: sites.CategoryRejected, Err: err}
}

// siteOr returns the server's site, or fallback when the reply carried none.
func (r siteResponse) siteOr(fallback sites.Site) sites.Site {
	if r.Site == nil {
		return fallback
	}
	return r.Site.site()
}
