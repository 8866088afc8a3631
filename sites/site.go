// Package sites keeps an organization's work sites, recent and favorite
// locations and user preferences in a durable local cache, and reconciles
// the site collection with the remote site-management service.
package sites

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andreiashu/ubigeo"
)

// SyncState records whether the remote service has acknowledged a site's
// current contents.
type SyncState string

const (
	// SyncStateLocalOnly marks a site whose latest change never reached the
	// remote service. PushPending retries these.
	SyncStateLocalOnly SyncState = "local-only"
	// SyncStateSynced marks a site matching the last remote response.
	SyncStateSynced SyncState = "synced"
)

// localIDPrefix marks ids assigned offline, before the server issued one.
const localIDPrefix = "local-"

// Site is a registered physical work location of an organization.
type Site struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Location  ubigeo.Location `json:"location"`
	IsPrimary bool            `json:"is_primary"`
	IsActive  bool            `json:"is_active"`
	SyncState SyncState       `json:"sync_state"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasLocalID reports whether the site was created offline and has never
// received a server id.
func (s Site) HasLocalID() bool {
	return strings.HasPrefix(s.ID, localIDPrefix)
}

// Pending reports whether the site has changes the server has not seen.
func (s Site) Pending() bool {
	return s.SyncState != SyncStateSynced
}

func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}
