package sites

import (
	"errors"
	"fmt"
)

// ErrSiteNotFound is returned by UpdateSite for an id the cache does not hold.
var ErrSiteNotFound = errors.New("site not found")

// ErrorCategory classifies remote failures.
type ErrorCategory string

const (
	// CategoryNetwork covers transport failures: refused connections,
	// timeouts, canceled contexts.
	CategoryNetwork ErrorCategory = "network"
	// CategoryRejected means the service answered with success=false.
	CategoryRejected ErrorCategory = "rejected"
	// CategoryStatus means the service answered with a non-2xx status.
	CategoryStatus ErrorCategory = "status"
	// CategoryDecode means the response body could not be understood.
	CategoryDecode ErrorCategory = "decode"
)

// SyncError describes a failed call to the remote site service.
type SyncError struct {
	Op         string // pull, create, update, delete
	OrgID      string
	SiteID     string
	Category   ErrorCategory
	StatusCode int // set for CategoryStatus
	Err        error
}

func (e *SyncError) Error() string {
	target := "org " + e.OrgID
	if e.SiteID != "" {
		target += " site " + e.SiteID
	}
	msg := fmt.Sprintf("sync %s %s [%s]", e.Op, target, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// GetCategory extracts the category from an error chain. Errors that are not
// SyncErrors are reported as network failures, since a Remote that fails
// without classifying the error most likely never got an answer.
func GetCategory(err error) ErrorCategory {
	var se *SyncError
	if errors.As(err, &se) && se.Category != "" {
		return se.Category
	}
	return CategoryNetwork
}

// asSyncError normalizes any Remote error into a *SyncError carrying the
// operation context.
func asSyncError(op, orgID, siteID string, err error) *SyncError {
	var se *SyncError
	if errors.As(err, &se) {
		out := *se
		if out.Op == "" {
			out.Op = op
		}
		if out.OrgID == "" {
			out.OrgID = orgID
		}
		if out.SiteID == "" {
			out.SiteID = siteID
		}
		if out.Category == "" {
			out.Category = CategoryNetwork
		}
		return &out
	}
	return &SyncError{Op: op, OrgID: orgID, SiteID: siteID, Category: CategoryNetwork, Err: err}
}
