package sites

// Store keys. Each holds one JSON document.
const (
	KeyRecentLocations     = "recent_locations"
	KeyFavoriteLocations   = "favorite_locations"
	KeyOrganizationSites   = "organization_sites"
	KeyPreferredLocation   = "preferred_location"
	KeySearchNationwide    = "search_nationwide"
	KeyOnboardingCompleted = "onboarding_completed"
)

// MaxRecent bounds the recent-locations queue.
const MaxRecent = 10
