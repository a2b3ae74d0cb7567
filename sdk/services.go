package sdk

import "context"

// Credentials authenticate against the positioning platform.
type Credentials struct {
	User      string
	APIKey    string
	APIDomain string
}

// Valid reports whether the credentials can be used at all.
func (c Credentials) Valid() bool {
	return c.User != "" && c.APIKey != ""
}

// LocationSink receives positioning callbacks from the engine. Engines may
// invoke these from their own threads; consumers must marshal onto their own
// queue before touching shared state.
type LocationSink interface {
	OnLocationChanged(loc Location)
	OnStatusChanged(status LocationStatus)
	OnError(err *Error)
	OnEnteredGeofences(geofences []Geofence)
	OnExitedGeofences(geofences []Geofence)
}

// LocationService is the continuous positioning boundary.
type LocationService interface {
	// RequestUpdates starts (or replaces) a positioning session. Fixes and
	// status changes flow to sink until RemoveUpdates.
	RequestUpdates(req LocationRequest, sink LocationSink) error
	// RemoveUpdates stops delivery. Idempotent.
	RemoveUpdates() error
}

// PrefetchOptions tune what Prefetch pulls down.
type PrefetchOptions struct {
	IncludeImages bool `json:"preloadImages"`
}

// CartographyService fetches static building data on demand. Caching, if
// any, is the service's own concern.
type CartographyService interface {
	FetchBuildings(ctx context.Context) ([]Building, error)
	FetchBuildingInfo(ctx context.Context, buildingID string) (*BuildingInfo, error)
	FetchPois(ctx context.Context, buildingID string) ([]Poi, error)
	FetchCategories(ctx context.Context) ([]PoiCategory, error)
	Prefetch(ctx context.Context, buildingIDs []string, opts PrefetchOptions) error
	ClearCache() error
}

// NavigationSink receives tracking callbacks from engines that follow the
// route themselves. Engines without own tracking may ignore it entirely; the
// consumer then derives progress from the positioning stream.
type NavigationSink interface {
	OnNavigationProgress(progress NavigationProgress)
	OnNavigationFinished()
}

// NavigationService computes routes and tracks progress along them.
type NavigationService interface {
	RequestDirections(ctx context.Context, req DirectionsRequest) (*Route, error)
	// RequestNavigation computes a route and starts tracking it, reporting
	// progress and arrival to sink.
	RequestNavigation(ctx context.Context, dir DirectionsRequest, nav NavigationRequest, sink NavigationSink) (*Route, error)
	// StopNavigation stops tracking. Idempotent.
	StopNavigation() error
}
