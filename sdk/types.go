// Package sdk defines the domain model and the service boundary of the
// native positioning engine. The bridge consumes these interfaces; concrete
// adapters (REST, simulator) live in subpackages.
package sdk

// UnspecifiedIdentifier is the sentinel for "unspecified / current position"
// in directions and navigation requests. Required string fields carry this
// value rather than being empty.
const UnspecifiedIdentifier = "-1"

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point is a coordinate pinned to a building and floor.
type Point struct {
	BuildingIdentifier string     `json:"buildingIdentifier"`
	FloorIdentifier    string     `json:"floorIdentifier"`
	Coordinate         Coordinate `json:"coordinate"`
}

// Location is a single positioning fix produced by the engine.
type Location struct {
	BuildingIdentifier string     `json:"buildingIdentifier"`
	FloorIdentifier    string     `json:"floorIdentifier"`
	Coordinate         Coordinate `json:"coordinate"`
	Bearing            float64    `json:"bearing"`
	HasBearing         bool       `json:"hasBearing"`
	Accuracy           float64    `json:"accuracy"`
	// Unix time in milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// LocationRequest starts a positioning session. Immutable once submitted.
type LocationRequest struct {
	// Empty means global mode (no building constraint).
	BuildingIdentifier string `json:"buildingIdentifier"`
	UseDeadReckoning   bool   `json:"useDeadReckoning"`
}

// LocationStatus is the enumerated positioning status.
type LocationStatus int

const (
	StatusStarting LocationStatus = iota
	StatusPreparingModel
	StatusStartingPositioning
	StatusCalculating
	StatusUserNotInBuilding
	StatusStopped
)

// Geofence is a zone whose entry and exit raise events.
type Geofence struct {
	Identifier         string       `json:"identifier"`
	Name               string       `json:"name"`
	BuildingIdentifier string       `json:"buildingIdentifier"`
	FloorIdentifier    string       `json:"floorIdentifier"`
	Polygon            []Coordinate `json:"polygonPoints"`
}

// Building is a cartography entity fetched on demand.
type Building struct {
	Identifier string     `json:"buildingIdentifier"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Center     Coordinate `json:"center"`
	// Degrees counterclockwise from east.
	Rotation float64 `json:"rotation"`
	Width    float64 `json:"width"`
	Length   float64 `json:"length"`
}

// Floor is a level of a building.
type Floor struct {
	Identifier         string  `json:"floorIdentifier"`
	BuildingIdentifier string  `json:"buildingIdentifier"`
	Name               string  `json:"name"`
	Level              int     `json:"level"`
	MapURL             string  `json:"mapUrl"`
	Scale              float64 `json:"scale"`
}

// Poi is a point of interest inside a building.
type Poi struct {
	Identifier         string            `json:"identifier"`
	BuildingIdentifier string            `json:"buildingIdentifier"`
	FloorIdentifier    string            `json:"floorIdentifier"`
	Name               string            `json:"poiName"`
	Position           Coordinate        `json:"coordinate"`
	CategoryIdentifier string            `json:"categoryIdentifier"`
	CustomFields       map[string]string `json:"customFields,omitempty"`
}

// PoiCategory groups POIs under a name and icon pair.
type PoiCategory struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"poiCategoryName"`
	IconURL         string `json:"iconUrl"`
	SelectedIconURL string `json:"selectedIconUrl"`
}

// BuildingInfo is a building with its floors, POIs and geofences.
type BuildingInfo struct {
	Building  Building   `json:"building"`
	Floors    []Floor    `json:"floors"`
	Pois      []Poi      `json:"pois"`
	Geofences []Geofence `json:"geofences"`
}

// Accessibility modes for route computation.
const (
	AccessibilityChooseShortest    = "CHOOSE_SHORTEST"
	AccessibilityOnlyAccessible    = "ONLY_ACCESSIBLE"
	AccessibilityOnlyNotAccessible = "ONLY_NOT_ACCESSIBLE_FLOOR_CHANGES"
)

// DirectionsRequest asks for a route between two points of a building.
// Origin and destination are addressed by category plus identifier; the
// identifier defaults to UnspecifiedIdentifier meaning "current position".
type DirectionsRequest struct {
	BuildingIdentifier    string `json:"buildingIdentifier"`
	OriginCategory        string `json:"originCategory"`
	OriginIdentifier      string `json:"originIdentifier"`
	DestinationCategory   string `json:"destinationCategory"`
	DestinationIdentifier string `json:"destinationIdentifier"`
	AccessibilityMode     string `json:"accessibilityMode"`
}

// Normalize fills sentinel defaults for omitted identifier fields.
func (r *DirectionsRequest) Normalize() {
	if r.OriginIdentifier == "" {
		r.OriginIdentifier = UnspecifiedIdentifier
	}
	if r.DestinationIdentifier == "" {
		r.DestinationIdentifier = UnspecifiedIdentifier
	}
	if r.AccessibilityMode == "" {
		r.AccessibilityMode = AccessibilityChooseShortest
	}
}

// NavigationRequest tunes navigation tracking along a computed route.
type NavigationRequest struct {
	DistanceToGoalThreshold float64 `json:"distanceToGoalThreshold"`
	OutsideRouteThreshold   float64 `json:"outsideRouteThreshold"`
}

// NavigationProgress is one tracking update along the active route.
type NavigationProgress struct {
	Location         Location `json:"location"`
	CurrentStepIndex int      `json:"currentStepIndex"`
	DistanceToGoal   float64  `json:"distanceToGoal"`
	TimeToGoal       float64  `json:"timeToGoal"`
}

// RouteStep is one segment of a computed route.
type RouteStep struct {
	ID              int     `json:"id"`
	FloorIdentifier string  `json:"floorIdentifier"`
	From            Point   `json:"from"`
	To              Point   `json:"to"`
	Distance        float64 `json:"distance"`
	IsFirst         bool    `json:"isFirst"`
	IsLast          bool    `json:"isLast"`
}

// Route is the result of a directions computation. A route with zero steps
// is treated as a failed computation by the bridge.
type Route struct {
	From     Point       `json:"from"`
	To       Point       `json:"to"`
	Steps    []RouteStep `json:"steps"`
	Distance float64     `json:"distance"`
	// Estimated seconds to goal.
	Time float64 `json:"timeToGoal"`
}
