package bridge

import (
	"github.com/JorgeCoupr/situm-flutter/sdk"
)

// Phase is the lifecycle phase of the embedded map view.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseLoading
	PhaseLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Session holds the bridge's view of the current map-view lifecycle and the
// active positioning and navigation requests. It is mutated only on the
// bridge dispatch loop and therefore carries no lock of its own.
type Session struct {
	phase            Phase
	activeLocation   *sdk.LocationRequest
	lastLocation     *sdk.Location
	activeNavigation *sdk.DirectionsRequest
	tracker          *navTracker
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// BeginLoad moves the session into Loading. Fails when a load is already in
// flight or completed, so rapid re-entrant loads cannot stack.
func (s *Session) BeginLoad() error {
	if s.phase != PhaseUnloaded {
		return sdk.Errorf(sdk.ErrAlreadyLoading, "map view is %s", s.phase)
	}
	s.phase = PhaseLoading
	return nil
}

// MarkLoaded completes a load.
func (s *Session) MarkLoaded() {
	s.phase = PhaseLoaded
}

// Unload returns the session to Unloaded and clears transient state. The
// active location request survives: positioning outlives the map view.
// Idempotent; unloading an unloaded session is a no-op.
func (s *Session) Unload() {
	s.phase = PhaseUnloaded
	s.lastLocation = nil
	s.activeNavigation = nil
	s.tracker = nil
}

// SetActiveRequest records the positioning request in flight.
func (s *Session) SetActiveRequest(req *sdk.LocationRequest) {
	s.activeLocation = req
}

// ClearActiveRequest drops the positioning request.
func (s *Session) ClearActiveRequest() {
	s.activeLocation = nil
}

// ActiveRequest returns the positioning request in flight, if any.
func (s *Session) ActiveRequest() *sdk.LocationRequest {
	return s.activeLocation
}

// SetLastLocation retains the most recent fix. The session owns this
// reference exclusively; consumers receive copies.
func (s *Session) SetLastLocation(loc sdk.Location) {
	s.lastLocation = &loc
}

// LastLocation returns a copy of the most recent fix, if any.
func (s *Session) LastLocation() (sdk.Location, bool) {
	if s.lastLocation == nil {
		return sdk.Location{}, false
	}
	return *s.lastLocation, true
}

// StartNavigation records the navigation request being tracked together
// with its route tracker.
func (s *Session) StartNavigation(req *sdk.DirectionsRequest, t *navTracker) {
	s.activeNavigation = req
	s.tracker = t
}

// ClearActiveNavigation drops the navigation request and its tracker.
func (s *Session) ClearActiveNavigation() {
	s.activeNavigation = nil
	s.tracker = nil
}

// ActiveNavigation returns the navigation request being tracked, if any.
func (s *Session) ActiveNavigation() *sdk.DirectionsRequest {
	return s.activeNavigation
}

// Tracker returns the route tracker of the active navigation, if any.
func (s *Session) Tracker() *navTracker {
	return s.tracker
}
