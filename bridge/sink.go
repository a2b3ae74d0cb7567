package bridge

import (
	"log"

	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/wire"
)

// locationSink receives engine callbacks, possibly on engine threads, and
// marshals each onto the dispatch loop before touching the session. The
// generation captured at request time makes callbacks that land after a
// stop/restart detectably stale; those are discarded, not delivered.
type locationSink struct {
	bridge     *Bridge
	generation uint64
}

func (s *locationSink) stale() bool {
	return s.generation != s.bridge.relay.Generation(relay.StreamLocation)
}

func (s *locationSink) OnLocationChanged(loc sdk.Location) {
	s.bridge.do(func() {
		if s.stale() {
			return
		}
		s.bridge.session.SetLastLocation(loc)
		event := relay.NewEvent(relay.StreamLocation, wire.EncodeLocation(loc))
		event.Generation = s.generation
		s.bridge.relay.Publish(event)
		// The viewer's position marker follows only while the map is
		// loaded; positioning itself is independent of the map lifecycle.
		if s.bridge.session.Phase() == PhaseLoaded {
			s.bridge.viewer.UpdateLocation(loc)
		}
		s.bridge.trackNavigation(loc)
	})
}

func (s *locationSink) OnStatusChanged(status sdk.LocationStatus) {
	data, err := wire.EncodeStatus(status)
	if err != nil {
		log.Printf("[bridge] dropping status event: %v", err)
		return
	}
	s.bridge.do(func() {
		if s.stale() {
			return
		}
		event := relay.NewEvent(relay.StreamStatus, data)
		event.Generation = s.bridge.relay.Generation(relay.StreamStatus)
		s.bridge.relay.Publish(event)
	})
}

func (s *locationSink) OnError(sdkErr *sdk.Error) {
	s.bridge.do(func() {
		if s.stale() {
			return
		}
		event := relay.NewEvent(relay.StreamError, wire.Message{
			"code":    sdkErr.Code,
			"message": sdkErr.Message,
		})
		event.Generation = s.bridge.relay.Generation(relay.StreamError)
		s.bridge.relay.Publish(event)
	})
}

func (s *locationSink) OnEnteredGeofences(geofences []sdk.Geofence) {
	s.publishGeofences(relay.StreamGeofencesEntered, geofences)
}

func (s *locationSink) OnExitedGeofences(geofences []sdk.Geofence) {
	s.publishGeofences(relay.StreamGeofencesExited, geofences)
}

func (s *locationSink) publishGeofences(stream relay.Stream, geofences []sdk.Geofence) {
	s.bridge.do(func() {
		if s.stale() {
			return
		}
		event := relay.NewEvent(stream, wire.EncodeGeofences(geofences))
		event.Generation = s.bridge.relay.Generation(stream)
		s.bridge.relay.Publish(event)
	})
}

// navigationSink forwards navigation callbacks from adapters that report
// progress natively. Like positioning, callbacks from a navigation stopped
// in the meantime carry a stale generation and are dropped. A zero
// generation means the navigation never committed; such callbacks are
// dropped too.
type navigationSink struct {
	bridge     *Bridge
	generation uint64
}

func (s *navigationSink) current() bool {
	return s.generation != 0 &&
		s.generation == s.bridge.relay.Generation(relay.StreamNavigationStarted)
}

func (s *navigationSink) OnNavigationProgress(progress sdk.NavigationProgress) {
	s.bridge.do(func() {
		if !s.current() {
			return
		}
		event := relay.NewEvent(relay.StreamNavigationProgress, wire.EncodeNavigationProgress(progress))
		event.Generation = s.bridge.relay.Generation(relay.StreamNavigationProgress)
		s.bridge.relay.Publish(event)
	})
}

func (s *navigationSink) OnNavigationFinished() {
	s.bridge.do(func() {
		if !s.current() {
			return
		}
		s.bridge.session.ClearActiveNavigation()
		event := relay.NewEvent(relay.StreamNavigationDone, wire.Message{})
		event.Generation = s.bridge.relay.Generation(relay.StreamNavigationDone)
		s.bridge.relay.Publish(event)
	})
}
