package bridge

import (
	"math"

	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/wire"
)

// Thresholds in meters used when the navigation request leaves them unset.
const (
	defaultGoalThreshold    = 5.0
	defaultOutsideThreshold = 15.0
)

// navTracker follows positioning fixes along a committed route and derives
// progress, route departure and arrival. It lives on the dispatch loop and
// carries the generation of the navigation it tracks, so a superseded
// tracker stops producing events.
type navTracker struct {
	route      *sdk.Route
	generation uint64

	goalThreshold    float64
	outsideThreshold float64

	// Index of the step the user was last matched to. Matching never moves
	// backwards along the route.
	step int
}

func newNavTracker(route *sdk.Route, nav sdk.NavigationRequest, gen uint64) *navTracker {
	t := &navTracker{
		route:            route,
		generation:       gen,
		goalThreshold:    nav.DistanceToGoalThreshold,
		outsideThreshold: nav.OutsideRouteThreshold,
	}
	if t.goalThreshold <= 0 {
		t.goalThreshold = defaultGoalThreshold
	}
	if t.outsideThreshold <= 0 {
		t.outsideThreshold = defaultOutsideThreshold
	}
	return t
}

// trackNavigation feeds a positioning fix into the active route tracker, if
// any. Runs on the dispatch loop.
func (b *Bridge) trackNavigation(loc sdk.Location) {
	t := b.session.Tracker()
	if t == nil || t.generation != b.relay.Generation(relay.StreamNavigationStarted) {
		return
	}
	progress, finished, outside := t.update(loc)

	event := relay.NewEvent(relay.StreamNavigationProgress, wire.EncodeNavigationProgress(progress))
	event.Generation = b.relay.Generation(relay.StreamNavigationProgress)
	b.relay.Publish(event)

	if outside {
		event := relay.NewEvent(relay.StreamNavigationOutsideRoute, wire.Message{})
		event.Generation = b.relay.Generation(relay.StreamNavigationOutsideRoute)
		b.relay.Publish(event)
	}
	if finished {
		b.session.ClearActiveNavigation()
		event := relay.NewEvent(relay.StreamNavigationDone, wire.Message{})
		event.Generation = b.relay.Generation(relay.StreamNavigationDone)
		b.relay.Publish(event)
	}
}

// update folds one fix into the tracking state. finished reports arrival at
// the route goal, outside reports the fix straying beyond the outside-route
// threshold.
func (t *navTracker) update(loc sdk.Location) (progress sdk.NavigationProgress, finished, outside bool) {
	steps := t.route.Steps

	best, bestDist := t.step, math.MaxFloat64
	for i := t.step; i < len(steps); i++ {
		d := segmentMeters(loc.Coordinate, steps[i].From.Coordinate, steps[i].To.Coordinate)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	t.step = best

	remaining := metersBetween(loc.Coordinate, steps[best].To.Coordinate)
	for i := best + 1; i < len(steps); i++ {
		remaining += steps[i].Distance
	}

	progress = sdk.NavigationProgress{
		Location:         loc,
		CurrentStepIndex: best,
		DistanceToGoal:   remaining,
	}
	if t.route.Distance > 0 {
		progress.TimeToGoal = t.route.Time * remaining / t.route.Distance
	}

	if remaining <= t.goalThreshold {
		return progress, true, false
	}
	return progress, false, bestDist > t.outsideThreshold
}

const metersPerDegree = 111320.0

// metersBetween is the equirectangular distance between two coordinates.
// Accurate to well under a meter at building scale.
func metersBetween(a, b sdk.Coordinate) float64 {
	dy := (b.Latitude - a.Latitude) * metersPerDegree
	dx := (b.Longitude - a.Longitude) * metersPerDegree * math.Cos(a.Latitude*math.Pi/180)
	return math.Hypot(dx, dy)
}

// segmentMeters is the distance from p to the segment ab in the local flat
// approximation around a.
func segmentMeters(p, a, b sdk.Coordinate) float64 {
	cos := math.Cos(a.Latitude * math.Pi / 180)
	px := (p.Longitude - a.Longitude) * metersPerDegree * cos
	py := (p.Latitude - a.Latitude) * metersPerDegree
	bx := (b.Longitude - a.Longitude) * metersPerDegree * cos
	by := (b.Latitude - a.Latitude) * metersPerDegree

	length := bx*bx + by*by
	if length == 0 {
		return math.Hypot(px, py)
	}
	u := (px*bx + py*by) / length
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return math.Hypot(px-u*bx, py-u*by)
}
