// Package wire translates between native domain objects and the flat,
// string-keyed messages exchanged with the application layer and the map
// viewer. Field names are a wire contract and must not drift.
package wire

import (
	"fmt"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

// Message is the transport representation of a native object.
type Message map[string]any

// CodecError reports a missing or wrongly shaped field.
type CodecError struct {
	Field  string
	Reason string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: field %q: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &CodecError{Field: field, Reason: "required field absent"}
}

func badShape(field, want string) error {
	return &CodecError{Field: field, Reason: "expected " + want}
}

// str extracts a required string field.
func str(m Message, field string) (string, error) {
	v, ok := m[field]
	if !ok {
		return "", missing(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", badShape(field, "string")
	}
	return s, nil
}

// num extracts a required numeric field. JSON decoding yields float64; native
// ints are accepted too.
func num(m Message, field string) (float64, error) {
	v, ok := m[field]
	if !ok {
		return 0, missing(field)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, badShape(field, "number")
	}
}

// boolean extracts an optional bool field, defaulting to false.
func boolean(m Message, field string) (bool, error) {
	v, ok := m[field]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, badShape(field, "bool")
	}
	return b, nil
}

// sub extracts a required nested message.
func sub(m Message, field string) (Message, error) {
	v, ok := m[field]
	if !ok {
		return nil, missing(field)
	}
	switch s := v.(type) {
	case Message:
		return s, nil
	case map[string]any:
		return Message(s), nil
	default:
		return nil, badShape(field, "object")
	}
}

func EncodeCoordinate(c sdk.Coordinate) Message {
	return Message{
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
	}
}

func DecodeCoordinate(m Message) (sdk.Coordinate, error) {
	var c sdk.Coordinate
	var err error
	if c.Latitude, err = num(m, "latitude"); err != nil {
		return c, err
	}
	if c.Longitude, err = num(m, "longitude"); err != nil {
		return c, err
	}
	return c, nil
}

func EncodePoint(p sdk.Point) Message {
	return Message{
		"buildingIdentifier": p.BuildingIdentifier,
		"floorIdentifier":    p.FloorIdentifier,
		"coordinate":         EncodeCoordinate(p.Coordinate),
	}
}

func DecodePoint(m Message) (sdk.Point, error) {
	var p sdk.Point
	var err error
	if p.BuildingIdentifier, err = str(m, "buildingIdentifier"); err != nil {
		return p, err
	}
	if p.FloorIdentifier, err = str(m, "floorIdentifier"); err != nil {
		return p, err
	}
	cm, err := sub(m, "coordinate")
	if err != nil {
		return p, err
	}
	if p.Coordinate, err = DecodeCoordinate(cm); err != nil {
		return p, err
	}
	return p, nil
}

func EncodeLocation(l sdk.Location) Message {
	return Message{
		"buildingIdentifier": l.BuildingIdentifier,
		"floorIdentifier":    l.FloorIdentifier,
		"coordinate":         EncodeCoordinate(l.Coordinate),
		"bearing":            l.Bearing,
		"hasBearing":         l.HasBearing,
		"accuracy":           l.Accuracy,
		"timestamp":          l.Timestamp,
	}
}

func DecodeLocation(m Message) (sdk.Location, error) {
	var l sdk.Location
	var err error
	if l.BuildingIdentifier, err = str(m, "buildingIdentifier"); err != nil {
		return l, err
	}
	if l.FloorIdentifier, err = str(m, "floorIdentifier"); err != nil {
		return l, err
	}
	cm, err := sub(m, "coordinate")
	if err != nil {
		return l, err
	}
	if l.Coordinate, err = DecodeCoordinate(cm); err != nil {
		return l, err
	}
	bearing, err := num(m, "bearing")
	if err != nil {
		return l, err
	}
	l.Bearing = bearing
	if l.HasBearing, err = boolean(m, "hasBearing"); err != nil {
		return l, err
	}
	accuracy, err := num(m, "accuracy")
	if err != nil {
		return l, err
	}
	l.Accuracy = accuracy
	ts, err := num(m, "timestamp")
	if err != nil {
		return l, err
	}
	l.Timestamp = int64(ts)
	return l, nil
}

func EncodeBuilding(b sdk.Building) Message {
	return Message{
		"buildingIdentifier": b.Identifier,
		"name":               b.Name,
		"address":            b.Address,
		"center":             EncodeCoordinate(b.Center),
		"rotation":           b.Rotation,
		"width":              b.Width,
		"length":             b.Length,
	}
}

func DecodeBuilding(m Message) (sdk.Building, error) {
	var b sdk.Building
	var err error
	if b.Identifier, err = str(m, "buildingIdentifier"); err != nil {
		return b, err
	}
	if b.Name, err = str(m, "name"); err != nil {
		return b, err
	}
	if b.Address, err = str(m, "address"); err != nil {
		return b, err
	}
	cm, err := sub(m, "center")
	if err != nil {
		return b, err
	}
	if b.Center, err = DecodeCoordinate(cm); err != nil {
		return b, err
	}
	if b.Rotation, err = num(m, "rotation"); err != nil {
		return b, err
	}
	if b.Width, err = num(m, "width"); err != nil {
		return b, err
	}
	if b.Length, err = num(m, "length"); err != nil {
		return b, err
	}
	return b, nil
}

func EncodeFloor(f sdk.Floor) Message {
	return Message{
		"floorIdentifier":    f.Identifier,
		"buildingIdentifier": f.BuildingIdentifier,
		"name":               f.Name,
		"level":              f.Level,
		"mapUrl":             f.MapURL,
		"scale":              f.Scale,
	}
}

func EncodePoi(p sdk.Poi) Message {
	m := Message{
		"identifier":         p.Identifier,
		"buildingIdentifier": p.BuildingIdentifier,
		"floorIdentifier":    p.FloorIdentifier,
		"poiName":            p.Name,
		"coordinate":         EncodeCoordinate(p.Position),
		"categoryIdentifier": p.CategoryIdentifier,
	}
	if len(p.CustomFields) > 0 {
		fields := make(Message, len(p.CustomFields))
		for k, v := range p.CustomFields {
			fields[k] = v
		}
		m["customFields"] = fields
	}
	return m
}

func DecodePoi(m Message) (sdk.Poi, error) {
	var p sdk.Poi
	var err error
	if p.Identifier, err = str(m, "identifier"); err != nil {
		return p, err
	}
	if p.BuildingIdentifier, err = str(m, "buildingIdentifier"); err != nil {
		return p, err
	}
	if p.FloorIdentifier, err = str(m, "floorIdentifier"); err != nil {
		return p, err
	}
	if p.Name, err = str(m, "poiName"); err != nil {
		return p, err
	}
	cm, err := sub(m, "coordinate")
	if err != nil {
		return p, err
	}
	if p.Position, err = DecodeCoordinate(cm); err != nil {
		return p, err
	}
	if p.CategoryIdentifier, err = str(m, "categoryIdentifier"); err != nil {
		return p, err
	}
	if raw, ok := m["customFields"]; ok {
		var fields Message
		switch f := raw.(type) {
		case Message:
			fields = f
		case map[string]any:
			fields = Message(f)
		default:
			return p, badShape("customFields", "object")
		}
		p.CustomFields = make(map[string]string, len(fields))
		for k, v := range fields {
			s, ok := v.(string)
			if !ok {
				return p, badShape("customFields."+k, "string")
			}
			p.CustomFields[k] = s
		}
	}
	return p, nil
}

func EncodeCategory(c sdk.PoiCategory) Message {
	return Message{
		"identifier":      c.Identifier,
		"poiCategoryName": c.Name,
		"iconUrl":         c.IconURL,
		"selectedIconUrl": c.SelectedIconURL,
	}
}

func DecodeCategory(m Message) (sdk.PoiCategory, error) {
	var c sdk.PoiCategory
	var err error
	if c.Identifier, err = str(m, "identifier"); err != nil {
		return c, err
	}
	if c.Name, err = str(m, "poiCategoryName"); err != nil {
		return c, err
	}
	if c.IconURL, err = str(m, "iconUrl"); err != nil {
		return c, err
	}
	if c.SelectedIconURL, err = str(m, "selectedIconUrl"); err != nil {
		return c, err
	}
	return c, nil
}

func EncodeGeofence(g sdk.Geofence) Message {
	points := make([]Message, 0, len(g.Polygon))
	for _, p := range g.Polygon {
		points = append(points, EncodeCoordinate(p))
	}
	return Message{
		"identifier":         g.Identifier,
		"name":               g.Name,
		"buildingIdentifier": g.BuildingIdentifier,
		"floorIdentifier":    g.FloorIdentifier,
		"polygonPoints":      points,
	}
}

// EncodeGeofences encodes an entered or exited geofence set.
func EncodeGeofences(geofences []sdk.Geofence) Message {
	encoded := make([]Message, 0, len(geofences))
	for _, g := range geofences {
		encoded = append(encoded, EncodeGeofence(g))
	}
	return Message{"geofences": encoded}
}

func EncodeRouteStep(s sdk.RouteStep) Message {
	return Message{
		"id":              s.ID,
		"floorIdentifier": s.FloorIdentifier,
		"from":            EncodePoint(s.From),
		"to":              EncodePoint(s.To),
		"distance":        s.Distance,
		"isFirst":         s.IsFirst,
		"isLast":          s.IsLast,
	}
}

func EncodeNavigationProgress(p sdk.NavigationProgress) Message {
	return Message{
		"location":         EncodeLocation(p.Location),
		"currentStepIndex": p.CurrentStepIndex,
		"distanceToGoal":   p.DistanceToGoal,
		"timeToGoal":       p.TimeToGoal,
	}
}

func EncodeRoute(r *sdk.Route) Message {
	steps := make([]Message, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, EncodeRouteStep(s))
	}
	return Message{
		"from":       EncodePoint(r.From),
		"to":         EncodePoint(r.To),
		"steps":      steps,
		"distance":   r.Distance,
		"timeToGoal": r.Time,
	}
}

func DecodeRoute(m Message) (*sdk.Route, error) {
	var r sdk.Route
	fm, err := sub(m, "from")
	if err != nil {
		return nil, err
	}
	if r.From, err = DecodePoint(fm); err != nil {
		return nil, err
	}
	tm, err := sub(m, "to")
	if err != nil {
		return nil, err
	}
	if r.To, err = DecodePoint(tm); err != nil {
		return nil, err
	}
	raw, ok := m["steps"]
	if !ok {
		return nil, missing("steps")
	}
	switch steps := raw.(type) {
	case []Message:
		for _, sm := range steps {
			step, err := decodeRouteStep(sm)
			if err != nil {
				return nil, err
			}
			r.Steps = append(r.Steps, step)
		}
	case []any:
		for _, v := range steps {
			sm, ok := v.(map[string]any)
			if !ok {
				return nil, badShape("steps", "array of objects")
			}
			step, err := decodeRouteStep(Message(sm))
			if err != nil {
				return nil, err
			}
			r.Steps = append(r.Steps, step)
		}
	default:
		return nil, badShape("steps", "array")
	}
	if r.Distance, err = num(m, "distance"); err != nil {
		return nil, err
	}
	if r.Time, err = num(m, "timeToGoal"); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeRouteStep(m Message) (sdk.RouteStep, error) {
	var s sdk.RouteStep
	id, err := num(m, "id")
	if err != nil {
		return s, err
	}
	s.ID = int(id)
	if s.FloorIdentifier, err = str(m, "floorIdentifier"); err != nil {
		return s, err
	}
	fm, err := sub(m, "from")
	if err != nil {
		return s, err
	}
	if s.From, err = DecodePoint(fm); err != nil {
		return s, err
	}
	tm, err := sub(m, "to")
	if err != nil {
		return s, err
	}
	if s.To, err = DecodePoint(tm); err != nil {
		return s, err
	}
	if s.Distance, err = num(m, "distance"); err != nil {
		return s, err
	}
	if s.IsFirst, err = boolean(m, "isFirst"); err != nil {
		return s, err
	}
	if s.IsLast, err = boolean(m, "isLast"); err != nil {
		return s, err
	}
	return s, nil
}

func EncodeBuildingInfo(info *sdk.BuildingInfo) Message {
	floors := make([]Message, 0, len(info.Floors))
	for _, f := range info.Floors {
		floors = append(floors, EncodeFloor(f))
	}
	pois := make([]Message, 0, len(info.Pois))
	for _, p := range info.Pois {
		pois = append(pois, EncodePoi(p))
	}
	geofences := make([]Message, 0, len(info.Geofences))
	for _, g := range info.Geofences {
		geofences = append(geofences, EncodeGeofence(g))
	}
	return Message{
		"building":  EncodeBuilding(info.Building),
		"floors":    floors,
		"pois":      pois,
		"geofences": geofences,
	}
}
