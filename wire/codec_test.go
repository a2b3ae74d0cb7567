package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

func testLocation() sdk.Location {
	return sdk.Location{
		BuildingIdentifier: "1051",
		FloorIdentifier:    "3",
		Coordinate:         sdk.Coordinate{Latitude: 42.8806, Longitude: -8.5449},
		Bearing:            137.5,
		HasBearing:         true,
		Accuracy:           2.4,
		Timestamp:          1717000000123,
	}
}

func TestLocationRoundTrip(t *testing.T) {
	want := testLocation()

	got, err := DecodeLocation(EncodeLocation(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("location round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLocationMissingField(t *testing.T) {
	msg := EncodeLocation(testLocation())
	delete(msg, "floorIdentifier")

	_, err := DecodeLocation(msg)
	require.Error(t, err)

	var codecErr *CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, "floorIdentifier", codecErr.Field)
}

func TestDecodeLocationWrongShape(t *testing.T) {
	msg := EncodeLocation(testLocation())
	msg["coordinate"] = "not an object"

	_, err := DecodeLocation(msg)
	require.Error(t, err)
}

func TestBuildingRoundTrip(t *testing.T) {
	want := sdk.Building{
		Identifier: "1051",
		Name:       "Edificio Emprendia",
		Address:    "Campus Vida, Santiago de Compostela",
		Center:     sdk.Coordinate{Latitude: 42.8806, Longitude: -8.5449},
		Rotation:   0.34,
		Width:      94.5,
		Length:     122.2,
	}

	got, err := DecodeBuilding(EncodeBuilding(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("building round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPoiRoundTrip(t *testing.T) {
	want := sdk.Poi{
		Identifier:         "98123",
		BuildingIdentifier: "1051",
		FloorIdentifier:    "3",
		Name:               "Cafeteria",
		Position:           sdk.Coordinate{Latitude: 42.88, Longitude: -8.54},
		CategoryIdentifier: "7",
		CustomFields:       map[string]string{"opening": "08:00"},
	}

	got, err := DecodePoi(EncodePoi(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("poi round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	want := sdk.PoiCategory{
		Identifier:      "7",
		Name:            "Coffee",
		IconURL:         "https://dashboard.situm.com/icons/coffee.png",
		SelectedIconURL: "https://dashboard.situm.com/icons/coffee_selected.png",
	}

	got, err := DecodeCategory(EncodeCategory(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("category round trip mismatch (-want +got):\n%s", diff)
	}
}

func testRoute() *sdk.Route {
	from := sdk.Point{
		BuildingIdentifier: "1051",
		FloorIdentifier:    "3",
		Coordinate:         sdk.Coordinate{Latitude: 42.8801, Longitude: -8.5441},
	}
	to := sdk.Point{
		BuildingIdentifier: "1051",
		FloorIdentifier:    "3",
		Coordinate:         sdk.Coordinate{Latitude: 42.8808, Longitude: -8.5452},
	}
	return &sdk.Route{
		From: from,
		To:   to,
		Steps: []sdk.RouteStep{
			{ID: 1, FloorIdentifier: "3", From: from, To: to, Distance: 42.7, IsFirst: true, IsLast: true},
		},
		Distance: 42.7,
		Time:     35,
	}
}

func TestRouteRoundTrip(t *testing.T) {
	want := testRoute()

	got, err := DecodeRoute(EncodeRoute(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("route round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRouteMissingSteps(t *testing.T) {
	msg := EncodeRoute(testRoute())
	delete(msg, "steps")

	_, err := DecodeRoute(msg)
	require.Error(t, err)
}

func TestGeofencesPayload(t *testing.T) {
	msg := EncodeGeofences([]sdk.Geofence{
		{
			Identifier:         "gf-1",
			Name:               "Loading dock",
			BuildingIdentifier: "1051",
			FloorIdentifier:    "1",
			Polygon: []sdk.Coordinate{
				{Latitude: 42.88, Longitude: -8.54},
				{Latitude: 42.881, Longitude: -8.54},
				{Latitude: 42.881, Longitude: -8.541},
			},
		},
	})

	encoded, ok := msg["geofences"].([]Message)
	require.True(t, ok)
	require.Len(t, encoded, 1)
	assert.Equal(t, "gf-1", encoded[0]["identifier"])
	assert.Len(t, encoded[0]["polygonPoints"], 3)
}

func TestStatusTableExhaustive(t *testing.T) {
	statuses := []sdk.LocationStatus{
		sdk.StatusStarting,
		sdk.StatusPreparingModel,
		sdk.StatusStartingPositioning,
		sdk.StatusCalculating,
		sdk.StatusUserNotInBuilding,
		sdk.StatusStopped,
	}

	for _, status := range statuses {
		name, err := StatusName(status)
		require.NoError(t, err, "status %d must be registered", status)

		back, err := StatusFromName(name)
		require.NoError(t, err)
		assert.Equal(t, status, back)
	}
}

func TestUnregisteredStatusIsError(t *testing.T) {
	_, err := StatusName(sdk.LocationStatus(99))
	assert.Error(t, err, "unknown status must not pass through silently")

	_, err = StatusFromName("NOT_A_STATUS")
	assert.Error(t, err)
}

func TestEncodeStatusPayload(t *testing.T) {
	msg, err := EncodeStatus(sdk.StatusUserNotInBuilding)
	require.NoError(t, err)
	assert.Equal(t, Message{"statusName": "USER_NOT_IN_BUILDING"}, msg)
}
