package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeCoupr/situm-flutter/data"
	"github.com/JorgeCoupr/situm-flutter/sdk"
)

func openStore(t *testing.T) *data.Store {
	t.Helper()
	store, err := data.Open(filepath.Join(t.TempDir(), "cartography.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dashboardStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/buildings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tester@example.com", r.Header.Get("X-API-EMAIL"))
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`[{"id": 1001, "name": "HQ", "address": "Rua Nova 1",
			"location": {"lat": 42.88, "lng": -8.54},
			"dimensions": {"width": 40, "length": 60}}]`))
	})
	mux.HandleFunc("/api/v1/buildings/1001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1001, "name": "HQ", "address": "Rua Nova 1",
			"location": {"lat": 42.88, "lng": -8.54},
			"dimensions": {"width": 40, "length": 60}}`))
	})
	mux.HandleFunc("/api/v1/buildings/1001/floors", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 11, "building_id": 1001, "name": "ground", "level": 0,
			"map_url": "https://img.example.com/11.png", "scale": 12.5}]`))
	})
	mux.HandleFunc("/api/v1/pois", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1001", r.URL.Query().Get("buildingid"))
		w.Write([]byte(`[{"id": 7, "building_id": 1001, "floor_id": 11, "name": "Entrance",
			"position": {"lat": 42.881, "lng": -8.541}, "category_id": 3}]`))
	})
	mux.HandleFunc("/api/v1/poi_categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 3, "name": "Doors", "icon_url": "https://img.example.com/door.png",
			"selected_icon_url": "https://img.example.com/door-sel.png"}]`))
	})
	mux.HandleFunc("/api/v1/geofences", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "gf-1", "name": "lobby", "building_id": 1001, "floor_id": 11,
			"polygon_points": [{"lat": 42.88, "lng": -8.54}, {"lat": 42.882, "lng": -8.54}]}]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, domain string, store *data.Store) *Client {
	t.Helper()
	return New(Options{
		Domain: domain,
		Email:  "tester@example.com",
		APIKey: "secret",
		Store:  store,
	})
}

func TestFetchBuildings(t *testing.T) {
	server := dashboardStub(t)
	client := newClient(t, server.URL, nil)

	buildings, err := client.FetchBuildings(context.Background())
	require.NoError(t, err)
	require.Len(t, buildings, 1)

	assert.Equal(t, sdk.Building{
		Identifier: "1001",
		Name:       "HQ",
		Address:    "Rua Nova 1",
		Center:     sdk.Coordinate{Latitude: 42.88, Longitude: -8.54},
		Width:      40,
		Length:     60,
	}, buildings[0])
}

func TestFetchPois(t *testing.T) {
	server := dashboardStub(t)
	client := newClient(t, server.URL, nil)

	pois, err := client.FetchPois(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, pois, 1)

	assert.Equal(t, "7", pois[0].Identifier)
	assert.Equal(t, "1001", pois[0].BuildingIdentifier)
	assert.Equal(t, "11", pois[0].FloorIdentifier)
	assert.Equal(t, "3", pois[0].CategoryIdentifier)
	assert.Equal(t, "Entrance", pois[0].Name)
}

func TestFetchCategories(t *testing.T) {
	server := dashboardStub(t)
	client := newClient(t, server.URL, nil)

	categories, err := client.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "3", categories[0].Identifier)
	assert.Equal(t, "Doors", categories[0].Name)
}

func TestFetchBuildingInfo(t *testing.T) {
	server := dashboardStub(t)
	client := newClient(t, server.URL, nil)

	info, err := client.FetchBuildingInfo(context.Background(), "1001")
	require.NoError(t, err)

	assert.Equal(t, "1001", info.Building.Identifier)
	require.Len(t, info.Floors, 1)
	assert.Equal(t, "11", info.Floors[0].Identifier)
	assert.Equal(t, 12.5, info.Floors[0].Scale)
	require.Len(t, info.Pois, 1)
	require.Len(t, info.Geofences, 1)
	assert.Equal(t, "gf-1", info.Geofences[0].Identifier)
	assert.Len(t, info.Geofences[0].Polygon, 2)
}

func TestFetchErrorWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL, nil)

	_, err := client.FetchBuildings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchFallsBackToCache(t *testing.T) {
	store := openStore(t)
	server := dashboardStub(t)
	client := newClient(t, server.URL, store)

	// A successful fetch warms the cache.
	_, err := client.FetchBuildings(context.Background())
	require.NoError(t, err)
	_, err = client.FetchPois(context.Background(), "1001")
	require.NoError(t, err)

	// Same store, unreachable platform: the cache serves.
	server.Close()
	offline := newClient(t, server.URL, store)

	buildings, err := offline.FetchBuildings(context.Background())
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, "1001", buildings[0].Identifier)

	pois, err := offline.FetchPois(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "7", pois[0].Identifier)
}

func TestPrefetchThenClearCache(t *testing.T) {
	store := openStore(t)
	server := dashboardStub(t)
	client := newClient(t, server.URL, store)

	require.NoError(t, client.Prefetch(context.Background(), []string{"1001"}, sdk.PrefetchOptions{}))

	// The warmed cache answers building info offline.
	server.Close()
	offline := newClient(t, server.URL, store)
	info, err := offline.FetchBuildingInfo(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", info.Building.Identifier)

	require.NoError(t, offline.ClearCache())
	_, err = offline.FetchBuildingInfo(context.Background(), "1001")
	require.Error(t, err, "a cleared cache must not serve stale cartography")
}

func TestPrefetchRequiresBuildings(t *testing.T) {
	client := newClient(t, "http://unreachable.invalid", nil)
	err := client.Prefetch(context.Background(), nil, sdk.PrefetchOptions{})
	require.Error(t, err)
}

func TestRequestDirections(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/directions", r.URL.Path)
		require.NoError(t, jsonDecode(r, &gotBody))
		w.Write([]byte(`{
			"from": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.88, "lng": -8.54}},
			"to": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.882, "lng": -8.541}},
			"steps": [
				{"id": 1, "floor_id": "11",
				 "from": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.88, "lng": -8.54}},
				 "to": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.881, "lng": -8.54}},
				 "distance": 12},
				{"id": 2, "floor_id": "11",
				 "from": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.881, "lng": -8.54}},
				 "to": {"building_id": "1001", "floor_id": "11", "location": {"lat": 42.882, "lng": -8.541}},
				 "distance": 9}
			],
			"distance": 21, "time": 17}`))
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL, nil)

	req := sdk.DirectionsRequest{BuildingIdentifier: "1001", DestinationIdentifier: "7"}
	req.Normalize()
	route, err := client.RequestDirections(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "1001", gotBody["building_id"])
	assert.Equal(t, sdk.UnspecifiedIdentifier, gotBody["origin_id"])
	assert.Equal(t, "7", gotBody["destination_id"])
	assert.Equal(t, sdk.AccessibilityChooseShortest, gotBody["accessibility_mode"])

	require.Len(t, route.Steps, 2)
	assert.True(t, route.Steps[0].IsFirst)
	assert.False(t, route.Steps[0].IsLast)
	assert.True(t, route.Steps[1].IsLast)
	assert.Equal(t, 21.0, route.Distance)
	assert.Equal(t, 17.0, route.Time)
}

func TestRequestNavigationComputesRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/directions", r.URL.Path)
		w.Write([]byte(`{
			"from": {"building_id": "1001", "floor_id": "11", "location": {"lat": 1, "lng": 2}},
			"to": {"building_id": "1001", "floor_id": "11", "location": {"lat": 3, "lng": 4}},
			"steps": [{"id": 1, "floor_id": "11",
				"from": {"building_id": "1001", "floor_id": "11", "location": {"lat": 1, "lng": 2}},
				"to": {"building_id": "1001", "floor_id": "11", "location": {"lat": 3, "lng": 4}},
				"distance": 5}],
			"distance": 5, "time": 4}`))
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL, nil)

	// The sink stays untouched; progress is derived from positioning by
	// the caller, never pushed from the route computation.
	route, err := client.RequestNavigation(context.Background(),
		sdk.DirectionsRequest{BuildingIdentifier: "1001"}, sdk.NavigationRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, route.Steps, 1)
	assert.Equal(t, 5.0, route.Distance)
}

func jsonDecode(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
