package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeCoupr/situm-flutter/bridge"
	"github.com/JorgeCoupr/situm-flutter/mapview"
	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/sdk/sim"
	"github.com/JorgeCoupr/situm-flutter/wire"
)

type stubCartography struct{}

func (stubCartography) FetchBuildings(context.Context) ([]sdk.Building, error) { return nil, nil }
func (stubCartography) FetchBuildingInfo(context.Context, string) (*sdk.BuildingInfo, error) {
	return &sdk.BuildingInfo{}, nil
}
func (stubCartography) FetchPois(context.Context, string) ([]sdk.Poi, error) { return nil, nil }
func (stubCartography) FetchCategories(context.Context) ([]sdk.PoiCategory, error) {
	return nil, nil
}
func (stubCartography) Prefetch(context.Context, []string, sdk.PrefetchOptions) error { return nil }
func (stubCartography) ClearCache() error                                             { return nil }

type stubNavigation struct{}

func (stubNavigation) RequestDirections(context.Context, sdk.DirectionsRequest) (*sdk.Route, error) {
	return &sdk.Route{}, nil
}

func (stubNavigation) RequestNavigation(ctx context.Context, dir sdk.DirectionsRequest, nav sdk.NavigationRequest, sink sdk.NavigationSink) (*sdk.Route, error) {
	return &sdk.Route{}, nil
}

func (stubNavigation) StopNavigation() error { return nil }

// newTestServer wires a bridge on the simulator engine behind an httptest
// server.
func newTestServer(t *testing.T) (*httptest.Server, *bridge.Bridge) {
	t.Helper()
	b := bridge.New(bridge.Options{
		Location: sim.New(sim.Options{
			BuildingIdentifier: "B1",
			Interval:           5 * time.Millisecond,
		}),
		Cartography: stubCartography{},
		Navigation:  stubNavigation{},
		DataDir:     t.TempDir(),
	})
	t.Cleanup(b.Close)

	mux := http.NewServeMux()
	New(b).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, b
}

func postCall(t *testing.T, server *httptest.Server, call bridge.Call) bridge.Response {
	t.Helper()
	body, err := json.Marshal(call)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/api/call", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out bridge.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func initParams(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"situmUser":   "user@example.com",
		"situmApiKey": "K",
	})
	require.NoError(t, err)
	return raw
}

func TestCallEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postCall(t, server, bridge.Call{ID: "1", Method: bridge.InitMethod, Params: initParams(t)})
	require.Nil(t, resp.Error)
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, bridge.InitMethod, resp.Method)
	assert.Equal(t, bridge.ResultDone, resp.Data)
}

func TestCallEndpointAssignsID(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postCall(t, server, bridge.Call{Method: bridge.GetDeviceIDMethod})
	assert.NotEmpty(t, resp.ID)
}

func TestCallEndpointErrors(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postCall(t, server, bridge.Call{ID: "2", Method: bridge.FetchBuildingsMethod})
	require.NotNil(t, resp.Error)
	assert.Equal(t, sdk.ErrLibraryNotLoaded, resp.Error.Code)
}

func TestCallEndpointRejectsGet(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/call")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCallEndpointRejectsBadJSON(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/call", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestViewEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/view")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no view before load")

	require.Nil(t, postCall(t, server, bridge.Call{Method: bridge.InitMethod, Params: initParams(t)}).Error)
	loadParams, err := json.Marshal(mapview.LoadConfig{BuildingIdentifier: "B1"})
	require.NoError(t, err)
	require.Nil(t, postCall(t, server, bridge.Call{Method: bridge.LoadMethod, Params: loadParams}).Error)

	resp, err = http.Get(server.URL + "/api/view")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.NotEmpty(t, view["id"])
	assert.Contains(t, view["url"], "buildingid=B1")
}

func TestEventsStream(t *testing.T) {
	server, b := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events?streams=onLocationChanged"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the listener time to register before publishing.
	require.Eventually(t, func() bool {
		return b.Relay().Listeners() == 1
	}, time.Second, 5*time.Millisecond)

	b.Relay().Publish(relay.NewEvent(relay.StreamLocation, wire.Message{"buildingIdentifier": "B1"}))
	b.Relay().Publish(relay.NewEvent(relay.StreamStatus, wire.Message{"statusName": "STARTING"}))
	b.Relay().Publish(relay.NewEvent(relay.StreamLocation, wire.Message{"buildingIdentifier": "B2"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first relay.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, relay.StreamLocation, first.Stream)
	assert.Equal(t, "B1", first.Data["buildingIdentifier"])

	// The status event is filtered out; the next frame is the second fix.
	var second relay.Event
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "B2", second.Data["buildingIdentifier"])
}

func TestEventsDisconnectRemovesListener(t *testing.T) {
	server, b := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return b.Relay().Listeners() == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return b.Relay().Listeners() == 0
	}, time.Second, 5*time.Millisecond)
}
