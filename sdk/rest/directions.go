package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

type directionsPayload struct {
	From     pointPayload  `json:"from"`
	To       pointPayload  `json:"to"`
	Steps    []stepPayload `json:"steps"`
	Distance float64       `json:"distance"`
	Time     float64       `json:"time"`
}

type pointPayload struct {
	BuildingID string            `json:"building_id"`
	FloorID    string            `json:"floor_id"`
	Location   coordinatePayload `json:"location"`
}

func (p pointPayload) toPoint() sdk.Point {
	return sdk.Point{
		BuildingIdentifier: p.BuildingID,
		FloorIdentifier:    p.FloorID,
		Coordinate:         sdk.Coordinate{Latitude: p.Location.Lat, Longitude: p.Location.Lng},
	}
}

type stepPayload struct {
	ID       int          `json:"id"`
	FloorID  string       `json:"floor_id"`
	From     pointPayload `json:"from"`
	To       pointPayload `json:"to"`
	Distance float64      `json:"distance"`
}

// RequestDirections implements sdk.NavigationService.
func (c *Client) RequestDirections(ctx context.Context, req sdk.DirectionsRequest) (*sdk.Route, error) {
	body, err := json.Marshal(map[string]any{
		"building_id":          req.BuildingIdentifier,
		"origin_category":      req.OriginCategory,
		"origin_id":            req.OriginIdentifier,
		"destination_category": req.DestinationCategory,
		"destination_id":       req.DestinationIdentifier,
		"accessibility_mode":   req.AccessibilityMode,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.domain+"/api/v1/directions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-API-EMAIL", c.email)
	httpReq.Header.Set("X-API-KEY", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("directions: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload directionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	route := &sdk.Route{
		From:     payload.From.toPoint(),
		To:       payload.To.toPoint(),
		Distance: payload.Distance,
		Time:     payload.Time,
	}
	for i, s := range payload.Steps {
		route.Steps = append(route.Steps, sdk.RouteStep{
			ID:              s.ID,
			FloorIdentifier: s.FloorID,
			From:            s.From.toPoint(),
			To:              s.To.toPoint(),
			Distance:        s.Distance,
			IsFirst:         i == 0,
			IsLast:          i == len(payload.Steps)-1,
		})
	}
	return route, nil
}

// RequestNavigation computes the route to track. Progress itself is derived
// from positioning fixes by the caller; this adapter only owns route
// computation, so the sink is never driven from here.
func (c *Client) RequestNavigation(ctx context.Context, dir sdk.DirectionsRequest, nav sdk.NavigationRequest, sink sdk.NavigationSink) (*sdk.Route, error) {
	return c.RequestDirections(ctx, dir)
}

// StopNavigation implements sdk.NavigationService.
func (c *Client) StopNavigation() error {
	return nil
}
