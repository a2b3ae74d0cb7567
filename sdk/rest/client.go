// Package rest adapts the Situm dashboard REST API to the sdk service
// interfaces. Fetches hit the network first and fall back to the local
// prefetch cache when the platform is unreachable.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JorgeCoupr/situm-flutter/data"
	"github.com/JorgeCoupr/situm-flutter/sdk"
)

// DefaultDomain is the production dashboard.
const DefaultDomain = "https://dashboard.situm.com"

// Options configure a Client.
type Options struct {
	Domain string
	Email  string
	APIKey string

	// Store, when set, caches fetched cartography for offline fallback.
	Store *data.Store

	HTTPClient *http.Client
}

// Client talks to the dashboard API.
type Client struct {
	domain string
	email  string
	apiKey string
	store  *data.Store
	http   *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	domain := strings.TrimSuffix(opts.Domain, "/")
	if domain == "" {
		domain = DefaultDomain
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		domain: domain,
		email:  opts.Email,
		apiKey: opts.APIKey,
		store:  opts.Store,
		http:   client,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	endpoint := c.domain + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-EMAIL", c.email)
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// Dashboard payloads. Identifiers are numeric on the wire and strings in the
// domain model.

type coordinatePayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type buildingPayload struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Location   coordinatePayload `json:"location"`
	Rotation   float64           `json:"rotation"`
	Dimensions struct {
		Width  float64 `json:"width"`
		Length float64 `json:"length"`
	} `json:"dimensions"`
}

func (p buildingPayload) toBuilding() sdk.Building {
	return sdk.Building{
		Identifier: strconv.FormatInt(p.ID, 10),
		Name:       p.Name,
		Address:    p.Address,
		Center:     sdk.Coordinate{Latitude: p.Location.Lat, Longitude: p.Location.Lng},
		Rotation:   p.Rotation,
		Width:      p.Dimensions.Width,
		Length:     p.Dimensions.Length,
	}
}

type floorPayload struct {
	ID         int64   `json:"id"`
	BuildingID int64   `json:"building_id"`
	Name       string  `json:"name"`
	Level      int     `json:"level"`
	MapURL     string  `json:"map_url"`
	Scale      float64 `json:"scale"`
}

type poiPayload struct {
	ID         int64             `json:"id"`
	BuildingID int64             `json:"building_id"`
	FloorID    int64             `json:"floor_id"`
	Name       string            `json:"name"`
	Position   coordinatePayload `json:"position"`
	CategoryID int64             `json:"category_id"`
	Info       map[string]string `json:"custom_fields"`
}

func (p poiPayload) toPoi() sdk.Poi {
	return sdk.Poi{
		Identifier:         strconv.FormatInt(p.ID, 10),
		BuildingIdentifier: strconv.FormatInt(p.BuildingID, 10),
		FloorIdentifier:    strconv.FormatInt(p.FloorID, 10),
		Name:               p.Name,
		Position:           sdk.Coordinate{Latitude: p.Position.Lat, Longitude: p.Position.Lng},
		CategoryIdentifier: strconv.FormatInt(p.CategoryID, 10),
		CustomFields:       p.Info,
	}
}

type categoryPayload struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IconURL      string `json:"icon_url"`
	SelectedIcon string `json:"selected_icon_url"`
}

type geofencePayload struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	BuildingID int64               `json:"building_id"`
	FloorID    int64               `json:"floor_id"`
	Polygon    []coordinatePayload `json:"polygon_points"`
}

// FetchBuildings implements sdk.CartographyService.
func (c *Client) FetchBuildings(ctx context.Context) ([]sdk.Building, error) {
	var payload []buildingPayload
	if err := c.get(ctx, "/api/v1/buildings", nil, &payload); err != nil {
		if cached, ok := c.cachedBuildings(); ok {
			log.Printf("[rest] fetch buildings failed (%v), serving cache", err)
			return cached, nil
		}
		return nil, err
	}
	buildings := make([]sdk.Building, 0, len(payload))
	for _, p := range payload {
		b := p.toBuilding()
		buildings = append(buildings, b)
		c.cache(data.KindBuilding, b.Identifier, b.Identifier, b)
	}
	return buildings, nil
}

// FetchPois implements sdk.CartographyService.
func (c *Client) FetchPois(ctx context.Context, buildingID string) ([]sdk.Poi, error) {
	query := url.Values{"buildingid": {buildingID}}
	var payload []poiPayload
	if err := c.get(ctx, "/api/v1/pois", query, &payload); err != nil {
		if cached, ok := c.cachedPois(buildingID); ok {
			log.Printf("[rest] fetch pois failed (%v), serving cache", err)
			return cached, nil
		}
		return nil, err
	}
	pois := make([]sdk.Poi, 0, len(payload))
	for _, p := range payload {
		poi := p.toPoi()
		pois = append(pois, poi)
		c.cache(data.KindPoi, poi.Identifier, poi.BuildingIdentifier, poi)
	}
	return pois, nil
}

// FetchCategories implements sdk.CartographyService.
func (c *Client) FetchCategories(ctx context.Context) ([]sdk.PoiCategory, error) {
	var payload []categoryPayload
	if err := c.get(ctx, "/api/v1/poi_categories", nil, &payload); err != nil {
		if cached, ok := c.cachedCategories(); ok {
			log.Printf("[rest] fetch categories failed (%v), serving cache", err)
			return cached, nil
		}
		return nil, err
	}
	categories := make([]sdk.PoiCategory, 0, len(payload))
	for _, p := range payload {
		category := sdk.PoiCategory{
			Identifier:      strconv.FormatInt(p.ID, 10),
			Name:            p.Name,
			IconURL:         p.IconURL,
			SelectedIconURL: p.SelectedIcon,
		}
		categories = append(categories, category)
		c.cache(data.KindCategory, category.Identifier, "", category)
	}
	return categories, nil
}

// FetchBuildingInfo implements sdk.CartographyService.
func (c *Client) FetchBuildingInfo(ctx context.Context, buildingID string) (*sdk.BuildingInfo, error) {
	var building buildingPayload
	if err := c.get(ctx, "/api/v1/buildings/"+url.PathEscape(buildingID), nil, &building); err != nil {
		var info sdk.BuildingInfo
		if c.store != nil {
			if ok, cacheErr := c.store.Get(data.KindBuildingInfo, buildingID, &info); cacheErr == nil && ok {
				log.Printf("[rest] fetch building info failed (%v), serving cache", err)
				return &info, nil
			}
		}
		return nil, err
	}

	var floors []floorPayload
	if err := c.get(ctx, "/api/v1/buildings/"+url.PathEscape(buildingID)+"/floors", nil, &floors); err != nil {
		return nil, err
	}
	pois, err := c.FetchPois(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	var geofences []geofencePayload
	if err := c.get(ctx, "/api/v1/geofences", url.Values{"buildingid": {buildingID}}, &geofences); err != nil {
		return nil, err
	}

	info := &sdk.BuildingInfo{Building: building.toBuilding(), Pois: pois}
	for _, f := range floors {
		info.Floors = append(info.Floors, sdk.Floor{
			Identifier:         strconv.FormatInt(f.ID, 10),
			BuildingIdentifier: strconv.FormatInt(f.BuildingID, 10),
			Name:               f.Name,
			Level:              f.Level,
			MapURL:             f.MapURL,
			Scale:              f.Scale,
		})
	}
	for _, g := range geofences {
		polygon := make([]sdk.Coordinate, 0, len(g.Polygon))
		for _, p := range g.Polygon {
			polygon = append(polygon, sdk.Coordinate{Latitude: p.Lat, Longitude: p.Lng})
		}
		info.Geofences = append(info.Geofences, sdk.Geofence{
			Identifier:         g.ID,
			Name:               g.Name,
			BuildingIdentifier: strconv.FormatInt(g.BuildingID, 10),
			FloorIdentifier:    strconv.FormatInt(g.FloorID, 10),
			Polygon:            polygon,
		})
	}
	c.cache(data.KindBuildingInfo, buildingID, buildingID, info)
	return info, nil
}

// Prefetch implements sdk.CartographyService: it warms the cache for each
// building so later fetches survive without connectivity.
func (c *Client) Prefetch(ctx context.Context, buildingIDs []string, opts sdk.PrefetchOptions) error {
	if len(buildingIDs) == 0 {
		return fmt.Errorf("prefetch: no building identifiers")
	}
	for _, id := range buildingIDs {
		if _, err := c.FetchBuildingInfo(ctx, id); err != nil {
			return fmt.Errorf("prefetch %s: %w", id, err)
		}
	}
	// Image preloading is only meaningful on device; the flag is accepted
	// and ignored here.
	_ = opts
	return nil
}

// ClearCache implements sdk.CartographyService.
func (c *Client) ClearCache() error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

func (c *Client) cache(kind, id, buildingID string, v any) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(kind, id, buildingID, v); err != nil {
		log.Printf("[rest] cache %s %s: %v", kind, id, err)
	}
}

func (c *Client) cachedBuildings() ([]sdk.Building, bool) {
	payloads, err := c.cached(data.KindBuilding, "")
	if err != nil || len(payloads) == 0 {
		return nil, false
	}
	buildings := make([]sdk.Building, 0, len(payloads))
	for _, raw := range payloads {
		var b sdk.Building
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, false
		}
		buildings = append(buildings, b)
	}
	return buildings, true
}

func (c *Client) cachedPois(buildingID string) ([]sdk.Poi, bool) {
	payloads, err := c.cached(data.KindPoi, buildingID)
	if err != nil || len(payloads) == 0 {
		return nil, false
	}
	pois := make([]sdk.Poi, 0, len(payloads))
	for _, raw := range payloads {
		var p sdk.Poi
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, false
		}
		pois = append(pois, p)
	}
	return pois, true
}

func (c *Client) cachedCategories() ([]sdk.PoiCategory, bool) {
	payloads, err := c.cached(data.KindCategory, "")
	if err != nil || len(payloads) == 0 {
		return nil, false
	}
	categories := make([]sdk.PoiCategory, 0, len(payloads))
	for _, raw := range payloads {
		var cat sdk.PoiCategory
		if err := json.Unmarshal(raw, &cat); err != nil {
			return nil, false
		}
		categories = append(categories, cat)
	}
	return categories, true
}

func (c *Client) cached(kind, buildingID string) ([][]byte, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.List(kind, buildingID)
}
