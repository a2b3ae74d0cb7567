// Package mapview manages the embedded map viewer: URL construction, the
// load/unload lifecycle of the single live view, and the message channel to
// the viewer page.
package mapview

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/wire"
)

// Transport carries messages to a connected viewer page.
type Transport interface {
	Send(msg wire.Message) error
	Close() error
}

// LoadConfig configures a view load.
type LoadConfig struct {
	BuildingIdentifier   string `json:"buildingIdentifier"`
	RemoteIdentifier     string `json:"remoteIdentifier"`
	ViewerDomain         string `json:"viewerDomain"`
	LockCameraToBuilding *bool  `json:"lockCameraToBuilding"`
}

// View is one live viewer instance. At most one exists per controller.
type View struct {
	ID     string
	URL    string
	Config LoadConfig

	mu        sync.Mutex
	transport Transport
	handler   func(msg wire.Message)
	torn      atomic.Bool
}

// send forwards a message to the viewer page if one is connected. Messages
// sent before the page dials in are dropped; the page requests a state sync
// once ready.
func (v *View) send(msg wire.Message) {
	v.mu.Lock()
	t := v.transport
	v.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Send(msg); err != nil {
		log.Printf("[mapview] send to viewer failed: %v", err)
	}
}

// teardown detaches and discards the view. It runs at most once per load
// cycle no matter how many paths trigger it.
func (v *View) teardown() {
	if !v.torn.CompareAndSwap(false, true) {
		return
	}
	v.mu.Lock()
	t := v.transport
	v.transport = nil
	v.handler = nil
	v.mu.Unlock()
	if t != nil {
		t.Close()
	}
	log.Printf("[mapview] view %s torn down", v.ID)
}

// Controller owns the view lifecycle.
type Controller struct {
	relay *relay.Relay

	mu      sync.Mutex
	view    *View
	onReady func()
}

// NewController creates a controller publishing viewer events to r.
func NewController(r *relay.Relay) *Controller {
	return &Controller{relay: r}
}

// Load creates the view for cfg. A second load before unload fails with
// ERROR_ALREADY_LOADING and never creates a second view.
func (c *Controller) Load(cfg LoadConfig, creds sdk.Credentials) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view != nil {
		return nil, sdk.NewError(sdk.ErrAlreadyLoading, "map view already loading or loaded")
	}

	viewerURL, err := ViewerURL(URLOptions{
		APIKey:               creds.APIKey,
		APIDomain:            creds.APIDomain,
		ViewerDomain:         cfg.ViewerDomain,
		RemoteIdentifier:     cfg.RemoteIdentifier,
		BuildingIdentifier:   cfg.BuildingIdentifier,
		LockCameraToBuilding: cfg.LockCameraToBuilding,
	})
	if err != nil {
		return nil, sdk.NewError(sdk.ErrInvalidArguments, err.Error())
	}

	view := &View{
		ID:     uuid.New().String(),
		URL:    viewerURL,
		Config: cfg,
	}
	// POI callbacks are wired exactly once per load cycle, right after the
	// view exists, and unwired by teardown.
	view.handler = c.handleViewerMessage
	c.view = view
	log.Printf("[mapview] loaded view %s -> %s", view.ID, view.URL)
	return view, nil
}

// Unload tears the current view down. Safe to call when nothing is loaded
// and safe to call twice: both converge on the same one-shot teardown.
func (c *Controller) Unload() {
	c.mu.Lock()
	view := c.view
	c.view = nil
	c.mu.Unlock()
	if view != nil {
		view.teardown()
	}
}

// Loaded reports whether a live view exists.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view != nil
}

// Current returns the live view, if any.
func (c *Controller) Current() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetReadyHandler registers the callback invoked when the viewer page
// reports it is ready for a state sync. Invoked from the transport's read
// goroutine; the callback must marshal onto its own queue.
func (c *Controller) SetReadyHandler(fn func()) {
	c.mu.Lock()
	c.onReady = fn
	c.mu.Unlock()
}

// Attach connects a viewer page transport to the live view. Returns false
// when no view is loaded.
func (c *Controller) Attach(t Transport) bool {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return false
	}
	view.mu.Lock()
	// The view may be torn down between the controller read and here; a
	// transport installed on a dead view would never be closed.
	if view.torn.Load() {
		view.mu.Unlock()
		return false
	}
	old := view.transport
	view.transport = t
	view.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return true
}

// UpdateLocation moves the viewer's current-position marker. Callers only
// invoke this while the session is loaded.
func (c *Controller) UpdateLocation(loc sdk.Location) {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return
	}
	view.send(wire.Message{
		"type":    "location.update",
		"payload": wire.EncodeLocation(loc),
	})
}

// SelectPoi asks the viewer to select a POI.
func (c *Controller) SelectPoi(buildingID, poiID string) error {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return sdk.NewError(sdk.ErrSelectPoi, "no map view loaded")
	}
	view.send(wire.Message{
		"type": "poi.select",
		"payload": wire.Message{
			"buildingIdentifier": buildingID,
			"identifier":         poiID,
		},
	})
	return nil
}

// ShowRoute hands a computed route to the viewer for drawing.
func (c *Controller) ShowRoute(route *sdk.Route) {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return
	}
	view.send(wire.Message{
		"type":    "route.show",
		"payload": wire.EncodeRoute(route),
	})
}

// HandleViewerMessage is the inbound path from the viewer transport.
func (c *Controller) HandleViewerMessage(msg wire.Message) {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return
	}
	view.mu.Lock()
	handler := view.handler
	view.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// handleViewerMessage republishes viewer-originated events toward the
// application layer. Malformed payloads are dropped with a diagnostic, never
// forwarded partially decoded.
func (c *Controller) handleViewerMessage(msg wire.Message) {
	kind, ok := msg["type"].(string)
	if !ok {
		log.Printf("[mapview] viewer message without type, dropped")
		return
	}

	payload, _ := msg["payload"].(map[string]any)

	switch kind {
	case "poi.selected":
		data, err := poiSelectedPayload(payload)
		if err != nil {
			log.Printf("[mapview] bad poi.selected payload, dropped: %v", err)
			return
		}
		c.relay.Publish(relay.NewEvent(relay.StreamPoiSelected, data))
	case "poi.deselected":
		data, err := poiDeselectedPayload(payload)
		if err != nil {
			log.Printf("[mapview] bad poi.deselected payload, dropped: %v", err)
			return
		}
		c.relay.Publish(relay.NewEvent(relay.StreamPoiDeselected, data))
	case "viewer.ready":
		c.mu.Lock()
		ready := c.onReady
		c.mu.Unlock()
		if ready != nil {
			ready()
		}
	default:
		log.Printf("[mapview] unhandled viewer message %q", kind)
	}
}

func poiSelectedPayload(payload wire.Message) (wire.Message, error) {
	out := wire.Message{}
	for _, field := range []string{"buildingId", "buildingName", "floorId", "floorName", "poiId", "poiName"} {
		v, ok := payload[field].(string)
		if !ok {
			return nil, &wire.CodecError{Field: field, Reason: "required field absent"}
		}
		out[field] = v
	}
	return out, nil
}

func poiDeselectedPayload(payload wire.Message) (wire.Message, error) {
	out := wire.Message{}
	for _, field := range []string{"buildingId", "buildingName"} {
		v, ok := payload[field].(string)
		if !ok {
			return nil, &wire.CodecError{Field: field, Reason: "required field absent"}
		}
		out[field] = v
	}
	return out, nil
}
