// Package server exposes the bridge to the application layer over HTTP:
// method calls as one-shot POSTs, events as a websocket stream, plus the
// websocket endpoint the embedded viewer page dials into.
package server

import (
	"net/http"

	"github.com/JorgeCoupr/situm-flutter/bridge"
	"github.com/JorgeCoupr/situm-flutter/mapview"
	"github.com/JorgeCoupr/situm-flutter/relay"
)

// Server wires the HTTP surface to one bridge instance.
type Server struct {
	bridge *bridge.Bridge
	relay  *relay.Relay
	viewer *mapview.Controller
}

// New creates a Server for b.
func New(b *bridge.Bridge) *Server {
	return &Server{
		bridge: b,
		relay:  b.Relay(),
		viewer: b.Viewer(),
	}
}

// Register mounts the routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/call", s.CallHandler)
	mux.HandleFunc("/api/events", s.EventsHandler)
	mux.HandleFunc("/api/view", s.ViewHandler)
	mux.HandleFunc("/viewer", s.ViewerHandler)
}
