package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/JorgeCoupr/situm-flutter/bridge"
	"github.com/JorgeCoupr/situm-flutter/mapview"
)

const maxCallSize = 64 * 1024

// CallHandler dispatches one bridge call per request.
func (s *Server) CallHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var call bridge.Call
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallSize)).Decode(&call); err != nil {
		http.Error(w, "invalid call: "+err.Error(), http.StatusBadRequest)
		return
	}
	if call.ID == "" {
		call.ID = uuid.New().String()
	}

	resp := s.bridge.Call(r.Context(), call)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ViewHandler reports the live view, so the application layer can embed its
// URL.
func (s *Server) ViewHandler(w http.ResponseWriter, r *http.Request) {
	view := s.viewer.Current()
	if view == nil {
		http.Error(w, "no view loaded", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":  view.ID,
		"url": view.URL,
	})
}

// ViewerHandler is the websocket endpoint the embedded viewer page uses.
func (s *Server) ViewerHandler(w http.ResponseWriter, r *http.Request) {
	mapview.ServeViewer(w, r, s.viewer)
}
