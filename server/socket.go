package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JorgeCoupr/situm-flutter/relay"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams relay events to the application layer. The client
// may narrow the subscription with ?streams=onLocationChanged,onError.
// Events published while nobody listens are gone: delivery is best-effort,
// there is no replay.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	var streams []relay.Stream
	if raw := r.URL.Query().Get("streams"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			streams = append(streams, relay.Stream(strings.TrimSpace(name)))
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	listener := relay.NewListener(streams...)
	s.relay.Observe(listener)
	log.Printf("[server] listener %s connected", listener.ID)

	go eventWriteLoop(conn, listener)
	eventReadLoop(conn, listener)
}

func eventWriteLoop(conn *websocket.Conn, listener *relay.Listener) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event := <-listener.Events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-listener.Kill:
			return
		}
	}
}

// eventReadLoop discards client frames and detects disconnect, killing the
// listener so the relay forgets it.
func eventReadLoop(conn *websocket.Conn, listener *relay.Listener) {
	defer func() {
		close(listener.Kill)
		conn.Close()
		log.Printf("[server] listener %s disconnected", listener.ID)
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
