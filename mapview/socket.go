package mapview

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JorgeCoupr/situm-flutter/wire"
)

const (
	// Time allowed to write a message to the viewer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the viewer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from the viewer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Socket is the websocket transport a viewer page connects through.
type Socket struct {
	conn *websocket.Conn
	send chan wire.Message

	once sync.Once
	done chan struct{}
}

// Send enqueues a message for the viewer. Messages are dropped when the
// viewer stops draining its connection.
func (s *Socket) Send(msg wire.Message) error {
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return websocket.ErrCloseSent
	default:
		log.Printf("[mapview] viewer connection backed up, dropping message")
		return nil
	}
}

// Close shuts the transport down. Idempotent.
func (s *Socket) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	return nil
}

// ServeViewer upgrades an HTTP request from the viewer page and attaches it
// to the live view. Requests arriving while nothing is loaded are rejected.
func ServeViewer(w http.ResponseWriter, r *http.Request, c *Controller) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s := &Socket{
		conn: conn,
		send: make(chan wire.Message, 64),
		done: make(chan struct{}),
	}

	if !c.Attach(s) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no view loaded"),
			time.Now().Add(writeWait))
		s.Close()
		return
	}

	go s.writeLoop()
	s.readLoop(c)
}

func (s *Socket) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Socket) readLoop(c *Controller) {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg wire.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[mapview] viewer read: %v", err)
			}
			return
		}
		c.HandleViewerMessage(msg)
	}
}
