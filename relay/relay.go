// Package relay fans native engine events out to application-layer
// listeners. Each stream is an independent ordered channel: events of one
// stream reach a listener in publish order, while no ordering holds across
// streams. Delivery is best-effort at-most-once: a listener that is not
// keeping up loses events rather than stalling the publisher.
package relay

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JorgeCoupr/situm-flutter/wire"
)

// Stream identifies an outbound event stream. The values double as the
// callback names seen by the application layer.
type Stream string

const (
	StreamLocation               Stream = "onLocationChanged"
	StreamStatus                 Stream = "onStatusChanged"
	StreamError                  Stream = "onError"
	StreamGeofencesEntered       Stream = "onEnteredGeofences"
	StreamGeofencesExited        Stream = "onExitedGeofences"
	StreamPoiSelected            Stream = "onPoiSelected"
	StreamPoiDeselected          Stream = "onPoiDeselected"
	StreamNavigationStarted      Stream = "onNavigationStarted"
	StreamNavigationProgress     Stream = "onNavigationProgress"
	StreamNavigationOutsideRoute Stream = "onUserOutsideRoute"
	StreamNavigationDone         Stream = "onNavigationFinished"
)

// Event is one outbound message.
type Event struct {
	ID      string       `json:"id"`
	Stream  Stream       `json:"type"`
	Data    wire.Message `json:"data"`
	Created int64        `json:"created,string"`

	// Generation tags events of cancellable streams; zero means untagged.
	Generation uint64 `json:"-"`
}

// NewEvent creates an event for a stream.
func NewEvent(stream Stream, data wire.Message) *Event {
	return &Event{
		ID:      uuid.New().String(),
		Stream:  stream,
		Data:    data,
		Created: time.Now().UnixNano(),
	}
}

// Listener receives events on a buffered channel until killed.
type Listener struct {
	ID      string
	Streams map[Stream]bool // nil means every stream
	Events  chan *Event
	Kill    chan bool
}

// NewListener creates a listener for the given streams (none = all).
func NewListener(streams ...Stream) *Listener {
	var filter map[Stream]bool
	if len(streams) > 0 {
		filter = make(map[Stream]bool, len(streams))
		for _, s := range streams {
			filter[s] = true
		}
	}
	return &Listener{
		ID:      uuid.New().String(),
		Streams: filter,
		Events:  make(chan *Event, 64),
		Kill:    make(chan bool),
	}
}

func (l *Listener) wants(stream Stream) bool {
	if l.Streams == nil {
		return true
	}
	return l.Streams[stream]
}

// Relay is the fan-out hub.
type Relay struct {
	mu          sync.RWMutex
	listeners   map[string]*Listener
	generations map[Stream]uint64
}

// New creates an empty relay.
func New() *Relay {
	return &Relay{
		listeners:   make(map[string]*Listener),
		generations: make(map[Stream]uint64),
	}
}

// Observe registers a listener until its Kill channel fires.
func (r *Relay) Observe(l *Listener) {
	r.mu.Lock()
	r.listeners[l.ID] = l
	r.mu.Unlock()

	go func() {
		<-l.Kill
		r.mu.Lock()
		delete(r.listeners, l.ID)
		r.mu.Unlock()
	}()
}

// Listeners returns the number of registered listeners.
func (r *Relay) Listeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Advance bumps the generation of a stream and returns the new value.
// Events tagged with an older generation are discarded on publish, which is
// how in-flight callbacks that land after a cancellation are dropped.
func (r *Relay) Advance(stream Stream) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[stream]++
	return r.generations[stream]
}

// Generation returns the current generation of a stream.
func (r *Relay) Generation(stream Stream) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generations[stream]
}

// Publish delivers an event to every interested listener. Stale events are
// dropped; slow listeners lose the event rather than blocking.
func (r *Relay) Publish(event *Event) {
	var listeners []*Listener

	r.mu.RLock()
	if event.Generation != 0 && event.Generation != r.generations[event.Stream] {
		r.mu.RUnlock()
		return
	}
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.RUnlock()

	for _, l := range listeners {
		if !l.wants(event.Stream) {
			continue
		}
		select {
		case l.Events <- event:
		default:
			log.Printf("[relay] dropping %s for slow listener %s", event.Stream, l.ID)
		}
	}
}
