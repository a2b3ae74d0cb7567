// Package bridge is the core of the plugin: it dispatches application-layer
// method calls to the positioning services and the map view controller, and
// relays engine events back out. All session state is owned by a single
// dispatch loop; engine callbacks arriving on foreign threads are marshaled
// onto that loop before touching anything shared.
package bridge

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/JorgeCoupr/situm-flutter/data"
	"github.com/JorgeCoupr/situm-flutter/mapview"
	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
)

const defaultCallTimeout = 10 * time.Second

// Options inject the service handles the bridge drives. Nothing here is
// process-global: every collaborator is owned explicitly.
type Options struct {
	Location    sdk.LocationService
	Cartography sdk.CartographyService
	Navigation  sdk.NavigationService
	Relay       *relay.Relay
	Viewer      *mapview.Controller

	// DataDir holds the device identity file.
	DataDir string

	// CallTimeout bounds every dispatched call. Zero means the default.
	CallTimeout time.Duration
}

// Bridge is one bridge instance with its own serialized dispatch queue.
type Bridge struct {
	opts   Options
	relay  *relay.Relay
	viewer *mapview.Controller
	device *data.Device

	tasks chan func()
	quit  chan struct{}
	once  sync.Once

	// Everything below is loop-owned: read and written only by tasks
	// running on the dispatch loop.
	session      Session
	creds        sdk.Credentials
	initialized  bool
	remoteConfig bool
}

// New creates a bridge and starts its dispatch loop.
func New(opts Options) *Bridge {
	if opts.CallTimeout == 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Relay == nil {
		opts.Relay = relay.New()
	}
	if opts.Viewer == nil {
		opts.Viewer = mapview.NewController(opts.Relay)
	}
	b := &Bridge{
		opts:   opts,
		relay:  opts.Relay,
		viewer: opts.Viewer,
		device: data.NewDevice(opts.DataDir),
		tasks:  make(chan func(), 128),
		quit:   make(chan struct{}),
	}
	// A viewer page announcing readiness gets the current position pushed,
	// so a reconnecting page does not wait for the next fix.
	b.viewer.SetReadyHandler(func() {
		b.do(func() {
			if loc, ok := b.session.LastLocation(); ok && b.session.Phase() == PhaseLoaded {
				b.viewer.UpdateLocation(loc)
			}
		})
	})
	go b.run()
	return b
}

// Relay returns the event relay of this bridge.
func (b *Bridge) Relay() *relay.Relay {
	return b.relay
}

// Viewer returns the map view controller of this bridge.
func (b *Bridge) Viewer() *mapview.Controller {
	return b.viewer
}

func (b *Bridge) run() {
	for {
		select {
		case task := <-b.tasks:
			task()
		case <-b.quit:
			return
		}
	}
}

// do posts a task onto the dispatch loop. Returns false after Close.
func (b *Bridge) do(task func()) bool {
	select {
	case b.tasks <- task:
		return true
	case <-b.quit:
		return false
	}
}

// Flush waits until every task queued before it has run.
func (b *Bridge) Flush() {
	done := make(chan struct{})
	if !b.do(func() { close(done) }) {
		return
	}
	<-done
}

// Close is the host-teardown path. It converges with an explicit unload on
// the same one-shot view teardown, then stops the dispatch loop.
func (b *Bridge) Close() {
	b.once.Do(func() {
		b.do(func() {
			b.viewer.Unload()
			b.session.Unload()
		})
		b.Flush()
		close(b.quit)
		log.Printf("[bridge] closed")
	})
}

// Call dispatches one method call and returns its single terminal response.
// Every call resolves exactly once: success, a structured error, or an
// explicit timeout.
func (b *Bridge) Call(ctx context.Context, call Call) Response {
	resp := make(chan Response, 1)
	var once sync.Once
	respond := func(data any, err *sdk.Error) {
		once.Do(func() {
			resp <- Response{ID: call.ID, Method: call.Method, Data: data, Error: err}
		})
	}

	if !b.do(func() { b.dispatch(call, respond) }) {
		return Response{
			ID: call.ID, Method: call.Method,
			Error: sdk.NewError(sdk.ErrLibraryNotLoaded, "bridge is closed"),
		}
	}

	select {
	case r := <-resp:
		return r
	case <-ctx.Done():
		return Response{
			ID: call.ID, Method: call.Method,
			Error: sdk.Errorf(sdk.ErrTimeout, "%s: %v", call.Method, ctx.Err()),
		}
	case <-time.After(b.opts.CallTimeout):
		return Response{
			ID: call.ID, Method: call.Method,
			Error: sdk.Errorf(sdk.ErrTimeout, "%s did not complete within %v", call.Method, b.opts.CallTimeout),
		}
	}
}
