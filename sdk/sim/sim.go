// Package sim is a software location engine: it walks a synthetic path
// around a building center, emitting fixes and status transitions the way
// the on-device engine would. Useful for development and for driving the
// bridge without hardware.
package sim

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

// Options shape the simulated walk.
type Options struct {
	BuildingIdentifier string
	FloorIdentifier    string
	Center             sdk.Coordinate

	// Radius of the walked circle in degrees. Zero means a tight indoor
	// loop of about 30 meters.
	Radius float64

	// Interval between fixes. Zero means one second.
	Interval time.Duration
}

// Engine implements sdk.LocationService.
type Engine struct {
	opts Options

	mu   sync.Mutex
	stop chan struct{}
}

// New creates a stopped engine.
func New(opts Options) *Engine {
	if opts.Radius == 0 {
		opts.Radius = 0.0003
	}
	if opts.Interval == 0 {
		opts.Interval = time.Second
	}
	return &Engine{opts: opts}
}

// RequestUpdates starts the walk, replacing any walk in progress.
func (e *Engine) RequestUpdates(req sdk.LocationRequest, sink sdk.LocationSink) error {
	e.mu.Lock()
	if e.stop != nil {
		close(e.stop)
	}
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	building := req.BuildingIdentifier
	if building == "" {
		building = e.opts.BuildingIdentifier
	}

	go e.walk(building, sink, stop)
	log.Printf("[sim] positioning started for building %q", building)
	return nil
}

// RemoveUpdates stops the walk. Idempotent.
func (e *Engine) RemoveUpdates() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
		log.Printf("[sim] positioning stopped")
	}
	return nil
}

func (e *Engine) walk(building string, sink sdk.LocationSink, stop chan struct{}) {
	sink.OnStatusChanged(sdk.StatusStarting)
	sink.OnStatusChanged(sdk.StatusCalculating)

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	var step int
	for {
		select {
		case <-stop:
			sink.OnStatusChanged(sdk.StatusStopped)
			return
		case <-ticker.C:
			angle := float64(step) * math.Pi / 16
			sink.OnLocationChanged(sdk.Location{
				BuildingIdentifier: building,
				FloorIdentifier:    e.opts.FloorIdentifier,
				Coordinate: sdk.Coordinate{
					Latitude:  e.opts.Center.Latitude + e.opts.Radius*math.Sin(angle),
					Longitude: e.opts.Center.Longitude + e.opts.Radius*math.Cos(angle),
				},
				Bearing:    math.Mod(angle*180/math.Pi+90, 360),
				HasBearing: true,
				Accuracy:   3,
				Timestamp:  time.Now().UnixMilli(),
			})
			step++
		}
	}
}
