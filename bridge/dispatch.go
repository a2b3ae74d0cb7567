package bridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/JorgeCoupr/situm-flutter/mapview"
	"github.com/JorgeCoupr/situm-flutter/relay"
	"github.com/JorgeCoupr/situm-flutter/sdk"
	"github.com/JorgeCoupr/situm-flutter/wire"
)

// Method names the application layer may call.
type Method string

const (
	InitMethod                   Method = "init"
	SetConfigurationMethod       Method = "setConfiguration"
	RequestLocationUpdatesMethod Method = "requestLocationUpdates"
	RemoveUpdatesMethod          Method = "removeUpdates"
	ClearCacheMethod             Method = "clearCache"
	PrefetchMethod               Method = "prefetchPositioningInfo"
	FetchPoisFromBuildingMethod  Method = "fetchPoisFromBuilding"
	FetchCategoriesMethod        Method = "fetchCategories"
	FetchBuildingsMethod         Method = "fetchBuildings"
	FetchBuildingInfoMethod      Method = "fetchBuildingInfo"
	GetDeviceIDMethod            Method = "getDeviceId"
	RequestNavigationMethod      Method = "requestNavigation"
	RequestDirectionsMethod      Method = "requestDirections"
	StopNavigationMethod         Method = "stopNavigation"
	LoadMethod                   Method = "load"
	UnloadMethod                 Method = "unload"
	SelectPoiMethod              Method = "selectPoi"
	StartPositioningMethod       Method = "startPositioning"
	StopPositioningMethod        Method = "stopPositioning"
)

// Call is one inbound method call.
type Call struct {
	ID     string          `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is the single terminal answer to a Call.
type Response struct {
	ID     string     `json:"id"`
	Method Method     `json:"method"`
	Data   any        `json:"data,omitempty"`
	Error  *sdk.Error `json:"error,omitempty"`
}

// OK reports whether the call succeeded.
func (r Response) OK() bool {
	return r.Error == nil
}

// The sentinel results of void methods.
const (
	ResultDone    = "DONE"
	ResultSuccess = "SUCCESS"
)

type respondFunc func(data any, err *sdk.Error)

// Typed parameter variants, one per method that takes arguments. They are
// decoded and validated at the dispatch boundary before any handler runs.

type InitParams struct {
	SitumUser   string `json:"situmUser"`
	SitumAPIKey string `json:"situmApiKey"`
	URL         string `json:"url"`
}

type SetConfigurationParams struct {
	UseRemoteConfig bool `json:"useRemoteConfig"`
}

type LocationRequestParams struct {
	BuildingIdentifier string `json:"buildingIdentifier"`
	UseDeadReckoning   bool   `json:"useDeadReckoning"`
}

type PrefetchParams struct {
	BuildingIdentifiers []string            `json:"buildingIdentifiers"`
	Options             sdk.PrefetchOptions `json:"options"`
}

type BuildingParams struct {
	BuildingIdentifier string `json:"buildingIdentifier"`
}

type NavigationParams struct {
	DirectionsRequest sdk.DirectionsRequest `json:"directionsRequest"`
	NavigationRequest sdk.NavigationRequest `json:"navigationRequest"`
}

type SelectPoiParams struct {
	BuildingIdentifier string `json:"buildingIdentifier"`
	PoiIdentifier      string `json:"poiIdentifier"`
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("missing params")
	}
	return json.Unmarshal(raw, dst)
}

// dispatch runs on the loop. The method table is exhaustive: anything not
// listed resolves with ERROR_NOT_IMPLEMENTED rather than hanging or
// crashing the caller. Handlers are transactional at call granularity; an
// error response leaves the session untouched.
func (b *Bridge) dispatch(call Call, respond respondFunc) {
	switch call.Method {
	case InitMethod:
		b.handleInit(call, respond)
	case SetConfigurationMethod:
		b.handleSetConfiguration(call, respond)
	case RequestLocationUpdatesMethod:
		b.handleRequestLocationUpdates(call, respond)
	case RemoveUpdatesMethod:
		b.handleStopPositioning(respond)
	case ClearCacheMethod:
		b.handleClearCache(respond)
	case PrefetchMethod:
		b.handlePrefetch(call, respond)
	case FetchPoisFromBuildingMethod:
		b.handleFetchPois(call, respond)
	case FetchCategoriesMethod:
		b.handleFetchCategories(respond)
	case FetchBuildingsMethod:
		b.handleFetchBuildings(respond)
	case FetchBuildingInfoMethod:
		b.handleFetchBuildingInfo(call, respond)
	case GetDeviceIDMethod:
		b.handleGetDeviceID(respond)
	case RequestDirectionsMethod:
		b.handleRequestDirections(call, respond)
	case RequestNavigationMethod:
		b.handleRequestNavigation(call, respond)
	case StopNavigationMethod:
		b.handleStopNavigation(respond)
	case LoadMethod:
		b.handleLoad(call, respond)
	case UnloadMethod:
		b.handleUnload(respond)
	case SelectPoiMethod:
		b.handleSelectPoi(call, respond)
	case StartPositioningMethod:
		b.handleStartPositioning(respond)
	case StopPositioningMethod:
		b.handleViewStopPositioning(respond)
	default:
		respond(nil, sdk.Errorf(sdk.ErrNotImplemented, "method %q is not implemented", call.Method))
	}
}

// requireInit guards every SDK-backed method behind a completed init.
func (b *Bridge) requireInit(respond respondFunc) bool {
	if !b.initialized {
		respond(nil, sdk.NewError(sdk.ErrLibraryNotLoaded, "Situm SDK not initialized, call init first"))
		return false
	}
	return true
}

// requireView guards map-view methods behind a completed load.
func (b *Bridge) requireView(respond respondFunc) bool {
	if b.session.Phase() != PhaseLoaded || !b.viewer.Loaded() {
		respond(nil, sdk.NewError(sdk.ErrLibraryNotLoaded, "map library not loaded, call load first"))
		return false
	}
	return true
}

func (b *Bridge) handleInit(call Call, respond respondFunc) {
	var params InitParams
	if err := decodeParams(call.Params, &params); err != nil {
		respond(nil, sdk.Errorf(sdk.ErrInvalidArguments, "init: %v", err))
		return
	}
	creds := sdk.Credentials{
		User:      params.SitumUser,
		APIKey:    params.SitumAPIKey,
		APIDomain: params.URL,
	}
	if !creds.Valid() {
		respond(nil, sdk.NewError(sdk.ErrMissingCredentials, "situmUser and situmApiKey are required"))
		return
	}
	b.creds = creds
	b.initialized = true
	respond(ResultDone, nil)
}

func (b *Bridge) handleSetConfiguration(call Call, respond respondFunc) {
	var params SetConfigurationParams
	if err := decodeParams(call.Params, &params); err != nil {
		respond(nil, sdk.Errorf(sdk.ErrInvalidArguments, "setConfiguration: %v", err))
		return
	}
	b.remoteConfig = params.UseRemoteConfig
	respond(ResultDone, nil)
}

// startPositioning is shared by requestLocationUpdates and the map view's
// startPositioning. Runs on the loop. The generations advance only after the
// engine accepted the request: a failed restart leaves the previous session
// and its delivery untouched.
func (b *Bridge) startPositioning(req sdk.LocationRequest, respond respondFunc) {
	sink := &locationSink{bridge: b}
	if err := b.opts.Location.RequestUpdates(req, sink); err != nil {
		respond(nil, sdk.AsError(sdk.ErrInvalidArguments, err))
		return
	}
	// Callbacks queue behind this handler on the loop, so the sink sees its
	// generation before any of its events are examined.
	sink.generation = b.advancePositioning()
	b.session.SetActiveRequest(&req)
	respond(ResultDone, nil)
}

// advancePositioning bumps the generation of every positioning stream so
// in-flight callbacks from a previous session are detectably stale.
func (b *Bridge) advancePositioning() uint64 {
	gen := b.relay.Advance(relay.StreamLocation)
	b.relay.Advance(relay.StreamStatus)
	b.relay.Advance(relay.StreamError)
	b.relay.Advance(relay.StreamGeofencesEntered)
	b.relay.Advance(relay.StreamGeofencesExited)
	return gen
}

func (b *Bridge) handleRequestLocationUpdates(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var params LocationRequestParams
	if err := decodeParams(call.Params, &params); err != nil {
		respond(nil, sdk.Errorf(sdk.ErrInvalidArguments, "requestLocationUpdates: %v", err))
		return
	}
	b.startPositioning(sdk.LocationRequest{
		BuildingIdentifier: params.BuildingIdentifier,
		UseDeadReckoning:   params.UseDeadReckoning,
	}, respond)
}

// stopPositioning runs on the loop and is shared by removeUpdates and the
// map view's stopPositioning. A failed stop leaves the active session and
// its delivery intact.
func (b *Bridge) stopPositioning(respond respondFunc) {
	if err := b.opts.Location.RemoveUpdates(); err != nil {
		respond(nil, sdk.AsError(sdk.ErrInvalidArguments, err))
		return
	}
	b.advancePositioning()
	b.session.ClearActiveRequest()
	respond(ResultDone, nil)
}

func (b *Bridge) handleStopPositioning(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	b.stopPositioning(respond)
}

func (b *Bridge) handleClearCache(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	go func() {
		if err := b.opts.Cartography.ClearCache(); err != nil {
			respond(nil, sdk.AsError(sdk.ErrPrefetch, err))
			return
		}
		respond(ResultDone, nil)
	}()
}

func (b *Bridge) handlePrefetch(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var params PrefetchParams
	if err := decodeParams(call.Params, &params); err != nil {
		respond(nil, sdk.Errorf(sdk.ErrPrefetch, "prefetchPositioningInfo: %v", err))
		return
	}
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		if err := b.opts.Cartography.Prefetch(ctx, params.BuildingIdentifiers, params.Options); err != nil {
			respond(nil, sdk.AsError(sdk.ErrPrefetch, err))
			return
		}
		respond(ResultDone, nil)
	}()
}

func (b *Bridge) handleFetchPois(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var params BuildingParams
	if err := decodeParams(call.Params, &params); err != nil || params.BuildingIdentifier == "" {
		respond(nil, sdk.NewError(sdk.ErrFetchPois, "buildingIdentifier is required"))
		return
	}
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		pois, err := b.opts.Cartography.FetchPois(ctx, params.BuildingIdentifier)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrFetchPois, err))
			return
		}
		encoded := make([]wire.Message, 0, len(pois))
		for _, p := range pois {
			encoded = append(encoded, wire.EncodePoi(p))
		}
		respond(encoded, nil)
	}()
}

func (b *Bridge) handleFetchCategories(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		categories, err := b.opts.Cartography.FetchCategories(ctx)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrFetchCategories, err))
			return
		}
		encoded := make([]wire.Message, 0, len(categories))
		for _, c := range categories {
			encoded = append(encoded, wire.EncodeCategory(c))
		}
		respond(encoded, nil)
	}()
}

func (b *Bridge) handleFetchBuildings(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		buildings, err := b.opts.Cartography.FetchBuildings(ctx)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrFetchBuildings, err))
			return
		}
		encoded := make([]wire.Message, 0, len(buildings))
		for _, bld := range buildings {
			encoded = append(encoded, wire.EncodeBuilding(bld))
		}
		respond(encoded, nil)
	}()
}

func (b *Bridge) handleFetchBuildingInfo(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var params BuildingParams
	if err := decodeParams(call.Params, &params); err != nil || params.BuildingIdentifier == "" {
		respond(nil, sdk.NewError(sdk.ErrFetchBuildingInfo, "buildingIdentifier is required"))
		return
	}
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		info, err := b.opts.Cartography.FetchBuildingInfo(ctx, params.BuildingIdentifier)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrFetchBuildingInfo, err))
			return
		}
		respond(wire.EncodeBuildingInfo(info), nil)
	}()
}

func (b *Bridge) handleGetDeviceID(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	go func() {
		id, err := b.device.ID()
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrInvalidArguments, err))
			return
		}
		respond(id, nil)
	}()
}

func (b *Bridge) handleRequestDirections(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var req sdk.DirectionsRequest
	if err := decodeParams(call.Params, &req); err != nil || req.BuildingIdentifier == "" {
		respond(nil, sdk.NewError(sdk.ErrCalculatingRoute, "directionsRequest with buildingIdentifier is required"))
		return
	}
	req.Normalize()
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		route, err := b.opts.Navigation.RequestDirections(ctx, req)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrCalculatingRoute, err))
			return
		}
		if len(route.Steps) == 0 {
			respond(nil, sdk.NewError(sdk.ErrCalculatingRoute, "computed route has no steps"))
			return
		}
		respond(wire.EncodeRoute(route), nil)
	}()
}

func (b *Bridge) handleRequestNavigation(call Call, respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	var params NavigationParams
	if err := decodeParams(call.Params, &params); err != nil || params.DirectionsRequest.BuildingIdentifier == "" {
		respond(nil, sdk.NewError(sdk.ErrCalculatingRoute, "directionsRequest with buildingIdentifier is required"))
		return
	}
	params.DirectionsRequest.Normalize()
	go func() {
		ctx, cancel := b.callContext()
		defer cancel()
		sink := &navigationSink{bridge: b}
		route, err := b.opts.Navigation.RequestNavigation(ctx, params.DirectionsRequest, params.NavigationRequest, sink)
		if err != nil {
			respond(nil, sdk.AsError(sdk.ErrCalculatingRoute, err))
			return
		}
		if len(route.Steps) == 0 {
			respond(nil, sdk.NewError(sdk.ErrCalculatingRoute, "computed route has no steps"))
			return
		}
		// The navigation commits back on the loop: generations advance,
		// the sink is armed, the tracker starts and the start event goes
		// out. A failed computation never reaches this point, so the
		// previously active navigation stays deliverable.
		req := params.DirectionsRequest
		nav := params.NavigationRequest
		b.do(func() {
			gen := b.advanceNavigation()
			sink.generation = gen
			b.session.StartNavigation(&req, newNavTracker(route, nav, gen))
			event := relay.NewEvent(relay.StreamNavigationStarted, wire.EncodeRoute(route))
			event.Generation = gen
			b.relay.Publish(event)
			if b.session.Phase() == PhaseLoaded {
				b.viewer.ShowRoute(route)
			}
		})
		respond(wire.EncodeRoute(route), nil)
	}()
}

// advanceNavigation bumps every navigation stream in lockstep.
func (b *Bridge) advanceNavigation() uint64 {
	gen := b.relay.Advance(relay.StreamNavigationStarted)
	b.relay.Advance(relay.StreamNavigationProgress)
	b.relay.Advance(relay.StreamNavigationOutsideRoute)
	b.relay.Advance(relay.StreamNavigationDone)
	return gen
}

func (b *Bridge) handleStopNavigation(respond respondFunc) {
	if !b.requireInit(respond) {
		return
	}
	if err := b.opts.Navigation.StopNavigation(); err != nil {
		respond(nil, sdk.AsError(sdk.ErrCalculatingRoute, err))
		return
	}
	b.advanceNavigation()
	b.session.ClearActiveNavigation()
	respond(ResultDone, nil)
}

func (b *Bridge) handleLoad(call Call, respond respondFunc) {
	var cfg mapview.LoadConfig
	if err := decodeParams(call.Params, &cfg); err != nil {
		respond(nil, sdk.Errorf(sdk.ErrInvalidArguments, "load: %v", err))
		return
	}
	if !b.initialized {
		respond(nil, sdk.NewError(sdk.ErrMissingCredentials, "call init before load"))
		return
	}
	if b.session.Phase() != PhaseUnloaded {
		respond(nil, sdk.Errorf(sdk.ErrAlreadyLoading, "map view is %s", b.session.Phase()))
		return
	}
	if _, err := b.viewer.Load(cfg, b.creds); err != nil {
		respond(nil, sdk.AsError(sdk.ErrAlreadyLoading, err))
		return
	}
	if err := b.session.BeginLoad(); err != nil {
		// Unreachable while session and viewer agree; keep both honest.
		b.viewer.Unload()
		respond(nil, sdk.AsError(sdk.ErrAlreadyLoading, err))
		return
	}
	b.session.MarkLoaded()
	// A positioning session started before the load keeps feeding the new
	// view from its next fix.
	respond(ResultSuccess, nil)
}

func (b *Bridge) handleUnload(respond respondFunc) {
	// Idempotent by contract: a second unload is a no-op, never an error.
	b.viewer.Unload()
	b.session.Unload()
	respond(ResultDone, nil)
}

func (b *Bridge) handleSelectPoi(call Call, respond respondFunc) {
	if !b.requireView(respond) {
		return
	}
	var params SelectPoiParams
	if err := decodeParams(call.Params, &params); err != nil ||
		params.BuildingIdentifier == "" || params.PoiIdentifier == "" {
		respond(nil, sdk.NewError(sdk.ErrSelectPoi, "buildingIdentifier and poiIdentifier are required"))
		return
	}
	if err := b.viewer.SelectPoi(params.BuildingIdentifier, params.PoiIdentifier); err != nil {
		respond(nil, sdk.AsError(sdk.ErrSelectPoi, err))
		return
	}
	respond(params.PoiIdentifier, nil)
}

func (b *Bridge) handleStartPositioning(respond respondFunc) {
	if !b.requireView(respond) {
		return
	}
	view := b.viewer.Current()
	b.startPositioning(sdk.LocationRequest{
		BuildingIdentifier: view.Config.BuildingIdentifier,
	}, respond)
}

func (b *Bridge) handleViewStopPositioning(respond respondFunc) {
	if !b.requireView(respond) {
		return
	}
	b.stopPositioning(respond)
}

// callContext bounds an asynchronous native interaction to the call timeout.
func (b *Bridge) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.opts.CallTimeout)
}
