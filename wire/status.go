package wire

import (
	"fmt"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

// Status names are registered explicitly in both directions. A status value
// missing from the table is an error, never a silent passthrough: adding a
// new engine status requires a conscious registration here.
var statusNames = map[sdk.LocationStatus]string{
	sdk.StatusStarting:            "STARTING",
	sdk.StatusPreparingModel:      "PREPARING_POSITIONING_MODEL",
	sdk.StatusStartingPositioning: "STARTING_POSITIONING",
	sdk.StatusCalculating:         "CALCULATING",
	sdk.StatusUserNotInBuilding:   "USER_NOT_IN_BUILDING",
	sdk.StatusStopped:             "STOPPED",
}

var statusValues = func() map[string]sdk.LocationStatus {
	values := make(map[string]sdk.LocationStatus, len(statusNames))
	for status, name := range statusNames {
		values[name] = status
	}
	return values
}()

// StatusName maps an engine status to its wire name.
func StatusName(status sdk.LocationStatus) (string, error) {
	name, ok := statusNames[status]
	if !ok {
		return "", fmt.Errorf("codec: unregistered location status %d", status)
	}
	return name, nil
}

// StatusFromName maps a wire name back to an engine status.
func StatusFromName(name string) (sdk.LocationStatus, error) {
	status, ok := statusValues[name]
	if !ok {
		return 0, fmt.Errorf("codec: unregistered status name %q", name)
	}
	return status, nil
}

// EncodeStatus builds the onStatusChanged payload.
func EncodeStatus(status sdk.LocationStatus) (Message, error) {
	name, err := StatusName(status)
	if err != nil {
		return nil, err
	}
	return Message{"statusName": name}, nil
}
