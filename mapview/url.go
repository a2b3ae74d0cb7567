package mapview

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// DefaultViewerDomain hosts the embedded map viewer.
const DefaultViewerDomain = "https://map-viewer.situm.com"

// URLOptions describe a viewer URL to construct.
type URLOptions struct {
	APIKey       string
	APIDomain    string
	ViewerDomain string

	// RemoteIdentifier takes priority over BuildingIdentifier when both
	// are supplied. At least one must be present.
	RemoteIdentifier   string
	BuildingIdentifier string

	LockCameraToBuilding *bool
}

// ViewerURL builds the embedded viewer URL. The query string layout is a
// contract with the viewer page: apikey, domain, mode, then the optional
// camera lock, then buildingid when no remote identifier is given.
func ViewerURL(o URLOptions) (string, error) {
	if o.RemoteIdentifier == "" && o.BuildingIdentifier == "" {
		return "", errors.New("viewer url: missing both remote and building identifier")
	}

	base := o.ViewerDomain
	if base == "" {
		base = DefaultViewerDomain
	}
	base = strings.TrimSuffix(base, "/")

	var query strings.Builder
	query.WriteString("apikey=" + url.QueryEscape(o.APIKey))
	query.WriteString("&domain=" + url.QueryEscape(stripScheme(o.APIDomain)))
	query.WriteString("&mode=embed")
	if o.LockCameraToBuilding != nil {
		query.WriteString("&lockCameraToBuilding=" + strconv.FormatBool(*o.LockCameraToBuilding))
	}

	if o.RemoteIdentifier != "" {
		return base + "/id/" + url.PathEscape(o.RemoteIdentifier) + "?" + query.String(), nil
	}
	return base + "/?" + query.String() + "&buildingid=" + url.QueryEscape(o.BuildingIdentifier), nil
}

func stripScheme(domain string) string {
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}
