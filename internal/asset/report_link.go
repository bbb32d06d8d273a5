package asset

import (
	"net/url"
	"strings"
)

const (
	reportPathPrefix       = "/report/"
	reportQueryKeyName     = "name"
	reportQueryKeyLocation = "location"
)

// Ref represents the minimal identifying data of an asset which is embedded into public report links.
// The UID is never part of the decoded data as it lives in the path; it has to be supplied by the routing layer.
type Ref struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// EncodeReportURL builds the public report link of an asset in the form
// '{baseURL}/report/{uid}?name={name}&location={location}'.
// The UID is embedded as is and has to be safe for path usage; name and location are percent-encoded.
func EncodeReportURL(ref Ref, baseURL string) string {
	var builder strings.Builder
	builder.WriteString(baseURL)
	builder.WriteString(reportPathPrefix)
	builder.WriteString(ref.UID)
	builder.WriteString("?" + reportQueryKeyName + "=")
	builder.WriteString(escapeQueryComponent(ref.Name))
	builder.WriteString("&" + reportQueryKeyLocation + "=")
	builder.WriteString(escapeQueryComponent(ref.Location))
	return builder.String()
}

// DecodeReportQuery reads the asset name and location out of the query parameters of a report link.
// It returns nil if one of them is missing. Present but empty values decode to empty strings.
// The UID of the returned reference is always empty.
func DecodeReportQuery(query url.Values) *Ref {
	if !query.Has(reportQueryKeyName) || !query.Has(reportQueryKeyLocation) {
		return nil
	}
	return &Ref{
		Name:     query.Get(reportQueryKeyName),
		Location: query.Get(reportQueryKeyLocation),
	}
}

// escapeQueryComponent escapes a query value the way browsers' encodeURIComponent does regarding spaces ('%20' instead of '+')
func escapeQueryComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
