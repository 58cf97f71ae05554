package models

import (
	"encoding/json"
	"strconv"
)

// LocationQuery selects a place by name or by coordinates. Exactly one form is set.
type LocationQuery struct {
	City string
	Lat  *float64
	Lon  *float64
}

// HasCoordinates reports whether the query uses the lat/lon form.
func (q LocationQuery) HasCoordinates() bool {
	return q.City == "" && q.Lat != nil && q.Lon != nil
}

// String renders the selector for logs: the city, or "lat,lon".
func (q LocationQuery) String() string {
	if q.HasCoordinates() {
		return strconv.FormatFloat(*q.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(*q.Lon, 'f', -1, 64)
	}
	return q.City
}

// WeatherEnvelope is the Weather Proxy Endpoint response. Both bodies are the
// provider's JSON, forwarded without reshaping.
type WeatherEnvelope struct {
	Current  json.RawMessage `json:"current"`
	Forecast json.RawMessage `json:"forecast"`
}
