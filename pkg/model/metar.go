package model

import "time"

// MetarInfo is the pressure-relevant subset of a METAR observation as
// cached in the datastore.
type MetarInfo struct {
	// StationID is the reporting station, e.g. "EHAM".
	StationID string `json:"id"`

	// Elevation of the station in meters.
	Elevation int `json:"elev"`

	// Latitude in decimal degrees.
	Latitude float64 `json:"lat"`

	// Longitude in decimal degrees.
	Longitude float64 `json:"lon"`

	// QNH is the sea level pressure in hPa.
	QNH float64 `json:"qnh"`

	// ObservationTime is when the observation was taken.
	ObservationTime time.Time `json:"otime"`
}
