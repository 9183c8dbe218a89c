package store

import (
	h3 "github.com/uber/h3-go/v4"
)

// h3Resolution 4 gives cells with an edge length of roughly 22km,
// coarse enough that one METAR station covers its cell.
const h3Resolution = 4

// H3Cell returns the H3 cell index for a position at the weather cache
// resolution.
func H3Cell(lat, lon float64) int64 {
	return int64(h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution))
}
