// Package altitude estimates the geometric height of traffic contacts
// from whatever altitude information their provider reported.
package altitude

import (
	"fmt"
	"math"
	"os"
)

// GeoidModel resolves the local offset between the WGS84 ellipsoid and
// mean sea level, in meters.
type GeoidModel interface {
	Offset(lat, lon float64) int
}

// The EGM2008 grid covers latitudes -85..85 and longitudes -180..180 in
// half degree steps, one signed byte per cell.
const (
	egmMinLat   = -85.0
	egmMaxLat   = 85.0
	egmMinLon   = -180.0
	egmMaxLon   = 180.0
	egmStep     = 0.5
	egmLatSteps = 341
	egmLonSteps = 721

	// EGMGridSize is the expected byte size of the grid file.
	EGMGridSize = egmLatSteps * egmLonSteps
)

// FlatGeoid treats the ellipsoid and the geoid as identical. It stands
// in when no grid file is available.
type FlatGeoid struct{}

func (FlatGeoid) Offset(lat, lon float64) int { return 0 }

// EGM2008 is a coarse geoid undulation grid. Meter precision is plenty,
// the consumers quantize heights anyway.
type EGM2008 struct {
	data []byte
}

// NewEGM2008 wraps a raw grid, validating its size.
func NewEGM2008(data []byte) (*EGM2008, error) {
	if len(data) != EGMGridSize {
		return nil, fmt.Errorf("altitude: geoid grid is %d bytes, want %d", len(data), EGMGridSize)
	}
	return &EGM2008{data: data}, nil
}

// LoadEGM2008 reads a grid file from disk.
func LoadEGM2008(path string) (*EGM2008, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("altitude: read geoid grid: %w", err)
	}
	return NewEGM2008(data)
}

// Offset returns the geoid undulation at the nearest grid point.
// Positions outside the grid coverage resolve to 0.
func (e *EGM2008) Offset(lat, lon float64) int {
	if lat < egmMinLat || lat > egmMaxLat || lon < egmMinLon || lon > egmMaxLon {
		return 0
	}
	// The grid rows run north to south, byte 0 sits at lat +85, lon -180.
	latIdx := int(math.Round((egmMaxLat - lat) / egmStep))
	lonIdx := int(math.Round((lon - egmMinLon) / egmStep))
	return int(int8(e.data[lonIdx*egmLatSteps+latIdx]))
}
