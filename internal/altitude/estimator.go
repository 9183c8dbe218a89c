package altitude

import (
	"math"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// UnknownHeight marks an airborne contact whose height cannot be
// estimated. Such contacts are still stored and transmitted, the value
// clamps to the wire floor.
const UnknownHeight = -9999

// ISA atmosphere constants for the barometric correction.
const (
	isaPressureExponent = 5.25588
	isaLapseRate        = 0.0065  // K/m
	isaSeaLevelTemp     = 288.15  // K
	isaStandardPressure = 1013.25 // hPa
)

// Estimator derives ellipsoid heights on read. Positions are never
// mutated, every lookup computes from the original provider data.
type Estimator struct {
	geoid GeoidModel
}

// NewEstimator returns an estimator backed by the given geoid model.
func NewEstimator(geoid GeoidModel) *Estimator {
	return &Estimator{geoid: geoid}
}

// EllipsoidHeight resolves the geometric height of a contact in meters.
// A height reported by the provider always wins. Without one, ground
// contacts sit at the local geoid offset, airborne contacts without a
// barometric altitude are UnknownHeight, and everything else converts
// the barometric altitude through the local QNH. At standard pressure
// the conversion is exact, a contact at baro 0 sits on the geoid.
func (e *Estimator) EllipsoidHeight(p model.AircraftPosition, localQNH float64) int {
	if p.EllipsoidHeight != nil {
		return *p.EllipsoidHeight
	}
	if p.BaroAltitude == nil {
		if p.OnGround {
			return e.geoid.Offset(p.Latitude, p.Longitude)
		}
		return UnknownHeight
	}

	msl := CorrectedAltitude(float64(*p.BaroAltitude), localQNH)
	return int(msl + float64(e.geoid.Offset(p.Latitude, p.Longitude)))
}

// CorrectedAltitude converts a barometric altitude in meters to an
// altitude above mean sea level for the given QNH in hPa, using the ISA
// atmosphere model.
func CorrectedAltitude(baroMeters, qnh float64) float64 {
	correction := (isaSeaLevelTemp / isaLapseRate) *
		(math.Pow(qnh/isaStandardPressure, 1/isaPressureExponent) - 1)
	return baroMeters + correction
}
