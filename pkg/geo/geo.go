// Package geo provides the small set of spherical geometry helpers the
// server needs: bearings, flat-earth distance approximations for short
// ranges and the haversine great circle distance.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius used for haversine.
const EarthRadiusMeters = 6371000.0

// Meter lengths of one degree of latitude and longitude at the equator.
const (
	metersPerDegreeLat = 111139.0
	metersPerDegreeLon = 111321.0
)

// LatLon is a WGS84 position in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// BearingRad returns the initial great circle bearing from a to b in
// radians, normalized to [0, 2*pi).
func BearingRad(a, b LatLon) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	return math.Mod(theta+2*math.Pi, 2*math.Pi)
}

// BearingDeg returns the initial great circle bearing from a to b in
// degrees, normalized to [0, 360).
func BearingDeg(a, b LatLon) float64 {
	return BearingRad(a, b) * 180 / math.Pi
}

// NorthEastDistance returns the north and east components in meters of
// the offset from a to b, using a flat-earth approximation that is
// accurate enough for traffic awareness ranges.
func NorthEastDistance(a, b LatLon) (north, east float64) {
	north = (b.Lat - a.Lat) * metersPerDegreeLat
	east = (b.Lon - a.Lon) * metersPerDegreeLon * math.Cos(radians(a.Lat))
	return north, east
}

// DistanceFast returns the approximate distance in meters between a and
// b as the hypotenuse of the north/east offsets. Cheap, and adequate
// below a few hundred kilometers.
func DistanceFast(a, b LatLon) float64 {
	north, east := NorthEastDistance(a, b)
	return math.Hypot(north, east)
}

// Haversine returns the great circle distance in meters between a and b.
func Haversine(a, b LatLon) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
