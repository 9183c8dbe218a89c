package geo

import (
	"math"
	"testing"
)

func TestBearing(t *testing.T) {
	tests := []struct {
		name string
		from LatLon
		to   LatLon
		want float64 // degrees
	}{
		{"due north", LatLon{52.0, 5.0}, LatLon{53.0, 5.0}, 0},
		{"due south", LatLon{53.0, 5.0}, LatLon{52.0, 5.0}, 180},
		{"due east on equator", LatLon{0, 5.0}, LatLon{0, 6.0}, 90},
		{"due west on equator", LatLon{0, 6.0}, LatLon{0, 5.0}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingRad(tt.from, tt.to) * 180 / math.Pi
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("BearingRad() = %.3f deg, want %.3f", got, tt.want)
			}
			deg := BearingDeg(tt.from, tt.to)
			if math.Abs(deg-tt.want) > 0.01 {
				t.Errorf("BearingDeg() = %.3f, want %.3f", deg, tt.want)
			}
		})
	}
}

func TestBearingRange(t *testing.T) {
	from, to := LatLon{52.0, 6.0}, LatLon{51.0, 5.0}
	b := BearingRad(from, to)
	if b < 0 || b >= 2*math.Pi {
		t.Errorf("BearingRad() = %f, want value in [0, 2*pi)", b)
	}
	d := BearingDeg(from, to)
	if d < 0 || d >= 360 {
		t.Errorf("BearingDeg() = %f, want value in [0, 360)", d)
	}
}

func TestNorthEastDistance(t *testing.T) {
	from := LatLon{52.0, 5.0}
	to := LatLon{53.0, 6.0}

	north, east := NorthEastDistance(from, to)
	if math.Abs(north-111139.0) > 0.1 {
		t.Errorf("north = %f, want 111139", north)
	}
	wantEast := 111321.0 * math.Cos(52.0*math.Pi/180)
	if math.Abs(east-wantEast) > 0.1 {
		t.Errorf("east = %f, want %f", east, wantEast)
	}
}

func TestDistanceFastMatchesHaversineShortRange(t *testing.T) {
	a := LatLon{52.3105, 4.7683} // Schiphol
	b := LatLon{52.4600, 4.5800}

	fast := DistanceFast(a, b)
	exact := Haversine(a, b)

	// Within a couple percent at ~20km.
	if math.Abs(fast-exact)/exact > 0.02 {
		t.Errorf("DistanceFast = %f, Haversine = %f, divergence too large", fast, exact)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Amsterdam to Paris, roughly 430km.
	ams := LatLon{52.3676, 4.9041}
	par := LatLon{48.8566, 2.3522}

	d := Haversine(ams, par)
	if d < 420000 || d > 440000 {
		t.Errorf("Haversine(AMS, PAR) = %f, want ~430km", d)
	}
}

func TestHaversineZero(t *testing.T) {
	p := LatLon{47.0, 8.0}
	if d := Haversine(p, p); d != 0 {
		t.Errorf("Haversine(p, p) = %f, want 0", d)
	}
}
