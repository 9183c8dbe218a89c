package adsb

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// readsbResponse is the JSON envelope shared by readsb-derived APIs
// (adsb.fi, airplanes.live and compatible feeds).
type readsbResponse struct {
	// Aircraft is the array of aircraft data.
	Aircraft []readsbAircraft `json:"ac"`

	// Total number of aircraft.
	Total int `json:"total"`

	// Now is the server timestamp.
	Now float64 `json:"now"`
}

// readsbAircraft is a single aircraft in a readsb-style API response.
// Pointer fields distinguish absent values from zero values.
type readsbAircraft struct {
	// Hex is the Mode S address in hex. TIS-B targets carry a "~"
	// prefix that is not part of the address.
	Hex string `json:"hex"`

	// Flight is the callsign/flight number.
	Flight *string `json:"flight"`

	// Registration is the aircraft tail number.
	Registration *string `json:"r"`

	// Category is the ADS-B emitter category, e.g. "A1".
	Category *string `json:"category"`

	// Lat and Lon in decimal degrees.
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	// AltBaro is barometric altitude in feet, or the string "ground".
	AltBaro json.RawMessage `json:"alt_baro"`

	// AltGeom is geometric altitude above the WGS84 ellipsoid in feet.
	AltGeom *float64 `json:"alt_geom"`

	// Gs is ground speed in knots.
	Gs *float64 `json:"gs"`

	// Track is ground track in degrees, with heading fallbacks for
	// aircraft that do not broadcast one.
	Track       *float64 `json:"track"`
	TrueHeading *float64 `json:"true_heading"`
	MagHeading  *float64 `json:"mag_heading"`
	NavHeading  *float64 `json:"nav_heading"`

	// TrackRate is the rate of track change in degrees per second.
	TrackRate *float64 `json:"track_rate"`

	// BaroRate and GeomRate are vertical rates in feet per minute.
	BaroRate *float64 `json:"baro_rate"`
	GeomRate *float64 `json:"geom_rate"`

	// NavQNH is the altimeter setting in hPa.
	NavQNH *float64 `json:"nav_qnh"`

	// NICBaro is the barometric altitude integrity code.
	NICBaro *int `json:"nic_baro"`
}

// convertReadsbAircraft normalizes one readsb aircraft record. ok is
// false for records without a usable address or position.
func convertReadsbAircraft(ac readsbAircraft) (model.AircraftPosition, bool) {
	if ac.Lat == nil || ac.Lon == nil {
		return model.AircraftPosition{}, false
	}

	id, err := parseHexAddress(ac.Hex)
	if err != nil {
		return model.AircraftPosition{}, false
	}

	p := model.AircraftPosition{
		ID:          id,
		DataSource:  model.SourceADSB,
		AddressType: model.AddrICAO,
		Latitude:    *ac.Lat,
		Longitude:   *ac.Lon,
		CallSign:    composeCallSign(ac),
		QNH:         ac.NavQNH,
	}

	if ac.NICBaro != nil {
		p.NICBaro = *ac.NICBaro
	}
	if ac.Category != nil {
		p.Category = categoryFromEmitter(*ac.Category)
	}

	if ground, alt := parseBaroAltitude(ac.AltBaro); ground {
		p.OnGround = true
	} else if alt != nil {
		m := int(*alt * model.FeetToMeters)
		p.BaroAltitude = &m
	}
	if ac.AltGeom != nil {
		m := int(*ac.AltGeom * model.FeetToMeters)
		p.EllipsoidHeight = &m
	}

	if t := firstOf(ac.Track, ac.TrueHeading, ac.MagHeading, ac.NavHeading); t != nil {
		p.Course = *t
	}
	if ac.TrackRate != nil {
		p.TurnRate = *ac.TrackRate * (180 / math.Pi)
	}
	if ac.Gs != nil {
		p.GroundSpeed = *ac.Gs * model.KnotsToMetersPerSecond
	}
	if r := firstOf(ac.GeomRate, ac.BaroRate); r != nil {
		p.VerticalSpeed = *r * model.FeetPerMinuteToMetersPerSecond
	}

	return p, true
}

// convertReadsbResponse converts every usable record in a response.
func convertReadsbResponse(resp readsbResponse) []model.AircraftPosition {
	out := make([]model.AircraftPosition, 0, len(resp.Aircraft))
	for _, ac := range resp.Aircraft {
		if p, ok := convertReadsbAircraft(ac); ok {
			out = append(out, p)
		}
	}
	return out
}

// parseHexAddress parses a Mode S hex address, ignoring the non
// alphanumeric prefixes some feeds use to mark TIS-B targets.
func parseHexAddress(hex string) (uint32, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			return r
		default:
			return -1
		}
	}, hex)

	v, err := strconv.ParseUint(cleaned, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// composeCallSign prefers the registration over the flight number and
// trims it to the wire limit.
func composeCallSign(ac readsbAircraft) string {
	var cs string
	if ac.Registration != nil && strings.TrimSpace(*ac.Registration) != "" {
		cs = strings.TrimSpace(*ac.Registration)
	} else if ac.Flight != nil {
		cs = strings.TrimSpace(*ac.Flight)
	}
	if len(cs) > model.MaxCallSignLength {
		cs = cs[:model.MaxCallSignLength]
	}
	return cs
}

// parseBaroAltitude handles the alt_baro field, which is either a
// number in feet or the string "ground".
func parseBaroAltitude(raw json.RawMessage) (ground bool, alt *float64) {
	if len(raw) == 0 {
		return false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "ground", nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return false, &f
	}
	return false, nil
}

func firstOf(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
