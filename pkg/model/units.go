package model

// Unit conversion factors used when normalizing provider data.
const (
	// KnotsToMetersPerSecond converts ground speed from knots.
	KnotsToMetersPerSecond = 0.514444444

	// FeetToMeters converts altitudes reported in feet.
	FeetToMeters = 0.3048

	// FeetPerMinuteToMetersPerSecond converts vertical rates.
	FeetPerMinuteToMetersPerSecond = 1.0 / 196.850394

	// MetersPerNauticalMile converts search radii to nautical miles.
	MetersPerNauticalMile = 1852.0

	// InHgToHPa converts altimeter settings from inches of mercury.
	InHgToHPa = 33.8638816
)

// StandardQNH is the ISA standard sea level pressure in hPa, used when
// no local pressure observation is available.
const StandardQNH = 1013.25

// MaxCallSignLength is the longest call sign transmitted to a device,
// in bytes.
const MaxCallSignLength = 12
