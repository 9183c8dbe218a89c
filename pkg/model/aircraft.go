package model

// AircraftPosition is a single traffic contact as aggregated from the
// live providers. Instances are immutable once built; derived values
// such as the ellipsoid height are computed on read, never written back.
type AircraftPosition struct {
	// ID is the 24-bit aircraft address.
	ID uint32 `json:"id"`

	// DataSource is the feed or radio protocol the contact came from.
	DataSource DataSource `json:"dataSource"`

	// AddressType describes the numbering scheme of ID.
	AddressType AddressType `json:"addressType"`

	// Latitude in decimal degrees (-90 to +90).
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180).
	Longitude float64 `json:"longitude"`

	// Course is the ground track in degrees (0-360).
	Course float64 `json:"course"`

	// TurnRate is the horizontal turn rate in degrees per second.
	TurnRate float64 `json:"hTurnRate"`

	// GroundSpeed in meters per second.
	GroundSpeed float64 `json:"groundSpeed"`

	// VerticalSpeed in meters per second, positive climbing.
	VerticalSpeed float64 `json:"verticalSpeed"`

	// Category is the reported emitter category.
	Category AircraftCategory `json:"aircraftCategory"`

	// CallSign is the registration or flight identifier, at most
	// MaxCallSignLength bytes on the wire.
	CallSign string `json:"callSign"`

	// QNH is the local pressure setting in hPa when the provider
	// reported one, nil otherwise.
	QNH *float64 `json:"qnh,omitempty"`

	// NICBaro is the barometric altitude integrity code.
	NICBaro int `json:"nicBaro"`

	// EllipsoidHeight is the geometric height above the WGS84
	// ellipsoid in meters, nil when the provider only gave a
	// barometric altitude.
	EllipsoidHeight *int `json:"ellipsoidHeight,omitempty"`

	// BaroAltitude is the raw barometric altitude in meters, nil
	// when unknown.
	BaroAltitude *int `json:"baroAltitude,omitempty"`

	// OnGround reports whether the contact is on the ground.
	OnGround bool `json:"isGround"`
}
