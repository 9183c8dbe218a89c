package model

// OwnshipPosition is the position a GATAS device reports about itself
// in an ownship position request.
type OwnshipPosition struct {
	// Epoch is the device time as unix seconds.
	Epoch uint32 `json:"epoch"`

	// ID is the 24-bit device aircraft address.
	ID uint32 `json:"id"`

	// AddressType describes the numbering scheme of ID.
	AddressType AddressType `json:"addressType"`

	// Category is the emitter category the device is configured with.
	Category AircraftCategory `json:"aircraftCategory"`

	// Latitude in decimal degrees.
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees.
	Longitude float64 `json:"longitude"`

	// EllipsoidHeight is the height above the WGS84 ellipsoid in meters.
	EllipsoidHeight int `json:"ellipsoidHeight"`

	// Track is the ground track in degrees.
	Track float64 `json:"track"`

	// TurnRate in degrees per second.
	TurnRate float64 `json:"hTurnRate"`

	// GroundSpeed in meters per second.
	GroundSpeed float64 `json:"groundSpeed"`

	// VerticalRate in meters per second.
	VerticalRate float64 `json:"verticalRate"`
}
