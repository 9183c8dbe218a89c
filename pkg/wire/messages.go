package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// Message tags, the first payload byte of every frame.
const (
	TagAircraftPositionV1       byte = 1
	TagOwnshipPositionRequestV1 byte = 2
	TagFleetConfigV1            byte = 3
	TagSetICAOAddressV1         byte = 4
	TagFleetConfigV2            byte = 5
)

// Fallback replies are sent raw, without COBS framing.
var (
	// FallbackNoData is returned when a request produced no reply frames.
	FallbackNoData = []byte{0xFE, 0x01, 0x01}

	// FallbackTimeout is returned when handling exceeded the deadline.
	FallbackTimeout = []byte{0xFF, 0x01, 0x01}
)

var (
	// ErrUnexpectedTag is returned when a payload does not start with
	// the tag the decoder expects.
	ErrUnexpectedTag = errors.New("wire: unexpected message tag")

	// ErrShortPayload is returned when a payload is too small for its
	// declared layout.
	ErrShortPayload = errors.New("wire: payload too short")
)

// Quantization constants of the fixed-layout messages.
const (
	positionScale    = 1e7
	courseStep       = 360.0 / 255.0
	heightOffset     = 100
	maxHeightMeters  = 65435
	turnRateScale    = 5.0
	maxTurnRate      = 25.0
	speedScale       = 100.0
	maxSpeed         = 655.0
	vertSpeedScale   = 1024.0
	maxVertSpeed     = 31.99
	ownSpeedScale    = 10.0
	ownVertScale     = 100.0
	aircraftBaseSize = 24
)

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncodeAircraftPositionV1 builds the traffic report frame for one
// contact. ellipsoidHeight is the resolved geometric height in meters,
// the caller decides how to estimate it for contacts that only carry a
// barometric altitude.
func EncodeAircraftPositionV1(p model.AircraftPosition, ellipsoidHeight int) []byte {
	cs := []byte(p.CallSign)
	if len(cs) > model.MaxCallSignLength {
		cs = cs[:model.MaxCallSignLength]
	}

	c := NewCursor(aircraftBaseSize + len(cs))
	c.PutUint8(TagAircraftPositionV1)
	c.PutUint24(p.ID)
	c.PutUint8(byte(p.AddressType))
	c.PutUint8(byte(p.DataSource))
	c.PutInt32(int32(math.Round(p.Latitude * positionScale)))
	c.PutInt32(int32(math.Round(p.Longitude * positionScale)))
	c.PutUint16(uint16(clampI(ellipsoidHeight, -heightOffset, maxHeightMeters) + heightOffset))
	c.PutUint8(byte(clampI(int(p.Course/courseStep), 0, 255)))
	c.PutInt8(int8(math.Round(clampF(p.TurnRate, -maxTurnRate, maxTurnRate) * turnRateScale)))
	c.PutUint16(uint16(math.Round(clampF(p.GroundSpeed, 0, maxSpeed) * speedScale)))
	c.PutInt16(int16(math.Round(clampF(p.VerticalSpeed, -maxVertSpeed, maxVertSpeed) * vertSpeedScale)))
	c.PutUint8(byte(p.Category))
	c.PutBytes(cs)
	return c.Frame()
}

// DecodeAircraftPositionV1 parses an unstuffed traffic report payload.
// It is the inverse of EncodeAircraftPositionV1 up to quantization, and
// returns the transmitted ellipsoid height alongside the contact.
func DecodeAircraftPositionV1(payload []byte) (model.AircraftPosition, int, error) {
	if len(payload) < aircraftBaseSize {
		return model.AircraftPosition{}, 0, fmt.Errorf("%w: aircraft position of %d bytes", ErrShortPayload, len(payload))
	}
	c := NewReadCursor(payload)
	if tag := c.Uint8(); tag != TagAircraftPositionV1 {
		return model.AircraftPosition{}, 0, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, TagAircraftPositionV1)
	}

	var p model.AircraftPosition
	p.ID = c.Uint24()
	p.AddressType = model.AddressTypeFromByte(c.Uint8())
	p.DataSource = model.DataSourceFromByte(c.Uint8())
	p.Latitude = float64(c.Int32()) / positionScale
	p.Longitude = float64(c.Int32()) / positionScale
	height := int(c.Uint16()) - heightOffset
	p.Course = float64(c.Uint8()) * courseStep
	p.TurnRate = float64(c.Int8()) / turnRateScale
	p.GroundSpeed = float64(c.Uint16()) / speedScale
	p.VerticalSpeed = float64(c.Int16()) / vertSpeedScale
	p.Category = model.AircraftCategory(c.Uint8())
	if c.Remaining() < 1 || c.Remaining()-1 < int(c.Peek()) {
		return model.AircraftPosition{}, 0, fmt.Errorf("%w: call sign truncated", ErrShortPayload)
	}
	p.CallSign = string(c.Bytes())
	return p, height, nil
}

// ownshipSize is the fixed layout size of an ownship position request.
const ownshipSize = 26

// EncodeOwnshipPositionRequestV1 builds the request frame a device
// sends to report its own position and ask for nearby traffic.
func EncodeOwnshipPositionRequestV1(o model.OwnshipPosition) []byte {
	c := NewCursor(ownshipSize)
	c.PutUint8(TagOwnshipPositionRequestV1)
	c.PutUint32(o.Epoch)
	c.PutUint24(o.ID)
	c.PutUint8(byte(o.AddressType))
	c.PutUint8(byte(o.Category))
	c.PutInt32(int32(math.Round(o.Latitude * positionScale)))
	c.PutInt32(int32(math.Round(o.Longitude * positionScale)))
	c.PutInt16(int16(clampI(o.EllipsoidHeight+heightOffset, math.MinInt16, math.MaxInt16)))
	c.PutUint8(byte(clampI(int(o.Track/courseStep), 0, 255)))
	c.PutInt8(int8(math.Round(clampF(o.TurnRate, -maxTurnRate, maxTurnRate) * turnRateScale)))
	c.PutUint16(uint16(math.Round(clampF(o.GroundSpeed, 0, 6553) * ownSpeedScale)))
	c.PutInt16(int16(math.Round(clampF(o.VerticalRate, -327, 327) * ownVertScale)))
	return c.Frame()
}

// DecodeOwnshipPositionRequestV1 parses an unstuffed ownship position
// request payload.
func DecodeOwnshipPositionRequestV1(payload []byte) (model.OwnshipPosition, error) {
	if len(payload) < ownshipSize {
		return model.OwnshipPosition{}, fmt.Errorf("%w: ownship request of %d bytes", ErrShortPayload, len(payload))
	}
	c := NewReadCursor(payload)
	if tag := c.Uint8(); tag != TagOwnshipPositionRequestV1 {
		return model.OwnshipPosition{}, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, TagOwnshipPositionRequestV1)
	}

	var o model.OwnshipPosition
	o.Epoch = c.Uint32()
	o.ID = c.Uint24()
	o.AddressType = model.AddressTypeFromByte(c.Uint8())
	o.Category = model.AircraftCategory(c.Uint8())
	o.Latitude = float64(c.Int32()) / positionScale
	o.Longitude = float64(c.Int32()) / positionScale
	o.EllipsoidHeight = int(c.Int16()) - heightOffset
	o.Track = float64(c.Uint8()) * courseStep
	o.TurnRate = float64(c.Int8()) / turnRateScale
	o.GroundSpeed = float64(c.Uint16()) / ownSpeedScale
	o.VerticalRate = float64(c.Int16()) / ownVertScale
	return o, nil
}

// Fixed sizes of the fleet config layouts before the address list.
const (
	fleetV1BaseSize = 14
	fleetV2BaseSize = 22
)

// EncodeFleetConfigV1 builds a v1 fleet configuration frame.
func EncodeFleetConfigV1(cfg model.FleetConfig) []byte {
	c := NewCursor(fleetV1BaseSize + 3*len(cfg.ICAOAddresses))
	c.PutUint8(TagFleetConfigV1)
	c.PutUint32(cfg.GatasID)
	c.PutUint32(cfg.GatasIP)
	c.PutUint24(cfg.ICAOAddress)
	c.PutUint8(byte(cfg.Options))
	c.PutUint8(byte(len(cfg.ICAOAddresses)))
	for _, a := range cfg.ICAOAddresses {
		c.PutUint24(a)
	}
	return c.Frame()
}

// DecodeFleetConfigV1 parses an unstuffed v1 fleet configuration
// payload. Version and PinCode are -1, the v1 layout does not carry them.
func DecodeFleetConfigV1(payload []byte) (model.FleetConfig, error) {
	if len(payload) < fleetV1BaseSize {
		return model.FleetConfig{}, fmt.Errorf("%w: fleet config v1 of %d bytes", ErrShortPayload, len(payload))
	}
	c := NewReadCursor(payload)
	if tag := c.Uint8(); tag != TagFleetConfigV1 {
		return model.FleetConfig{}, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, TagFleetConfigV1)
	}

	cfg := model.FleetConfig{Version: -1, PinCode: -1}
	cfg.GatasID = c.Uint32()
	cfg.GatasIP = c.Uint32()
	cfg.ICAOAddress = c.Uint24()
	cfg.Options = uint32(c.Uint8())
	n := int(c.Uint8())
	if c.Remaining() < 3*n {
		return model.FleetConfig{}, fmt.Errorf("%w: fleet config v1 address list of %d entries", ErrShortPayload, n)
	}
	cfg.ICAOAddresses = make([]uint32, n)
	for i := range cfg.ICAOAddresses {
		cfg.ICAOAddresses[i] = c.Uint24()
	}
	return cfg, nil
}

// EncodeFleetConfigV2 builds a v2 fleet configuration frame, which adds
// the firmware version and the pairing pin to the v1 layout.
func EncodeFleetConfigV2(cfg model.FleetConfig) []byte {
	c := NewCursor(fleetV2BaseSize + 3*len(cfg.ICAOAddresses))
	c.PutUint8(TagFleetConfigV2)
	c.PutUint8(0) // reserved
	c.PutUint32(cfg.GatasID)
	c.PutUint32(cfg.GatasIP)
	c.PutUint24(cfg.ICAOAddress)
	c.PutUint32(uint32(cfg.Version))
	c.PutUint24(uint32(cfg.PinCode))
	c.PutUint8(byte(cfg.Options))
	c.PutUint8(byte(len(cfg.ICAOAddresses)))
	for _, a := range cfg.ICAOAddresses {
		c.PutUint24(a)
	}
	return c.Frame()
}

// DecodeFleetConfigV2 parses an unstuffed v2 fleet configuration payload.
func DecodeFleetConfigV2(payload []byte) (model.FleetConfig, error) {
	if len(payload) < fleetV2BaseSize {
		return model.FleetConfig{}, fmt.Errorf("%w: fleet config v2 of %d bytes", ErrShortPayload, len(payload))
	}
	c := NewReadCursor(payload)
	if tag := c.Uint8(); tag != TagFleetConfigV2 {
		return model.FleetConfig{}, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, TagFleetConfigV2)
	}
	c.Uint8() // reserved

	var cfg model.FleetConfig
	cfg.GatasID = c.Uint32()
	cfg.GatasIP = c.Uint32()
	cfg.ICAOAddress = c.Uint24()
	cfg.Version = int64(c.Uint32())
	cfg.PinCode = int64(c.Uint24())
	cfg.Options = uint32(c.Uint8())
	n := int(c.Uint8())
	if c.Remaining() < 3*n {
		return model.FleetConfig{}, fmt.Errorf("%w: fleet config v2 address list of %d entries", ErrShortPayload, n)
	}
	cfg.ICAOAddresses = make([]uint32, n)
	for i := range cfg.ICAOAddresses {
		cfg.ICAOAddresses[i] = c.Uint24()
	}
	return cfg, nil
}

// EncodeSetICAOAddressV1 builds the command frame telling a device to
// switch to a different aircraft address.
func EncodeSetICAOAddressV1(addr uint32) []byte {
	c := NewCursor(4)
	c.PutUint8(TagSetICAOAddressV1)
	c.PutUint24(addr)
	return c.Frame()
}

// DecodeSetICAOAddressV1 parses an unstuffed set-address payload.
func DecodeSetICAOAddressV1(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("%w: set address of %d bytes", ErrShortPayload, len(payload))
	}
	c := NewReadCursor(payload)
	if tag := c.Uint8(); tag != TagSetICAOAddressV1 {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, TagSetICAOAddressV1)
	}
	return c.Uint24(), nil
}
