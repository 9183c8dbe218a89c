package model

// FleetConfig is the configuration a GATAS device uploads about itself.
// Version and PinCode are -1 for devices still speaking the v1 layout.
type FleetConfig struct {
	// GatasID is the unique device identifier.
	GatasID uint32 `json:"uniqueId"`

	// GatasIP is the device IPv4 address packed low byte first.
	GatasIP uint32 `json:"gatasIp"`

	// ICAOAddress is the aircraft address the device currently transmits.
	ICAOAddress uint32 `json:"icaoAddress"`

	// ICAOAddresses is the list of addresses the device may be switched to.
	ICAOAddresses []uint32 `json:"icaoAddressList"`

	// Options is the device option bitmask.
	Options uint32 `json:"options"`

	// Version is the firmware version, -1 when not reported.
	Version int64 `json:"version"`

	// PinCode is the pairing pin, -1 when not reported.
	PinCode int64 `json:"pinCode"`
}

// HasAddress reports whether addr is in the configured address list.
func (c FleetConfig) HasAddress(addr uint32) bool {
	for _, a := range c.ICAOAddresses {
		if a == addr {
			return true
		}
	}
	return false
}
