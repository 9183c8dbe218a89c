package model

// DataSource identifies the radio protocol or feed an aircraft position
// was originally received over.
type DataSource uint8

const (
	SourceFLARM   DataSource = 0
	SourceADSL    DataSource = 1
	SourceFANET   DataSource = 2
	SourceOGN     DataSource = 3
	SourcePAW     DataSource = 4
	SourceADSB    DataSource = 5
	SourceUnknown DataSource = 255
)

// DataSourceFromByte maps a raw wire value to a DataSource.
// Values outside the known set decode as SourceUnknown.
func DataSourceFromByte(b byte) DataSource {
	switch DataSource(b) {
	case SourceFLARM, SourceADSL, SourceFANET, SourceOGN, SourcePAW, SourceADSB:
		return DataSource(b)
	default:
		return SourceUnknown
	}
}

func (d DataSource) String() string {
	switch d {
	case SourceFLARM:
		return "FLARM"
	case SourceADSL:
		return "ADSL"
	case SourceFANET:
		return "FANET"
	case SourceOGN:
		return "OGN"
	case SourcePAW:
		return "PAW"
	case SourceADSB:
		return "ADSB"
	default:
		return "UNKNOWN"
	}
}

// AddressType describes the numbering scheme behind an aircraft identifier.
type AddressType uint8

const (
	AddrRandom   AddressType = 0
	AddrICAO     AddressType = 1
	AddrFLARM    AddressType = 2
	AddrOGN      AddressType = 3
	AddrFANET    AddressType = 4
	AddrADSL     AddressType = 5
	AddrReserved AddressType = 6
	AddrUnknown  AddressType = 7
)

// AddressTypeFromByte maps a raw wire value to an AddressType.
// Values above AddrUnknown decode as AddrUnknown.
func AddressTypeFromByte(b byte) AddressType {
	if b > byte(AddrUnknown) {
		return AddrUnknown
	}
	return AddressType(b)
}

// AircraftCategory is the emitter category reported for a contact.
// The first block follows the ADS-B emitter categories, the values from
// CategoryGyrocopter up are extensions for light aviation traffic.
type AircraftCategory uint8

const (
	CategoryUnknown                 AircraftCategory = 0
	CategoryLight                   AircraftCategory = 1
	CategorySmall                   AircraftCategory = 2
	CategoryLarge                   AircraftCategory = 3
	CategoryHighVortexLarge         AircraftCategory = 4
	CategoryHeavyICAO               AircraftCategory = 5
	CategoryHighlyManeuverable      AircraftCategory = 6
	CategoryRotorcraft              AircraftCategory = 7
	CategoryGlider                  AircraftCategory = 9
	CategoryLighterThanAir          AircraftCategory = 10
	CategorySkyDiver                AircraftCategory = 11
	CategoryUltraLightFixedWing     AircraftCategory = 12
	CategoryUnmanned                AircraftCategory = 14
	CategorySpaceVehicle            AircraftCategory = 15
	CategorySurfaceEmergencyVehicle AircraftCategory = 17
	CategorySurfaceVehicle          AircraftCategory = 18
	CategoryPointObstacle           AircraftCategory = 19
	CategoryClusterObstacle         AircraftCategory = 20
	CategoryLineObstacle            AircraftCategory = 21
	CategoryGyrocopter              AircraftCategory = 40
	CategoryHangGlider              AircraftCategory = 41
	CategoryParaGlider              AircraftCategory = 42
	CategoryDropPlane               AircraftCategory = 43
	CategoryMilitary                AircraftCategory = 44
)
