package adsb

import "github.com/gatasproject/gatas-server/pkg/model"

// categoryFromEmitter maps an ADS-B emitter category string ("A0"
// through "C5") to the internal aircraft category. Unknown or absent
// categories map to CategoryUnknown.
func categoryFromEmitter(cat string) model.AircraftCategory {
	switch cat {
	case "A1":
		return model.CategoryLight
	case "A2":
		return model.CategorySmall
	case "A3":
		return model.CategoryLarge
	case "A4":
		return model.CategoryHighVortexLarge
	case "A5":
		return model.CategoryHeavyICAO
	case "A6":
		return model.CategoryHighlyManeuverable
	case "A7":
		return model.CategoryRotorcraft
	case "B1":
		return model.CategoryGlider
	case "B2":
		return model.CategoryLighterThanAir
	case "B3":
		return model.CategorySkyDiver
	case "B4":
		return model.CategoryUltraLightFixedWing
	case "B6":
		return model.CategoryUnmanned
	case "B7":
		return model.CategorySpaceVehicle
	case "C1":
		return model.CategorySurfaceEmergencyVehicle
	case "C2":
		return model.CategorySurfaceVehicle
	case "C3":
		return model.CategoryPointObstacle
	case "C4":
		return model.CategoryClusterObstacle
	case "C5":
		return model.CategoryLineObstacle
	default:
		return model.CategoryUnknown
	}
}
