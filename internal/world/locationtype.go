package world

// LocationType is the category of a location.
type LocationType int

const (
	LocationTypeCity       LocationType = iota // Towns and sects, never hostile
	LocationTypeMountain                       // Peaks and immortal caves
	LocationTypeValley                         // Herb valleys, mild danger
	LocationTypeWilderness                     // Open country with roaming beasts
	LocationTypeBeastLair                      // Monster territory
)

// String returns the yaml name of the type.
func (t LocationType) String() string {
	switch t {
	case LocationTypeCity:
		return "city"
	case LocationTypeMountain:
		return "mountain"
	case LocationTypeValley:
		return "valley"
	case LocationTypeWilderness:
		return "wilderness"
	case LocationTypeBeastLair:
		return "beast_lair"
	default:
		return "unknown"
	}
}

// IsSafe reports whether fights can never start here.
func (t LocationType) IsSafe() bool {
	return t == LocationTypeCity
}

// DangerLevel rates a type from 0 (safe) to 3.
func (t LocationType) DangerLevel() int {
	switch t {
	case LocationTypeValley:
		return 1
	case LocationTypeWilderness:
		return 2
	case LocationTypeBeastLair:
		return 3
	default:
		return 0
	}
}

// EncounterChance is the probability that arriving here meets a beast.
func (t LocationType) EncounterChance() float64 {
	return float64(t.DangerLevel()) * 0.1
}

// ParseLocationType converts a yaml name to a LocationType.
func ParseLocationType(s string) (LocationType, bool) {
	switch s {
	case "city":
		return LocationTypeCity, true
	case "mountain":
		return LocationTypeMountain, true
	case "valley":
		return LocationTypeValley, true
	case "wilderness":
		return LocationTypeWilderness, true
	case "beast_lair":
		return LocationTypeBeastLair, true
	default:
		return LocationTypeCity, false
	}
}
