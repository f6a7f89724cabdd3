package world

// StructureID identifies a placed structure. Zero means none.
type StructureID uint32

// StructureKind is the closed set of buildable things.
type StructureKind uint8

const (
	KindWell StructureKind = iota
	KindResidential
	KindCommercial
	KindIndustrial
	KindRoad // a tile flag, never a registry entry
	KindSpecial
)

// Kinds lists every StructureKind in declaration order.
var Kinds = []StructureKind{KindWell, KindResidential, KindCommercial, KindIndustrial, KindRoad, KindSpecial}

func (k StructureKind) String() string {
	switch k {
	case KindWell:
		return "well"
	case KindResidential:
		return "residential"
	case KindCommercial:
		return "commercial"
	case KindIndustrial:
		return "industrial"
	case KindRoad:
		return "road"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// ParseKind maps a name back to its kind.
func ParseKind(s string) (StructureKind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// SpecialKind distinguishes special structures.
type SpecialKind uint8

const (
	SpecialNone SpecialKind = iota
	SpecialChief
	SpecialBasket
	SpecialPottery
	SpecialGranary
	SpecialPalace
	numSpecials
)

func (s SpecialKind) String() string {
	switch s {
	case SpecialNone:
		return ""
	case SpecialChief:
		return "chief"
	case SpecialBasket:
		return "basket"
	case SpecialPottery:
		return "pottery"
	case SpecialGranary:
		return "granary"
	case SpecialPalace:
		return "palace"
	default:
		return "unknown"
	}
}

// ParseSpecial maps a name back to its special kind.
func ParseSpecial(s string) (SpecialKind, bool) {
	for k := SpecialChief; k < numSpecials; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return SpecialNone, false
}

// Structure is a building on one tile.
type Structure struct {
	ID           StructureID   `json:"id"`
	Kind         StructureKind `json:"kind"`
	Special      SpecialKind   `json:"special,omitempty"`
	Pos          Point         `json:"pos"`
	Level        int           `json:"level"`     // variant 0–3, desirability driven
	Occupants    int           `json:"occupants"` // residents, or staff for wells
	Capacity     int           `json:"capacity"`
	Efficiency   float64       `json:"efficiency"`
	Desirability float64       `json:"desirability"`
	YearsEmpty   int           `json:"years_empty"`
}

// StructureCounts summarizes the registry for the economy.
type StructureCounts struct {
	Wells       int
	Residential int
	Commercial  int
	Industrial  int
	Roads       int
	Specials    [numSpecials]int
}

// Has reports whether at least one special of kind s exists.
func (c StructureCounts) Has(s SpecialKind) bool {
	return s > SpecialNone && s < numSpecials && c.Specials[s] > 0
}

// SpecialCount returns the number of specials of kind s.
func (c StructureCounts) SpecialCount(s SpecialKind) int {
	if s <= SpecialNone || s >= numSpecials {
		return 0
	}
	return c.Specials[s]
}
