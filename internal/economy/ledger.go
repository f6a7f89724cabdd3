// Package economy resolves the city-phase turn: workforce, production,
// water, upkeep, food, housing, and growth.
package economy

import "fmt"

// Cause is why the simulation ended.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseThirst
	CauseStarvation
	CauseFlood
	CauseCombat
	CauseExposure
	CauseUnknown
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseThirst:
		return "thirst"
	case CauseStarvation:
		return "starvation"
	case CauseFlood:
		return "flood"
	case CauseCombat:
		return "combat"
	case CauseExposure:
		return "exposure"
	case CauseUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("cause(%d)", uint8(c))
	}
}

// Workforce is how the population is split at the start of a turn.
type Workforce struct {
	WellWorkers int `json:"well_workers"`
	RoadWorkers int `json:"road_workers"`
	Gatherers   int `json:"gatherers"`
}

// Ledger is the settlement's resources and population.
type Ledger struct {
	Food  float64 `json:"food"`
	Wood  float64 `json:"wood"`
	Stone float64 `json:"stone"`
	Metal float64 `json:"metal"`

	Population      int     `json:"population"`
	HousingCapacity int     `json:"housing_capacity"`
	WaterCapacity   int     `json:"water_capacity"`
	FoodStorage     float64 `json:"food_storage"`

	Workforce      Workforce `json:"workforce"`
	WellEfficiency float64   `json:"well_efficiency"`

	TurnsWithoutWater int `json:"turns_without_water"`
	StarvingTurns     int `json:"starving_turns"`
	Year              int `json:"year"`
}

func (l *Ledger) String() string {
	return fmt.Sprintf("year %d pop %d food %.0f wood %.0f stone %.0f metal %.0f",
		l.Year, l.Population, l.Food, l.Wood, l.Stone, l.Metal)
}
