package economy

import (
	"log/slog"
	"math"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/world"
)

// TurnReport summarizes one resolved turn.
type TurnReport struct {
	Year       int     `json:"year"`
	FoodMade   float64 `json:"food_made"`
	WoodMade   float64 `json:"wood_made"`
	StoneMade  float64 `json:"stone_made"`
	WoodUsed   float64 `json:"wood_used"`
	FoodEaten  float64 `json:"food_eaten"`
	Thirst     int     `json:"thirst_deaths"`
	Starvation int     `json:"starvation_deaths"`
	Exposure   int     `json:"exposure_deaths"`
	Births     int     `json:"births"`
	Boom       int     `json:"boom"`
	Homeless   int     `json:"homeless"`
	GameOver   bool    `json:"game_over"`
	Cause      Cause   `json:"cause"`
}

// Deaths is the sum of all death pathways this turn.
func (r TurnReport) Deaths() int { return r.Thirst + r.Starvation + r.Exposure }

// Simulator applies the turn rules.
type Simulator struct {
	cfg      config.EconomyConfig
	specials map[world.SpecialKind]config.SpecialConfig
}

// NewSimulator indexes the special-structure table.
func NewSimulator(cfg config.EconomyConfig, specials []config.SpecialConfig) *Simulator {
	s := &Simulator{cfg: cfg, specials: make(map[world.SpecialKind]config.SpecialConfig, len(specials))}
	for _, sc := range specials {
		if k, ok := world.ParseSpecial(sc.Name); ok {
			s.specials[k] = sc
		}
	}
	return s
}

// Special returns the configuration for special kind k.
func (s *Simulator) Special(k world.SpecialKind) (config.SpecialConfig, bool) {
	sc, ok := s.specials[k]
	return sc, ok
}

// Capacities recomputes the derived capacities from structure counts.
func (s *Simulator) Capacities(l *Ledger, counts world.StructureCounts) {
	l.WaterCapacity = counts.Wells * s.cfg.WellCapacity
	l.HousingCapacity = counts.Residential * s.cfg.HousingPerResidential
	l.FoodStorage = s.cfg.BaseFoodStorage
	for k, sc := range s.specials {
		l.FoodStorage += float64(counts.SpecialCount(k)) * sc.Storage
	}
}

// ResolveTurn advances l by one year. Every death pathway is measured
// against the start-of-turn population and the results are summed.
func (s *Simulator) ResolveTurn(l *Ledger, counts world.StructureCounts) TurnReport {
	cfg := s.cfg
	l.Year++
	rep := TurnReport{Year: l.Year}
	start := l.Population
	s.Capacities(l, counts)

	// Workforce: wells first, then roads, the rest gather.
	wellSlots := counts.Wells * cfg.WellWorkers
	wf := Workforce{WellWorkers: min(start, wellSlots)}
	wf.RoadWorkers = min(start-wf.WellWorkers, int(math.Ceil(float64(counts.Roads)*cfg.RoadWorkersPerRoad)))
	wf.Gatherers = start - wf.WellWorkers - wf.RoadWorkers
	l.Workforce = wf
	l.WellEfficiency = 0
	if wellSlots > 0 {
		l.WellEfficiency = float64(wf.WellWorkers) / float64(wellSlots)
	}

	// Production.
	bonus := 1.0
	if counts.Has(world.SpecialChief) {
		bonus += cfg.ChiefBonus
	}
	g := float64(wf.Gatherers)
	rep.FoodMade = g*cfg.GathererFoodRate*bonus + float64(counts.Industrial)*cfg.IndustrialFood
	rep.WoodMade = g * cfg.GathererWoodRate * bonus
	rep.StoneMade = g * cfg.GathererStoneRate * bonus
	l.Food = min(l.Food+rep.FoodMade, l.FoodStorage)
	l.Wood += rep.WoodMade
	l.Stone += rep.StoneMade

	// Water.
	if counts.Wells == 0 {
		l.TurnsWithoutWater++
	} else {
		l.TurnsWithoutWater = 0
	}
	if l.TurnsWithoutWater >= cfg.WaterGraceTurns {
		rep.Thirst = start
	} else if excess := start - l.WaterCapacity; excess > 0 {
		rep.Thirst = ceilDeaths(excess, cfg.ThirstDeathRate)
	}

	// Upkeep.
	rep.WoodUsed = min(l.Wood, float64(counts.Residential)*cfg.WoodUpkeep)
	l.Wood -= rep.WoodUsed

	// Food.
	rep.FoodEaten = float64(start) * cfg.FoodPerPerson
	l.Food -= rep.FoodEaten
	if l.Food < 0 {
		shortfall := -l.Food
		l.Food = 0
		l.StarvingTurns++
		if l.StarvingTurns >= cfg.CollapseTurns {
			rep.Starvation = start
		} else {
			rep.Starvation = min(ceilDeaths(int(math.Ceil(shortfall)), cfg.StarvationRate), max(0, start-cfg.StarvationFloor))
		}
	} else {
		l.StarvingTurns = 0
	}

	// Housing.
	if homeless := start - l.HousingCapacity; homeless > 0 {
		rep.Homeless = homeless
		rep.Exposure = ceilDeaths(homeless, cfg.ExposureRate)
	}

	l.Population = max(0, start-rep.Deaths())
	if l.Population == 0 && start > 0 {
		rep.GameOver = true
		rep.Cause = dominantCause(rep)
		slog.Warn("colony lost", "year", l.Year, "cause", rep.Cause.String(),
			"thirst", rep.Thirst, "starvation", rep.Starvation, "exposure", rep.Exposure)
		return rep
	}

	// Growth.
	spare := l.HousingCapacity - l.Population
	if spare > 0 && l.Food >= float64(l.Population)*cfg.FoodPerPerson*cfg.FoodBufferTurns {
		rep.Births = min(int(math.Ceil(float64(l.Population)*cfg.GrowthRate)), spare)
		spare -= rep.Births
	}
	if cfg.BoomEveryYears > 0 && l.Year%cfg.BoomEveryYears == 0 && spare > 0 {
		rep.Boom = min(cfg.BoomAmount, spare)
	}
	l.Population += rep.Births + rep.Boom

	slog.Debug("turn resolved", "year", l.Year, "population", l.Population,
		"deaths", rep.Deaths(), "births", rep.Births+rep.Boom, "food", l.Food)
	return rep
}

// ceilDeaths is ceil(n × rate) with float noise trimmed so exact products
// such as 10 × 0.1 do not round up to the next person.
func ceilDeaths(n int, rate float64) int {
	return int(math.Ceil(float64(n)*rate - 1e-9))
}

func dominantCause(r TurnReport) Cause {
	switch {
	case r.Thirst == 0 && r.Starvation == 0 && r.Exposure == 0:
		return CauseUnknown
	case r.Thirst >= r.Starvation && r.Thirst >= r.Exposure:
		return CauseThirst
	case r.Starvation >= r.Exposure:
		return CauseStarvation
	default:
		return CauseExposure
	}
}
