package engine

import (
	"log/slog"

	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/world"
)

// advanceTurn resolves the economy for one year, then geology, then lets
// buildings settle into their new occupancy and appearance.
func (s *Simulation) advanceTurn() economy.TurnReport {
	rep := s.econ.ResolveTurn(&s.ledger, s.grid.Counts())
	s.lastTurn = rep
	s.cache.invalidate()

	if d := rep.Deaths(); d > 0 {
		s.emit("economy", "year %d: %d died (thirst %d, starvation %d, exposure %d)",
			rep.Year, d, rep.Thirst, rep.Starvation, rep.Exposure)
	}
	if rep.GameOver {
		s.gameOver(rep.Cause)
		return rep
	}
	if b := rep.Births + rep.Boom; b > 0 {
		s.emit("economy", "year %d: %d born", rep.Year, b)
	}

	s.afterFlood(s.geology.AdvanceYear(s.grid))
	if s.phase == PhaseGameOver {
		return rep
	}
	s.evolve()

	slog.Info("turn resolved",
		"tick", s.tick,
		"year", s.ledger.Year,
		"population", s.ledger.Population,
		"food", int(s.ledger.Food),
		"wood", int(s.ledger.Wood),
		"sea_level", s.geology.State.SeaLevel,
	)
	return rep
}

// Desirability thresholds for residential levels 1–3. Level 0 is
// reserved for the abandoned look.
var levelThresholds = [...]float64{0.1, 0.4, 0.7}

// evolve spreads residents and well staff over buildings in ID order and
// updates residential desirability and level.
func (s *Simulation) evolve() {
	residents := s.ledger.Population
	staff := s.ledger.Workforce.WellWorkers
	perWell := s.cfg.Economy.WellWorkers

	for _, st := range s.grid.Structures() {
		switch st.Kind {
		case world.KindResidential:
			st.Occupants = min(residents, st.Capacity)
			residents -= st.Occupants
			if st.Occupants == 0 {
				st.YearsEmpty++
			} else {
				st.YearsEmpty = 0
			}
			st.Desirability = s.desirability(st.Pos)
			st.Level = levelFor(st.Desirability)
			if st.YearsEmpty >= s.cfg.Economy.AbandonedYears {
				st.Level = 0
			}
		case world.KindWell:
			st.Occupants = min(staff, perWell)
			staff -= st.Occupants
			st.Efficiency = 0
			if perWell > 0 {
				st.Efficiency = float64(st.Occupants) / float64(perWell)
			}
		case world.KindCommercial, world.KindIndustrial, world.KindSpecial, world.KindRoad:
		}
	}
	s.grid.Touch()
}

func levelFor(d float64) int {
	for i, t := range levelThresholds {
		if d < t {
			return i
		}
	}
	return len(levelThresholds)
}

// desirability scores a residential tile in [0, 1]: water, wells, and
// roads nearby help; industry nearby hurts.
func (s *Simulation) desirability(p world.Point) float64 {
	score := 0.35

	if d := s.grid.NearestTerrain(p.X, p.Y, 5, freshWater); d <= 5 {
		score += 0.30 * (1 - float64(d)/6)
	}
	if d := s.nearestStructure(p, world.KindWell, 8); d <= 8 {
		score += 0.25 * (1 - float64(d)/9)
	}
	if d := s.grid.NearestTerrain(p.X, p.Y, 2, hasRoad); d <= 2 {
		score += 0.20 * (1 - float64(d)/3)
	}
	if d := s.nearestStructure(p, world.KindIndustrial, 15); d < 15 {
		if d < 3 {
			score -= 0.20
		} else {
			score -= 0.20 * (1 - float64(d-3)/12)
		}
	}
	return min(1, max(0, score))
}

func freshWater(t *world.Tile) bool {
	return t.Terrain == world.TerrainWater || t.Terrain == world.TerrainRiver
}

func hasRoad(t *world.Tile) bool { return t.Road }

// nearestStructure returns the Manhattan distance to the closest
// structure of kind within maxDist, or maxDist+1.
func (s *Simulation) nearestStructure(p world.Point, kind world.StructureKind, maxDist int) int {
	best := maxDist + 1
	s.structIdx.QueryRadius(p.X, p.Y, maxDist, func(id world.StructureID, q world.Point) bool {
		if st := s.grid.Structure(id); st != nil && st.Kind == kind {
			best = min(best, world.Manhattan(p, q))
		}
		return best > 0
	})
	return best
}
