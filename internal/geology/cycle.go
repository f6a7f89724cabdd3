// Package geology moves the sea level through a fixed schedule of periods
// and floods or drains low tiles as it changes.
package geology

import (
	"log/slog"
	"math"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/world"
)

// State is the persisted geology position.
type State struct {
	SeaLevel     float64 `json:"sea_level"`
	Period       int     `json:"period"`
	Centuries    int     `json:"centuries"` // elapsed in the current period
	Years        int     `json:"years"`     // toward the next century
	TotalFlooded int     `json:"total_flooded"`
}

// Report describes what one update changed.
type Report struct {
	Converted      []world.Point // tiles turned to water
	Receded        []world.Point // flooded tiles given back as land
	StructuresLost int
	WellsLost      int
	Casualties     int // occupants of drowned residential structures
	PeriodChanged  bool
	Period         string
}

// Changed reports whether any tile or structure was affected.
func (r Report) Changed() bool {
	return len(r.Converted) > 0 || len(r.Receded) > 0 || r.StructuresLost > 0
}

// Cycle owns the geology state and schedule.
type Cycle struct {
	cfg   config.GeologyConfig
	State State
}

// New starts at the first period with the given sea level.
func New(cfg config.GeologyConfig, seaLevel float64) *Cycle {
	return &Cycle{cfg: cfg, State: State{SeaLevel: seaLevel}}
}

// Restore resumes from a saved state.
func Restore(cfg config.GeologyConfig, st State) *Cycle {
	if len(cfg.Periods) > 0 {
		st.Period %= len(cfg.Periods)
	}
	return &Cycle{cfg: cfg, State: st}
}

// Period returns the active period.
func (c *Cycle) Period() config.Period {
	if len(c.cfg.Periods) == 0 {
		return config.Period{Name: "static", SeaLevel: c.State.SeaLevel, Centuries: 1}
	}
	return c.cfg.Periods[c.State.Period]
}

// AdvanceYear moves the schedule forward one in-game year, steps the sea
// level toward the active target, and floods or drains g when it moved.
func (c *Cycle) AdvanceYear(g *world.Grid) Report {
	var rep Report
	st := &c.State

	st.Years++
	if st.Years >= max(c.cfg.YearsPerCentury, 1) {
		st.Years = 0
		st.Centuries++
		if st.Centuries >= c.Period().Centuries && len(c.cfg.Periods) > 0 {
			st.Centuries = 0
			st.Period = (st.Period + 1) % len(c.cfg.Periods)
			rep.PeriodChanged = true
			slog.Info("geological period began",
				"period", c.Period().Name,
				"target_sea_level", c.Period().SeaLevel,
			)
		}
	}
	rep.Period = c.Period().Name

	next := stepToward(st.SeaLevel, c.Period().SeaLevel, c.cfg.SeaLevelStep)
	if next == st.SeaLevel {
		return rep
	}
	st.SeaLevel = next

	flood := Flood(g, st.SeaLevel, c.cfg.FloodMin, c.cfg.FloodMax)
	flood.PeriodChanged, flood.Period = rep.PeriodChanged, rep.Period
	st.TotalFlooded += len(flood.Converted)
	if flood.Changed() {
		slog.Info("sea level shift",
			"sea_level", st.SeaLevel,
			"flooded", len(flood.Converted),
			"receded", len(flood.Receded),
			"structures_lost", flood.StructuresLost,
			"casualties", flood.Casualties,
		)
	}
	return flood
}

// stepToward moves cur toward target by at most step.
func stepToward(cur, target, step float64) float64 {
	if step <= 0 {
		return cur
	}
	d := target - cur
	if math.Abs(d) <= step {
		return target
	}
	return cur + math.Copysign(step, d)
}

// Flood converts every non-water tile with lo < elevation < hi that sits
// below sea to water, and returns tiles it flooded earlier that are now at
// or above sea to land. Re-running at the same sea level changes nothing.
func Flood(g *world.Grid, sea, lo, hi float64) Report {
	var rep Report
	g.ForEach(g.Bounds(), func(x, y int, t *world.Tile) {
		if t.Elevation <= lo || t.Elevation >= hi {
			return
		}
		switch {
		case t.Elevation < sea && !t.Terrain.IsWater():
			drown(g, x, y, t, &rep)
		case t.Flooded && t.Elevation >= sea:
			t.Terrain = world.TerrainSand
			t.Flooded = false
			rep.Receded = append(rep.Receded, world.Point{X: x, Y: y})
		}
	})
	if len(rep.Converted) > 0 || len(rep.Receded) > 0 {
		g.Touch()
	}
	return rep
}

func drown(g *world.Grid, x, y int, t *world.Tile, rep *Report) {
	if t.Structure != 0 {
		if s := g.RemoveStructure(t.Structure); s != nil {
			rep.StructuresLost++
			switch s.Kind {
			case world.KindResidential:
				rep.Casualties += s.Occupants
			case world.KindWell:
				rep.WellsLost++
			case world.KindCommercial, world.KindIndustrial, world.KindSpecial, world.KindRoad:
			}
		}
	}
	if t.Road {
		_ = g.SetRoad(x, y, false)
	}
	t.Terrain = world.TerrainWater
	t.Flooded = true
	t.Tree = false
	t.Berry = nil
	t.Deposit = 0
	rep.Converted = append(rep.Converted, world.Point{X: x, Y: y})
}
