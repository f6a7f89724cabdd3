package geology

import (
	"math"
	"testing"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/world"
)

// strip builds a one-row grid with the given elevations. Tiles below 0.25
// start as water, the rest as grass.
func strip(t *testing.T, elevs ...float64) *world.Grid {
	t.Helper()
	tiles := make([]world.Tile, len(elevs))
	for i, e := range elevs {
		tiles[i] = world.Tile{Terrain: world.TerrainGrass, Elevation: e}
		if e < 0.25 {
			tiles[i].Terrain = world.TerrainWater
		}
	}
	g, err := world.Restore(config.SmallTest().World, 1, len(elevs), 1, tiles, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestFloodConvertsAndReportsCasualties(t *testing.T) {
	g := strip(t, 0.05, 0.2, 0.28, 0.29, 0.32, 0.6)
	home, err := g.PlaceStructure(world.KindResidential, world.SpecialNone, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	home.Occupants = 7
	if _, err := g.PlaceStructure(world.KindWell, world.SpecialNone, 3, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.SetRoad(4, 0, true); err != nil {
		t.Fatal(err)
	}

	rep := Flood(g, 0.30, 0.10, 0.50)
	if len(rep.Converted) != 2 {
		t.Fatalf("converted %v", rep.Converted)
	}
	if rep.Casualties != 7 || rep.WellsLost != 1 || rep.StructuresLost != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if c := g.Counts(); c.Wells != 0 || c.Residential != 0 {
		t.Fatalf("structures survived: %+v", c)
	}
	if tile := g.TileAt(2, 0); tile.Terrain != world.TerrainWater || !tile.Flooded || tile.Structure != 0 {
		t.Fatalf("tile not drowned: %+v", tile)
	}
	if g.TileAt(0, 0).Flooded || g.TileAt(4, 0).Terrain != world.TerrainGrass || !g.TileAt(4, 0).Road {
		t.Fatal("tiles outside the band or above sea changed")
	}
}

func TestFloodIdempotent(t *testing.T) {
	g := strip(t, 0.15, 0.22, 0.28, 0.31, 0.45)
	first := Flood(g, 0.30, 0.10, 0.50)
	if len(first.Converted) == 0 {
		t.Fatal("first pass converted nothing")
	}
	second := Flood(g, 0.30, 0.10, 0.50)
	if second.Changed() || second.Casualties != 0 {
		t.Fatalf("second pass changed: %+v", second)
	}
}

func TestFloodExclusionBoundsStrict(t *testing.T) {
	g := strip(t, 0.30, 0.30, 0.60)
	rep := Flood(g, 0.70, 0.30, 0.60)
	if len(rep.Converted) != 0 {
		t.Fatalf("tiles on the exclusion bounds flooded: %v", rep.Converted)
	}
}

func TestRecedeOnlyRevertsFloodedTiles(t *testing.T) {
	g := strip(t, 0.2, 0.28, 0.4)
	Flood(g, 0.30, 0.10, 0.50)
	rep := Flood(g, 0.25, 0.10, 0.50)
	if len(rep.Receded) != 1 || rep.Receded[0] != (world.Point{X: 1, Y: 0}) {
		t.Fatalf("receded = %v", rep.Receded)
	}
	if g.TileAt(1, 0).Terrain != world.TerrainSand || g.TileAt(1, 0).Flooded {
		t.Fatal("receded tile should be dry sand")
	}
	if g.TileAt(0, 0).Terrain != world.TerrainWater {
		t.Fatal("natural water must stay water")
	}
}

func TestAdvanceYearSchedule(t *testing.T) {
	cfg := config.GeologyConfig{
		YearsPerCentury: 2,
		SeaLevelStep:    0.05,
		FloodMin:        0.10,
		FloodMax:        0.50,
		Periods: []config.Period{
			{Name: "Low", SeaLevel: 0.30, Centuries: 1},
			{Name: "High", SeaLevel: 0.40, Centuries: 1},
		},
	}
	g := strip(t, 0.2, 0.33, 0.38, 0.45)
	c := New(cfg, 0.30)

	if rep := c.AdvanceYear(g); rep.PeriodChanged || c.State.SeaLevel != 0.30 {
		t.Fatalf("year 1: %+v sea=%f", rep, c.State.SeaLevel)
	}
	rep := c.AdvanceYear(g)
	if !rep.PeriodChanged || rep.Period != "High" {
		t.Fatalf("year 2 should rotate to High: %+v", rep)
	}
	if math.Abs(c.State.SeaLevel-0.35) > 1e-9 {
		t.Fatalf("sea level jumped to %f", c.State.SeaLevel)
	}
	if len(rep.Converted) != 1 {
		t.Fatalf("year 2 converted %v", rep.Converted)
	}
	c.AdvanceYear(g)
	if math.Abs(c.State.SeaLevel-0.40) > 1e-9 || c.State.TotalFlooded != 2 {
		t.Fatalf("year 3: sea=%f flooded=%d", c.State.SeaLevel, c.State.TotalFlooded)
	}
	rep = c.AdvanceYear(g)
	if !rep.PeriodChanged || c.State.Period != 0 {
		t.Fatal("schedule should wrap back to the first period")
	}
	if math.Abs(c.State.SeaLevel-0.35) > 1e-9 || len(rep.Receded) != 1 {
		t.Fatalf("year 4: sea=%f receded=%v", c.State.SeaLevel, rep.Receded)
	}
}

func TestStepTowardNeverOvershoots(t *testing.T) {
	if got := stepToward(0.30, 0.32, 0.05); got != 0.32 {
		t.Fatalf("got %f", got)
	}
	if got := stepToward(0.30, 0.10, 0.05); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("got %f", got)
	}
}
