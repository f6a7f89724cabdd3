package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/persistence/snapshot"
	"github.com/talgya/civilzones/internal/world"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	s, err := New(config.SmallTest())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// flatten turns the whole map into open grass with no entities, so
// movement tests do not depend on generated terrain.
func flatten(s *Simulation) {
	s.grid.ForEach(s.grid.Bounds(), func(_, _ int, t *world.Tile) {
		t.Terrain = world.TerrainGrass
		t.Tree = false
		t.Berry = nil
		t.Deposit = 0
	})
	s.creatures.Each(func(id int, _ *agents.Creature) { s.env.RemoveCreature(id) })
	s.nomads.Each(func(id int, _ *agents.Nomad) { s.env.RemoveNomad(id) })
}

func settled(t *testing.T) *Simulation {
	t.Helper()
	s := newTestSim(t)
	flatten(s)
	s.player.Pouch.Food = 500
	s.player.Pouch.Wood = 100
	if err := s.Settle(); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	return s
}

func TestNewPlacesPlayerOnExploredLand(t *testing.T) {
	s := newTestSim(t)
	p := s.player.Pos
	if !s.grid.Passable(p.X, p.Y) {
		t.Fatalf("player on impassable tile %v", p)
	}
	if !s.grid.TileAt(p.X, p.Y).Explored {
		t.Fatal("start tile not explored")
	}
	if s.creatures.Len() == 0 || s.nomads.Len() == 0 {
		t.Fatalf("creatures = %d nomads = %d", s.creatures.Len(), s.nomads.Len())
	}
	if s.Phase() != PhaseWander {
		t.Fatalf("phase = %v", s.Phase())
	}
}

func TestMovePlayerRejectsWithoutMutation(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	start := s.player.Pos
	s.grid.TileAt(start.X+1, start.Y).Terrain = world.TerrainWater

	cases := []struct{ dx, dy int }{{2, 0}, {0, 0}, {1, 0}}
	for _, c := range cases {
		if err := s.MovePlayer(c.dx, c.dy); !errors.Is(err, ErrRejected) {
			t.Fatalf("move %d,%d: err = %v", c.dx, c.dy, err)
		}
		if s.player.Pos != start || s.player.FoodSteps != 0 {
			t.Fatalf("move %d,%d mutated player: %+v", c.dx, c.dy, s.player)
		}
	}
	if err := s.MovePlayer(0, 1); err != nil {
		t.Fatal(err)
	}
	if s.player.Pos != start.Add(0, 1) || s.player.Facing != agents.FacingDown {
		t.Fatalf("player = %+v", s.player)
	}
}

func TestMoveNearEdgeExpandsEast(t *testing.T) {
	s := newTestSim(t)
	before := s.grid.Tiles()
	w0, h0 := s.grid.Width(), s.grid.Height()

	s.player.Pos = world.Point{X: 54, Y: 30}
	s.grid.TileAt(55, 30).Terrain = world.TerrainGrass
	if err := s.MovePlayer(1, 0); err != nil {
		t.Fatal(err)
	}
	if s.grid.Width() != w0+32 || s.grid.Height() != h0 {
		t.Fatalf("size = %dx%d", s.grid.Width(), s.grid.Height())
	}
	for y := 0; y < h0; y++ {
		for x := 0; x < w0; x++ {
			got, want := s.grid.TileAt(x, y), before[y*w0+x]
			if x == 55 && y == 30 {
				continue
			}
			if got.Terrain != want.Terrain || got.Elevation != want.Elevation {
				t.Fatalf("tile %d,%d changed", x, y)
			}
		}
	}
	for y := 0; y < h0; y++ {
		for x := w0; x < s.grid.Width(); x++ {
			if s.grid.TileAt(x, y).Explored {
				t.Fatalf("new tile %d,%d explored", x, y)
			}
		}
	}
	found := false
	s.creatures.Each(func(_ int, c *agents.Creature) {
		if c.Pos.X >= w0 {
			found = true
		}
	})
	if !found {
		t.Fatal("expansion region has no creatures")
	}
}

func TestMovePlayerToWalksPath(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	start := s.player.Pos
	goal := start.Add(4, 0)
	if err := s.MovePlayerTo(goal.X, goal.Y); err != nil {
		t.Fatal(err)
	}
	for range 4 {
		s.Step()
	}
	if s.player.Pos != goal || len(s.player.Path) != 0 {
		t.Fatalf("player at %v path %v", s.player.Pos, s.player.Path)
	}

	s.grid.TileAt(goal.X+3, goal.Y).Terrain = world.TerrainWater
	if err := s.MovePlayerTo(goal.X+3, goal.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v", err)
	}
}

func TestWanderStarvationEndsGame(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	s.player.Pouch.Food = 1
	s.player.FoodSteps = s.cfg.Player.StepsPerFood - 1
	if err := s.MovePlayer(0, 1); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseGameOver || s.Cause() != economy.CauseStarvation {
		t.Fatalf("phase = %v cause = %v", s.Phase(), s.Cause())
	}
	tick := s.Tick()
	s.Step()
	if s.Tick() != tick {
		t.Fatal("ticking continued after game over")
	}
}

func TestSettleRequirements(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	if err := s.Settle(); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v", err)
	}
	if s.Phase() != PhaseWander || len(s.grid.Structures()) != 0 {
		t.Fatal("rejected settle mutated state")
	}
	s.player.Pouch.Food = 500
	s.player.Pouch.Wood = 100
	if err := s.Settle(); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseCity || s.ledger.Population != 3 || s.ledger.Food != 500 {
		t.Fatalf("phase = %v ledger = %+v", s.Phase(), s.ledger)
	}
	if st := s.grid.StructureAt(s.player.Pos.X, s.player.Pos.Y); st == nil || st.Kind != world.KindResidential {
		t.Fatalf("no starting residence: %+v", st)
	}
	if err := s.MovePlayer(1, 0); !errors.Is(err, ErrRejected) {
		t.Fatalf("move after settle: %v", err)
	}
}

func TestBuildRejectsUnaffordable(t *testing.T) {
	s := settled(t)
	at := s.player.Pos.Add(2, 0)
	before := s.ledger

	if err := s.Build(world.KindWell, world.SpecialNone, at.X, at.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v", err)
	}
	if s.ledger != before || s.grid.StructureAt(at.X, at.Y) != nil {
		t.Fatal("rejected build mutated state")
	}

	s.ledger.Wood, s.ledger.Stone = 300, 10
	if err := s.Build(world.KindWell, world.SpecialNone, at.X, at.Y); err != nil {
		t.Fatal(err)
	}
	if s.ledger.WaterCapacity != 100 || s.grid.Counts().Wells != 1 {
		t.Fatalf("water capacity = %d", s.ledger.WaterCapacity)
	}
	if err := s.Build(world.KindResidential, world.SpecialNone, at.X, at.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("build on occupied tile: %v", err)
	}
	if err := s.Build(world.KindSpecial, world.SpecialChief, at.X+1, at.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("chief with pop 3: %v", err)
	}

	if err := s.Demolish(at.X, at.Y); err != nil {
		t.Fatal(err)
	}
	if s.ledger.WaterCapacity != 0 {
		t.Fatalf("water capacity after demolish = %d", s.ledger.WaterCapacity)
	}
}

func TestBuildRoad(t *testing.T) {
	s := settled(t)
	at := s.player.Pos.Add(0, 3)
	wood := s.ledger.Wood
	if err := s.Build(world.KindRoad, world.SpecialNone, at.X, at.Y); err != nil {
		t.Fatal(err)
	}
	if !s.grid.TileAt(at.X, at.Y).Road || s.ledger.Wood != wood-5 {
		t.Fatalf("road = %v wood = %v", s.grid.TileAt(at.X, at.Y).Road, s.ledger.Wood)
	}
	if err := s.Build(world.KindRoad, world.SpecialNone, at.X, at.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("second road: %v", err)
	}
}

func TestThirstGameOverWithoutWells(t *testing.T) {
	s := settled(t)
	var rep economy.TurnReport
	for range s.cfg.Economy.WaterGraceTurns {
		var err error
		if rep, err = s.AdvanceTurn(); err != nil {
			t.Fatal(err)
		}
		if s.ledger.WaterCapacity != 0 {
			t.Fatalf("water capacity = %d", s.ledger.WaterCapacity)
		}
	}
	if !rep.GameOver || s.Phase() != PhaseGameOver || s.Cause() != economy.CauseThirst {
		t.Fatalf("report = %+v phase = %v cause = %v", rep, s.Phase(), s.Cause())
	}
	if _, err := s.AdvanceTurn(); !errors.Is(err, ErrRejected) {
		t.Fatalf("turn after game over: %v", err)
	}
}

func TestEncounterLossesDifferByPhase(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	s.player.Population = 20
	id := s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: s.player.Pos}})
	s.resolveEncounters([]agents.Encounter{{Kind: agents.EncounterCreature, ID: id, Pack: true}})
	if s.player.Population != 17 {
		t.Fatalf("wander pack loss: pop = %d, want 17", s.player.Population)
	}

	s = settled(t)
	s.ledger.Population = 50
	id = s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: s.player.Pos}})
	s.resolveEncounters([]agents.Encounter{{Kind: agents.EncounterCreature, ID: id, Pack: true}})
	if s.ledger.Population != 40 {
		t.Fatalf("city pack loss: pop = %d, want 40", s.ledger.Population)
	}
	s.resolveEncounters([]agents.Encounter{{Kind: agents.EncounterCreature, ID: id}})
	if s.ledger.Population != 39 {
		t.Fatalf("lone loss: pop = %d, want 39", s.ledger.Population)
	}
}

func TestNomadEncounters(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	p := s.player
	capBefore := p.Pouch.Capacity

	friend := s.env.AddNomad(agents.Nomad{Motion: agents.Motion{Pos: p.Pos}, Loot: agents.Loot{Food: 10}})
	s.resolveEncounters([]agents.Encounter{{Kind: agents.EncounterNomad, ID: friend}})
	if p.Population != 4 || p.Pouch.Capacity != capBefore+s.cfg.Nomads.CapacityBonus+s.cfg.Player.BackpackPerPop {
		t.Fatalf("after friend: pop = %d capacity = %v", p.Population, p.Pouch.Capacity)
	}
	if s.nomads.Get(friend) != nil {
		t.Fatal("friendly nomad not removed")
	}

	foe := s.env.AddNomad(agents.Nomad{Motion: agents.Motion{Pos: p.Pos}, Hostile: true, Damage: 4})
	s.resolveEncounters([]agents.Encounter{{Kind: agents.EncounterNomad, ID: foe}})
	if s.Phase() != PhaseGameOver || s.Cause() != economy.CauseCombat {
		t.Fatalf("phase = %v cause = %v", s.Phase(), s.Cause())
	}
}

func TestHuntAndMine(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	p := s.player
	food := p.Pouch.Food

	prey := p.Pos.Add(1, 0)
	s.env.AddCreature(agents.Creature{Kind: agents.Bison, Motion: agents.Motion{Pos: prey}, HitsLeft: 2, Food: 20})
	if err := s.Hunt(prey.X, prey.Y); err != nil {
		t.Fatal(err)
	}
	if err := s.Hunt(prey.X, prey.Y); err != nil {
		t.Fatal(err)
	}
	if p.Pouch.Food != food+20 || s.creatures.Len() != 0 {
		t.Fatalf("food = %v creatures = %d", p.Pouch.Food, s.creatures.Len())
	}
	if err := s.Hunt(p.Pos.X+3, p.Pos.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("hunt out of reach: %v", err)
	}

	rock := p.Pos.Add(0, -1)
	tile := s.grid.TileAt(rock.X, rock.Y)
	tile.Terrain, tile.Deposit = world.TerrainStone, 7
	if err := s.Mine(rock.X, rock.Y); err != nil {
		t.Fatal(err)
	}
	if err := s.Mine(rock.X, rock.Y); err != nil {
		t.Fatal(err)
	}
	if p.Pouch.Stone != 7 || tile.Deposit != 0 || tile.Terrain != world.TerrainRock {
		t.Fatalf("stone = %v deposit = %d terrain = %v", p.Pouch.Stone, tile.Deposit, tile.Terrain)
	}
	if err := s.Mine(rock.X, rock.Y); !errors.Is(err, ErrRejected) {
		t.Fatalf("mine spent deposit: %v", err)
	}
}

func TestEvolutionLevels(t *testing.T) {
	s := settled(t)
	home := s.player.Pos
	s.grid.TileAt(home.X+1, home.Y).Terrain = world.TerrainWater
	s.ledger.Wood, s.ledger.Stone = 1000, 100
	if err := s.Build(world.KindWell, world.SpecialNone, home.X-1, home.Y); err != nil {
		t.Fatal(err)
	}
	s.evolve()
	st := s.grid.StructureAt(home.X, home.Y)
	if st.Desirability < 0.7 || st.Level != 3 {
		t.Fatalf("desirability = %v level = %d", st.Desirability, st.Level)
	}
	if st.Occupants != 3 {
		t.Fatalf("occupants = %d", st.Occupants)
	}
	if levelFor(0.05) != 0 || levelFor(0.2) != 1 || levelFor(0.5) != 2 {
		t.Fatal("level thresholds")
	}
}

func TestViewHidesUnexploredEntities(t *testing.T) {
	s := newTestSim(t)
	flatten(s)
	p := s.player.Pos
	near := s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: p.Add(1, 0)}})
	far := world.Point{X: 2, Y: 2}
	if s.grid.TileAt(far.X, far.Y).Explored {
		t.Skip("corner explored at start")
	}
	s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: far}})

	v := s.View(s.grid.Bounds())
	if len(v.Tiles) != s.grid.Width()*s.grid.Height() {
		t.Fatalf("tiles = %d", len(v.Tiles))
	}
	if len(v.Creatures) != 1 || v.Creatures[0].ID != near {
		t.Fatalf("creatures = %+v", v.Creatures)
	}

	v = s.View(world.Rect{X: -10, Y: -10, W: 20, H: 20})
	if v.Rect != (world.Rect{X: 0, Y: 0, W: 10, H: 10}) || len(v.Tiles) != 100 {
		t.Fatalf("clipped rect = %v tiles = %d", v.Rect, len(v.Tiles))
	}
	for _, tv := range v.Tiles {
		if !tv.Explored && tv.Terrain != "" {
			t.Fatalf("unexplored tile leaks terrain: %+v", tv)
		}
	}
}

func TestSnapshotRoundTripResumesExactly(t *testing.T) {
	a := newTestSim(t)
	for range 40 {
		a.Step()
	}
	snap, err := a.ExportSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := snapshot.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := snapshot.Unmarshal(blob)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Restore(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if a.Stats() != b.Stats() {
		t.Fatalf("stats differ:\n%+v\n%+v", a.Stats(), b.Stats())
	}
	for range 60 {
		a.Step()
		b.Step()
	}
	va, vb := a.View(a.grid.Bounds()), b.View(b.grid.Bounds())
	if !reflect.DeepEqual(va, vb) {
		t.Fatal("restored simulation diverged")
	}
}

func TestClockDropsRemainder(t *testing.T) {
	c := Clock{Interval: 100 * time.Millisecond}
	if c.Advance(60 * time.Millisecond) {
		t.Fatal("stepped early")
	}
	if !c.Advance(60 * time.Millisecond) {
		t.Fatal("no step after a full interval")
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %v", c.Pending())
	}
	if !c.Advance(350 * time.Millisecond) {
		t.Fatal("no step after a long frame")
	}
	if c.Advance(0) {
		t.Fatal("long frame produced a second step")
	}
}

func TestRenderGuard(t *testing.T) {
	var g RenderGuard
	if !g.TryBegin() {
		t.Fatal("first begin failed")
	}
	if g.TryBegin() {
		t.Fatal("second begin succeeded while busy")
	}
	g.End()
	if !g.TryBegin() {
		t.Fatal("begin after end failed")
	}
}

func TestEngineFrameAndAutosave(t *testing.T) {
	s := newTestSim(t)
	cfg := s.cfg.Clock
	cfg.AutosaveTicks = 2
	e := NewEngine(s, cfg)

	var ticks, saves int
	e.OnTick = func(uint64) { ticks++ }
	e.OnAutosave = func(uint64) { saves++ }

	interval := e.Clock.Interval
	if e.Frame(interval / 2) {
		t.Fatal("half frame stepped")
	}
	for range 4 {
		e.Frame(interval)
	}
	if ticks != 4 || saves != 2 || s.Tick() != 4 {
		t.Fatalf("ticks = %d saves = %d sim tick = %d", ticks, saves, s.Tick())
	}

	e.SetSpeed(0)
	if e.Frame(interval) {
		t.Fatal("paused engine stepped")
	}
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	s := newTestSim(t)
	e := NewEngine(s, s.cfg.Clock)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if s.Tick() == 0 {
		t.Fatal("engine never stepped")
	}
	if e.Running() {
		t.Fatal("still running")
	}
}

// highland lifts every tile above the flood band so only tiles a test
// lowers can drown.
func highland(s *Simulation) {
	s.grid.ForEach(s.grid.Bounds(), func(_, _ int, t *world.Tile) { t.Elevation = 0.8 })
}

func lower(s *Simulation, pts ...world.Point) {
	for _, p := range pts {
		s.grid.TileAt(p.X, p.Y).Elevation = 0.2
	}
}

func floodNow(s *Simulation) geology.Report {
	g := s.cfg.Geology
	rep := geology.Flood(s.grid, 0.3, g.FloodMin, g.FloodMax)
	s.afterFlood(rep)
	return rep
}

func hasEvent(s *Simulation, desc string) bool {
	for _, e := range s.RecentEvents(maxEvents) {
		if e.Description == desc {
			return true
		}
	}
	return false
}

func TestFloodConsequences(t *testing.T) {
	cases := []struct {
		name  string
		city  bool
		check func(t *testing.T, s *Simulation)
	}{
		{"creatures and nomads drown", false, func(t *testing.T, s *Simulation) {
			p := s.player.Pos
			deer := p.Add(-5, -5)
			band := p.Add(5, -5)
			lower(s, deer, band)
			s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: deer}})
			s.env.AddCreature(agents.Creature{Kind: agents.Deer, Motion: agents.Motion{Pos: deer}})
			s.env.AddNomad(agents.Nomad{Motion: agents.Motion{Pos: band}})

			rep := floodNow(s)
			if len(rep.Converted) != 2 {
				t.Fatalf("converted = %v", rep.Converted)
			}
			if s.creatures.Len() != 0 || s.nomads.Len() != 0 {
				t.Fatalf("creatures = %d nomads = %d", s.creatures.Len(), s.nomads.Len())
			}
			if s.Phase() != PhaseWander {
				t.Fatalf("phase = %v", s.Phase())
			}
		}},
		{"step onto new water is abandoned", false, func(t *testing.T, s *Simulation) {
			from := s.player.Pos.Add(-6, 2)
			to := from.Add(1, 0)
			lower(s, to)
			id := s.env.AddCreature(agents.Creature{
				Kind:     agents.Mammoth,
				HitsLeft: 5,
				Motion:   agents.Motion{Pos: from, Target: to, Moving: true, Progress: 0.5},
			})
			floodNow(s)

			c := s.creatures.Get(id)
			if c == nil || c.Pos != from || c.Moving || c.Progress != 0 {
				t.Fatalf("creature = %+v", c)
			}
			for range 20 {
				s.step()
				s.creatures.Each(func(_ int, c *agents.Creature) {
					if !s.grid.Passable(c.Pos.X, c.Pos.Y) {
						t.Fatalf("creature %d on impassable %v", c.ID, c.Pos)
					}
				})
			}
		}},
		{"band drowns in a wander year", false, func(t *testing.T, s *Simulation) {
			gc := s.cfg.Geology
			gc.SeaLevelStep = 0.05
			gc.Periods = []config.Period{{Name: "Pluvial", SeaLevel: 0.40, Centuries: 1}}
			s.geology = geology.New(gc, 0.30)
			s.grid.TileAt(s.player.Pos.X, s.player.Pos.Y).Elevation = 0.32

			s.wanderYear()
			if s.Phase() != PhaseGameOver || s.Cause() != economy.CauseFlood {
				t.Fatalf("phase = %v cause = %v", s.Phase(), s.Cause())
			}
		}},
		{"lost well empties water capacity", true, func(t *testing.T, s *Simulation) {
			at := s.player.Pos.Add(0, 2)
			if _, err := s.grid.PlaceStructure(world.KindWell, world.SpecialNone, at.X, at.Y); err != nil {
				t.Fatal(err)
			}
			s.econ.Capacities(&s.ledger, s.grid.Counts())
			if s.ledger.WaterCapacity != s.cfg.Economy.WellCapacity {
				t.Fatalf("water capacity before = %d", s.ledger.WaterCapacity)
			}
			lower(s, at)

			rep := floodNow(s)
			if rep.WellsLost != 1 || s.ledger.WaterCapacity != 0 {
				t.Fatalf("wells lost = %d water capacity = %d", rep.WellsLost, s.ledger.WaterCapacity)
			}
			if !hasEvent(s, "floods took 1 wells") {
				t.Fatal("no wells event")
			}
		}},
		{"residents drown", true, func(t *testing.T, s *Simulation) {
			at := s.player.Pos.Add(2, 0)
			home, err := s.grid.PlaceStructure(world.KindResidential, world.SpecialNone, at.X, at.Y)
			if err != nil {
				t.Fatal(err)
			}
			home.Occupants = 4
			s.ledger.Population = 10
			lower(s, at)

			floodNow(s)
			if s.ledger.Population != 6 || s.Phase() == PhaseGameOver {
				t.Fatalf("population = %d phase = %v", s.ledger.Population, s.Phase())
			}
			if s.structIdx.Len() != len(s.grid.Structures()) {
				t.Fatalf("index = %d structures = %d", s.structIdx.Len(), len(s.grid.Structures()))
			}
		}},
		{"drowned city ends the game", true, func(t *testing.T, s *Simulation) {
			founding := s.player.Pos
			home := s.grid.StructureAt(founding.X, founding.Y)
			s.ledger.Population = home.Occupants
			lower(s, founding)

			floodNow(s)
			if s.ledger.Population != 0 || s.Phase() != PhaseGameOver || s.Cause() != economy.CauseFlood {
				t.Fatalf("population = %d phase = %v cause = %v", s.ledger.Population, s.Phase(), s.Cause())
			}
			if p := s.player.Pos; p == founding || !s.grid.Passable(p.X, p.Y) {
				t.Fatalf("player left at %v", p)
			}
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var s *Simulation
			if c.city {
				s = settled(t)
			} else {
				s = newTestSim(t)
				flatten(s)
			}
			highland(s)
			c.check(t, s)
		})
	}
}

func TestEventsSinceIncludesSameTickCommands(t *testing.T) {
	s := settled(t)
	s.Step()
	seen := s.EventsSince(0)
	if len(seen) == 0 {
		t.Fatal("no events after settling")
	}
	cursor := seen[len(seen)-1].Seq
	tick := s.Tick()

	at := s.player.Pos.Add(0, 3)
	if err := s.Build(world.KindRoad, world.SpecialNone, at.X, at.Y); err != nil {
		t.Fatal(err)
	}
	got := s.EventsSince(cursor)
	if len(got) != 1 || got[0].Tick != tick || got[0].Seq != cursor+1 {
		t.Fatalf("events since %d = %+v", cursor, got)
	}

	snap, err := s.ExportSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	r, err := Restore(snap)
	if err != nil {
		t.Fatal(err)
	}
	r.emit("world", "after restore")
	if last := r.EventsSince(cursor + 1); len(last) != 1 || last[0].Seq != cursor+2 {
		t.Fatalf("restored events = %+v", last)
	}
}
