package agents

import (
	"testing"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/entropy"
	"github.com/talgya/civilzones/internal/spatial"
	"github.com/talgya/civilzones/internal/world"
)

func testEnv(t *testing.T) (*Env, config.Config) {
	t.Helper()
	cfg := config.SmallTest()
	cfg.Nomads.ScatterChance = 0
	cfg.Nomads.FlankChance = 0
	g := world.New(cfg.World, cfg.Seed)
	g.ForEach(g.Bounds(), func(_, _ int, tile *world.Tile) {
		tile.Terrain = world.TerrainGrass
	})
	return &Env{
		Grid:        g,
		Creatures:   &Pool[Creature]{},
		Nomads:      &Pool[Nomad]{},
		CreatureIdx: spatial.New[int](cfg.World.SpatialCellSize, g.Width(), g.Height()),
		NomadIdx:    spatial.New[int](cfg.World.SpatialCellSize, g.Width(), g.Height()),
		Player:      world.Point{X: 10, Y: 10},
		Rand:        entropy.New(cfg.Seed),
	}, cfg
}

func TestPoolReusesSlots(t *testing.T) {
	var p Pool[int]
	a := p.Add(1)
	b := p.Add(2)
	p.Add(3)
	if !p.Remove(b) {
		t.Fatal("remove failed")
	}
	if p.Remove(b) {
		t.Fatal("double remove succeeded")
	}
	p.Remove(a)
	if c := p.Add(4); c != a {
		t.Fatalf("reused slot = %d, want lowest %d", c, a)
	}
	if c := p.Add(5); c != b {
		t.Fatalf("reused slot = %d, want %d", c, b)
	}
	if *p.Get(a) != 4 || p.Len() != 3 {
		t.Fatalf("get = %d len = %d", *p.Get(a), p.Len())
	}

	seen := 0
	p.Each(func(i int, _ *int) {
		seen++
		p.Remove(i)
	})
	if seen != 3 || p.Len() != 0 {
		t.Fatalf("seen = %d len = %d", seen, p.Len())
	}
}

func TestPoolPlaceCompact(t *testing.T) {
	var p Pool[string]
	p.Place(3, "d")
	p.Place(1, "b")
	p.Compact()
	if p.Len() != 2 || p.Slots() != 4 {
		t.Fatalf("len = %d slots = %d", p.Len(), p.Slots())
	}
	if p.Get(0) != nil || *p.Get(3) != "d" {
		t.Fatal("placed slots wrong")
	}
	if i := p.Add("x"); i != 0 {
		t.Fatalf("add after compact used slot %d", i)
	}
	p.Reserve(6)
	if p.Slots() != 6 || p.Len() != 3 {
		t.Fatalf("after reserve: slots = %d len = %d", p.Slots(), p.Len())
	}
}

func TestMotionProgressResetsOnArrival(t *testing.T) {
	m := Motion{Pos: world.Point{X: 1, Y: 1}}
	m.begin(world.Point{X: 2, Y: 1})
	for i := 0; i < 2; i++ {
		if m.advance(0.4) {
			t.Fatalf("arrived early at tick %d", i)
		}
		if m.Progress <= 0 || m.Progress >= 1 {
			t.Fatalf("progress = %v", m.Progress)
		}
	}
	if !m.advance(0.4) {
		t.Fatal("expected arrival")
	}
	if m.Pos.X != 2 || m.Progress != 0 || m.Moving {
		t.Fatalf("after arrival: %+v", m)
	}
	if m.advance(0.4) {
		t.Fatal("idle motion reported arrival")
	}
}

func TestCreatureArrivalClassifiesPack(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	mover := Creature{Kind: Deer, Motion: Motion{Pos: world.Point{X: 11, Y: 10}}, HitsLeft: 2}
	mover.begin(env.Player)
	mover.Progress = 0.95
	id := env.AddCreature(mover)
	env.AddCreature(Creature{Kind: Bison, Motion: Motion{Pos: world.Point{X: 10, Y: 11}}})
	env.AddCreature(Creature{Kind: Bison, Motion: Motion{Pos: world.Point{X: 9, Y: 9}}})

	enc := beh.StepCreatures(env)
	if len(enc) != 1 {
		t.Fatalf("encounters = %d, want 1", len(enc))
	}
	e := enc[0]
	if e.ID != id || e.Kind != EncounterCreature || e.Adjacent != 2 || !e.Pack {
		t.Fatalf("encounter = %+v", e)
	}
	if p, _ := env.CreatureIdx.Position(id); p != env.Player {
		t.Fatalf("index position = %v", p)
	}
}

func TestCreatureLoneArrival(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	mover := Creature{Kind: Deer, Motion: Motion{Pos: world.Point{X: 10, Y: 9}}}
	mover.begin(env.Player)
	mover.Progress = 0.95
	env.AddCreature(mover)
	env.AddCreature(Creature{Kind: Deer, Motion: Motion{Pos: world.Point{X: 11, Y: 11}}})

	enc := beh.StepCreatures(env)
	if len(enc) != 1 || enc[0].Pack || enc[0].Adjacent != 1 {
		t.Fatalf("encounters = %+v", enc)
	}
}

func TestCreatureFleesFromNomad(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	id := env.AddCreature(Creature{Kind: Deer, Motion: Motion{Pos: world.Point{X: 30, Y: 30}}})
	env.AddNomad(Nomad{Motion: Motion{Pos: world.Point{X: 32, Y: 30}}})

	beh.StepCreatures(env)
	c := env.Creatures.Get(id)
	if c.State != CreatureFleeing || !c.Moving {
		t.Fatalf("creature = %+v", c)
	}
	if c.Target.X != 29 || c.FleeFrom != (world.Point{X: 32, Y: 30}) {
		t.Fatalf("target = %v flee_from = %v", c.Target, c.FleeFrom)
	}
}

func TestCreatureIgnoresDistantNomad(t *testing.T) {
	env, cfg := testEnv(t)
	cfg.Creatures.WanderChance = 0
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	id := env.AddCreature(Creature{Kind: Mammoth, Motion: Motion{Pos: world.Point{X: 30, Y: 30}}})
	env.AddNomad(Nomad{Motion: Motion{Pos: world.Point{X: 30, Y: 40}}})

	if c := env.Creatures.Get(id); c.State != CreatureIdle {
		t.Fatalf("spawned state = %v", c.State)
	}
	beh.StepCreatures(env)
	if c := env.Creatures.Get(id); c.State != CreatureWalking || c.Moving {
		t.Fatalf("creature = %+v", c)
	}
}

func TestNomadHoldsAtStalkDistance(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	env.AddCreature(Creature{Kind: Deer, Motion: Motion{Pos: world.Point{X: 32, Y: 30}}})
	nid := env.AddNomad(Nomad{Motion: Motion{Pos: world.Point{X: 30, Y: 30}}})

	beh.StepNomads(env)
	n := env.Nomads.Get(nid)
	if n.State != NomadChasing || n.Moving {
		t.Fatalf("nomad = %+v", n)
	}
}

func TestNomadApproachesDistantPrey(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	prey := world.Point{X: 35, Y: 33}
	env.AddCreature(Creature{Kind: Bison, Motion: Motion{Pos: prey}})
	nid := env.AddNomad(Nomad{Motion: Motion{Pos: world.Point{X: 30, Y: 30}}})

	beh.StepNomads(env)
	n := env.Nomads.Get(nid)
	if !n.Moving || n.Target != (world.Point{X: 31, Y: 31}) {
		t.Fatalf("nomad = %+v", n)
	}
	if world.Chebyshev(n.Target, prey) < cfg.Nomads.StalkDistance {
		t.Fatal("nomad stepped inside stalk distance")
	}
}

func TestNomadIgnoresMammoth(t *testing.T) {
	env, cfg := testEnv(t)
	cfg.Nomads.WanderChance = 0
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	env.AddCreature(Creature{Kind: Mammoth, Motion: Motion{Pos: world.Point{X: 34, Y: 30}}})
	nid := env.AddNomad(Nomad{Motion: Motion{Pos: world.Point{X: 30, Y: 30}}})

	beh.StepNomads(env)
	if n := env.Nomads.Get(nid); n.State != NomadWalking || n.Moving {
		t.Fatalf("nomad = %+v", n)
	}
}

func TestNomadArrivalOnPlayer(t *testing.T) {
	env, cfg := testEnv(t)
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)

	n := Nomad{Motion: Motion{Pos: world.Point{X: 9, Y: 10}}, Hostile: true, Damage: 2}
	n.begin(env.Player)
	n.Progress = 0.99
	env.AddNomad(n)

	enc := beh.StepNomads(env)
	if len(enc) != 1 || enc[0].Kind != EncounterNomad || !enc[0].Hostile || enc[0].Damage != 2 {
		t.Fatalf("encounters = %+v", enc)
	}
}

func TestSeedRegionPlacesOnPassableTiles(t *testing.T) {
	env, cfg := testEnv(t)
	for x := 0; x < env.Grid.Width(); x++ {
		env.Grid.TileAt(x, 5).Terrain = world.TerrainWater
	}
	beh := NewBehavior(cfg.Creatures, cfg.Nomads)
	sp := NewSpawner(cfg, env.Rand, beh)

	rep := sp.SeedRegion(env, env.Grid.Bounds())
	if rep.Creatures == 0 || rep.Nomads == 0 || rep.Berries == 0 {
		t.Fatalf("report = %+v", rep)
	}
	if env.Creatures.Len() != rep.Creatures || env.Nomads.Len() != rep.Nomads {
		t.Fatalf("pool sizes %d/%d vs report %+v", env.Creatures.Len(), env.Nomads.Len(), rep)
	}
	env.Creatures.Each(func(_ int, c *Creature) {
		if c.Pos.Y == 5 || c.Pos == env.Player {
			t.Fatalf("creature placed at %v", c.Pos)
		}
		kc := beh.Kind(c.Kind)
		if c.Food < kc.MinFood || c.Food > kc.MaxFood || c.HitsLeft != kc.Hits {
			t.Fatalf("creature stats %+v", c)
		}
	})
	env.Nomads.Each(func(_ int, n *Nomad) {
		if n.Hostile && (n.Damage < cfg.Nomads.DamageMin || n.Damage > cfg.Nomads.DamageMax) {
			t.Fatalf("nomad damage %d", n.Damage)
		}
		if !n.Hostile && n.Loot.Food < 5 {
			t.Fatalf("friendly loot %+v", n.Loot)
		}
	})
}

func TestPlayerCapacityKeepsBonus(t *testing.T) {
	cfg := config.Default().Player
	p := NewPlayer(cfg, world.Point{})
	base := p.Pouch.Capacity
	p.BonusSpace = 100
	p.Population++
	p.UpdateCapacity(cfg)
	if want := base + cfg.BackpackPerPop + 100; p.Pouch.Capacity != want {
		t.Fatalf("capacity = %v, want %v", p.Pouch.Capacity, want)
	}
	p.TakeDamage(50)
	if !p.Dead() || p.Population != 0 {
		t.Fatalf("population = %d", p.Population)
	}
}
