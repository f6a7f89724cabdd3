// Spawning of creatures, nomads, and berry bushes into freshly generated
// regions.
package agents

import (
	"math"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/entropy"
	"github.com/talgya/civilzones/internal/world"
)

// placementTries bounds the search for a free tile per spawned entity.
const placementTries = 30

// SpawnReport counts what SeedRegion placed.
type SpawnReport struct {
	Creatures int
	Nomads    int
	Berries   int
}

// Spawner populates regions using the shared simulation RNG.
type Spawner struct {
	cfg config.Config
	rng *entropy.Source
	beh *Behavior
}

// NewSpawner creates a spawner.
func NewSpawner(cfg config.Config, rng *entropy.Source, beh *Behavior) *Spawner {
	return &Spawner{cfg: cfg, rng: rng, beh: beh}
}

// SeedRegion spawns entities and berries across r. Densities are per
// 10,000 tiles, so a 100x100 expansion strip gets the configured count.
func (s *Spawner) SeedRegion(env *Env, r world.Rect) SpawnReport {
	var rep SpawnReport
	area := float64(r.Area())

	for range density(area, s.cfg.Creatures.Per10k) {
		p, ok := s.freeTile(env, r)
		if !ok {
			continue
		}
		env.AddCreature(s.newCreature(p))
		rep.Creatures++
	}
	for range density(area, s.cfg.Nomads.Per10k) {
		p, ok := s.freeTile(env, r)
		if !ok {
			continue
		}
		env.AddNomad(s.newNomad(p))
		rep.Nomads++
	}
	for range density(area, s.cfg.World.BerriesPer10k) {
		p, ok := s.freeTile(env, r)
		if !ok {
			continue
		}
		t := env.Grid.TileAt(p.X, p.Y)
		if t.Tree || t.Berry != nil {
			continue
		}
		t.Berry = &world.Berry{
			Food:   s.cfg.Player.BerryFood + s.rng.IntN(s.cfg.Player.BerryFoodJitter+1),
			Poison: s.rng.Chance(s.cfg.World.PoisonChance),
		}
		rep.Berries++
	}
	if rep.Berries > 0 {
		env.Grid.Touch()
	}
	return rep
}

func density(area, per10k float64) int {
	return int(math.Round(area / 10000 * per10k))
}

// freeTile picks a random passable, unoccupied tile in r away from the
// player.
func (s *Spawner) freeTile(env *Env, r world.Rect) (world.Point, bool) {
	for range placementTries {
		p := world.Point{X: r.X + s.rng.IntN(r.W), Y: r.Y + s.rng.IntN(r.H)}
		t := env.Grid.TileAt(p.X, p.Y)
		if t == nil || !t.Passable() || t.Structure != 0 || p == env.Player {
			continue
		}
		if _, taken := env.CreatureAt(p); taken {
			continue
		}
		if _, taken := env.NomadAt(p); taken {
			continue
		}
		return p, true
	}
	return world.Point{}, false
}

func (s *Spawner) newCreature(p world.Point) Creature {
	kind := s.pickKind()
	kc := s.beh.Kind(kind)
	return Creature{
		Kind:     kind,
		Motion:   Motion{Pos: p, Target: p},
		HitsLeft: kc.Hits,
		Food:     s.rng.Range(kc.MinFood, kc.MaxFood),
		Phase:    s.rng.Float(),
	}
}

// pickKind draws a creature kind weighted by spawn rate.
func (s *Spawner) pickKind() CreatureKind {
	var total float64
	for _, k := range s.cfg.Creatures.Kinds {
		total += k.SpawnRate
	}
	roll := s.rng.Float() * total
	for _, k := range s.cfg.Creatures.Kinds {
		roll -= k.SpawnRate
		if roll < 0 {
			if kind, ok := ParseCreatureKind(k.Name); ok {
				return kind
			}
		}
	}
	return Deer
}

func (s *Spawner) newNomad(p world.Point) Nomad {
	cfg := s.cfg.Nomads
	n := Nomad{
		Motion: Motion{Pos: p, Target: p},
		Phase:  s.rng.Float(),
	}
	if s.rng.Chance(cfg.HostileChance) {
		n.Hostile = true
		n.Damage = s.rng.Range(cfg.DamageMin, cfg.DamageMax)
		return n
	}
	n.Loot = Loot{
		Food:  5 + s.rng.Float()*25,
		Wood:  5 + s.rng.Float()*25,
		Stone: s.rng.Float() * 5,
		Metal: s.rng.Float() * 10,
	}
	return n
}
