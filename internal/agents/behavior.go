// Creature and nomad behaviour. Each tick an entity either advances its
// in-flight step or, having arrived, makes one decision.
package agents

import (
	"math"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/entropy"
	"github.com/talgya/civilzones/internal/spatial"
	"github.com/talgya/civilzones/internal/world"
)

// Env is the slice of simulation state behaviour reads and mutates.
type Env struct {
	Grid        *world.Grid
	Creatures   *Pool[Creature]
	Nomads      *Pool[Nomad]
	CreatureIdx *spatial.Index[int]
	NomadIdx    *spatial.Index[int]
	Player      world.Point
	Rand        *entropy.Source
}

// AddCreature stores c and indexes it.
func (e *Env) AddCreature(c Creature) int {
	id := e.Creatures.Add(c)
	e.Creatures.Get(id).ID = id
	e.CreatureIdx.Insert(id, c.Pos.X, c.Pos.Y)
	return id
}

// RemoveCreature drops a creature from the pool and index.
func (e *Env) RemoveCreature(id int) {
	e.Creatures.Remove(id)
	e.CreatureIdx.Remove(id)
}

// AddNomad stores n and indexes it.
func (e *Env) AddNomad(n Nomad) int {
	id := e.Nomads.Add(n)
	e.Nomads.Get(id).ID = id
	e.NomadIdx.Insert(id, n.Pos.X, n.Pos.Y)
	return id
}

// RemoveNomad drops a nomad from the pool and index.
func (e *Env) RemoveNomad(id int) {
	e.Nomads.Remove(id)
	e.NomadIdx.Remove(id)
}

// CreatureAt returns a creature standing on p, if any.
func (e *Env) CreatureAt(p world.Point) (int, bool) {
	found, ok := -1, false
	e.CreatureIdx.At(p.X, p.Y, func(id int) {
		if !ok {
			found, ok = id, true
		}
	})
	return found, ok
}

// NomadAt returns a nomad standing on p, if any.
func (e *Env) NomadAt(p world.Point) (int, bool) {
	found, ok := -1, false
	e.NomadIdx.At(p.X, p.Y, func(id int) {
		if !ok {
			found, ok = id, true
		}
	})
	return found, ok
}

// CountAdjacent counts creatures on the eight tiles around p, ignoring
// exclude (pass -1 to count all).
func (e *Env) CountAdjacent(p world.Point, exclude int) int {
	n := 0
	for _, d := range dirs8 {
		e.CreatureIdx.At(p.X+d.X, p.Y+d.Y, func(id int) {
			if id != exclude {
				n++
			}
		})
	}
	return n
}

// EncounterKind says what reached the player.
type EncounterKind uint8

const (
	EncounterCreature EncounterKind = iota
	EncounterNomad
)

// Encounter is an entity arriving on the player's tile. The engine
// resolves it according to the current phase.
type Encounter struct {
	Kind     EncounterKind
	ID       int
	Pos      world.Point
	Adjacent int  // creatures around the arrival tile, excluding the arriver
	Pack     bool // Adjacent >= 2
	Hostile  bool
	Damage   int
}

var dirs8 = [8]world.Point{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Behavior holds the tuning tables for both entity families.
type Behavior struct {
	creature config.CreatureConfig
	nomad    config.NomadConfig
	kinds    [3]config.CreatureKindConfig
}

// NewBehavior indexes the per-kind creature table.
func NewBehavior(cc config.CreatureConfig, nc config.NomadConfig) *Behavior {
	b := &Behavior{creature: cc, nomad: nc}
	for _, k := range cc.Kinds {
		if kind, ok := ParseCreatureKind(k.Name); ok {
			b.kinds[kind] = k
		}
	}
	return b
}

// Kind returns the tuning for k.
func (b *Behavior) Kind(k CreatureKind) config.CreatureKindConfig {
	if int(k) < len(b.kinds) {
		return b.kinds[k]
	}
	return config.CreatureKindConfig{}
}

// StepCreatures runs one tick for every creature.
func (b *Behavior) StepCreatures(env *Env) []Encounter {
	var out []Encounter
	env.Creatures.Each(func(id int, c *Creature) {
		kc := b.Kind(c.Kind)
		c.Phase = frac(c.Phase + 0.02 + 0.03*kc.Speed)

		if c.Moving {
			if !c.advance(b.creatureSpeed(c.State)) {
				return
			}
			env.CreatureIdx.Move(id, c.Pos.X, c.Pos.Y)
			if c.Pos == env.Player {
				adj := env.CountAdjacent(c.Pos, id)
				out = append(out, Encounter{
					Kind:     EncounterCreature,
					ID:       id,
					Pos:      c.Pos,
					Adjacent: adj,
					Pack:     adj >= 2,
				})
			}
		}
		b.decideCreature(env, c, kc)
	})
	return out
}

func (b *Behavior) creatureSpeed(s CreatureState) float64 {
	switch s {
	case CreatureFleeing:
		return b.creature.FleeSpeed
	case CreatureIdle, CreatureWalking:
		return b.creature.WalkSpeed
	default:
		return b.creature.WalkSpeed
	}
}

func (b *Behavior) decideCreature(env *Env, c *Creature, kc config.CreatureKindConfig) {
	threat, d2, found := nearest(env.NomadIdx, c.Pos, kc.ThreatRadius, nil)
	switch {
	case found && d2 <= kc.FleeRadius*kc.FleeRadius:
		c.State = CreatureFleeing
		c.FleeFrom = threat
		b.stepAway(env, &c.Motion, threat)
		return
	case c.State == CreatureFleeing:
		if world.DistSq(c.Pos, c.FleeFrom) <= kc.ThreatRadius*kc.ThreatRadius {
			b.stepAway(env, &c.Motion, c.FleeFrom)
			return
		}
	}

	// Idle is only the spawn state.
	c.State = CreatureWalking
	if env.Rand.Chance(kc.Speed * b.creature.WanderChance) {
		d := dirs8[env.Rand.IntN(len(dirs8))]
		to := c.Pos.Add(d.X, d.Y)
		if env.Grid.Passable(to.X, to.Y) {
			c.begin(to)
		}
	}
}

// stepAway begins a step from m.Pos directly away from threat, falling
// back to either axis alone when the diagonal is blocked.
func (b *Behavior) stepAway(env *Env, m *Motion, threat world.Point) bool {
	dx, dy := sign(m.Pos.X-threat.X), sign(m.Pos.Y-threat.Y)
	if dx == 0 && dy == 0 {
		d := dirs8[env.Rand.IntN(len(dirs8))]
		dx, dy = d.X, d.Y
	}
	for _, c := range [3]world.Point{{X: dx, Y: dy}, {X: dx}, {Y: dy}} {
		if c.X == 0 && c.Y == 0 {
			continue
		}
		to := m.Pos.Add(c.X, c.Y)
		if env.Grid.Passable(to.X, to.Y) {
			m.begin(to)
			return true
		}
	}
	return false
}

// StepNomads runs one tick for every nomad.
func (b *Behavior) StepNomads(env *Env) []Encounter {
	var out []Encounter
	env.Nomads.Each(func(id int, n *Nomad) {
		n.Phase = frac(n.Phase + 0.04)

		if n.Moving {
			speed := b.nomad.WalkSpeed
			if n.State == NomadChasing {
				speed = b.nomad.ChaseSpeed
			}
			if !n.advance(speed) {
				return
			}
			env.NomadIdx.Move(id, n.Pos.X, n.Pos.Y)
			if n.Pos == env.Player {
				out = append(out, Encounter{
					Kind:    EncounterNomad,
					ID:      id,
					Pos:     n.Pos,
					Hostile: n.Hostile,
					Damage:  n.Damage,
				})
				return
			}
		}
		b.decideNomad(env, id, n)
	})
	return out
}

func (b *Behavior) decideNomad(env *Env, id int, n *Nomad) {
	cfg := b.nomad

	crowd, d2, crowded := nearest(env.NomadIdx, n.Pos, 2, func(other int) bool { return other != id })
	if crowded && d2 <= 2 && env.Rand.Chance(cfg.ScatterChance) {
		n.State = NomadWalking
		b.stepAway(env, &n.Motion, crowd)
		return
	}

	prey, _, found := nearest(env.CreatureIdx, n.Pos, cfg.HuntRadius, func(cid int) bool {
		c := env.Creatures.Get(cid)
		return c != nil && b.Kind(c.Kind).Huntable
	})
	if found {
		n.State = NomadChasing
		n.ChaseTarget = prey
		b.stalk(env, n, prey)
		return
	}

	n.State = NomadWalking
	if env.Rand.Chance(cfg.WanderChance) {
		d := dirs8[env.Rand.IntN(len(dirs8))]
		to := n.Pos.Add(d.X, d.Y)
		if env.Grid.Passable(to.X, to.Y) {
			n.begin(to)
		}
	}
}

// stalk closes on prey but never to within StalkDistance, sometimes
// swinging wide on a lateral step instead of approaching directly.
func (b *Behavior) stalk(env *Env, n *Nomad, prey world.Point) {
	if world.Chebyshev(n.Pos, prey) <= b.nomad.StalkDistance {
		return
	}
	dx, dy := prey.X-n.Pos.X, prey.Y-n.Pos.Y
	step := world.Point{X: sign(dx), Y: sign(dy)}
	if env.Rand.Chance(b.nomad.FlankChance) {
		side := 1
		if env.Rand.Chance(0.5) {
			side = -1
		}
		if abs(dx) >= abs(dy) {
			step = world.Point{X: sign(dx), Y: side}
		} else {
			step = world.Point{X: side, Y: sign(dy)}
		}
	}
	to := n.Pos.Add(step.X, step.Y)
	if world.Chebyshev(to, prey) < b.nomad.StalkDistance || !env.Grid.Passable(to.X, to.Y) {
		return
	}
	n.begin(to)
}

// nearest finds the closest accepted entity within radius using squared
// distances, stopping as soon as one is adjacent or on the same tile.
func nearest(idx *spatial.Index[int], from world.Point, radius int, accept func(id int) bool) (world.Point, int, bool) {
	var (
		best  world.Point
		bestD = radius*radius + 1
		found bool
	)
	idx.QueryRadius(from.X, from.Y, radius, func(id int, p world.Point) bool {
		if accept != nil && !accept(id) {
			return true
		}
		if d := world.DistSq(from, p); d < bestD {
			best, bestD, found = p, d, true
		}
		return bestD > 1
	})
	return best, bestD, found
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func frac(x float64) float64 { return x - math.Floor(x) }
