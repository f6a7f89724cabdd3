package engine

import (
	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/spatial"
	"github.com/talgya/civilzones/internal/world"
)

// resolveEncounters applies entity arrivals on the player's tile. The
// wandering band and the settlement use different loss formulas.
func (s *Simulation) resolveEncounters(enc []agents.Encounter) {
	for _, e := range enc {
		if s.phase == PhaseGameOver {
			return
		}
		switch e.Kind {
		case agents.EncounterCreature:
			if s.creatures.Get(e.ID) == nil {
				continue
			}
			s.creatureAttack(e)
		case agents.EncounterNomad:
			if s.nomads.Get(e.ID) == nil {
				continue
			}
			s.meetNomad(e.ID)
		}
	}
}

func (s *Simulation) creatureAttack(e agents.Encounter) {
	nc := s.cfg.Nomads
	cc := s.cfg.Creatures
	if s.settled {
		loss := cc.LoneDamage
		if e.Pack {
			loss = max(cc.PackDamage, int(float64(s.ledger.Population)*nc.CityPackLoss))
		}
		s.woundSettlement(loss, "creatures raided the settlement")
		return
	}
	loss := cc.LoneDamage
	if e.Pack {
		loss = max(cc.PackDamage, int(float64(s.player.Population)*nc.WanderPackLoss))
	}
	s.woundBand(loss, "creatures attacked the band")
}

// meetNomad resolves a nomad band reaching the player and removes it.
func (s *Simulation) meetNomad(id int) {
	n := *s.nomads.Get(id)
	s.env.RemoveNomad(id)
	nc := s.cfg.Nomads

	if n.Hostile {
		if s.settled {
			s.woundSettlement(n.Damage, "hostile nomads raided the settlement")
		} else {
			s.woundBand(n.Damage, "hostile nomads attacked")
		}
		return
	}

	if s.settled {
		l := &s.ledger
		l.Population += nc.PopBonus
		l.Food = min(l.Food+n.Loot.Food, l.FoodStorage)
		l.Wood += n.Loot.Wood
		l.Stone += n.Loot.Stone
		l.Metal += n.Loot.Metal
		s.emit("social", "friendly nomads joined the settlement")
		return
	}

	p := s.player
	pc := s.cfg.Player
	p.Population += nc.PopBonus
	p.BonusSpace += nc.CapacityBonus
	p.UpdateCapacity(pc)
	p.Pouch.TryAdd(&p.Pouch.Food, n.Loot.Food)
	p.Pouch.TryAdd(&p.Pouch.Wood, n.Loot.Wood)
	p.Pouch.TryAdd(&p.Pouch.Stone, n.Loot.Stone)
	p.Pouch.TryAdd(&p.Pouch.Metal, n.Loot.Metal)
	p.NomadsMet++
	p.VisionBonus = nc.VisionBonus
	s.grid.Explore(p.Pos.X, p.Pos.Y, p.VisionRadius(pc))
	s.emit("social", "friendly nomads joined the band")
}

func (s *Simulation) woundBand(loss int, why string) {
	if loss <= 0 {
		return
	}
	p := s.player
	p.TakeDamage(loss)
	p.UpdateCapacity(s.cfg.Player)
	s.emit("combat", "%s: lost %d", why, loss)
	if p.Dead() {
		s.gameOver(economy.CauseCombat)
	}
}

func (s *Simulation) woundSettlement(loss int, why string) {
	if loss <= 0 {
		return
	}
	s.ledger.Population = max(0, s.ledger.Population-loss)
	s.emit("combat", "%s: lost %d", why, loss)
	if s.ledger.Population == 0 {
		s.gameOver(economy.CauseCombat)
	}
}

// afterFlood reconciles entities, indexes, and the ledger with a geology
// update.
func (s *Simulation) afterFlood(rep geology.Report) {
	if rep.PeriodChanged {
		s.emit("geology", "a new age begins: %s", rep.Period)
	}
	if !rep.Changed() {
		return
	}
	s.cache.invalidate()
	drowned := make(map[world.Point]bool, len(rep.Converted))
	for _, p := range rep.Converted {
		drowned[p] = true
		for id, ok := s.env.CreatureAt(p); ok; id, ok = s.env.CreatureAt(p) {
			s.env.RemoveCreature(id)
		}
		for id, ok := s.env.NomadAt(p); ok; id, ok = s.env.NomadAt(p) {
			s.env.RemoveNomad(id)
		}
	}
	// A step already underway onto new water is abandoned.
	s.creatures.Each(func(_ int, c *agents.Creature) {
		if c.Moving && drowned[c.Target] {
			c.Halt()
		}
	})
	s.nomads.Each(func(_ int, n *agents.Nomad) {
		if n.Moving && drowned[n.Target] {
			n.Halt()
		}
	})
	if len(rep.Converted) > 0 {
		s.emit("geology", "the sea claimed %d tiles", len(rep.Converted))
	}
	if rep.StructuresLost > 0 {
		s.reindexStructures()
		s.emit("geology", "floods destroyed %d structures", rep.StructuresLost)
	}
	if rep.WellsLost > 0 {
		s.emit("geology", "floods took %d wells", rep.WellsLost)
	}
	if s.settled {
		if p := s.player.Pos; drowned[p] {
			if to, ok := s.nearestPassable(p); ok {
				s.player.Pos = to
				s.env.Player = to
				s.emit("geology", "the founders fled to %d,%d", to.X, to.Y)
			}
		}
		s.econ.Capacities(&s.ledger, s.grid.Counts())
		if rep.Casualties > 0 {
			s.ledger.Population = max(0, s.ledger.Population-rep.Casualties)
			s.emit("geology", "%d drowned", rep.Casualties)
			if s.ledger.Population == 0 {
				s.gameOver(economy.CauseFlood)
			}
		}
	}
}

func (s *Simulation) reindexStructures() {
	s.structIdx = spatial.New[world.StructureID](s.cfg.World.SpatialCellSize, s.grid.Width(), s.grid.Height())
	for _, st := range s.grid.Structures() {
		s.structIdx.Insert(st.ID, st.Pos.X, st.Pos.Y)
	}
}
