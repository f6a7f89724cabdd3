package engine

import (
	"errors"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/world"
)

// Settle founds a settlement on the band's tile: the pouch becomes the
// ledger and a first residence goes up.
func (s *Simulation) Settle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseWander {
		return reject("not wandering")
	}
	p := s.player
	pc := s.cfg.Player
	switch {
	case p.Population < pc.SettleMinPop:
		return reject("population %d below %d", p.Population, pc.SettleMinPop)
	case p.Pouch.Food < pc.SettleMinFood:
		return reject("food %.0f below %.0f", p.Pouch.Food, pc.SettleMinFood)
	case p.Pouch.Wood < pc.SettleMinWood:
		return reject("wood %.0f below %.0f", p.Pouch.Wood, pc.SettleMinWood)
	}
	t := s.grid.TileAt(p.Pos.X, p.Pos.Y)
	if t == nil || !t.Buildable() {
		return reject("cannot build on %d,%d", p.Pos.X, p.Pos.Y)
	}

	home, err := s.grid.PlaceStructure(world.KindResidential, world.SpecialNone, p.Pos.X, p.Pos.Y)
	if err != nil {
		return reject("found settlement: %v", err)
	}
	home.Capacity = s.cfg.Economy.HousingPerResidential
	home.Occupants = min(p.Population, home.Capacity)
	home.Level = 1
	s.structIdx.Insert(home.ID, home.Pos.X, home.Pos.Y)

	s.ledger.Food = p.Pouch.Food
	s.ledger.Wood = p.Pouch.Wood
	s.ledger.Stone = p.Pouch.Stone
	s.ledger.Metal = p.Pouch.Metal
	s.ledger.Population = p.Population
	p.Pouch = agents.Pouch{Capacity: p.Pouch.Capacity}
	p.Path = nil
	s.econ.Capacities(&s.ledger, s.grid.Counts())

	s.phase = PhaseCity
	s.settled = true
	s.cache.invalidate()
	s.emit("world", "settlement founded at %d,%d", p.Pos.X, p.Pos.Y)
	return nil
}

// Build places a structure, or a road when kind is KindRoad. It fails
// without side effects when the tile is unsuitable or the ledger cannot
// pay.
func (s *Simulation) Build(kind world.StructureKind, special world.SpecialKind, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCity {
		return reject("no settlement")
	}
	t := s.grid.TileAt(x, y)
	if t == nil {
		return reject("%d,%d is outside the world", x, y)
	}
	if !t.Buildable() {
		return reject("cannot build on %d,%d", x, y)
	}
	if kind == world.KindSpecial {
		if special == world.SpecialNone {
			return reject("special structure needs a kind")
		}
		if s.grid.Counts().Has(special) {
			return reject("%s already built", special)
		}
		if err := s.econ.CheckRequirements(&s.ledger, special); err != nil {
			return reject("%v", err)
		}
	} else {
		special = world.SpecialNone
	}
	cost, err := s.econ.CostOf(kind, special)
	if err != nil {
		return reject("%v", err)
	}
	if err := s.ledger.Charge(cost); err != nil {
		return reject("%v", err)
	}

	if kind == world.KindRoad {
		if err := s.grid.SetRoad(x, y, true); err != nil {
			s.ledger.Refund(cost)
			return reject("%v", err)
		}
	} else {
		st, err := s.grid.PlaceStructure(kind, special, x, y)
		if err != nil {
			s.ledger.Refund(cost)
			return reject("%v", err)
		}
		switch kind {
		case world.KindResidential:
			st.Capacity = s.cfg.Economy.HousingPerResidential
			st.Level = 1
		case world.KindWell:
			st.Capacity = s.cfg.Economy.WellCapacity
		case world.KindCommercial, world.KindIndustrial, world.KindSpecial, world.KindRoad:
			st.Level = 1
		}
		s.structIdx.Insert(st.ID, x, y)
	}
	s.econ.Capacities(&s.ledger, s.grid.Counts())
	s.cache.invalidate()
	s.emit("economy", "built %s at %d,%d", kindName(kind, special), x, y)
	return nil
}

// Demolish clears the structure or road on (x, y). Nothing is refunded.
func (s *Simulation) Demolish(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCity {
		return reject("no settlement")
	}
	t := s.grid.TileAt(x, y)
	switch {
	case t == nil:
		return reject("%d,%d is outside the world", x, y)
	case t.Structure != 0:
		st := s.grid.RemoveStructure(t.Structure)
		s.structIdx.Remove(st.ID)
		s.emit("economy", "demolished %s at %d,%d", kindName(st.Kind, st.Special), x, y)
	case t.Road:
		if err := s.grid.SetRoad(x, y, false); err != nil {
			return reject("%v", err)
		}
		s.emit("economy", "removed road at %d,%d", x, y)
	default:
		return reject("nothing to demolish at %d,%d", x, y)
	}
	s.econ.Capacities(&s.ledger, s.grid.Counts())
	s.cache.invalidate()
	return nil
}

// Hunt strikes a creature on or next to the player. A creature that runs
// out of hits yields its food.
func (s *Simulation) Hunt(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseGameOver {
		return reject("game over")
	}
	target := world.Point{X: x, Y: y}
	if world.Chebyshev(s.player.Pos, target) > 1 {
		return reject("%d,%d is out of reach", x, y)
	}
	id, ok := s.env.CreatureAt(target)
	if !ok {
		return reject("no creature at %d,%d", x, y)
	}
	c := s.creatures.Get(id)
	c.HitsLeft--
	s.cache.invalidate()
	if c.HitsLeft > 0 {
		s.emit("hunt", "wounded a %s", c.Kind)
		return nil
	}
	food, kind := float64(c.Food), c.Kind
	s.env.RemoveCreature(id)
	if s.settled {
		s.ledger.Food = min(s.ledger.Food+food, s.ledger.FoodStorage)
	} else {
		got := s.player.Pouch.TryAdd(&s.player.Pouch.Food, food)
		s.player.FoodFound += got
	}
	s.emit("hunt", "brought down a %s for %.0f food", kind, food)
	return nil
}

// Mine takes stone from a deposit on or next to the player. A spent
// deposit weathers to rock and becomes walkable.
func (s *Simulation) Mine(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseGameOver {
		return reject("game over")
	}
	if world.Chebyshev(s.player.Pos, world.Point{X: x, Y: y}) > 1 {
		return reject("%d,%d is out of reach", x, y)
	}
	t := s.grid.TileAt(x, y)
	if t == nil || t.Terrain != world.TerrainStone || t.Deposit <= 0 {
		return reject("no stone at %d,%d", x, y)
	}
	amount := min(s.cfg.Player.StonePerMine, t.Deposit)
	if s.settled {
		s.ledger.Stone += float64(amount)
	} else if s.player.Pouch.TryAdd(&s.player.Pouch.Stone, float64(amount)) == 0 {
		return reject("pouch is full")
	}
	t.Deposit -= amount
	if t.Deposit == 0 {
		t.Terrain = world.TerrainRock
	}
	s.grid.Touch()
	return nil
}

// AdvanceTurn resolves one city year.
func (s *Simulation) AdvanceTurn() (economy.TurnReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCity {
		return economy.TurnReport{}, reject("no settlement")
	}
	return s.advanceTurn(), nil
}

// IsRejected reports whether err is a refused command.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }

func kindName(kind world.StructureKind, special world.SpecialKind) string {
	if kind == world.KindSpecial {
		return special.String()
	}
	return kind.String()
}
