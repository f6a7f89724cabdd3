package economy

import (
	"errors"
	"fmt"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/world"
)

var (
	ErrUnaffordable = errors.New("insufficient resources")
	ErrNoCost       = errors.New("structure has no cost entry")
	ErrPopulation   = errors.New("population too small")
)

// CostOf returns the price of a structure. Specials are priced in food
// from the special table; everything else comes from the cost table.
func (s *Simulator) CostOf(kind world.StructureKind, special world.SpecialKind) (config.Cost, error) {
	if kind == world.KindSpecial {
		sc, ok := s.specials[special]
		if !ok {
			return config.Cost{}, fmt.Errorf("%w: special %q", ErrNoCost, special)
		}
		return config.Cost{Food: sc.Food}, nil
	}
	c, ok := s.cfg.Costs[kind.String()]
	if !ok {
		return config.Cost{}, fmt.Errorf("%w: %s", ErrNoCost, kind)
	}
	return c, nil
}

// CheckRequirements reports whether the population may raise special.
func (s *Simulator) CheckRequirements(l *Ledger, special world.SpecialKind) error {
	sc, ok := s.specials[special]
	if !ok {
		return fmt.Errorf("%w: special %q", ErrNoCost, special)
	}
	if l.Population < sc.RequiredPop {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrPopulation, special, sc.RequiredPop, l.Population)
	}
	return nil
}

// Affordable reports whether l covers c.
func (l *Ledger) Affordable(c config.Cost) bool {
	return l.Food >= c.Food && l.Wood >= c.Wood && l.Stone >= c.Stone && l.Metal >= c.Metal
}

// Charge deducts c, or returns ErrUnaffordable and leaves l untouched.
func (l *Ledger) Charge(c config.Cost) error {
	if !l.Affordable(c) {
		return fmt.Errorf("%w: need food %.0f wood %.0f stone %.0f metal %.0f",
			ErrUnaffordable, c.Food, c.Wood, c.Stone, c.Metal)
	}
	l.Food -= c.Food
	l.Wood -= c.Wood
	l.Stone -= c.Stone
	l.Metal -= c.Metal
	return nil
}

// Refund returns c to l.
func (l *Ledger) Refund(c config.Cost) {
	l.Food += c.Food
	l.Wood += c.Wood
	l.Stone += c.Stone
	l.Metal += c.Metal
}
