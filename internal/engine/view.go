package engine

import (
	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/world"
)

// MaxViewSide caps each side of a view rectangle.
const MaxViewSide = 512

// TileView is one tile as a renderer sees it. Unexplored tiles carry only
// their coordinates.
type TileView struct {
	X         int               `json:"x"`
	Y         int               `json:"y"`
	Explored  bool              `json:"explored"`
	Terrain   string            `json:"terrain,omitempty"`
	Elevation float64           `json:"elevation,omitempty"`
	Road      bool              `json:"road,omitempty"`
	Tree      bool              `json:"tree,omitempty"`
	Flooded   bool              `json:"flooded,omitempty"`
	Deposit   int               `json:"deposit,omitempty"`
	Berry     bool              `json:"berry,omitempty"`
	Structure world.StructureID `json:"structure,omitempty"`
}

// CreatureView is a creature with its in-flight step for interpolation.
type CreatureView struct {
	ID       int         `json:"id"`
	Kind     string      `json:"kind"`
	State    string      `json:"state"`
	Pos      world.Point `json:"pos"`
	Target   world.Point `json:"target"`
	Progress float64     `json:"progress"`
	Phase    float64     `json:"phase"`
}

// NomadView is a nomad with its in-flight step for interpolation.
type NomadView struct {
	ID       int         `json:"id"`
	Hostile  bool        `json:"hostile"`
	State    string      `json:"state"`
	Pos      world.Point `json:"pos"`
	Target   world.Point `json:"target"`
	Progress float64     `json:"progress"`
	Phase    float64     `json:"phase"`
}

// View is an immutable copy of everything a frame needs.
type View struct {
	Tick       uint64             `json:"tick"`
	Revision   uint64             `json:"revision"`
	Phase      string             `json:"phase"`
	Cause      string             `json:"cause,omitempty"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Rect       world.Rect         `json:"rect"`
	Tiles      []TileView         `json:"tiles"`
	Structures []world.Structure  `json:"structures"`
	Creatures  []CreatureView     `json:"creatures"`
	Nomads     []NomadView        `json:"nomads"`
	Player     agents.Player      `json:"player"`
	Ledger     economy.Ledger     `json:"ledger"`
	LastTurn   economy.TurnReport `json:"last_turn"`
	Geology    geology.State      `json:"geology"`
	Period     string             `json:"period"`
}

// viewCache holds the visible entity lists between frames. It is rebuilt
// when the tick or the grid revision moves.
type viewCache struct {
	valid     bool
	tick      uint64
	revision  uint64
	creatures []CreatureView
	nomads    []NomadView
}

func (c *viewCache) invalidate() { c.valid = false }

// View copies the state inside r, clipped to the world and MaxViewSide.
// Entities on unexplored tiles are left out.
func (s *Simulation) View(r world.Rect) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.W = min(r.W, MaxViewSide)
	r.H = min(r.H, MaxViewSide)
	r = r.Intersect(s.grid.Bounds())

	v := View{
		Tick:     s.tick,
		Revision: s.grid.Revision(),
		Phase:    s.phase.String(),
		Width:    s.grid.Width(),
		Height:   s.grid.Height(),
		Rect:     r,
		Tiles:    make([]TileView, 0, r.Area()),
		Player:   *s.player,
		Ledger:   s.ledger,
		LastTurn: s.lastTurn,
		Geology:  s.geology.State,
		Period:   s.geology.Period().Name,
	}
	v.Player.Path = append([]world.Point(nil), s.player.Path...)
	if s.cause != economy.CauseNone {
		v.Cause = s.cause.String()
	}

	s.grid.ForEach(r, func(x, y int, t *world.Tile) {
		tv := TileView{X: x, Y: y, Explored: t.Explored}
		if t.Explored {
			tv.Terrain = t.Terrain.String()
			tv.Elevation = t.Elevation
			tv.Road = t.Road
			tv.Tree = t.Tree
			tv.Flooded = t.Flooded
			tv.Deposit = t.Deposit
			tv.Berry = t.Berry != nil
			tv.Structure = t.Structure
		}
		v.Tiles = append(v.Tiles, tv)
	})
	for _, st := range s.grid.Structures() {
		if r.Contains(st.Pos.X, st.Pos.Y) {
			v.Structures = append(v.Structures, *st)
		}
	}

	s.refreshCache()
	for _, c := range s.cache.creatures {
		if r.Contains(c.Pos.X, c.Pos.Y) {
			v.Creatures = append(v.Creatures, c)
		}
	}
	for _, n := range s.cache.nomads {
		if r.Contains(n.Pos.X, n.Pos.Y) {
			v.Nomads = append(v.Nomads, n)
		}
	}
	return v
}

func (s *Simulation) refreshCache() {
	c := &s.cache
	if c.valid && c.tick == s.tick && c.revision == s.grid.Revision() {
		return
	}
	c.creatures = c.creatures[:0]
	c.nomads = c.nomads[:0]
	s.creatures.Each(func(id int, cr *agents.Creature) {
		if !s.visible(cr.Pos) {
			return
		}
		c.creatures = append(c.creatures, CreatureView{
			ID:       id,
			Kind:     cr.Kind.String(),
			State:    cr.State.String(),
			Pos:      cr.Pos,
			Target:   cr.Target,
			Progress: cr.Progress,
			Phase:    cr.Phase,
		})
	})
	s.nomads.Each(func(id int, n *agents.Nomad) {
		if !s.visible(n.Pos) {
			return
		}
		c.nomads = append(c.nomads, NomadView{
			ID:       id,
			Hostile:  n.Hostile,
			State:    n.State.String(),
			Pos:      n.Pos,
			Target:   n.Target,
			Progress: n.Progress,
			Phase:    n.Phase,
		})
	})
	c.valid = true
	c.tick = s.tick
	c.revision = s.grid.Revision()
}

func (s *Simulation) visible(p world.Point) bool {
	t := s.grid.TileAt(p.X, p.Y)
	return t != nil && t.Explored
}
