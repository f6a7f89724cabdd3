package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/civilzones/internal/config"
)

// Direction names an edge the grid can grow toward.
type Direction uint8

const (
	East Direction = iota
	South
)

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case South:
		return "south"
	default:
		return "unknown"
	}
}

// Placement errors.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrImpassable  = errors.New("tile is impassable")
	ErrOccupied    = errors.New("tile is occupied")
)

type chunkKey struct{ cx, cy int }

// chunk storage is allocated once and never resized, so *Tile pointers
// handed out by TileAt stay valid for the life of the grid.
type chunk struct {
	tiles []Tile
}

// Grid owns every tile and structure of the world.
type Grid struct {
	cfg    config.WorldConfig
	gen    *Generator
	width  int
	height int
	chunks map[chunkKey]*chunk

	structures    map[StructureID]*Structure
	nextStructure StructureID
	roads         int
	revision      uint64
}

// New generates the initial world rectangle.
func New(cfg config.WorldConfig, seed int64) *Grid {
	g := newEmpty(cfg, seed)
	r := Rect{W: cfg.Width, H: cfg.Height}
	g.gen.Generate(g, r)
	g.width, g.height = cfg.Width, cfg.Height
	return g
}

func newEmpty(cfg config.WorldConfig, seed int64) *Grid {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 32
	}
	return &Grid{
		cfg:           cfg,
		gen:           NewGenerator(cfg, seed),
		chunks:        make(map[chunkKey]*chunk),
		structures:    make(map[StructureID]*Structure),
		nextStructure: 1,
	}
}

// Width returns the current width in tiles.
func (g *Grid) Width() int { return g.width }

// Height returns the current height in tiles.
func (g *Grid) Height() int { return g.height }

// Bounds returns the published world rectangle.
func (g *Grid) Bounds() Rect { return Rect{W: g.width, H: g.height} }

// Seed returns the generation seed.
func (g *Grid) Seed() int64 { return g.gen.seed }

// Revision changes whenever exploration or tile contents change in a way
// that invalidates cached renderable lists.
func (g *Grid) Revision() uint64 { return g.revision }

// Touch bumps the revision.
func (g *Grid) Touch() { g.revision++ }

// InBounds reports whether (x, y) lies within the published bounds.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// TileAt returns the tile at (x, y), or nil outside the world.
func (g *Grid) TileAt(x, y int) *Tile {
	if !g.InBounds(x, y) {
		return nil
	}
	return g.cell(x, y)
}

// cell returns storage for (x, y) regardless of published bounds,
// allocating the chunk on first use. Only generation writes through it.
func (g *Grid) cell(x, y int) *Tile {
	size := g.cfg.ChunkSize
	k := chunkKey{x / size, y / size}
	c, ok := g.chunks[k]
	if !ok {
		c = &chunk{tiles: make([]Tile, size*size)}
		g.chunks[k] = c
	}
	return &c.tiles[(y%size)*size+x%size]
}

// Passable reports whether (x, y) is inside the world and walkable.
func (g *Grid) Passable(x, y int) bool {
	t := g.TileAt(x, y)
	return t != nil && t.Passable()
}

// Drinkable reports whether (x, y) is on or next to fresh or open water.
func (g *Grid) Drinkable(x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			t := g.TileAt(x+dx, y+dy)
			if t != nil && (t.Terrain == TerrainWater || t.Terrain == TerrainRiver) {
				return true
			}
		}
	}
	return false
}

// Explore marks every tile within radius of (cx, cy) as explored and
// returns how many were newly revealed.
func (g *Grid) Explore(cx, cy, radius int) int {
	r2 := radius * radius
	revealed := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			t := g.TileAt(cx+dx, cy+dy)
			if t == nil || t.Explored {
				continue
			}
			t.Explored = true
			revealed++
		}
	}
	if revealed > 0 {
		g.revision++
	}
	return revealed
}

// CanExpand reports whether the grid may still grow toward dir.
func (g *Grid) CanExpand(dir Direction) bool {
	switch dir {
	case East:
		return g.width < g.cfg.MaxWidth
	case South:
		return g.height < g.cfg.MaxHeight
	default:
		return false
	}
}

// Expand grows the grid by one expansion chunk toward dir and returns the
// newly generated rectangle. Existing tiles are never touched. The new
// bounds become visible only after the region is fully generated.
func (g *Grid) Expand(dir Direction) (Rect, bool) {
	if !g.CanExpand(dir) {
		return Rect{}, false
	}
	var r Rect
	switch dir {
	case East:
		w := min(g.width+g.cfg.ExpandChunk, g.cfg.MaxWidth)
		r = Rect{X: g.width, Y: 0, W: w - g.width, H: g.height}
	case South:
		h := min(g.height+g.cfg.ExpandChunk, g.cfg.MaxHeight)
		r = Rect{X: 0, Y: g.height, W: g.width, H: h - g.height}
	}
	g.gen.Generate(g, r)

	switch dir {
	case East:
		g.width = r.X + r.W
	case South:
		g.height = r.Y + r.H
	}
	g.revision++
	return r, true
}

// ForEach visits every tile of r that lies inside the world, row by row.
func (g *Grid) ForEach(r Rect, fn func(x, y int, t *Tile)) {
	r = r.Intersect(g.Bounds())
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			fn(x, y, g.cell(x, y))
		}
	}
}

// PlaceStructure registers a new structure on (x, y). Roads are rejected;
// use SetRoad.
func (g *Grid) PlaceStructure(kind StructureKind, special SpecialKind, x, y int) (*Structure, error) {
	if kind == KindRoad {
		return nil, fmt.Errorf("place %s: use SetRoad", kind)
	}
	t := g.TileAt(x, y)
	if t == nil {
		return nil, ErrOutOfBounds
	}
	if !t.Passable() {
		return nil, ErrImpassable
	}
	if !t.Buildable() {
		return nil, ErrOccupied
	}
	s := &Structure{
		ID:         g.nextStructure,
		Kind:       kind,
		Special:    special,
		Pos:        Point{X: x, Y: y},
		Level:      1,
		Efficiency: 1,
	}
	g.nextStructure++
	g.structures[s.ID] = s
	t.Structure = s.ID
	t.Tree = false
	t.Berry = nil
	g.revision++
	return s, nil
}

// RemoveStructure deletes a structure and clears its tile.
func (g *Grid) RemoveStructure(id StructureID) *Structure {
	s, ok := g.structures[id]
	if !ok {
		return nil
	}
	delete(g.structures, id)
	if t := g.TileAt(s.Pos.X, s.Pos.Y); t != nil && t.Structure == id {
		t.Structure = 0
	}
	g.revision++
	return s
}

// SetRoad sets or clears the road flag on (x, y).
func (g *Grid) SetRoad(x, y int, road bool) error {
	t := g.TileAt(x, y)
	if t == nil {
		return ErrOutOfBounds
	}
	if road {
		if !t.Passable() {
			return ErrImpassable
		}
		if t.Road || t.Structure != 0 {
			return ErrOccupied
		}
	}
	if t.Road == road {
		return nil
	}
	t.Road = road
	if road {
		g.roads++
		t.Tree = false
		t.Berry = nil
	} else {
		g.roads--
	}
	g.revision++
	return nil
}

// Structure returns the structure with id, or nil.
func (g *Grid) Structure(id StructureID) *Structure { return g.structures[id] }

// StructureAt returns the structure on (x, y), or nil.
func (g *Grid) StructureAt(x, y int) *Structure {
	t := g.TileAt(x, y)
	if t == nil || t.Structure == 0 {
		return nil
	}
	return g.structures[t.Structure]
}

// Structures returns every structure ordered by ID.
func (g *Grid) Structures() []*Structure {
	out := make([]*Structure, 0, len(g.structures))
	for _, s := range g.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts tallies structures by kind.
func (g *Grid) Counts() StructureCounts {
	var c StructureCounts
	for _, s := range g.structures {
		switch s.Kind {
		case KindWell:
			c.Wells++
		case KindResidential:
			c.Residential++
		case KindCommercial:
			c.Commercial++
		case KindIndustrial:
			c.Industrial++
		case KindSpecial:
			if s.Special > SpecialNone && s.Special < numSpecials {
				c.Specials[s.Special]++
			}
		case KindRoad:
		}
	}
	c.Roads = g.roads
	return c
}

// NearestTerrain returns the Manhattan distance to the closest tile
// matching pred, or maxDist+1 when none is within maxDist.
func (g *Grid) NearestTerrain(x, y, maxDist int, pred func(*Tile) bool) int {
	for d := 0; d <= maxDist; d++ {
		for dx := -d; dx <= d; dx++ {
			rest := d - abs(dx)
			for _, dy := range [2]int{-rest, rest} {
				t := g.TileAt(x+dx, y+dy)
				if t != nil && pred(t) {
					return d
				}
				if rest == 0 {
					break
				}
			}
		}
	}
	return maxDist + 1
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, structures=%d, roads=%d)", g.width, g.height, len(g.structures), g.roads)
}
