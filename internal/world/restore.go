package world

import (
	"fmt"

	"github.com/talgya/civilzones/internal/config"
)

// Tiles returns a row-major copy of every tile in the world.
func (g *Grid) Tiles() []Tile {
	out := make([]Tile, 0, g.width*g.height)
	g.ForEach(g.Bounds(), func(_, _ int, t *Tile) {
		c := *t
		if t.Berry != nil {
			b := *t.Berry
			c.Berry = &b
		}
		out = append(out, c)
	})
	return out
}

// Restore rebuilds a grid from row-major tiles and a structure list.
func Restore(cfg config.WorldConfig, seed int64, width, height int, tiles []Tile, structures []Structure, revision uint64) (*Grid, error) {
	if width <= 0 || height <= 0 || len(tiles) != width*height {
		return nil, fmt.Errorf("restore grid: %d tiles for %dx%d", len(tiles), width, height)
	}
	g := newEmpty(cfg, seed)
	for i, t := range tiles {
		*g.cell(i%width, i/width) = t
		if t.Road {
			g.roads++
		}
	}
	g.width, g.height = width, height

	for i := range structures {
		s := structures[i]
		t := g.TileAt(s.Pos.X, s.Pos.Y)
		if t == nil {
			return nil, fmt.Errorf("restore grid: structure %d at %d,%d outside world", s.ID, s.Pos.X, s.Pos.Y)
		}
		g.structures[s.ID] = &s
		t.Structure = s.ID
		if s.ID >= g.nextStructure {
			g.nextStructure = s.ID + 1
		}
	}
	g.revision = revision
	return g, nil
}
