// Package world provides the tile grid, terrain generation, and the
// structure registry.
package world

import "fmt"

// Point is a tile coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by (dx, dy).
func (p Point) Add(dx, dy int) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Manhattan returns |dx|+|dy| between two points.
func Manhattan(a, b Point) int { return abs(a.X-b.X) + abs(a.Y-b.Y) }

// Chebyshev returns max(|dx|,|dy|) between two points.
func Chebyshev(a, b Point) int { return max(abs(a.X-b.X), abs(a.Y-b.Y)) }

// DistSq returns the squared Euclidean distance.
func DistSq(a, b Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Rect is a half-open tile rectangle [X, X+W) × [Y, Y+H).
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Area returns W*H.
func (r Rect) Area() int { return r.W * r.H }

// Intersect clips r to o.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) String() string { return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.W, r.H) }

// Terrain types for tiles.
type Terrain uint8

const (
	TerrainGrass Terrain = iota
	TerrainForest
	TerrainSand
	TerrainRock
	TerrainStone // mineable deposit, impassable
	TerrainSnow
	TerrainWater
	TerrainDeep
	TerrainRiver
)

// IsWater reports the water kinds: water, deep, river.
func (t Terrain) IsWater() bool {
	switch t {
	case TerrainWater, TerrainDeep, TerrainRiver:
		return true
	case TerrainGrass, TerrainForest, TerrainSand, TerrainRock, TerrainStone, TerrainSnow:
		return false
	default:
		return false
	}
}

// Passable reports whether walkers and the pathfinder may enter.
func (t Terrain) Passable() bool {
	return !t.IsWater() && t != TerrainStone
}

func (t Terrain) String() string {
	switch t {
	case TerrainGrass:
		return "grass"
	case TerrainForest:
		return "forest"
	case TerrainSand:
		return "sand"
	case TerrainRock:
		return "rock"
	case TerrainStone:
		return "stone"
	case TerrainSnow:
		return "snow"
	case TerrainWater:
		return "water"
	case TerrainDeep:
		return "deep"
	case TerrainRiver:
		return "river"
	default:
		return "unknown"
	}
}

// Berry is forage attached to a tile.
type Berry struct {
	Food   int  `json:"food"`
	Poison bool `json:"poison"`
}

// Tile is one cell of the grid.
type Tile struct {
	Terrain   Terrain     `json:"terrain"`
	Elevation float64     `json:"elevation"` // 0.0 (sea floor) to 1.0 (peak)
	Explored  bool        `json:"explored"`
	Road      bool        `json:"road,omitempty"`
	Tree      bool        `json:"tree,omitempty"`
	Flooded   bool        `json:"flooded,omitempty"` // converted to water by geology
	Deposit   int         `json:"deposit,omitempty"` // stone left on a stone tile
	Berry     *Berry      `json:"berry,omitempty"`
	Structure StructureID `json:"structure,omitempty"`
}

// Passable reports whether the tile can be walked on.
func (t *Tile) Passable() bool { return t.Terrain.Passable() }

// Buildable reports whether a structure or road may be placed here.
func (t *Tile) Buildable() bool {
	return t.Terrain.Passable() && t.Structure == 0 && !t.Road
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
