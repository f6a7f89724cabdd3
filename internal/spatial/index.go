// Package spatial buckets point entities by grid cell so proximity checks
// touch a bounded number of entries.
package spatial

import (
	"cmp"
	"slices"

	"github.com/talgya/civilzones/internal/world"
)

type cellKey struct {
	X int
	Y int
}

// Index is a uniform bucket grid keyed by entity ID. Queries are exact on
// tile positions but only cells overlapping the query disk are visited.
// Buckets stay sorted by ID, so visit order depends only on contents.
type Index[K cmp.Ordered] struct {
	cellSize int
	width    int
	height   int
	cells    map[cellKey][]K
	pos      map[K]world.Point
}

// New creates an index over a width × height world.
func New[K cmp.Ordered](cellSize, width, height int) *Index[K] {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &Index[K]{
		cellSize: cellSize,
		width:    width,
		height:   height,
		cells:    make(map[cellKey][]K),
		pos:      make(map[K]world.Point),
	}
}

// Resize updates the world bounds after expansion.
func (idx *Index[K]) Resize(width, height int) {
	idx.width, idx.height = width, height
}

// Len returns the number of indexed entities.
func (idx *Index[K]) Len() int { return len(idx.pos) }

// Insert places id at (x, y), moving it if already present.
func (idx *Index[K]) Insert(id K, x, y int) {
	if old, ok := idx.pos[id]; ok {
		if old.X == x && old.Y == y {
			return
		}
		idx.removeFromCell(id, idx.cellOf(old.X, old.Y))
	}
	idx.pos[id] = world.Point{X: x, Y: y}
	k := idx.cellOf(x, y)
	bucket := idx.cells[k]
	i, _ := slices.BinarySearch(bucket, id)
	idx.cells[k] = slices.Insert(bucket, i, id)
}

// Move is Insert for an entity known to be present.
func (idx *Index[K]) Move(id K, x, y int) { idx.Insert(id, x, y) }

// Remove drops id. Unknown IDs are ignored.
func (idx *Index[K]) Remove(id K) {
	p, ok := idx.pos[id]
	if !ok {
		return
	}
	idx.removeFromCell(id, idx.cellOf(p.X, p.Y))
	delete(idx.pos, id)
}

// Position returns where id is indexed.
func (idx *Index[K]) Position(id K) (world.Point, bool) {
	p, ok := idx.pos[id]
	return p, ok
}

// At calls fn for every entity standing exactly on (x, y).
func (idx *Index[K]) At(x, y int, fn func(id K)) {
	if !idx.inBounds(x, y) {
		return
	}
	for _, id := range idx.cells[idx.cellOf(x, y)] {
		if p := idx.pos[id]; p.X == x && p.Y == y {
			fn(id)
		}
	}
}

// Cell returns the bucket holding (x, y). The slice is owned by the index.
func (idx *Index[K]) Cell(x, y int) []K {
	if !idx.inBounds(x, y) {
		return nil
	}
	return idx.cells[idx.cellOf(x, y)]
}

// QueryRadius calls fn for entities in cells overlapping the disk of
// radius r around (x, y), stopping early when fn returns false. Callers
// re-check true distance; entries outside the disk may be reported.
func (idx *Index[K]) QueryRadius(x, y, r int, fn func(id K, p world.Point) bool) {
	if r < 0 {
		return
	}
	minX, minY := max(x-r, 0), max(y-r, 0)
	maxX, maxY := min(x+r, idx.width-1), min(y+r, idx.height-1)
	if minX > maxX || minY > maxY {
		return
	}
	c0, c1 := idx.cellOf(minX, minY), idx.cellOf(maxX, maxY)
	r2 := r * r
	for cy := c0.Y; cy <= c1.Y; cy++ {
		for cx := c0.X; cx <= c1.X; cx++ {
			if idx.cellDistSq(cx, cy, x, y) > r2 {
				continue
			}
			for _, id := range idx.cells[cellKey{cx, cy}] {
				if !fn(id, idx.pos[id]) {
					return
				}
			}
		}
	}
}

// cellDistSq is the squared distance from (x, y) to the nearest tile of
// cell (cx, cy).
func (idx *Index[K]) cellDistSq(cx, cy, x, y int) int {
	x0, y0 := cx*idx.cellSize, cy*idx.cellSize
	x1, y1 := x0+idx.cellSize-1, y0+idx.cellSize-1
	dx := max(x0-x, 0, x-x1)
	dy := max(y0-y, 0, y-y1)
	return dx*dx + dy*dy
}

func (idx *Index[K]) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < idx.width && y < idx.height
}

func (idx *Index[K]) cellOf(x, y int) cellKey {
	return cellKey{X: floorDiv(x, idx.cellSize), Y: floorDiv(y, idx.cellSize)}
}

func (idx *Index[K]) removeFromCell(id K, k cellKey) {
	bucket := idx.cells[k]
	if i, found := slices.BinarySearch(bucket, id); found {
		bucket = slices.Delete(bucket, i, i+1)
	}
	if len(bucket) == 0 {
		delete(idx.cells, k)
	} else {
		idx.cells[k] = bucket
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}
