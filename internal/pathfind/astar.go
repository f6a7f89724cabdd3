// Package pathfind implements capped grid A* over tile passability.
package pathfind

import (
	"container/heap"

	"github.com/talgya/civilzones/internal/world"
)

// Grid is the passability view the search needs. Coordinates outside the
// world must report false.
type Grid interface {
	Passable(x, y int) bool
}

// DefaultMaxNodes bounds a search when the caller passes no cap.
const DefaultMaxNodes = 1000

var neighbours = [4]world.Point{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

type pathNode struct {
	point  world.Point
	g      int
	f      int
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

// Less orders by f, preferring deeper nodes on ties so straight runs are
// expanded before their siblings.
func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].g > pq[j].g
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Find returns the tiles to walk from start to goal, excluding start and
// ending at goal. An empty result means no route: the goal is blocked,
// unreachable, or the search expanded more than maxNodes nodes.
func Find(g Grid, start, goal world.Point, maxNodes int) []world.Point {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if start == goal || !g.Passable(goal.X, goal.Y) {
		return nil
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{point: start, f: world.Manhattan(start, goal)})
	gScore := map[world.Point]int{start: 0}
	closed := make(map[world.Point]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.point]; seen {
			continue
		}
		if current.point == goal {
			return reconstructPath(current)
		}
		closed[current.point] = struct{}{}
		if len(closed) > maxNodes {
			return nil
		}

		for _, d := range neighbours {
			next := current.point.Add(d.X, d.Y)
			if _, seen := closed[next]; seen {
				continue
			}
			if !g.Passable(next.X, next.Y) {
				continue
			}
			tentative := current.g + 1
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			heap.Push(open, &pathNode{
				point:  next,
				g:      tentative,
				f:      tentative + world.Manhattan(next, goal),
				parent: current,
			})
		}
	}
	return nil
}

// reconstructPath walks parent links back from end and returns the route
// in travel order without the start tile.
func reconstructPath(end *pathNode) []world.Point {
	path := make([]world.Point, 0, end.g)
	for node := end; node.parent != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
