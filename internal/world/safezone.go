// Safe-zone placement reserves high-ground patches that flooding can
// never reach, so every region has somewhere buildable to settle.
package world

import (
	mrand "math/rand/v2"
	"sort"
)

const safeZoneRadius = 3

// placeSafeZones scores sampled dry tiles and lifts the best few, spaced
// apart, into flat grass at the safe elevation.
func placeSafeZones(g *Grid, r Rect, rng *mrand.Rand, n int, elevation float64) {
	if n <= 0 {
		return
	}
	type scored struct {
		p     Point
		score float64
	}
	var candidates []scored
	for i := 0; i < n*16; i++ {
		x, y := r.X+rng.IntN(r.W), r.Y+rng.IntN(r.H)
		if s := safeZoneScore(g, r, x, y); s > 0 {
			candidates = append(candidates, scored{Point{X: x, Y: y}, s})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var chosen []Point
	minDist := safeZoneRadius * 6
	for _, c := range candidates {
		if len(chosen) >= n {
			break
		}
		if tooClose(c.p, chosen, minDist) {
			continue
		}
		chosen = append(chosen, c.p)
		liftPatch(g, r, c.p, elevation)
	}
}

// safeZoneScore prefers dry land that already sits high and has dry
// ground around it.
func safeZoneScore(g *Grid, r Rect, x, y int) float64 {
	t := g.cell(x, y)
	if t.Terrain.IsWater() || t.Terrain == TerrainSnow {
		return 0
	}
	dry := 0
	for _, d := range neighbours4 {
		p := Point{X: x + d.X*safeZoneRadius, Y: y + d.Y*safeZoneRadius}
		if r.Contains(p.X, p.Y) && !g.cell(p.X, p.Y).Terrain.IsWater() {
			dry++
		}
	}
	return t.Elevation + float64(dry)*0.1
}

func liftPatch(g *Grid, r Rect, c Point, elevation float64) {
	r2 := safeZoneRadius * safeZoneRadius
	for dy := -safeZoneRadius; dy <= safeZoneRadius; dy++ {
		for dx := -safeZoneRadius; dx <= safeZoneRadius; dx++ {
			x, y := c.X+dx, c.Y+dy
			if dx*dx+dy*dy > r2 || !r.Contains(x, y) {
				continue
			}
			t := g.cell(x, y)
			t.Terrain = TerrainGrass
			t.Deposit = 0
			if t.Elevation < elevation {
				t.Elevation = elevation
			}
		}
	}
}

func tooClose(p Point, chosen []Point, minDist int) bool {
	for _, c := range chosen {
		if Chebyshev(p, c) < minDist {
			return true
		}
	}
	return false
}
