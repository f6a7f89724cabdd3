// Terrain generation using layered simplex noise sampled by absolute tile
// coordinate, so any rectangle can be produced in isolation and match what
// a single large generation would have produced.
package world

import (
	"math"
	mrand "math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/entropy"
)

// Hash salts for coordinate-stable features.
const (
	saltTree uint64 = iota + 1
	saltRegion
)

// Generator produces terrain for arbitrary rectangles.
type Generator struct {
	cfg       config.WorldConfig
	seed      int64
	elevNoise opensimplex.Noise
	ridge     opensimplex.Noise
}

// NewGenerator builds the noise layers for seed.
func NewGenerator(cfg config.WorldConfig, seed int64) *Generator {
	return &Generator{
		cfg:       cfg,
		seed:      seed,
		elevNoise: opensimplex.NewNormalized(seed),
		ridge:     opensimplex.NewNormalized(seed + 1),
	}
}

// Generate fills r with terrain and then runs the feature passes, all
// confined to r.
func (gen *Generator) Generate(g *Grid, r Rect) {
	if r.Area() <= 0 {
		return
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			elev := gen.Elevation(x, y)
			t := g.cell(x, y)
			*t = Tile{Terrain: gen.deriveTerrain(elev), Elevation: elev}
			switch t.Terrain {
			case TerrainForest:
				t.Tree = true
			case TerrainGrass:
				t.Tree = entropy.Unit2(gen.seed, saltTree, x, y) < gen.cfg.TreeChance
			}
		}
	}

	rng := gen.regionRNG(r)
	per := float64(r.Area()) / 10000
	gen.placeLakes(g, r, rng, countFor(gen.cfg.LakesPer10k*per, rng))
	gen.placeRivers(g, r, rng, countFor(gen.cfg.RiversPer10k*per, rng))
	placeSafeZones(g, r, rng, countFor(gen.cfg.SafeZonesPer*per, rng), gen.cfg.SafeElevation)
	gen.placeStone(g, r, rng, countFor(gen.cfg.StonePer10k*per, rng))
}

// Elevation samples the height field at a tile coordinate.
func (gen *Generator) Elevation(x, y int) float64 {
	fx, fy := float64(x), float64(y)
	base := octaveNoise(gen.elevNoise, fx, fy, 5, 0.015, 0.5)
	ridge := octaveNoise(gen.ridge, fx, fy, 2, 0.04, 0.5)
	e := base*0.85 + ridge*0.15
	return math.Max(0, math.Min(1, e))
}

// deriveTerrain maps elevation to terrain around the configured sea level.
func (gen *Generator) deriveTerrain(elev float64) Terrain {
	sea := gen.cfg.SeaLevel
	switch {
	case elev < sea-0.1:
		return TerrainDeep
	case elev < sea:
		return TerrainWater
	case elev < sea+0.05:
		return TerrainSand
	case elev < 0.6:
		return TerrainGrass
	case elev < 0.7:
		return TerrainForest
	case elev < 0.85:
		return TerrainRock
	default:
		return TerrainSnow
	}
}

// regionRNG derives a generator that depends only on the rectangle, so
// regenerating the same region reproduces the same features.
func (gen *Generator) regionRNG(r Rect) *mrand.Rand {
	h := entropy.Hash2(gen.seed, r.X, r.Y)
	return mrand.New(mrand.NewPCG(h, uint64(r.W)<<32|uint64(uint32(r.H))^uint64(saltRegion)))
}

// countFor turns a fractional expectation into a whole count.
func countFor(expected float64, rng *mrand.Rand) int {
	n := int(expected)
	if rng.Float64() < expected-float64(n) {
		n++
	}
	return n
}

// placeLakes carves ponds and lakes. Centers land on dry ground so lakes
// add water rather than deepen existing seas.
func (gen *Generator) placeLakes(g *Grid, r Rect, rng *mrand.Rand, n int) {
	sea := gen.cfg.SeaLevel
	for i := 0; i < n; i++ {
		cx, cy := r.X+rng.IntN(r.W), r.Y+rng.IntN(r.H)
		if g.cell(cx, cy).Terrain.IsWater() {
			continue
		}
		radius := 2 + rng.IntN(4)
		r2 := radius * radius
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				d2 := dx*dx + dy*dy
				x, y := cx+dx, cy+dy
				if d2 > r2 || !r.Contains(x, y) {
					continue
				}
				t := g.cell(x, y)
				if t.Terrain == TerrainSnow || t.Terrain == TerrainRock {
					continue
				}
				t.Terrain = TerrainWater
				if d2*4 < r2 && radius >= 4 {
					t.Terrain = TerrainDeep
				}
				t.Elevation = math.Min(t.Elevation, sea-0.01)
				t.Tree = false
			}
		}
	}
}

// placeRivers traces a handful of rivers from high ground downhill.
func (gen *Generator) placeRivers(g *Grid, r Rect, rng *mrand.Rand, n int) {
	for i := 0; i < n; i++ {
		best := Point{X: -1}
		bestElev := 0.0
		// Sample a few candidates and keep the highest one.
		for try := 0; try < 12; try++ {
			x, y := r.X+rng.IntN(r.W), r.Y+rng.IntN(r.H)
			e := g.cell(x, y).Elevation
			if e > 0.62 && e > bestElev {
				best, bestElev = Point{X: x, Y: y}, e
			}
		}
		if best.X < 0 {
			continue
		}
		gen.traceRiver(g, r, best)
	}
}

// traceRiver follows steepest descent until it reaches water, leaves the
// region, or finds no downhill neighbour.
func (gen *Generator) traceRiver(g *Grid, r Rect, start Point) {
	cur := start
	visited := make(map[Point]bool)
	for step := 0; step < 80; step++ {
		visited[cur] = true
		t := g.cell(cur.X, cur.Y)
		if t.Terrain == TerrainWater || t.Terrain == TerrainDeep {
			return
		}
		if t.Terrain != TerrainSnow {
			t.Terrain = TerrainRiver
			t.Tree = false
		}

		next, nextElev := cur, t.Elevation
		for _, d := range neighbours4 {
			p := cur.Add(d.X, d.Y)
			if visited[p] || !r.Contains(p.X, p.Y) {
				continue
			}
			if e := g.cell(p.X, p.Y).Elevation; e < nextElev {
				next, nextElev = p, e
			}
		}
		if next == cur {
			return
		}
		cur = next
	}
}

// placeStone turns scattered dry tiles into stone deposits.
func (gen *Generator) placeStone(g *Grid, r Rect, rng *mrand.Rand, n int) {
	for i := 0; i < n; i++ {
		x, y := r.X+rng.IntN(r.W), r.Y+rng.IntN(r.H)
		t := g.cell(x, y)
		switch t.Terrain {
		case TerrainGrass, TerrainSand, TerrainRock, TerrainForest:
			t.Terrain = TerrainStone
			t.Deposit = 50 + rng.IntN(151)
			t.Tree = false
		}
	}
}

var neighbours4 = [4]Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
