package engine

import (
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/pathfind"
	"github.com/talgya/civilzones/internal/world"
)

// rareFindAmount is what a lucky step turns up.
const rareFindAmount = 1

// MovePlayer steps the band by (dx, dy), one tile in any of eight
// directions. Only valid while wandering.
func (s *Simulation) MovePlayer(dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canMove(dx, dy); err != nil {
		return err
	}
	s.player.Path = nil
	s.move(dx, dy)
	return nil
}

// MovePlayerTo plans an A* route to (x, y) which the band then walks one
// tile per tick.
func (s *Simulation) MovePlayerTo(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseWander {
		return reject("not wandering")
	}
	if !s.grid.Passable(x, y) {
		return reject("destination %d,%d is not passable", x, y)
	}
	goal := world.Point{X: x, Y: y}
	path := pathfind.Find(s.grid, s.player.Pos, goal, s.cfg.World.PathMaxNodes)
	if len(path) == 0 {
		return reject("no route to %d,%d", x, y)
	}
	s.player.Path = path
	return nil
}

func (s *Simulation) canMove(dx, dy int) error {
	if s.phase != PhaseWander {
		return reject("not wandering")
	}
	if (dx == 0 && dy == 0) || abs(dx) > 1 || abs(dy) > 1 {
		return reject("step %d,%d is not a single tile", dx, dy)
	}
	to := s.player.Pos.Add(dx, dy)
	if !s.grid.Passable(to.X, to.Y) {
		return reject("tile %d,%d is not passable", to.X, to.Y)
	}
	return nil
}

// followPath takes the next queued auto-walk step, dropping the route if
// the way is blocked.
func (s *Simulation) followPath() {
	p := s.player
	if len(p.Path) == 0 {
		return
	}
	next := p.Path[0]
	dx, dy := next.X-p.Pos.X, next.Y-p.Pos.Y
	if s.canMove(dx, dy) != nil {
		p.Path = nil
		return
	}
	p.Path = p.Path[1:]
	s.move(dx, dy)
}

// move applies one validated step: expansion, movement effects,
// exploration, and whatever stands on the new tile.
func (s *Simulation) move(dx, dy int) {
	p := s.player
	pc := s.cfg.Player
	p.Pos = p.Pos.Add(dx, dy)
	p.Facing = agents.FacingFor(dx, dy)
	p.WalkPhase = (p.WalkPhase + 1) % 5
	s.env.Player = p.Pos
	s.cache.invalidate()

	s.checkExpansion()

	t := s.grid.TileAt(p.Pos.X, p.Pos.Y)
	s.stepEffects(t)
	if s.phase == PhaseGameOver {
		return
	}

	s.grid.Explore(p.Pos.X, p.Pos.Y, p.VisionRadius(pc))
	if p.VisionBonus > 0 {
		p.VisionBonus--
	}

	s.meetOnTile()
}

func (s *Simulation) stepEffects(t *world.Tile) {
	p := s.player
	pc := s.cfg.Player

	p.FoodSteps++
	if pc.StepsPerFood > 0 && p.FoodSteps >= pc.StepsPerFood {
		p.FoodSteps = 0
		p.Pouch.Food = math.Max(0, p.Pouch.Food-float64(p.Population)*s.cfg.Economy.FoodPerPerson)
		if p.Pouch.Food <= 0 {
			s.gameOver(economy.CauseStarvation)
			return
		}
	}

	p.Thirstier(pc)
	if s.grid.Drinkable(p.Pos.X, p.Pos.Y) {
		p.Drink(pc)
	}
	if p.Thirst <= 0 {
		s.gameOver(economy.CauseThirst)
		return
	}

	if t.Terrain == world.TerrainForest {
		p.Pouch.TryAdd(&p.Pouch.Wood, pc.WoodPerStep)
	}
	if t.Tree {
		wood := float64(s.rng.Range(pc.TreeWoodMin, pc.TreeWoodMax))
		if p.Pouch.TryAdd(&p.Pouch.Wood, wood) > 0 {
			t.Tree = false
			s.grid.Touch()
		}
	}
	if (t.Terrain == world.TerrainGrass || t.Terrain == world.TerrainSand) && s.rng.Chance(pc.RareFindChance) {
		if s.rng.Chance(pc.MetalChance) {
			p.Pouch.TryAdd(&p.Pouch.Metal, rareFindAmount)
		} else {
			p.Pouch.TryAdd(&p.Pouch.Stone, rareFindAmount)
		}
	}
	if b := t.Berry; b != nil {
		t.Berry = nil
		s.grid.Touch()
		if b.Poison {
			p.TakeDamage(pc.PoisonDamage)
			p.UpdateCapacity(pc)
			s.emit("forage", "poisonous berries cost %d", pc.PoisonDamage)
			if p.Dead() {
				s.gameOver(economy.CauseUnknown)
			}
			return
		}
		got := p.Pouch.TryAdd(&p.Pouch.Food, float64(b.Food))
		p.FoodFound += got
	}
}

// meetOnTile handles the band stepping onto a creature or nomad.
func (s *Simulation) meetOnTile() {
	p := s.player
	if id, ok := s.env.NomadAt(p.Pos); ok {
		s.meetNomad(id)
		if s.phase == PhaseGameOver {
			return
		}
	}
	if id, ok := s.env.CreatureAt(p.Pos); ok {
		if s.env.CountAdjacent(p.Pos, id) >= 2 {
			loss := min(s.cfg.Nomads.HerdLossCap, int(float64(p.Population)*s.cfg.Nomads.HerdLoss))
			s.woundBand(loss, "walked into a herd")
		}
	}
}

// checkExpansion grows the world east or south when the player nears the
// edge. The new region is generated and populated before anything reads
// the new bounds.
func (s *Simulation) checkExpansion() {
	trigger := s.cfg.World.ExpandTriggerDistance
	p := s.player.Pos
	if s.grid.Width()-1-p.X <= trigger {
		s.expand(world.East)
	}
	if s.grid.Height()-1-p.Y <= trigger {
		s.expand(world.South)
	}
}

func (s *Simulation) expand(dir world.Direction) {
	r, ok := s.grid.Expand(dir)
	if !ok {
		return
	}
	w, h := s.grid.Width(), s.grid.Height()
	s.env.CreatureIdx.Resize(w, h)
	s.env.NomadIdx.Resize(w, h)
	s.structIdx.Resize(w, h)
	rep := s.spawner.SeedRegion(&s.env, r)
	s.emit("world", "the land opens to the %s", dir)
	slog.Info("world expanded",
		"direction", dir.String(),
		"region", r.String(),
		"width", w,
		"height", h,
		"tiles", humanize.Comma(int64(w)*int64(h)),
		"creatures", rep.Creatures,
		"nomads", rep.Nomads,
	)
}

// wanderYear advances the calendar and geology while the band roams.
func (s *Simulation) wanderYear() {
	s.ledger.Year++
	rep := s.geology.AdvanceYear(s.grid)
	s.afterFlood(rep)
	p := s.player.Pos
	if s.phase == PhaseWander && !s.grid.Passable(p.X, p.Y) {
		s.emit("geology", "the waters rose over the band")
		s.gameOver(economy.CauseFlood)
	}
}
