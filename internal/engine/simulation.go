package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/entropy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/spatial"
	"github.com/talgya/civilzones/internal/world"
)

// Phase is the top-level game mode.
type Phase uint8

const (
	PhaseWander Phase = iota
	PhaseCity
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseWander:
		return "wander"
	case PhaseCity:
		return "city"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// ErrRejected wraps every refused command. A rejected command changes
// nothing.
var ErrRejected = errors.New("command rejected")

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence.
type Event struct {
	Seq         uint64 `json:"seq" db:"seq"` // strictly increasing per world
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "world", "combat", "economy", "geology", ...
}

// Simulation is the single owner of all mutable state. Every exported
// method takes the lock, so commands, ticks, and reads never interleave.
type Simulation struct {
	mu sync.Mutex

	cfg     config.Config
	worldID uuid.UUID
	tick    uint64

	grid      *world.Grid
	creatures agents.Pool[agents.Creature]
	nomads    agents.Pool[agents.Nomad]
	env       agents.Env
	structIdx *spatial.Index[world.StructureID]
	behavior  *agents.Behavior
	spawner   *agents.Spawner
	player    *agents.Player

	ledger   economy.Ledger
	econ     *economy.Simulator
	geology  *geology.Cycle
	lastTurn economy.TurnReport

	rng     *entropy.Source
	phase   Phase
	cause   economy.Cause
	settled bool

	events  []Event
	pending []Event
	seq     uint64 // last assigned Event.Seq

	cache viewCache
}

// New builds a fresh world from cfg: terrain, the player near the centre,
// and an initial population of creatures, nomads, and berries.
func New(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	s := newSimulation(cfg, uuid.New(), entropy.New(cfg.Seed))
	s.grid = world.New(cfg.World, cfg.Seed)
	s.geology = geology.New(cfg.Geology, cfg.World.SeaLevel)
	s.wire()

	start, ok := s.findStart()
	if !ok {
		return nil, fmt.Errorf("no passable start tile near centre of %dx%d world", s.grid.Width(), s.grid.Height())
	}
	s.player = agents.NewPlayer(cfg.Player, start)
	s.env.Player = start
	s.grid.Explore(start.X, start.Y, s.player.VisionRadius(cfg.Player))

	rep := s.spawner.SeedRegion(&s.env, s.grid.Bounds())
	s.econ.Capacities(&s.ledger, s.grid.Counts())

	slog.Info("world created",
		"world_id", s.worldID.String(),
		"seed", cfg.Seed,
		"width", s.grid.Width(),
		"height", s.grid.Height(),
		"creatures", rep.Creatures,
		"nomads", rep.Nomads,
		"berries", rep.Berries,
		"start", fmt.Sprintf("%d,%d", start.X, start.Y),
	)
	return s, nil
}

func newSimulation(cfg config.Config, id uuid.UUID, rng *entropy.Source) *Simulation {
	s := &Simulation{
		cfg:      cfg,
		worldID:  id,
		rng:      rng,
		econ:     economy.NewSimulator(cfg.Economy, cfg.Specials),
		behavior: agents.NewBehavior(cfg.Creatures, cfg.Nomads),
	}
	s.spawner = agents.NewSpawner(cfg, rng, s.behavior)
	return s
}

// wire builds the indexes and environment around an existing grid.
func (s *Simulation) wire() {
	w, h := s.grid.Width(), s.grid.Height()
	cell := s.cfg.World.SpatialCellSize
	s.structIdx = spatial.New[world.StructureID](cell, w, h)
	for _, st := range s.grid.Structures() {
		s.structIdx.Insert(st.ID, st.Pos.X, st.Pos.Y)
	}
	s.env = agents.Env{
		Grid:        s.grid,
		Creatures:   &s.creatures,
		Nomads:      &s.nomads,
		CreatureIdx: spatial.New[int](cell, w, h),
		NomadIdx:    spatial.New[int](cell, w, h),
		Rand:        s.rng,
	}
	if s.player != nil {
		s.env.Player = s.player.Pos
	}
}

// findStart spirals out from the centre to the first passable tile.
func (s *Simulation) findStart() (world.Point, bool) {
	return s.nearestPassable(world.Point{X: s.grid.Width() / 2, Y: s.grid.Height() / 2})
}

// nearestPassable searches rings of growing Chebyshev radius around c.
func (s *Simulation) nearestPassable(c world.Point) (world.Point, bool) {
	limit := max(s.grid.Width(), s.grid.Height())
	for r := 0; r <= limit; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				if s.grid.Passable(c.X+dx, c.Y+dy) {
					return world.Point{X: c.X + dx, Y: c.Y + dy}, true
				}
			}
		}
	}
	return world.Point{}, false
}

// Step advances the simulation by one logical tick. It does nothing once
// the game is over.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
}

func (s *Simulation) step() {
	if s.phase == PhaseGameOver {
		return
	}
	s.tick++

	if s.phase == PhaseWander {
		s.followPath()
		if s.phase == PhaseGameOver {
			return
		}
	}
	s.checkExpansion()

	s.env.Player = s.player.Pos
	enc := s.behavior.StepCreatures(&s.env)
	enc = append(enc, s.behavior.StepNomads(&s.env)...)
	s.resolveEncounters(enc)
	if s.phase == PhaseGameOver {
		return
	}

	switch s.phase {
	case PhaseWander:
		if per := uint64(s.cfg.Clock.TicksPerYear); per > 0 && s.tick%per == 0 {
			s.wanderYear()
		}
	case PhaseCity:
		if per := uint64(s.cfg.Clock.AutoTurnTicks); per > 0 && s.tick%per == 0 {
			s.advanceTurn()
		}
	case PhaseGameOver:
	}
}

// gameOver ends the simulation with cause.
func (s *Simulation) gameOver(cause economy.Cause) {
	if s.phase == PhaseGameOver {
		return
	}
	s.phase = PhaseGameOver
	s.cause = cause
	s.player.Path = nil
	s.emit("world", "game over: %s", cause)
	slog.Warn("game over", "tick", s.tick, "cause", cause.String(), "year", s.ledger.Year)
}

func (s *Simulation) emit(category, format string, args ...any) {
	s.seq++
	e := Event{Seq: s.seq, Tick: s.tick, Description: fmt.Sprintf(format, args...), Category: category}
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
	s.pending = append(s.pending, e)
}

// DrainEvents returns events raised since the previous drain.
func (s *Simulation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// RecentEvents returns up to n of the newest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := max(0, len(s.events)-n)
	return append([]Event(nil), s.events[start:]...)
}

// EventsSince returns the retained events with Seq greater than seq,
// oldest first. Events raised by commands between ticks are included.
func (s *Simulation) EventsSince(seq uint64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.events), func(i int) bool { return s.events[i].Seq > seq })
	return append([]Event(nil), s.events[i:]...)
}

// PlayerPos returns the band's tile. After settling it stays on the
// founding residence.
func (s *Simulation) PlayerPos() world.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Pos
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Phase returns the current game mode.
func (s *Simulation) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cause returns why the game ended, or CauseNone.
func (s *Simulation) Cause() economy.Cause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Halted reports whether ticking has stopped for good.
func (s *Simulation) Halted() bool { return s.Phase() == PhaseGameOver }

// WorldID identifies this world across saves.
func (s *Simulation) WorldID() uuid.UUID { return s.worldID }

// Config returns the configuration the world runs under.
func (s *Simulation) Config() config.Config { return s.cfg }

// Stats is a compact status summary.
type Stats struct {
	WorldID    string  `json:"world_id"`
	Tick       uint64  `json:"tick"`
	Year       int     `json:"year"`
	Phase      string  `json:"phase"`
	Cause      string  `json:"cause,omitempty"`
	Population int     `json:"population"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Creatures  int     `json:"creatures"`
	Nomads     int     `json:"nomads"`
	Structures int     `json:"structures"`
	SeaLevel   float64 `json:"sea_level"`
	Period     string  `json:"period"`
}

// Stats returns a status summary.
func (s *Simulation) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		WorldID:    s.worldID.String(),
		Tick:       s.tick,
		Year:       s.ledger.Year,
		Phase:      s.phase.String(),
		Population: s.population(),
		Width:      s.grid.Width(),
		Height:     s.grid.Height(),
		Creatures:  s.creatures.Len(),
		Nomads:     s.nomads.Len(),
		Structures: len(s.grid.Structures()),
		SeaLevel:   s.geology.State.SeaLevel,
		Period:     s.geology.Period().Name,
	}
	if s.cause != economy.CauseNone {
		st.Cause = s.cause.String()
	}
	return st
}

// population is the band in the wild or the settlement's count.
func (s *Simulation) population() int {
	if s.settled {
		return s.ledger.Population
	}
	return s.player.Population
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
