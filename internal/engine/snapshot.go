package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/entropy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/persistence/snapshot"
	"github.com/talgya/civilzones/internal/world"
)

// snapshotEvents is how much of the event log travels with a snapshot.
const snapshotEvents = 200

// ExportSnapshot captures the complete simulation state.
func (s *Simulation) ExportSnapshot() (*snapshot.SnapshotV1, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfgYAML, err := s.cfg.YAML()
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	rng, err := s.rng.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode rng: %w", err)
	}

	snap := &snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: s.worldID.String(),
			Tick:    s.tick,
			Year:    s.ledger.Year,
			Phase:   s.phase.String(),
		},
		Config:   cfgYAML,
		Seed:     s.grid.Seed(),
		RNG:      rng,
		Width:    s.grid.Width(),
		Height:   s.grid.Height(),
		Revision: s.grid.Revision(),
		Tiles:    s.grid.Tiles(),
		Player:   *s.player,
		Ledger:   s.ledger,
		LastTurn: s.lastTurn,
		Geology:  s.geology.State,
		Phase:    uint8(s.phase),
		Cause:    uint8(s.cause),
		Settled:  s.settled,

		CreatureSlots: s.creatures.Slots(),
		NomadSlots:    s.nomads.Slots(),
	}
	snap.Player.Path = append([]world.Point(nil), s.player.Path...)
	for _, st := range s.grid.Structures() {
		snap.Structs = append(snap.Structs, *st)
	}
	s.creatures.Each(func(id int, c *agents.Creature) {
		snap.Creatures = append(snap.Creatures, snapshot.CreatureV1{Slot: id, Creature: *c})
	})
	s.nomads.Each(func(id int, n *agents.Nomad) {
		snap.Nomads = append(snap.Nomads, snapshot.NomadV1{Slot: id, Nomad: *n})
	})
	for _, e := range s.events[max(0, len(s.events)-snapshotEvents):] {
		snap.Events = append(snap.Events, snapshot.EventV1(e))
	}
	return snap, nil
}

// Restore rebuilds a simulation from a snapshot. The restored world
// continues exactly where the saved one stopped, RNG stream included.
func Restore(snap *snapshot.SnapshotV1) (*Simulation, error) {
	cfg, err := config.Parse(snap.Config)
	if err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}
	id, err := uuid.Parse(snap.Header.WorldID)
	if err != nil {
		return nil, fmt.Errorf("snapshot world id: %w", err)
	}
	rng := entropy.New(snap.Seed)
	if err := rng.UnmarshalBinary(snap.RNG); err != nil {
		return nil, fmt.Errorf("snapshot rng: %w", err)
	}
	if snap.Phase > uint8(PhaseGameOver) {
		return nil, fmt.Errorf("snapshot phase %d out of range", snap.Phase)
	}

	s := newSimulation(cfg, id, rng)
	s.grid, err = world.Restore(cfg.World, snap.Seed, snap.Width, snap.Height, snap.Tiles, snap.Structs, snap.Revision)
	if err != nil {
		return nil, fmt.Errorf("snapshot grid: %w", err)
	}
	s.geology = geology.Restore(cfg.Geology, snap.Geology)
	player := snap.Player
	s.player = &player
	s.wire()

	for _, c := range snap.Creatures {
		if !s.grid.InBounds(c.Creature.Pos.X, c.Creature.Pos.Y) {
			return nil, fmt.Errorf("creature %d at %v outside world", c.Slot, c.Creature.Pos)
		}
		s.creatures.Place(c.Slot, c.Creature)
		s.env.CreatureIdx.Insert(c.Slot, c.Creature.Pos.X, c.Creature.Pos.Y)
	}
	s.creatures.Reserve(snap.CreatureSlots)
	s.creatures.Compact()
	for _, n := range snap.Nomads {
		if !s.grid.InBounds(n.Nomad.Pos.X, n.Nomad.Pos.Y) {
			return nil, fmt.Errorf("nomad %d at %v outside world", n.Slot, n.Nomad.Pos)
		}
		s.nomads.Place(n.Slot, n.Nomad)
		s.env.NomadIdx.Insert(n.Slot, n.Nomad.Pos.X, n.Nomad.Pos.Y)
	}
	s.nomads.Reserve(snap.NomadSlots)
	s.nomads.Compact()

	s.tick = snap.Header.Tick
	s.ledger = snap.Ledger
	s.lastTurn = snap.LastTurn
	s.phase = Phase(snap.Phase)
	s.cause = economy.Cause(snap.Cause)
	s.settled = snap.Settled
	for _, e := range snap.Events {
		s.events = append(s.events, Event(e))
		s.seq = max(s.seq, e.Seq)
	}

	slog.Info("world restored",
		"world_id", id.String(),
		"tick", s.tick,
		"phase", s.phase.String(),
		"width", s.grid.Width(),
		"height", s.grid.Height(),
		"creatures", s.creatures.Len(),
		"nomads", s.nomads.Len(),
	)
	return s, nil
}
