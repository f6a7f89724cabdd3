// Package agents provides the roaming creatures, nomads, and the player,
// their slab storage, spawning, and per-tick behaviour.
package agents

import "github.com/talgya/civilzones/internal/world"

// CreatureKind is the closed set of roaming animals.
type CreatureKind uint8

const (
	Deer CreatureKind = iota
	Bison
	Mammoth
)

func (k CreatureKind) String() string {
	switch k {
	case Deer:
		return "deer"
	case Bison:
		return "bison"
	case Mammoth:
		return "mammoth"
	default:
		return "unknown"
	}
}

// ParseCreatureKind maps a config name to its kind.
func ParseCreatureKind(s string) (CreatureKind, bool) {
	for _, k := range []CreatureKind{Deer, Bison, Mammoth} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// CreatureState is the creature behaviour state.
type CreatureState uint8

const (
	CreatureIdle CreatureState = iota
	CreatureWalking
	CreatureFleeing
)

func (s CreatureState) String() string {
	switch s {
	case CreatureIdle:
		return "idle"
	case CreatureWalking:
		return "walking"
	case CreatureFleeing:
		return "fleeing"
	default:
		return "unknown"
	}
}

// NomadState is the nomad behaviour state.
type NomadState uint8

const (
	NomadWalking NomadState = iota
	NomadChasing
)

func (s NomadState) String() string {
	switch s {
	case NomadWalking:
		return "walking"
	case NomadChasing:
		return "chasing"
	default:
		return "unknown"
	}
}

// Motion is a discrete position plus an in-flight step toward Target.
// Progress stays in [0, 1); it is 0 whenever no step is underway and on
// the tick a step completes.
type Motion struct {
	Pos      world.Point `json:"pos"`
	Target   world.Point `json:"target"`
	Moving   bool        `json:"moving"`
	Progress float64     `json:"progress"`
}

// begin starts a step toward to.
func (m *Motion) begin(to world.Point) {
	m.Target = to
	m.Moving = true
	m.Progress = 0
}

// Halt abandons an in-flight step, leaving the entity at Pos.
func (m *Motion) Halt() {
	m.Target = m.Pos
	m.Moving = false
	m.Progress = 0
}

// advance moves the in-flight step forward and reports arrival. On
// arrival Pos becomes Target and Progress resets to 0.
func (m *Motion) advance(speed float64) bool {
	if !m.Moving {
		return false
	}
	m.Progress += speed
	if m.Progress < 1 {
		return false
	}
	m.Pos = m.Target
	m.Moving = false
	m.Progress = 0
	return true
}

// Creature is a roaming animal.
type Creature struct {
	ID       int           `json:"id"`
	Kind     CreatureKind  `json:"kind"`
	Motion   `json:"motion"`
	HitsLeft int           `json:"hits_left"`
	Food     int           `json:"food"` // yield when hunted
	State    CreatureState `json:"state"`
	// FleeFrom is the remembered coordinate of the last threat, never a
	// link to the nomad itself.
	FleeFrom world.Point `json:"flee_from"`
	Phase    float64     `json:"phase"` // animation phase in [0, 1)
}

// Loot is what a friendly nomad hands over.
type Loot struct {
	Food  float64 `json:"food"`
	Wood  float64 `json:"wood"`
	Stone float64 `json:"stone"`
	Metal float64 `json:"metal"`
}

// Nomad is a wandering band.
type Nomad struct {
	ID      int        `json:"id"`
	Motion  `json:"motion"`
	Hostile bool       `json:"hostile"`
	Damage  int        `json:"damage"`
	Loot    Loot       `json:"loot"`
	State   NomadState `json:"state"`
	// ChaseTarget is re-derived every decision from the nearest prey.
	ChaseTarget world.Point `json:"chase_target"`
	Phase       float64     `json:"phase"`
}
