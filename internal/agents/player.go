package agents

import (
	"github.com/talgya/civilzones/internal/config"
	"github.com/talgya/civilzones/internal/world"
)

// Facing is the direction the player last moved.
type Facing uint8

const (
	FacingDown Facing = iota
	FacingUp
	FacingLeft
	FacingRight
)

func (f Facing) String() string {
	switch f {
	case FacingDown:
		return "down"
	case FacingUp:
		return "up"
	case FacingLeft:
		return "left"
	case FacingRight:
		return "right"
	default:
		return "unknown"
	}
}

// FacingFor returns the facing for a step of (dx, dy).
func FacingFor(dx, dy int) Facing {
	switch {
	case dx > 0:
		return FacingRight
	case dx < 0:
		return FacingLeft
	case dy < 0:
		return FacingUp
	default:
		return FacingDown
	}
}

// Pouch is the player's carried inventory. Everything shares Capacity.
type Pouch struct {
	Food     float64 `json:"food"`
	Wood     float64 `json:"wood"`
	Stone    float64 `json:"stone"`
	Metal    float64 `json:"metal"`
	Capacity float64 `json:"capacity"`
}

// Total returns everything carried.
func (p *Pouch) Total() float64 { return p.Food + p.Wood + p.Stone + p.Metal }

// Space returns remaining capacity.
func (p *Pouch) Space() float64 { return max(0, p.Capacity-p.Total()) }

// TryAdd adds up to amount into *slot, limited by free space, and returns
// what fit.
func (p *Pouch) TryAdd(slot *float64, amount float64) float64 {
	n := min(amount, p.Space())
	if n <= 0 {
		return 0
	}
	*slot += n
	return n
}

// Player is the controllable band. Population is its health.
type Player struct {
	Pos         world.Point   `json:"pos"`
	Facing      Facing        `json:"facing"`
	Population  int           `json:"population"`
	Thirst      int           `json:"thirst"`
	Pouch       Pouch         `json:"pouch"`
	WalkPhase   int           `json:"walk_phase"` // 0–4, advances per step
	VisionBonus int           `json:"vision_bonus"`
	FoodSteps   int           `json:"food_steps"`
	NomadsMet   int           `json:"nomads_met"`
	BonusSpace  float64       `json:"bonus_space"` // capacity granted by friendly nomads
	FoodFound   float64       `json:"food_found"`
	Path        []world.Point `json:"path,omitempty"` // auto-walk queue
}

// NewPlayer places a fresh band at pos.
func NewPlayer(cfg config.PlayerConfig, pos world.Point) *Player {
	p := &Player{
		Pos:        pos,
		Population: cfg.StartPopulation,
		Thirst:     cfg.MaxThirst,
		Pouch:      Pouch{Food: cfg.StartFood},
	}
	p.UpdateCapacity(cfg)
	return p
}

// VisionRadius is the exploration radius including any temporary bonus.
func (p *Player) VisionRadius(cfg config.PlayerConfig) int {
	return cfg.VisionRadius + p.VisionBonus
}

// UpdateCapacity recomputes pouch capacity from population and bonuses.
func (p *Player) UpdateCapacity(cfg config.PlayerConfig) {
	p.Pouch.Capacity = cfg.BackpackBase + float64(p.Population)*cfg.BackpackPerPop + p.BonusSpace
}

// TakeDamage lowers population, never below zero.
func (p *Player) TakeDamage(n int) {
	p.Population = max(0, p.Population-n)
}

// Dead reports whether the band is gone.
func (p *Player) Dead() bool { return p.Population <= 0 }

// Drink refills thirst.
func (p *Player) Drink(cfg config.PlayerConfig) { p.Thirst = cfg.MaxThirst }

// Thirstier applies one move's worth of thirst.
func (p *Player) Thirstier(cfg config.PlayerConfig) {
	p.Thirst = max(0, p.Thirst-cfg.ThirstPerMove)
}
