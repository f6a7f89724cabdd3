// Package config holds every tunable constant of the simulation core.
// Values are supplied externally (YAML) and never hard-coded in the
// simulation packages.
package config

import (
	"errors"
	"fmt"
)

// Config is the full set of simulation inputs.
type Config struct {
	Seed int64 `yaml:"seed"` // 0 = pick one at startup

	World     WorldConfig     `yaml:"world"`
	Geology   GeologyConfig   `yaml:"geology"`
	Economy   EconomyConfig   `yaml:"economy"`
	Creatures CreatureConfig  `yaml:"creatures"`
	Nomads    NomadConfig     `yaml:"nomads"`
	Player    PlayerConfig    `yaml:"player"`
	Clock     ClockConfig     `yaml:"clock"`
	Specials  []SpecialConfig `yaml:"specials"`
}

// WorldConfig controls grid size, expansion, and terrain generation.
type WorldConfig struct {
	Width                 int `yaml:"width"`
	Height                int `yaml:"height"`
	MaxWidth              int `yaml:"max_width"`
	MaxHeight             int `yaml:"max_height"`
	ExpandChunk           int `yaml:"expand_chunk"`
	ExpandTriggerDistance int `yaml:"expand_trigger_distance"`
	ChunkSize             int `yaml:"chunk_size"` // storage chunk edge, tiles

	SeaLevel      float64 `yaml:"sea_level"` // initial sea level used by the terrain thresholds
	TreeChance    float64 `yaml:"tree_chance"`
	LakesPer10k   float64 `yaml:"lakes_per_10k"`
	SafeZonesPer  float64 `yaml:"safe_zones_per_10k"`
	SafeElevation float64 `yaml:"safe_zone_elevation"`
	RiversPer10k  float64 `yaml:"rivers_per_10k"`
	StonePer10k   float64 `yaml:"stone_per_10k"`
	BerriesPer10k float64 `yaml:"berries_per_10k"`
	PoisonChance  float64 `yaml:"poison_chance"`

	SpatialCellSize int `yaml:"spatial_cell_size"`
	PathMaxNodes    int `yaml:"path_max_nodes"`
}

// Period is one entry of the geological schedule.
type Period struct {
	Name      string  `yaml:"name"`
	SeaLevel  float64 `yaml:"sea_level"`
	Centuries int     `yaml:"centuries"`
}

// GeologyConfig drives sea-level change and flooding.
type GeologyConfig struct {
	YearsPerCentury int      `yaml:"years_per_century"`
	SeaLevelStep    float64  `yaml:"sea_level_step"`
	FloodMin        float64  `yaml:"flood_min"` // tiles at or below are never rescanned
	FloodMax        float64  `yaml:"flood_max"` // tiles at or above are never flooded
	Periods         []Period `yaml:"periods"`
}

// EconomyConfig holds per-turn rates and capacities for the city phase.
type EconomyConfig struct {
	WellWorkers           int     `yaml:"well_workers"`
	RoadWorkersPerRoad    float64 `yaml:"road_workers_per_road"`
	GathererFoodRate      float64 `yaml:"gatherer_food_rate"`
	GathererWoodRate      float64 `yaml:"gatherer_wood_rate"`
	GathererStoneRate     float64 `yaml:"gatherer_stone_rate"`
	IndustrialFood        float64 `yaml:"industrial_food"`
	ChiefBonus            float64 `yaml:"chief_bonus"`
	WellCapacity          int     `yaml:"well_capacity"`
	HousingPerResidential int     `yaml:"housing_per_residential"`
	WaterGraceTurns       int     `yaml:"water_grace_turns"`
	ThirstDeathRate       float64 `yaml:"thirst_death_rate"`
	StarvationRate        float64 `yaml:"starvation_rate"`
	StarvationFloor       int     `yaml:"starvation_floor"`
	CollapseTurns         int     `yaml:"collapse_turns"`
	ExposureRate          float64 `yaml:"exposure_rate"`
	WoodUpkeep            float64 `yaml:"wood_upkeep"`
	FoodPerPerson         float64 `yaml:"food_per_person"`
	GrowthRate            float64 `yaml:"growth_rate"`
	FoodBufferTurns       float64 `yaml:"food_buffer_turns"`
	BoomEveryYears        int     `yaml:"boom_every_years"`
	BoomAmount            int     `yaml:"boom_amount"`
	BaseFoodStorage       float64 `yaml:"base_food_storage"`
	AbandonedYears        int     `yaml:"abandoned_years"`

	Costs map[string]Cost `yaml:"costs"` // keyed by structure kind name
}

// Cost is the price of one structure.
type Cost struct {
	Food  float64 `yaml:"food"`
	Wood  float64 `yaml:"wood"`
	Stone float64 `yaml:"stone"`
	Metal float64 `yaml:"metal"`
}

// SpecialConfig describes a special structure.
type SpecialConfig struct {
	Name        string  `yaml:"name"`
	Food        float64 `yaml:"food"`
	RequiredPop int     `yaml:"required_pop"`
	Storage     float64 `yaml:"storage"`
}

// CreatureKindConfig is the per-kind table for roaming creatures.
type CreatureKindConfig struct {
	Name         string  `yaml:"name"`
	Hits         int     `yaml:"hits"`
	MinFood      int     `yaml:"min_food"`
	MaxFood      int     `yaml:"max_food"`
	Speed        float64 `yaml:"speed"`
	SpawnRate    float64 `yaml:"spawn_rate"`
	ThreatRadius int     `yaml:"threat_radius"`
	FleeRadius   int     `yaml:"flee_radius"`
	Huntable     bool    `yaml:"huntable"` // by nomads
}

// CreatureConfig controls spawning and motion of creatures.
type CreatureConfig struct {
	Per10k       float64              `yaml:"per_10k"`
	WalkSpeed    float64              `yaml:"walk_speed"` // progress per tick
	FleeSpeed    float64              `yaml:"flee_speed"`
	WanderChance float64              `yaml:"wander_chance"`
	PackDamage   int                  `yaml:"pack_damage"`
	LoneDamage   int                  `yaml:"lone_damage"`
	Kinds        []CreatureKindConfig `yaml:"kinds"`
}

// NomadConfig controls spawning and motion of nomads.
type NomadConfig struct {
	Per10k         float64 `yaml:"per_10k"`
	HostileChance  float64 `yaml:"hostile_chance"`
	DamageMin      int     `yaml:"damage_min"`
	DamageMax      int     `yaml:"damage_max"`
	PopBonus       int     `yaml:"pop_bonus"`
	CapacityBonus  float64 `yaml:"capacity_bonus"`
	VisionBonus    int     `yaml:"vision_bonus"`
	WalkSpeed      float64 `yaml:"walk_speed"`
	ChaseSpeed     float64 `yaml:"chase_speed"`
	HuntRadius     int     `yaml:"hunt_radius"`
	StalkDistance  int     `yaml:"stalk_distance"`
	ScatterChance  float64 `yaml:"scatter_chance"`
	FlankChance    float64 `yaml:"flank_chance"`
	WanderChance   float64 `yaml:"wander_chance"`
	CityPackLoss   float64 `yaml:"city_pack_loss"`
	WanderPackLoss float64 `yaml:"wander_pack_loss"`
	HerdLoss       float64 `yaml:"herd_loss"`
	HerdLossCap    int     `yaml:"herd_loss_cap"`
}

// PlayerConfig covers the wander phase.
type PlayerConfig struct {
	StartPopulation int     `yaml:"start_population"`
	StartFood       float64 `yaml:"start_food"`
	VisionRadius    int     `yaml:"vision_radius"`
	BackpackBase    float64 `yaml:"backpack_base"`
	BackpackPerPop  float64 `yaml:"backpack_per_pop"`
	StepsPerFood    int     `yaml:"steps_per_food"`
	MaxThirst       int     `yaml:"max_thirst"`
	ThirstPerMove   int     `yaml:"thirst_per_move"`
	WoodPerStep     float64 `yaml:"wood_per_step"`
	TreeWoodMin     int     `yaml:"tree_wood_min"`
	TreeWoodMax     int     `yaml:"tree_wood_max"`
	RareFindChance  float64 `yaml:"rare_find_chance"`
	MetalChance     float64 `yaml:"metal_chance"`
	BerryFood       int     `yaml:"berry_food"`
	BerryFoodJitter int     `yaml:"berry_food_jitter"`
	PoisonDamage    int     `yaml:"poison_damage"`
	StonePerMine    int     `yaml:"stone_per_mine"`
	SettleMinPop    int     `yaml:"settle_min_pop"`
	SettleMinFood   float64 `yaml:"settle_min_food"`
	SettleMinWood   float64 `yaml:"settle_min_wood"`
}

// ClockConfig sets logical tick pacing.
type ClockConfig struct {
	TickMillis    int `yaml:"tick_millis"`
	TicksPerYear  int `yaml:"ticks_per_year"`  // wander-phase year length
	AutoTurnTicks int `yaml:"auto_turn_ticks"` // 0 = city turns only by command
	AutosaveTicks int `yaml:"autosave_ticks"`
}

// Validate checks cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	w := c.World
	if w.Width > w.MaxWidth || w.Height > w.MaxHeight {
		errs = append(errs, fmt.Errorf("world: initial size %dx%d exceeds max %dx%d",
			w.Width, w.Height, w.MaxWidth, w.MaxHeight))
	}
	if w.ExpandChunk <= 0 {
		errs = append(errs, errors.New("world: expand_chunk must be positive"))
	}
	if c.Geology.FloodMin >= c.Geology.FloodMax {
		errs = append(errs, errors.New("geology: flood_min must be below flood_max"))
	}
	if len(c.Geology.Periods) == 0 {
		errs = append(errs, errors.New("geology: at least one period required"))
	}
	for i, p := range c.Geology.Periods {
		if p.Centuries <= 0 {
			errs = append(errs, fmt.Errorf("geology: period %d (%s) needs a positive duration", i, p.Name))
		}
	}
	if w.SafeElevation <= c.Geology.FloodMax {
		errs = append(errs, errors.New("world: safe_zone_elevation must be above geology flood_max"))
	}
	if len(c.Creatures.Kinds) == 0 {
		errs = append(errs, errors.New("creatures: at least one kind required"))
	}
	if c.Nomads.DamageMin > c.Nomads.DamageMax {
		errs = append(errs, errors.New("nomads: damage_min exceeds damage_max"))
	}
	if c.Player.TreeWoodMin > c.Player.TreeWoodMax {
		errs = append(errs, errors.New("player: tree_wood_min exceeds tree_wood_max"))
	}
	return errors.Join(errs...)
}
