package config

// Default returns the standard configuration for a full-size world.
func Default() Config {
	return Config{
		World: WorldConfig{
			Width:                 250,
			Height:                250,
			MaxWidth:              2000,
			MaxHeight:             2000,
			ExpandChunk:           100,
			ExpandTriggerDistance: 20,
			ChunkSize:             32,
			SeaLevel:              0.30,
			TreeChance:            0.10,
			LakesPer10k:           1.5,
			SafeZonesPer:          0.6,
			SafeElevation:         0.55,
			RiversPer10k:          0.8,
			StonePer10k:           20,
			BerriesPer10k:         64,
			PoisonChance:          0.10,
			SpatialCellSize:       8,
			PathMaxNodes:          1000,
		},
		Geology: GeologyConfig{
			YearsPerCentury: 100,
			SeaLevelStep:    0.005,
			FloodMin:        0.10,
			FloodMax:        0.50,
			Periods: []Period{
				{Name: "Holocene", SeaLevel: 0.30, Centuries: 5},
				{Name: "Pluvial", SeaLevel: 0.36, Centuries: 3},
				{Name: "Glacial", SeaLevel: 0.24, Centuries: 4},
			},
		},
		Economy: EconomyConfig{
			WellWorkers:           2,
			RoadWorkersPerRoad:    0.1,
			GathererFoodRate:      1.5,
			GathererWoodRate:      3.0,
			GathererStoneRate:     0.1,
			IndustrialFood:        100,
			ChiefBonus:            0.15,
			WellCapacity:          100,
			HousingPerResidential: 20,
			WaterGraceTurns:       3,
			ThirstDeathRate:       0.10,
			StarvationRate:        0.20,
			StarvationFloor:       2,
			CollapseTurns:         5,
			ExposureRate:          0.15,
			WoodUpkeep:            1,
			FoodPerPerson:         1,
			GrowthRate:            0.10,
			FoodBufferTurns:       2,
			BoomEveryYears:        10,
			BoomAmount:            5,
			BaseFoodStorage:       2000,
			AbandonedYears:        10,
			Costs: map[string]Cost{
				"residential": {Food: 100, Wood: 100},
				"commercial":  {Food: 200, Wood: 200},
				"industrial":  {Food: 500, Wood: 100},
				"well":        {Food: 50, Wood: 200, Stone: 5},
				"road":        {Wood: 5},
			},
		},
		Specials: []SpecialConfig{
			{Name: "chief", Food: 1000, RequiredPop: 10},
			{Name: "basket", Food: 500, RequiredPop: 20, Storage: 2000},
			{Name: "pottery", Food: 5000, RequiredPop: 150, Storage: 10000},
			{Name: "granary", Food: 50000, RequiredPop: 1000, Storage: 100000},
			{Name: "palace", Food: 250000, RequiredPop: 5000, Storage: 1000000},
		},
		Creatures: CreatureConfig{
			Per10k:       170,
			WalkSpeed:    0.10,
			FleeSpeed:    0.25,
			WanderChance: 0.05,
			PackDamage:   1,
			LoneDamage:   1,
			Kinds: []CreatureKindConfig{
				{Name: "deer", Hits: 2, MinFood: 1, MaxFood: 30, Speed: 1.0, SpawnRate: 0.5, ThreatRadius: 6, FleeRadius: 3, Huntable: true},
				{Name: "bison", Hits: 3, MinFood: 5, MaxFood: 30, Speed: 0.5, SpawnRate: 0.35, ThreatRadius: 5, FleeRadius: 2, Huntable: true},
				{Name: "mammoth", Hits: 5, MinFood: 15, MaxFood: 30, Speed: 0.3, SpawnRate: 0.15, ThreatRadius: 4, FleeRadius: 1},
			},
		},
		Nomads: NomadConfig{
			Per10k:         240,
			HostileChance:  0.33,
			DamageMin:      1,
			DamageMax:      3,
			PopBonus:       1,
			CapacityBonus:  100,
			VisionBonus:    15,
			WalkSpeed:      0.08,
			ChaseSpeed:     0.20,
			HuntRadius:     8,
			StalkDistance:  2,
			ScatterChance:  0.30,
			FlankChance:    0.25,
			WanderChance:   0.10,
			CityPackLoss:   0.20,
			WanderPackLoss: 0.15,
			HerdLoss:       0.10,
			HerdLossCap:    2,
		},
		Player: PlayerConfig{
			StartPopulation: 3,
			StartFood:       50,
			VisionRadius:    3,
			BackpackBase:    150,
			BackpackPerPop:  100,
			StepsPerFood:    15,
			MaxThirst:       100,
			ThirstPerMove:   1,
			WoodPerStep:     1,
			TreeWoodMin:     2,
			TreeWoodMax:     5,
			RareFindChance:  0.01,
			MetalChance:     0.5,
			BerryFood:       10,
			BerryFoodJitter: 5,
			PoisonDamage:    1,
			StonePerMine:    5,
			SettleMinPop:    2,
			SettleMinFood:   100,
			SettleMinWood:   25,
		},
		Clock: ClockConfig{
			TickMillis:    100,
			TicksPerYear:  600,
			AutoTurnTicks: 0,
			AutosaveTicks: 3000,
		},
	}
}

// SmallTest returns a tiny, fixed-seed world for tests and rapid iteration.
func SmallTest() Config {
	c := Default()
	c.Seed = 42
	c.World.Width = 64
	c.World.Height = 64
	c.World.MaxWidth = 256
	c.World.MaxHeight = 256
	c.World.ExpandChunk = 32
	c.World.ExpandTriggerDistance = 8
	c.World.ChunkSize = 16
	c.Clock.TicksPerYear = 50
	c.Clock.AutosaveTicks = 0
	return c
}
