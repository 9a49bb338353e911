package tuning

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:   "1.0",
		SnapshotEveryDays: 1,
		Player: Player{
			StartingCash:           2000,
			StartingRegion:         "downtown",
			StartingInformantTrust: 50,
			BaseCapacity:           150,
			CapacityPerLevel:       50,
			CapacityCosts:          []float64{1000, 2500, 5000, 8000},
			TravelCost:             50,
			BankruptcyThreshold:    -1000,
			SkillPointEveryDays:    7,
		},
		Debts: []Debt{
			{Amount: 25000, DueDay: 15},
			{Amount: 30000, DueDay: 30},
			{Amount: 20000, DueDay: 45},
		},
		Market: Market{
			PriceFloor:     1.0,
			CeilingFactor:  4.0,
			SellSpread:     0.85,
			PressureImpact: 0.5,
			PressureMin:    0.5,
			PressureMax:    2.0,
			PressureDecay:  0.25,
			PressureRefMin: 20,
			RestockRate:    0.10,
			HeatPrice: []Threshold{
				{Heat: 0, Mult: 1.00},
				{Heat: 21, Mult: 1.05},
				{Heat: 51, Mult: 1.10},
				{Heat: 81, Mult: 1.15},
			},
			HeatStock: []Threshold{
				{Heat: 0, Mult: 1.00},
				{Heat: 31, Mult: 0.75},
				{Heat: 61, Mult: 0.50},
				{Heat: 91, Mult: 0.25},
			},
			QualityBuy:  map[string]float64{"CUT": 0.70, "STANDARD": 1.0, "PURE": 1.5},
			QualitySell: map[string]float64{"CUT": 0.75, "STANDARD": 1.0, "PURE": 1.6},
			QualityHeat: map[string]float64{"CUT": 0.8, "STANDARD": 1.0, "PURE": 1.3},
		},
		Heat: Heat{
			Max:                 100,
			DecayPct:            0.05,
			MinDecay:            1,
			GhostProtocolBoost:  0.15,
			SalePerUnitByTier:   map[int]int{1: 1, 2: 2, 3: 4, 4: 8},
			CompartmentalizePct: 0.10,
			EncounterThreshold:  50,
			EncounterLowChance:  0.05,
			EncounterBase:       0.10,
			EncounterPerPoint:   0.01,
			EncounterMax:        0.95,
			SetupBonus:          0.50,
			StingShare:          0.70,
		},
		Police: Police{
			BribeMin:           50,
			BribePct:           0.10,
			BribeBase:          0.60,
			BribeHeatPenalty:   0.005,
			BribeMinChance:     0.10,
			BribeMaxChance:     0.90,
			AutoBribeChance:    0.50,
			ResistChance:       0.35,
			ResistHeat:         10,
			ConfiscationChance: 0.50,
			ConfiscateMinPct:   0.10,
			ConfiscateMaxPct:   0.50,
			ConfiscateHeatMin:  5,
			ConfiscateHeatMax:  15,
			JailThreshold:      70,
			JailChance:         0.20,
			JailHighTierBonus:  0.25,
			JailMaxChance:      0.75,
			JailBaseDays:       3,
			JailDaysPerHeat:    0.1,
			JailHeat:           10,
			StingHeatMin:       15,
			StingHeatMax:       40,
		},
		OpSec: OpSec{
			DigitalFootprint: 0.25,
			SecurePhone:      0.25,
			StackingBonus:    0.25,
			Cap:              0.70,
			FloorFraction:    0.10,
		},
		Crypto: Crypto{
			Fee:                0.05,
			TradeHeatBase:      1,
			TradeHeatPerValue:  0.001,
			LargeTradeValue:    10000,
			StakeCurrency:      "DC",
			StakingDailyRate:   0.001,
			LaunderCurrency:    "SC",
			LaunderFee:         0.10,
			LaunderDelayDays:   3,
			LaunderHeatPerCash: 0.0005,
			PriceHistoryLen:    30,
		},
		Events: Events{
			TriggerChance:      0.20,
			SetupMinInventory:  10,
			SetupMinCash:       500,
			SetupExposureDays:  1,
			RunEscapeChance:    0.50,
			FireSaleRefuseHeat: 10,
		},
		Rivals: Rivals{
			QtyMin:        10,
			QtyMax:        60,
			PrimaryWeight: 3,
			CooldownMin:   1,
			CooldownMax:   3,
		},
		Contact: Contact{
			RumorCost:           50,
			DrugInfoCost:        75,
			RivalInfoCost:       100,
			TrustPerTip:         5,
			MaxTrust:            100,
			BetrayalChance:      0.03,
			BetrayalTrustBelow:  20,
			BetrayalDays:        7,
			BetrayalTrustLoss:   10,
			BetrayalHeat:        5,
			OfficialBaseCost:    1000,
			OfficialCostPerHeat: 50,
			OfficialHeatCut:     20,
			SecurePhoneCost:     5000,
		},
		TurfWar: TurfWar{
			ChancePerRegion: 0.02,
			DurationMin:     3,
			DurationMax:     6,
			HeatMin:         5,
			HeatMax:         15,
			MaxCommodities:  3,
			PriceMultMin:    1.2,
			PriceMultMax:    1.6,
			StockMultMin:    0.5,
			StockMultMax:    0.8,
		},
		Win: Win{
			TargetNetWorth:       1_000_000,
			DigitalEmpireCrypto:  250_000,
			RetirementNetWorth:   500_000,
			RetirementMaxAvgHeat: 20,
			RetirementMinTrust:   80,
		},
		Legacy: Legacy{
			BaronProfitPerRegion: 50_000,
			BaronRegions:         3,
			BaronCashReward:      25_000,
			WhalePortfolio:       100_000,
			WhaleLargeTrades:     5,
			WhaleSkillPoints:     2,
			CleanerLaundered:     100_000,
			CleanerMaxAvgHeat:    30,
			CleanerHeatCut:       20,
		},
	}
}
