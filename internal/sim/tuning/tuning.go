package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	SnapshotEveryDays int `yaml:"snapshot_every_days"`

	Player  Player  `yaml:"player"`
	Debts   []Debt  `yaml:"debts"`
	Market  Market  `yaml:"market"`
	Heat    Heat    `yaml:"heat"`
	Police  Police  `yaml:"police"`
	OpSec   OpSec   `yaml:"opsec"`
	Crypto  Crypto  `yaml:"crypto"`
	Events  Events  `yaml:"events"`
	Rivals  Rivals  `yaml:"rivals"`
	Contact Contact `yaml:"contacts"`
	TurfWar TurfWar `yaml:"turf_war"`
	Win     Win     `yaml:"win"`
	Legacy  Legacy  `yaml:"legacy"`
}

type Player struct {
	StartingCash           float64   `yaml:"starting_cash"`
	StartingRegion         string    `yaml:"starting_region"`
	StartingInformantTrust int       `yaml:"starting_informant_trust"`
	BaseCapacity           int       `yaml:"base_capacity"`
	CapacityPerLevel       int       `yaml:"capacity_per_level"`
	CapacityCosts          []float64 `yaml:"capacity_costs"`
	TravelCost             float64   `yaml:"travel_cost"`
	BankruptcyThreshold    float64   `yaml:"bankruptcy_threshold"`
	SkillPointEveryDays    int       `yaml:"skill_point_every_days"`
}

type Debt struct {
	Amount float64 `yaml:"amount"`
	DueDay int     `yaml:"due_day"`
}

// Threshold maps a heat level to a multiplier; a table applies the entry
// with the highest Heat not above the current heat.
type Threshold struct {
	Heat int     `yaml:"heat"`
	Mult float64 `yaml:"mult"`
}

type Market struct {
	PriceFloor     float64 `yaml:"price_floor"`
	CeilingFactor  float64 `yaml:"ceiling_factor"`
	SellSpread     float64 `yaml:"sell_spread"`
	PressureImpact float64 `yaml:"pressure_impact"`
	PressureMin    float64 `yaml:"pressure_min"`
	PressureMax    float64 `yaml:"pressure_max"`
	PressureDecay  float64 `yaml:"pressure_decay"`
	PressureRefMin int     `yaml:"pressure_ref_min"`
	RestockRate    float64 `yaml:"restock_rate"`

	HeatPrice []Threshold `yaml:"heat_price"`
	HeatStock []Threshold `yaml:"heat_stock"`

	QualityBuy  map[string]float64 `yaml:"quality_buy"`
	QualitySell map[string]float64 `yaml:"quality_sell"`
	QualityHeat map[string]float64 `yaml:"quality_heat"`
}

type Heat struct {
	Max                 int         `yaml:"max"`
	DecayPct            float64     `yaml:"decay_pct"`
	MinDecay            int         `yaml:"min_decay"`
	GhostProtocolBoost  float64     `yaml:"ghost_protocol_boost"`
	SalePerUnitByTier   map[int]int `yaml:"sale_per_unit_by_tier"`
	CompartmentalizePct float64     `yaml:"compartmentalize_pct"`

	EncounterThreshold int     `yaml:"encounter_threshold"`
	EncounterLowChance float64 `yaml:"encounter_low_chance"`
	EncounterBase      float64 `yaml:"encounter_base"`
	EncounterPerPoint  float64 `yaml:"encounter_per_point"`
	EncounterMax       float64 `yaml:"encounter_max"`
	SetupBonus         float64 `yaml:"setup_bonus"`
	StingShare         float64 `yaml:"sting_share"`
}

type Police struct {
	BribeMin         float64 `yaml:"bribe_min"`
	BribePct         float64 `yaml:"bribe_pct"`
	BribeBase        float64 `yaml:"bribe_base"`
	BribeHeatPenalty float64 `yaml:"bribe_heat_penalty"`
	BribeMinChance   float64 `yaml:"bribe_min_chance"`
	BribeMaxChance   float64 `yaml:"bribe_max_chance"`
	AutoBribeChance  float64 `yaml:"auto_bribe_chance"`

	ResistChance float64 `yaml:"resist_chance"`
	ResistHeat   int     `yaml:"resist_heat"`

	ConfiscationChance float64 `yaml:"confiscation_chance"`
	ConfiscateMinPct   float64 `yaml:"confiscate_min_pct"`
	ConfiscateMaxPct   float64 `yaml:"confiscate_max_pct"`
	ConfiscateHeatMin  int     `yaml:"confiscate_heat_min"`
	ConfiscateHeatMax  int     `yaml:"confiscate_heat_max"`

	JailThreshold     int     `yaml:"jail_threshold"`
	JailChance        float64 `yaml:"jail_chance"`
	JailHighTierBonus float64 `yaml:"jail_high_tier_bonus"`
	JailMaxChance     float64 `yaml:"jail_max_chance"`
	JailBaseDays      int     `yaml:"jail_base_days"`
	JailDaysPerHeat   float64 `yaml:"jail_days_per_heat"`
	JailHeat          int     `yaml:"jail_heat"`

	StingHeatMin int `yaml:"sting_heat_min"`
	StingHeatMax int `yaml:"sting_heat_max"`
}

type OpSec struct {
	DigitalFootprint float64 `yaml:"digital_footprint"`
	SecurePhone      float64 `yaml:"secure_phone"`
	StackingBonus    float64 `yaml:"stacking_bonus"`
	Cap              float64 `yaml:"cap"`
	FloorFraction    float64 `yaml:"floor_fraction"`
}

type Crypto struct {
	Fee                float64 `yaml:"fee"`
	TradeHeatBase      float64 `yaml:"trade_heat_base"`
	TradeHeatPerValue  float64 `yaml:"trade_heat_per_value"`
	LargeTradeValue    float64 `yaml:"large_trade_value"`
	StakeCurrency      string  `yaml:"stake_currency"`
	StakingDailyRate   float64 `yaml:"staking_daily_rate"`
	StakeCap           float64 `yaml:"stake_cap"`
	LaunderCurrency    string  `yaml:"launder_currency"`
	LaunderFee         float64 `yaml:"launder_fee"`
	LaunderDelayDays   int     `yaml:"launder_delay_days"`
	LaunderHeatPerCash float64 `yaml:"launder_heat_per_cash"`
	PriceHistoryLen    int     `yaml:"price_history_len"`
}

type Events struct {
	TriggerChance      float64 `yaml:"trigger_chance"`
	SetupMinInventory  int     `yaml:"setup_min_inventory"`
	SetupMinCash       float64 `yaml:"setup_min_cash"`
	SetupExposureDays  int     `yaml:"setup_exposure_days"`
	RunEscapeChance    float64 `yaml:"run_escape_chance"`
	FireSaleRefuseHeat int     `yaml:"fire_sale_refuse_heat"`
}

type Rivals struct {
	QtyMin        int     `yaml:"qty_min"`
	QtyMax        int     `yaml:"qty_max"`
	PrimaryWeight float64 `yaml:"primary_weight"`

	// Days a rival waits after acting, drawn per check from [min,max].
	CooldownMin int `yaml:"cooldown_min"`
	CooldownMax int `yaml:"cooldown_max"`
}

type Contact struct {
	RumorCost          float64 `yaml:"rumor_cost"`
	DrugInfoCost       float64 `yaml:"drug_info_cost"`
	RivalInfoCost      float64 `yaml:"rival_info_cost"`
	TrustPerTip        int     `yaml:"trust_per_tip"`
	MaxTrust           int     `yaml:"max_trust"`
	BetrayalChance     float64 `yaml:"betrayal_chance"`
	BetrayalTrustBelow int     `yaml:"betrayal_trust_below"`
	BetrayalDays       int     `yaml:"betrayal_days"`
	BetrayalTrustLoss  int     `yaml:"betrayal_trust_loss"`
	BetrayalHeat       int     `yaml:"betrayal_heat"`

	OfficialBaseCost    float64 `yaml:"official_base_cost"`
	OfficialCostPerHeat float64 `yaml:"official_cost_per_heat"`
	OfficialHeatCut     int     `yaml:"official_heat_cut"`

	SecurePhoneCost float64 `yaml:"secure_phone_cost"`
}

type TurfWar struct {
	ChancePerRegion float64 `yaml:"chance_per_region"`
	DurationMin     int     `yaml:"duration_min"`
	DurationMax     int     `yaml:"duration_max"`
	HeatMin         int     `yaml:"heat_min"`
	HeatMax         int     `yaml:"heat_max"`
	MaxCommodities  int     `yaml:"max_commodities"`
	PriceMultMin    float64 `yaml:"price_mult_min"`
	PriceMultMax    float64 `yaml:"price_mult_max"`
	StockMultMin    float64 `yaml:"stock_mult_min"`
	StockMultMax    float64 `yaml:"stock_mult_max"`
}

type Win struct {
	TargetNetWorth       float64 `yaml:"target_net_worth"`
	DigitalEmpireCrypto  float64 `yaml:"digital_empire_crypto"`
	RetirementNetWorth   float64 `yaml:"retirement_net_worth"`
	RetirementMaxAvgHeat float64 `yaml:"retirement_max_avg_heat"`
	RetirementMinTrust   int     `yaml:"retirement_min_trust"`
}

type Legacy struct {
	BaronProfitPerRegion float64 `yaml:"baron_profit_per_region"`
	BaronRegions         int     `yaml:"baron_regions"`
	BaronCashReward      float64 `yaml:"baron_cash_reward"`
	WhalePortfolio       float64 `yaml:"whale_portfolio"`
	WhaleLargeTrades     int     `yaml:"whale_large_trades"`
	WhaleSkillPoints     int     `yaml:"whale_skill_points"`
	CleanerLaundered     float64 `yaml:"cleaner_laundered"`
	CleanerMaxAvgHeat    float64 `yaml:"cleaner_max_avg_heat"`
	CleanerHeatCut       int     `yaml:"cleaner_heat_cut"`
}

// Load reads tuning.yaml on top of Defaults, so a file only needs to name the
// values it overrides.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Heat.Max <= 0 {
		return fmt.Errorf("heat.max must be > 0")
	}
	if t.Market.PriceFloor < 0 {
		return fmt.Errorf("market.price_floor must be >= 0")
	}
	if t.Market.PressureMin <= 0 || t.Market.PressureMax < t.Market.PressureMin {
		return fmt.Errorf("market.pressure bounds invalid: [%v,%v]", t.Market.PressureMin, t.Market.PressureMax)
	}
	if t.OpSec.Cap < 0 || t.OpSec.Cap > 1 {
		return fmt.Errorf("opsec.cap must be in [0,1]")
	}
	if t.OpSec.FloorFraction < 0 || t.OpSec.FloorFraction > 1 {
		return fmt.Errorf("opsec.floor_fraction must be in [0,1]")
	}
	if t.Player.BaseCapacity <= 0 {
		return fmt.Errorf("player.base_capacity must be > 0")
	}
	if t.Crypto.LaunderDelayDays < 0 {
		return fmt.Errorf("crypto.launder_delay_days must be >= 0")
	}
	if t.Rivals.CooldownMin < 0 || t.Rivals.CooldownMax < t.Rivals.CooldownMin {
		return fmt.Errorf("rivals.cooldown bounds invalid: [%d,%d]", t.Rivals.CooldownMin, t.Rivals.CooldownMax)
	}
	prev := 0
	for i, d := range t.Debts {
		if d.Amount <= 0 || d.DueDay <= prev {
			return fmt.Errorf("debts[%d]: amounts must be > 0 and due days increasing", i)
		}
		prev = d.DueDay
	}
	return nil
}

// MultAt looks up the multiplier for heat in a threshold table.
func MultAt(table []Threshold, heat int) float64 {
	mult := 1.0
	best := -1
	for _, th := range table {
		if heat >= th.Heat && th.Heat > best {
			best = th.Heat
			mult = th.Mult
		}
	}
	return mult
}
