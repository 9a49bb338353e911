package game

import (
	"sort"
	"strings"
)

type Quality string

const (
	QualityCut      Quality = "CUT"
	QualityStandard Quality = "STANDARD"
	QualityPure     Quality = "PURE"
)

func ParseQuality(s string) (Quality, bool) {
	switch Quality(strings.ToUpper(strings.TrimSpace(s))) {
	case QualityCut:
		return QualityCut, true
	case QualityStandard:
		return QualityStandard, true
	case QualityPure:
		return QualityPure, true
	}
	return "", false
}

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

// ItemKey identifies a commodity at a quality, e.g. "weed:STANDARD".
type ItemKey string

func Key(commodity string, q Quality) ItemKey {
	return ItemKey(commodity + ":" + string(q))
}

func (k ItemKey) Split() (string, Quality) {
	c, q, _ := strings.Cut(string(k), ":")
	return c, Quality(q)
}

type Listing struct {
	Commodity string  `json:"commodity"`
	Quality   Quality `json:"quality"`
	Tier      int     `json:"tier"`
	BasePrice float64 `json:"base_price"`

	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	PrevBuy   float64 `json:"prev_buy"`
	PrevSell  float64 `json:"prev_sell"`

	Stock         int `json:"stock"`
	BaselineStock int `json:"baseline_stock"`
	MaxStock      int `json:"max_stock"`

	// Pressure is the cumulative trade pressure multiplier; 1.0 is neutral.
	Pressure   float64 `json:"pressure"`
	Reinforced bool    `json:"reinforced"`
}

// Effect is a bounded-duration modifier left on a region by an event.
type Effect struct {
	ID             string  `json:"id"`
	Event          string  `json:"event"`
	Commodity      string  `json:"commodity,omitempty"` // empty: all commodities
	BuyMult        float64 `json:"buy_mult"`
	SellMult       float64 `json:"sell_mult"`
	EncounterBonus float64 `json:"encounter_bonus,omitempty"`
	ExpiresDay     int     `json:"expires_day"`
}

type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Heat int    `json:"heat"`

	// Heat as of the start of the day; quotes are priced at this level.
	PriceHeat int `json:"price_heat"`

	Listings map[ItemKey]*Listing `json:"listings"`
	Order    []ItemKey            `json:"order"`
	Effects  []Effect             `json:"effects,omitempty"`
}

func (r *Region) Listing(commodity string, q Quality) *Listing {
	return r.Listings[Key(commodity, q)]
}

// EffectMults multiplies every active effect that applies to commodity.
func (r *Region) EffectMults(commodity string) (buy, sell float64) {
	buy, sell = 1, 1
	for _, e := range r.Effects {
		if e.Commodity != "" && e.Commodity != commodity {
			continue
		}
		if e.BuyMult > 0 {
			buy *= e.BuyMult
		}
		if e.SellMult > 0 {
			sell *= e.SellMult
		}
	}
	return buy, sell
}

func (r *Region) EncounterBonus() float64 {
	var b float64
	for _, e := range r.Effects {
		b += e.EncounterBonus
	}
	return b
}

type Currency struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	History    []float64 `json:"history,omitempty"`
	Stakeable  bool      `json:"stakeable"`
	Volatility float64   `json:"volatility"`
	MinPrice   float64   `json:"min_price"`
}

type Profile string

const (
	ProfileAggressive Profile = "AGGRESSIVE"
	ProfileBalanced   Profile = "BALANCED"
	ProfileCautious   Profile = "CAUTIOUS"
)

type Rival struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Profile      Profile `json:"profile"`
	Region       string  `json:"region"`
	Commodity    string  `json:"commodity"`
	Aggression   float64 `json:"aggression"`
	Activity     float64 `json:"activity"`
	ImpactWeight float64 `json:"impact_weight"`

	Busted              bool `json:"busted"`
	BustedDaysRemaining int  `json:"busted_days_remaining"`
	LastActiveDay       int  `json:"last_active_day"`
}

type Player struct {
	Cash           float64 `json:"cash"`
	SkillPoints    int     `json:"skill_points"`
	InformantTrust int     `json:"informant_trust"`

	Inventory     map[ItemKey]int     `json:"inventory,omitempty"`
	AvgCost       map[ItemKey]float64 `json:"avg_cost,omitempty"`
	Capacity      int                 `json:"capacity"`
	CapacityLevel int                 `json:"capacity_level"`

	Wallet             map[string]float64 `json:"wallet"`
	StakedDC           float64            `json:"staked_dc"`
	PendingLaunderedSC float64            `json:"pending_laundered_sc"`
	PendingArrivalDay  int                `json:"pending_arrival_day"`

	HasSecurePhone bool            `json:"has_secure_phone"`
	Skills         map[string]bool `json:"skills,omitempty"`

	Region            string  `json:"region"`
	JailDaysRemaining int     `json:"jail_days_remaining"`
	SetupExposure     int     `json:"setup_exposure"`
	SetupItem         ItemKey `json:"setup_item,omitempty"`

	InformantUnavailableUntil int `json:"informant_unavailable_until"`

	TotalLaundered    float64            `json:"total_laundered"`
	LargeCryptoTrades int                `json:"large_crypto_trades"`
	ProfitByRegion    map[string]float64 `json:"profit_by_region,omitempty"`
}

// Skill and upgrade ids referenced by the rules.
const (
	SkillMarketIntuition    = "MARKET_INTUITION"
	SkillDigitalFootprint   = "DIGITAL_FOOTPRINT"
	SkillCompartmentalize   = "COMPARTMENTALIZATION"
	SkillGhostProtocol      = "GHOST_PROTOCOL"
	SkillMarketAnalyst      = "MARKET_ANALYST"
	UpgradeSecurePhone      = "SECURE_PHONE"
	UpgradeExpandedCapacity = "EXPANDED_CAPACITY"
)

func (p *Player) HasSkill(id string) bool { return p.Skills[id] }

func (p *Player) InventoryTotal() int {
	n := 0
	for _, q := range p.Inventory {
		n += q
	}
	return n
}

// InventoryKeys returns held keys in sorted order.
func (p *Player) InventoryKeys() []ItemKey {
	keys := make([]ItemKey, 0, len(p.Inventory))
	for k, q := range p.Inventory {
		if q > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// AddItems adds qty units bought at unitPrice and keeps the running average cost.
func (p *Player) AddItems(k ItemKey, qty int, unitPrice float64) {
	if qty <= 0 {
		return
	}
	held := p.Inventory[k]
	total := float64(held)*p.AvgCost[k] + float64(qty)*unitPrice
	p.Inventory[k] = held + qty
	p.AvgCost[k] = total / float64(held+qty)
}

// RemoveItems removes up to qty units and returns how many were removed.
func (p *Player) RemoveItems(k ItemKey, qty int) int {
	held := p.Inventory[k]
	if qty > held {
		qty = held
	}
	if qty <= 0 {
		return 0
	}
	if held-qty == 0 {
		delete(p.Inventory, k)
		delete(p.AvgCost, k)
	} else {
		p.Inventory[k] = held - qty
	}
	return qty
}

// SellItems removes up to qty units, credits the proceeds, and books the
// realized profit against region.
func (p *Player) SellItems(k ItemKey, qty int, unit float64, region string) (sold int, profit float64) {
	cost := p.AvgCost[k]
	sold = p.RemoveItems(k, qty)
	proceeds := unit * float64(sold)
	p.Cash += proceeds
	profit = proceeds - cost*float64(sold)
	if p.ProfitByRegion == nil {
		p.ProfitByRegion = map[string]float64{}
	}
	p.ProfitByRegion[region] += profit
	return sold, profit
}

// FreeCapacity is how many more units fit.
func (p *Player) FreeCapacity() int { return p.Capacity - p.InventoryTotal() }

func (p *Player) Jailed() bool { return p.JailDaysRemaining > 0 }

type Debt struct {
	Amount float64 `json:"amount"`
	DueDay int     `json:"due_day"`
	Paid   bool    `json:"paid"`
}

type EventKind string

const (
	KindMarket      EventKind = "MARKET"
	KindRisk        EventKind = "RISK"
	KindOpportunity EventKind = "OPPORTUNITY"
	KindEcosystem   EventKind = "ECOSYSTEM"
)

// PendingChoice is a risk or opportunity the player must answer before the
// day completes. Options[0] is the default used when the turn ends unanswered.
type PendingChoice struct {
	ID      string    `json:"id"`
	Event   string    `json:"event"`
	Kind    EventKind `json:"kind"`
	Region  string    `json:"region"`
	Day     int       `json:"day"`
	Prompt  string    `json:"prompt"`
	Options []string  `json:"options"`

	Commodity   string    `json:"commodity,omitempty"`
	Quality     Quality   `json:"quality,omitempty"`
	Direction   Direction `json:"direction,omitempty"`
	Qty         int       `json:"qty,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Heat        int       `json:"heat,omitempty"`
	Destination string    `json:"destination,omitempty"`
}

func (c *PendingChoice) Default() string {
	if len(c.Options) == 0 {
		return ""
	}
	return c.Options[0]
}

func (c *PendingChoice) HasOption(opt string) bool {
	for _, o := range c.Options {
		if o == opt {
			return true
		}
	}
	return false
}

type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

type State struct {
	Seed int64 `json:"seed"`
	Day  int   `json:"day"`

	Regions     map[string]*Region   `json:"regions"`
	RegionOrder []string             `json:"region_order"`
	Currencies  map[string]*Currency `json:"currencies"`
	CurrOrder   []string             `json:"currency_order"`
	Rivals      []*Rival             `json:"rivals,omitempty"`

	Player  Player           `json:"player"`
	Debts   []Debt           `json:"debts,omitempty"`
	Choices []*PendingChoice `json:"choices,omitempty"`

	NextChoiceSeq uint64 `json:"next_choice_seq"`
	NextEffectSeq uint64 `json:"next_effect_seq"`

	// Running totals of the daily average heat, for the lifetime average.
	HeatSum  float64 `json:"heat_sum"`
	HeatDays int     `json:"heat_days"`

	GameOver bool    `json:"game_over"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason"`

	LegacyGoal     string   `json:"legacy_goal,omitempty"`
	AchievedLegacy []string `json:"achieved_legacy,omitempty"`
}

func (s *State) Region(id string) *Region { return s.Regions[id] }

func (s *State) CurrentRegion() *Region { return s.Regions[s.Player.Region] }

func (s *State) Rival(id string) *Rival {
	for _, r := range s.Rivals {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *State) Choice(id string) *PendingChoice {
	for _, c := range s.Choices {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *State) RemoveChoice(id string) {
	out := s.Choices[:0]
	for _, c := range s.Choices {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.Choices = out
}

func (s *State) HasLegacy(id string) bool {
	for _, a := range s.AchievedLegacy {
		if a == id {
			return true
		}
	}
	return false
}

// AverageHeat is the mean heat across all regions.
func (s *State) AverageHeat() float64 {
	if len(s.RegionOrder) == 0 {
		return 0
	}
	total := 0
	for _, id := range s.RegionOrder {
		total += s.Regions[id].Heat
	}
	return float64(total) / float64(len(s.RegionOrder))
}

// LifetimeAverageHeat is the mean of the recorded daily averages.
func (s *State) LifetimeAverageHeat() float64 {
	if s.HeatDays == 0 {
		return s.AverageHeat()
	}
	return s.HeatSum / float64(s.HeatDays)
}

// End latches the game-over outcome. Later calls are ignored so an outcome
// is reported once.
func (s *State) End(o Outcome, reason string) bool {
	if s.GameOver {
		return false
	}
	s.GameOver = true
	s.Outcome = o
	s.Reason = reason
	return true
}
