package heat

import (
	"fmt"
	"math"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

// Rules bundles the tuning the heat and police rolls need, plus the
// commodity tier table used for jail odds and sale heat.
type Rules struct {
	Heat        tuning.Heat
	Police      tuning.Police
	OpSec       tuning.OpSec
	QualityHeat map[string]float64
	Tiers       map[string]int
}

func NewRules(t tuning.Tuning, cats *catalogs.Catalogs) *Rules {
	tiers := make(map[string]int, len(cats.Commodities.ByID))
	for id, d := range cats.Commodities.ByID {
		tiers[id] = d.Tier
	}
	return &Rules{
		Heat:        t.Heat,
		Police:      t.Police,
		OpSec:       t.OpSec,
		QualityHeat: t.Market.QualityHeat,
		Tiers:       tiers,
	}
}

// AddHeat adds amount (which may be negative) and clamps to [0, max].
// It returns the change actually applied.
func (r *Rules) AddHeat(reg *game.Region, amount int) int {
	before := reg.Heat
	h := before + amount
	if h < 0 {
		h = 0
	}
	if h > r.Heat.Max {
		h = r.Heat.Max
	}
	reg.Heat = h
	return h - before
}

// DecayHeat applies one day of decay and returns the amount removed.
func (r *Rules) DecayHeat(reg *game.Region, ghost bool) int {
	if reg.Heat <= 0 {
		return 0
	}
	pct := r.Heat.DecayPct
	if ghost {
		pct *= 1 + r.Heat.GhostProtocolBoost
	}
	amt := int(math.Floor(float64(reg.Heat) * pct))
	if amt < r.Heat.MinDecay {
		amt = r.Heat.MinDecay
	}
	return -r.AddHeat(reg, -amt)
}

// EncounterChance is non-decreasing in heat.
func (r *Rules) EncounterChance(heat int, bonus float64) float64 {
	th := r.Heat.EncounterThreshold
	var p float64
	if heat < th {
		if th > 0 {
			p = r.Heat.EncounterLowChance * float64(heat) / float64(th)
		}
	} else {
		p = r.Heat.EncounterBase + r.Heat.EncounterPerPoint*float64(heat-th)
	}
	p += bonus
	if p > r.Heat.EncounterMax {
		p = r.Heat.EncounterMax
	}
	if p < 0 {
		p = 0
	}
	return p
}

type Encounter string

const (
	EncounterNone       Encounter = "NONE"
	EncounterPoliceStop Encounter = "POLICE_STOP"
	EncounterSting      Encounter = "SETUP_STING"
)

func (r *Rules) RollEncounter(reg *game.Region, p *game.Player, src *rng.Source) Encounter {
	chance := r.EncounterChance(reg.Heat, reg.EncounterBonus())
	exposed := p.SetupExposure > 0
	if exposed {
		chance = math.Min(r.Heat.EncounterMax, chance+r.Heat.SetupBonus)
	}
	if !src.Chance(chance) {
		return EncounterNone
	}
	if exposed && src.Chance(r.Heat.StingShare) {
		return EncounterSting
	}
	return EncounterPoliceStop
}

type StopChoice string

const (
	ChoiceComply StopChoice = "COMPLY"
	ChoiceBribe  StopChoice = "BRIBE"
	ChoiceResist StopChoice = "RESIST"
	ChoiceAuto   StopChoice = "AUTO"
)

// StopOptions lists the menu offered for a police stop, default first.
var StopOptions = []string{string(ChoiceComply), string(ChoiceBribe), string(ChoiceResist)}

type StopOutcome string

const (
	StopEscaped     StopOutcome = "ESCAPED"
	StopBribed      StopOutcome = "BRIBED"
	StopWarned      StopOutcome = "WARNED"
	StopConfiscated StopOutcome = "CONFISCATED"
	StopJailed      StopOutcome = "JAILED"
)

type StopResult struct {
	Outcome   StopOutcome
	Cost      float64
	Item      game.ItemKey
	Lost      int
	HeatAdded int
	JailDays  int
	Log       []string
}

// Free reports whether the player keeps moving after the stop.
func (res StopResult) Free() bool { return res.Outcome != StopJailed }

func (r *Rules) BribeCost(cash float64) float64 {
	return math.Max(r.Police.BribeMin, cash*r.Police.BribePct)
}

func (r *Rules) bribeChance(heat int) float64 {
	p := r.Police.BribeBase - float64(heat)*r.Police.BribeHeatPenalty
	return math.Max(r.Police.BribeMinChance, math.Min(r.Police.BribeMaxChance, p))
}

// ResolvePoliceStop resolves a stop in reg according to choice.
func (r *Rules) ResolvePoliceStop(choice StopChoice, p *game.Player, reg *game.Region, src *rng.Source) (StopResult, error) {
	var res StopResult
	switch choice {
	case ChoiceBribe:
		cost := r.BribeCost(p.Cash)
		if p.Cash < cost {
			res.Log = append(res.Log, fmt.Sprintf("You can't cover a $%.0f bribe.", cost))
			r.comply(&res, p, reg, src, 1)
			return res, nil
		}
		p.Cash -= cost
		res.Cost = cost
		if src.Chance(r.bribeChance(reg.Heat)) {
			res.Outcome = StopBribed
			res.Log = append(res.Log, fmt.Sprintf("The officer pockets $%.0f and waves you on.", cost))
			return res, nil
		}
		res.Log = append(res.Log, fmt.Sprintf("The officer takes $%.0f and searches you anyway.", cost))
		r.comply(&res, p, reg, src, 1)
	case ChoiceResist:
		if src.Chance(r.Police.ResistChance) {
			res.Outcome = StopEscaped
			res.HeatAdded = r.AddHeat(reg, r.Police.ResistHeat)
			res.Log = append(res.Log, "You bolt and lose them in the alleys.")
			return res, nil
		}
		res.Log = append(res.Log, "They tackle you before the corner.")
		r.comply(&res, p, reg, src, 2)
	case ChoiceComply:
		r.comply(&res, p, reg, src, 1)
	case ChoiceAuto:
		cost := r.BribeCost(p.Cash)
		if p.Cash >= cost && src.Chance(r.Police.AutoBribeChance) {
			p.Cash -= cost
			res.Cost = cost
			res.Outcome = StopBribed
			res.Log = append(res.Log, fmt.Sprintf("A patrol stops you; $%.0f makes it go away.", cost))
			return res, nil
		}
		r.comply(&res, p, reg, src, 1)
	default:
		return res, game.Validationf(game.CodeBadArgument, "unknown stop choice %q", choice)
	}
	return res, nil
}

func (r *Rules) holdsHighTier(p *game.Player) bool {
	for k, q := range p.Inventory {
		c, _ := k.Split()
		if q > 0 && r.Tiers[c] >= 3 {
			return true
		}
	}
	return false
}

func (r *Rules) jailChance(p *game.Player, mult float64) float64 {
	c := r.Police.JailChance * mult
	if r.holdsHighTier(p) {
		c += r.Police.JailHighTierBonus
	}
	return math.Min(c, r.Police.JailMaxChance)
}

func (r *Rules) comply(res *StopResult, p *game.Player, reg *game.Region, src *rng.Source, jailMult float64) {
	if reg.Heat >= r.Police.JailThreshold && src.Chance(r.jailChance(p, jailMult)) {
		r.jail(res, p, reg)
		return
	}
	keys := p.InventoryKeys()
	if len(keys) > 0 && src.Chance(r.Police.ConfiscationChance) {
		k := keys[src.Intn(len(keys))]
		pct := src.Uniform(r.Police.ConfiscateMinPct, r.Police.ConfiscateMaxPct)
		n := int(math.Ceil(float64(p.Inventory[k]) * pct))
		if n < 1 {
			n = 1
		}
		res.Outcome = StopConfiscated
		res.Item = k
		res.Lost = p.RemoveItems(k, n)
		res.HeatAdded += r.AddHeat(reg, src.IntRange(r.Police.ConfiscateHeatMin, r.Police.ConfiscateHeatMax))
		c, q := k.Split()
		res.Log = append(res.Log, fmt.Sprintf("Police seize %d %s %s.", res.Lost, q, c))
		return
	}
	if res.Outcome == "" {
		res.Outcome = StopWarned
	}
	res.Log = append(res.Log, "You get off with a warning.")
}

func (r *Rules) jail(res *StopResult, p *game.Player, reg *game.Region) {
	days := r.Police.JailBaseDays
	if reg.Heat > r.Police.JailThreshold {
		days += int(math.Floor(r.Police.JailDaysPerHeat * float64(reg.Heat-r.Police.JailThreshold)))
	}
	p.JailDaysRemaining = days
	res.Outcome = StopJailed
	res.JailDays = days
	res.HeatAdded += r.AddHeat(reg, r.Police.JailHeat)
	res.Log = append(res.Log, fmt.Sprintf("You're booked and held for %d days.", days))
}

// ResolveSting springs a setup: the deal goods are seized and the player may
// be jailed. Exposure is cleared either way.
func (r *Rules) ResolveSting(p *game.Player, reg *game.Region, src *rng.Source) StopResult {
	res := StopResult{Outcome: StopConfiscated}
	if k := p.SetupItem; k != "" {
		res.Item = k
		res.Lost = p.RemoveItems(k, p.Inventory[k])
	}
	res.HeatAdded = r.AddHeat(reg, src.IntRange(r.Police.StingHeatMin, r.Police.StingHeatMax))
	res.Log = append(res.Log, fmt.Sprintf("It was a sting. Undercover officers seize %d units.", res.Lost))
	if src.Chance(r.jailChance(p, 1)) {
		r.jail(&res, p, reg)
	}
	p.SetupExposure = 0
	p.SetupItem = ""
	return res
}

// OpSecReduction is capped-additive: each protection adds its share, and
// holding both adds the stacking bonus.
func (r *Rules) OpSecReduction(p *game.Player) float64 {
	skill := p.HasSkill(game.SkillDigitalFootprint)
	phone := p.HasSecurePhone
	var red float64
	if skill {
		red += r.OpSec.DigitalFootprint
	}
	if phone {
		red += r.OpSec.SecurePhone
	}
	if skill && phone {
		red += r.OpSec.StackingBonus
	}
	return math.Min(red, r.OpSec.Cap)
}

// CryptoHeat applies an OpSec reduction to base heat without going below
// floorFrac of base.
func CryptoHeat(base, reduction, floorFrac float64) int {
	if base <= 0 {
		return 0
	}
	reduced := int(math.Round(base * (1 - reduction)))
	floor := int(math.Ceil(base * floorFrac))
	if reduced < floor {
		return floor
	}
	return reduced
}

func (r *Rules) PlayerCryptoHeat(p *game.Player, base float64) int {
	return CryptoHeat(base, r.OpSecReduction(p), r.OpSec.FloorFraction)
}

// SaleHeat is the heat generated by selling qty units.
func (r *Rules) SaleHeat(p *game.Player, commodity string, q game.Quality, qty int) int {
	per := r.Heat.SalePerUnitByTier[r.Tiers[commodity]]
	h := float64(per * qty)
	if m, ok := r.QualityHeat[string(q)]; ok && m > 0 {
		h *= m
	}
	if p.HasSkill(game.SkillCompartmentalize) {
		h *= 1 - r.Heat.CompartmentalizePct
	}
	return int(math.Round(h))
}
