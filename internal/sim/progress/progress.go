package progress

import (
	"fmt"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/crypto"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/tuning"
)

// Legacy scenario ids.
const (
	LegacyRegionalBaron = "REGIONAL_BARON"
	LegacyCryptoWhale   = "CRYPTO_WHALE"
	LegacyTheCleaner    = "THE_CLEANER"
)

var LegacyGoals = []string{LegacyRegionalBaron, LegacyCryptoWhale, LegacyTheCleaner}

func ValidLegacyGoal(id string) bool {
	for _, g := range LegacyGoals {
		if g == id {
			return true
		}
	}
	return false
}

type Rules struct {
	tune   tuning.Tuning
	skills catalogs.SkillCatalog
	// Mean catalog base price per commodity, for valuing inventory.
	basePrice map[string]float64
}

func NewRules(t tuning.Tuning, cats *catalogs.Catalogs) *Rules {
	bp := make(map[string]float64, len(cats.Commodities.ByID))
	for id, d := range cats.Commodities.ByID {
		bp[id] = (d.BasePrice[0] + d.BasePrice[1]) / 2
	}
	return &Rules{tune: t, skills: cats.Skills, basePrice: bp}
}

func (r *Rules) UnlockSkill(s *game.State, id string) (string, error) {
	def, ok := r.skills.ByID[id]
	if !ok {
		return "", game.Validationf(game.CodeBadArgument, "unknown skill %q", id)
	}
	p := &s.Player
	if p.HasSkill(id) {
		return "", game.InvalidStatef(game.CodeUnavailable, "%s is already unlocked", def.Name)
	}
	if p.SkillPoints < def.Cost {
		return "", game.Insufficientf(game.CodeInsufficientPoints, "%s costs %d points, you have %d", def.Name, def.Cost, p.SkillPoints)
	}
	p.SkillPoints -= def.Cost
	p.Skills[id] = true
	return fmt.Sprintf("Unlocked %s.", def.Name), nil
}

func (r *Rules) BuyUpgrade(s *game.State, id string) (string, error) {
	p := &s.Player
	switch id {
	case game.UpgradeSecurePhone:
		if p.HasSecurePhone {
			return "", game.InvalidStatef(game.CodeUnavailable, "you already own a secure phone")
		}
		cost := r.tune.Contact.SecurePhoneCost
		if p.Cash < cost {
			return "", game.Insufficientf(game.CodeInsufficientFunds, "a secure phone costs $%.0f", cost)
		}
		p.Cash -= cost
		p.HasSecurePhone = true
		return fmt.Sprintf("Bought a secure phone for $%.0f.", cost), nil
	case game.UpgradeExpandedCapacity:
		costs := r.tune.Player.CapacityCosts
		if p.CapacityLevel >= len(costs) {
			return "", game.InvalidStatef(game.CodeUnavailable, "capacity is fully upgraded")
		}
		cost := costs[p.CapacityLevel]
		if p.Cash < cost {
			return "", game.Insufficientf(game.CodeInsufficientFunds, "the next capacity level costs $%.0f", cost)
		}
		p.Cash -= cost
		p.CapacityLevel++
		p.Capacity += r.tune.Player.CapacityPerLevel
		return fmt.Sprintf("Capacity is now %d units.", p.Capacity), nil
	default:
		return "", game.Validationf(game.CodeBadArgument, "unknown upgrade %q", id)
	}
}

// AwardSkillPoint grants a point on every Nth day.
func (r *Rules) AwardSkillPoint(s *game.State) bool {
	every := r.tune.Player.SkillPointEveryDays
	if every <= 0 || s.Day <= 1 || (s.Day-1)%every != 0 {
		return false
	}
	s.Player.SkillPoints++
	return true
}

func (r *Rules) InventoryValue(s *game.State) float64 {
	var v float64
	for k, q := range s.Player.Inventory {
		c, _ := k.Split()
		v += float64(q) * r.basePrice[c]
	}
	return v
}

func (r *Rules) CryptoValue(s *game.State) float64 {
	return crypto.PortfolioValue(s, r.tune.Crypto.StakeCurrency, r.tune.Crypto.LaunderCurrency)
}

func UnpaidDebt(s *game.State) float64 {
	var d float64
	for _, debt := range s.Debts {
		if !debt.Paid {
			d += debt.Amount
		}
	}
	return d
}

// NetWorth is cash plus holdings at reference prices minus unpaid debt.
func (r *Rules) NetWorth(s *game.State) float64 {
	return s.Player.Cash + r.InventoryValue(s) + r.CryptoValue(s) - UnpaidDebt(s)
}

// CheckLegacy grants each newly completed scenario's bonus once and returns
// log lines for them.
func (r *Rules) CheckLegacy(s *game.State, adjustHeat func(reg *game.Region, amount int) int) []string {
	lg := r.tune.Legacy
	p := &s.Player
	var out []string

	if !s.HasLegacy(LegacyRegionalBaron) {
		n := 0
		for _, id := range s.RegionOrder {
			if p.ProfitByRegion[id] >= lg.BaronProfitPerRegion {
				n++
			}
		}
		if lg.BaronRegions > 0 && n >= lg.BaronRegions {
			s.AchievedLegacy = append(s.AchievedLegacy, LegacyRegionalBaron)
			p.Cash += lg.BaronCashReward
			out = append(out, fmt.Sprintf("Legacy: Regional Baron. Your network pays out $%.0f.", lg.BaronCashReward))
		}
	}
	if !s.HasLegacy(LegacyCryptoWhale) {
		if r.CryptoValue(s) >= lg.WhalePortfolio && p.LargeCryptoTrades >= lg.WhaleLargeTrades {
			s.AchievedLegacy = append(s.AchievedLegacy, LegacyCryptoWhale)
			p.SkillPoints += lg.WhaleSkillPoints
			out = append(out, fmt.Sprintf("Legacy: Crypto Whale. +%d skill points.", lg.WhaleSkillPoints))
		}
	}
	if !s.HasLegacy(LegacyTheCleaner) {
		if lg.CleanerLaundered > 0 && p.TotalLaundered >= lg.CleanerLaundered && s.AverageHeat() < lg.CleanerMaxAvgHeat {
			s.AchievedLegacy = append(s.AchievedLegacy, LegacyTheCleaner)
			for _, id := range s.RegionOrder {
				adjustHeat(s.Regions[id], -lg.CleanerHeatCut)
			}
			out = append(out, fmt.Sprintf("Legacy: The Cleaner. Heat -%d everywhere.", lg.CleanerHeatCut))
		}
	}
	return out
}

// CheckWin reports the first satisfied win condition, if any.
func (r *Rules) CheckWin(s *game.State) (bool, string) {
	w := r.tune.Win
	p := &s.Player
	nw := r.NetWorth(s)

	if w.TargetNetWorth > 0 && nw >= w.TargetNetWorth {
		return true, "net_worth"
	}
	if w.DigitalEmpireCrypto > 0 && r.CryptoValue(s) >= w.DigitalEmpireCrypto &&
		p.HasSkill(game.SkillGhostProtocol) && p.HasSkill(game.SkillDigitalFootprint) && p.HasSecurePhone {
		return true, "digital_empire"
	}
	if w.RetirementNetWorth > 0 && nw >= w.RetirementNetWorth && UnpaidDebt(s) == 0 &&
		s.AverageHeat() < w.RetirementMaxAvgHeat && p.InformantTrust >= w.RetirementMinTrust {
		return true, "perfect_retirement"
	}
	if s.LegacyGoal != "" && s.HasLegacy(s.LegacyGoal) {
		return true, "legacy:" + s.LegacyGoal
	}
	return false, ""
}
