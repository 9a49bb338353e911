package contacts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"narcosim.ai/internal/sim/crypto"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

const (
	Informant       = "INFORMANT"
	CorruptOfficial = "CORRUPT_OFFICIAL"
	TechContact     = "TECH_CONTACT"
	DebtCollector   = "DEBT_COLLECTOR"
)

// Request is one visit: a contact, an action, and free-form string args.
type Request struct {
	Contact string
	Action  string
	Args    map[string]string
}

func (q Request) arg(name string) string { return strings.TrimSpace(q.Args[name]) }

func (q Request) amount() (float64, error) {
	raw := q.arg("amount")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, game.Validationf(game.CodeBadArgument, "amount must be a positive number, got %q", raw)
	}
	return v, nil
}

type Rules struct {
	Contact tuning.Contact
	Heat    *heat.Rules
	Crypto  *crypto.Rules
}

func NewRules(t tuning.Tuning, h *heat.Rules, c *crypto.Rules) *Rules {
	return &Rules{Contact: t.Contact, Heat: h, Crypto: c}
}

func (r *Rules) Visit(s *game.State, src *rng.Source, q Request) ([]string, error) {
	q.Contact = strings.ToUpper(strings.TrimSpace(q.Contact))
	q.Action = strings.ToUpper(strings.TrimSpace(q.Action))
	switch q.Contact {
	case Informant:
		return r.informant(s, src, q)
	case CorruptOfficial:
		return r.official(s, q)
	case TechContact:
		return r.tech(s, q)
	case DebtCollector:
		return r.collector(s, q)
	default:
		return nil, game.Validationf(game.CodeBadArgument, "unknown contact %q", q.Contact)
	}
}

func charge(p *game.Player, cost float64, what string) error {
	if p.Cash < cost {
		return game.Insufficientf(game.CodeInsufficientFunds, "%s costs $%.0f, you have $%.0f", what, cost, p.Cash)
	}
	p.Cash -= cost
	return nil
}

func (r *Rules) informant(s *game.State, src *rng.Source, q Request) ([]string, error) {
	p := &s.Player
	if s.Day < p.InformantUnavailableUntil {
		return nil, game.InvalidStatef(game.CodeUnavailable, "your informant is lying low until day %d", p.InformantUnavailableUntil)
	}
	var cost float64
	switch q.Action {
	case "RUMOR":
		cost = r.Contact.RumorCost
	case "DRUG_INFO":
		cost = r.Contact.DrugInfoCost
	case "RIVAL_INFO":
		cost = r.Contact.RivalInfoCost
	default:
		return nil, game.Validationf(game.CodeBadArgument, "the informant sells RUMOR, DRUG_INFO or RIVAL_INFO, not %q", q.Action)
	}
	if err := charge(p, cost, "a tip"); err != nil {
		return nil, err
	}

	if p.InformantTrust < r.Contact.BetrayalTrustBelow && src.Chance(r.Contact.BetrayalChance) {
		p.InformantUnavailableUntil = s.Day + r.Contact.BetrayalDays
		p.InformantTrust = max(0, p.InformantTrust-r.Contact.BetrayalTrustLoss)
		added := 0
		if reg := s.CurrentRegion(); reg != nil {
			added = r.Heat.AddHeat(reg, r.Contact.BetrayalHeat)
		}
		return []string{fmt.Sprintf("Your informant took the money and talked to the cops. Heat +%d.", added)}, nil
	}

	var out []string
	switch q.Action {
	case "RUMOR":
		out = rumor(s)
	case "DRUG_INFO":
		lines, err := drugInfo(s, q.arg("commodity"))
		if err != nil {
			return nil, err
		}
		out = lines
	case "RIVAL_INFO":
		out = rivalInfo(s)
	}
	p.InformantTrust = min(r.Contact.MaxTrust, p.InformantTrust+r.Contact.TrustPerTip)
	return out, nil
}

func rumor(s *game.State) []string {
	var out []string
	hottest := ""
	top := -1
	for _, id := range s.RegionOrder {
		reg := s.Regions[id]
		if reg.Heat > top {
			top, hottest = reg.Heat, reg.Name
		}
		for _, e := range reg.Effects {
			what := e.Commodity
			if what == "" {
				what = "everything"
			}
			out = append(out, fmt.Sprintf("%s: %s affecting %s until day %d.", reg.Name, e.Event, what, e.ExpiresDay))
		}
	}
	out = append(out, fmt.Sprintf("Cops are all over %s (heat %d).", hottest, top))
	return out
}

func drugInfo(s *game.State, commodity string) ([]string, error) {
	type quote struct {
		region string
		price  float64
	}
	var buys, sells []quote
	for _, id := range s.RegionOrder {
		reg := s.Regions[id]
		for _, k := range reg.Order {
			l := reg.Listings[k]
			if l.Commodity != commodity {
				continue
			}
			buys = append(buys, quote{reg.Name + " " + string(l.Quality), l.BuyPrice})
			sells = append(sells, quote{reg.Name + " " + string(l.Quality), l.SellPrice})
		}
	}
	if len(buys) == 0 {
		return nil, game.Validationf(game.CodeUnknownCommodity, "nobody deals %q", commodity)
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].price < buys[j].price })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].price > sells[j].price })
	return []string{
		fmt.Sprintf("Cheapest %s: %s at $%.0f.", commodity, buys[0].region, buys[0].price),
		fmt.Sprintf("Best payer for %s: %s at $%.0f.", commodity, sells[0].region, sells[0].price),
	}, nil
}

func rivalInfo(s *game.State) []string {
	var out []string
	for _, rv := range s.Rivals {
		if rv.Busted {
			out = append(out, fmt.Sprintf("%s is locked up for %d more days.", rv.Name, rv.BustedDaysRemaining))
			continue
		}
		out = append(out, fmt.Sprintf("%s is moving %s in %s.", rv.Name, rv.Commodity, rv.Region))
	}
	if len(out) == 0 {
		out = append(out, "No competition worth mentioning.")
	}
	return out
}

// OfficialCost is the price of a favor in reg.
func (r *Rules) OfficialCost(reg *game.Region) float64 {
	return r.Contact.OfficialBaseCost + r.Contact.OfficialCostPerHeat*float64(reg.Heat)
}

func (r *Rules) official(s *game.State, q Request) ([]string, error) {
	if q.Action != "" && q.Action != "BRIBE" {
		return nil, game.Validationf(game.CodeBadArgument, "the official only takes BRIBE, not %q", q.Action)
	}
	reg := s.CurrentRegion()
	if id := q.arg("region"); id != "" {
		reg = s.Region(id)
		if reg == nil {
			return nil, game.Validationf(game.CodeUnknownRegion, "unknown region %q", id)
		}
	}
	if reg.Heat == 0 {
		return nil, game.InvalidStatef(game.CodeUnavailable, "%s is already quiet", reg.Name)
	}
	cost := r.OfficialCost(reg)
	if err := charge(&s.Player, cost, "the favor"); err != nil {
		return nil, err
	}
	cut := r.Heat.AddHeat(reg, -r.Contact.OfficialHeatCut)
	return []string{fmt.Sprintf("$%.0f changes hands. Heat in %s drops by %d.", cost, reg.Name, -cut)}, nil
}

func (r *Rules) tech(s *game.State, q Request) ([]string, error) {
	switch q.Action {
	case "BUY", "SELL":
		amt, err := q.amount()
		if err != nil {
			return nil, err
		}
		dir, _ := game.ParseDirection(q.Action)
		t, err := r.Crypto.TradeCrypto(s, strings.ToUpper(q.arg("currency")), amt, dir, r.Crypto.Crypto.Fee)
		if err != nil {
			return nil, err
		}
		return []string{t.String()}, nil
	case "STAKE", "UNSTAKE":
		amt, err := q.amount()
		if err != nil {
			return nil, err
		}
		verb := "Staked"
		if q.Action == "STAKE" {
			err = r.Crypto.Stake(s, amt)
		} else {
			verb = "Unstaked"
			err = r.Crypto.Unstake(s, amt)
		}
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s %.4f %s. Staked: %.4f.", verb, amt, r.Crypto.Crypto.StakeCurrency, s.Player.StakedDC)}, nil
	case "LAUNDER":
		amt, err := q.amount()
		if err != nil {
			return nil, err
		}
		l, err := r.Crypto.Launder(s, amt)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("$%.0f goes into the wash. %.4f %s arrives on day %d.", l.Cash, l.Pending, r.Crypto.Crypto.LaunderCurrency, l.ArrivalDay)}, nil
	default:
		return nil, game.Validationf(game.CodeBadArgument, "the tech contact handles BUY, SELL, STAKE, UNSTAKE or LAUNDER, not %q", q.Action)
	}
}

func (r *Rules) collector(s *game.State, q Request) ([]string, error) {
	switch q.Action {
	case "", "STATUS":
		var out []string
		for _, d := range s.Debts {
			state := "due"
			if d.Paid {
				state = "paid"
			}
			out = append(out, fmt.Sprintf("$%.0f on day %d: %s.", d.Amount, d.DueDay, state))
		}
		return out, nil
	case "PAY":
		for i := range s.Debts {
			d := &s.Debts[i]
			if d.Paid {
				continue
			}
			if err := charge(&s.Player, d.Amount, "the next payment"); err != nil {
				return nil, err
			}
			d.Paid = true
			return []string{fmt.Sprintf("Paid $%.0f ahead of day %d.", d.Amount, d.DueDay)}, nil
		}
		return nil, game.InvalidStatef(game.CodeUnavailable, "you owe nothing")
	default:
		return nil, game.Validationf(game.CodeBadArgument, "the collector takes PAY or STATUS, not %q", q.Action)
	}
}
