package rivals

import (
	"fmt"
	"math"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/market"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

// Action records what one rival did on a day, for logs and tests.
type Action struct {
	Rival     string
	Region    string
	Item      game.ItemKey
	Direction game.Direction
	Qty       int
}

// profileScale stretches trade size by temperament.
func profileScale(p game.Profile) float64 {
	switch p {
	case game.ProfileAggressive:
		return 1.25
	case game.ProfileCautious:
		return 0.75
	default:
		return 1
	}
}

// AdvanceDay runs every rival once in catalog order. Busted rivals only count
// down; everyone else may trade in their home region once their cooldown since
// LastActiveDay has passed.
func AdvanceDay(s *game.State, tr tuning.Rivals, tm tuning.Market, src *rng.Source, day int) (acts []Action, log []string) {
	for _, rv := range s.Rivals {
		if rv.Busted {
			rv.BustedDaysRemaining--
			if rv.BustedDaysRemaining <= 0 {
				rv.BustedDaysRemaining = 0
				rv.Busted = false
				log = append(log, fmt.Sprintf("%s is back on the street.", rv.Name))
			}
			continue
		}
		if !src.Chance(rv.Activity) {
			continue
		}
		if coolingDown(rv, tr, src, day) {
			continue
		}
		reg := s.Region(rv.Region)
		if reg == nil || len(reg.Order) == 0 {
			continue
		}
		l := pickListing(reg, rv, tr.PrimaryWeight, src)
		qty := int(math.Round(float64(src.IntRange(tr.QtyMin, tr.QtyMax)) * (0.5 + rv.Aggression) * profileScale(rv.Profile)))
		if qty < 1 {
			qty = 1
		}
		dir := game.Sell
		if src.Chance(rv.Aggression) {
			dir = game.Buy
		}
		market.ApplyPressure(tm, l, qty, dir, rv.ImpactWeight)
		rv.LastActiveDay = day
		acts = append(acts, Action{Rival: rv.ID, Region: reg.ID, Item: game.Key(l.Commodity, l.Quality), Direction: dir, Qty: qty})
	}
	return acts, log
}

func coolingDown(rv *game.Rival, tr tuning.Rivals, src *rng.Source, day int) bool {
	wait := src.IntRange(tr.CooldownMin, tr.CooldownMax)
	return rv.LastActiveDay != 0 && day-rv.LastActiveDay < wait
}

func pickListing(reg *game.Region, rv *game.Rival, primary float64, src *rng.Source) *game.Listing {
	weights := make([]float64, len(reg.Order))
	for i, k := range reg.Order {
		if reg.Listings[k].Commodity == rv.Commodity {
			weights[i] = primary
		} else {
			weights[i] = 1
		}
	}
	i := src.Pick(weights)
	if i < 0 {
		i = 0
	}
	return reg.Listings[reg.Order[i]]
}

// Active reports whether the rival contributes market pressure today.
func Active(rv *game.Rival) bool { return !rv.Busted }
