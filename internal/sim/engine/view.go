package engine

import (
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/market"
)

// View is a read-only copy of the game for presentation. Derived fields are
// filled only when the player has unlocked the skill that reveals them.
type View struct {
	Phase    Phase       `json:"phase"`
	State    *game.State `json:"state"`
	NetWorth float64     `json:"net_worth"`
	AvgHeat  float64     `json:"avg_heat"`

	Trends  map[string]map[game.ItemKey]market.Trend `json:"trends,omitempty"`
	Changes map[string]map[game.ItemKey]float64      `json:"changes,omitempty"`
}

func (e *Engine) View() View {
	s := e.state.Clone()
	v := View{
		Phase:    e.phase,
		State:    s,
		NetWorth: e.progress.NetWorth(s),
		AvgHeat:  s.AverageHeat(),
	}
	p := &s.Player
	if p.HasSkill(game.SkillMarketIntuition) {
		v.Trends = map[string]map[game.ItemKey]market.Trend{}
		for _, id := range s.RegionOrder {
			reg := s.Regions[id]
			m := make(map[game.ItemKey]market.Trend, len(reg.Order))
			for _, k := range reg.Order {
				m[k] = market.ListingTrend(reg.Listings[k])
			}
			v.Trends[id] = m
		}
	}
	if p.HasSkill(game.SkillMarketAnalyst) {
		v.Changes = map[string]map[game.ItemKey]float64{}
		for _, id := range s.RegionOrder {
			reg := s.Regions[id]
			m := make(map[game.ItemKey]float64, len(reg.Order))
			for _, k := range reg.Order {
				l := reg.Listings[k]
				if l.PrevBuy > 0 {
					m[k] = (l.BuyPrice - l.PrevBuy) / l.PrevBuy
				}
			}
			v.Changes[id] = m
		}
	}
	return v
}
