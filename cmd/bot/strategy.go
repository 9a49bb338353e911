package main

import (
	"math"

	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/game"
)

// bot plays a buy-low/sell-high loop. Each action is tried at most once per
// day so a rejected command never repeats.
type bot struct {
	maxDays int

	day   int
	ended int
	tried map[string]bool
}

func (b *bot) attempt(key string) bool {
	if b.tried[key] {
		return false
	}
	b.tried[key] = true
	return true
}

// next picks the command to send for view v. ok is false when the bot is done.
func (b *bot) next(v engine.View) (engine.Command, bool) {
	s := v.State
	if s == nil || s.GameOver || b.ended >= b.maxDays {
		return engine.Command{}, false
	}
	if s.Day != b.day {
		b.day = s.Day
		b.tried = map[string]bool{}
	}
	endTurn := func() (engine.Command, bool) {
		b.ended++
		return engine.Command{Type: engine.CmdEndTurn}, true
	}

	for _, c := range s.Choices {
		if len(c.Options) > 0 && b.attempt("respond:"+c.ID) {
			return engine.Command{Type: engine.CmdRespondToEvent, EventID: c.ID, Choice: c.Options[0]}, true
		}
	}
	if s.Player.Jailed() {
		return endTurn()
	}

	p := &s.Player
	reg := s.CurrentRegion()
	if reg == nil {
		return endTurn()
	}

	// Sell anything that clears its average cost here.
	for _, k := range p.InventoryKeys() {
		l := reg.Listings[k]
		if l == nil || l.SellPrice <= p.AvgCost[k]*1.05 {
			continue
		}
		if b.attempt("sell:" + string(k)) {
			c, q := k.Split()
			return engine.Command{Type: engine.CmdSell, Commodity: c, Quality: string(q), Qty: p.Inventory[k]}, true
		}
	}

	// Buy the listing priced furthest below its base.
	if k, qty := cheapest(reg, p); qty > 0 && b.attempt("buy:"+string(k)) {
		c, q := k.Split()
		return engine.Command{Type: engine.CmdBuy, Commodity: c, Quality: string(q), Qty: qty}, true
	}

	// Carry stock somewhere it sells for more.
	if p.InventoryTotal() > 0 && b.attempt("travel") {
		if dest := bestMarket(s, p); dest != "" && dest != p.Region {
			return engine.Command{Type: engine.CmdTravel, Region: dest}, true
		}
	}
	return endTurn()
}

func cheapest(reg *game.Region, p *game.Player) (game.ItemKey, int) {
	// Empty-handed, take the best deal on offer; otherwise only real bargains.
	bestRatio := 0.95
	if p.InventoryTotal() == 0 {
		bestRatio = math.Inf(1)
	}
	var best game.ItemKey
	for _, k := range reg.Order {
		l := reg.Listings[k]
		if l == nil || l.Stock <= 0 || l.BasePrice <= 0 || l.BuyPrice > p.Cash*0.5 {
			continue
		}
		if r := l.BuyPrice / l.BasePrice; r < bestRatio {
			best, bestRatio = k, r
		}
	}
	if best == "" {
		return "", 0
	}
	l := reg.Listings[best]
	budget := int(math.Floor(p.Cash * 0.5 / l.BuyPrice))
	qty := min(budget, l.Stock, p.FreeCapacity())
	return best, qty
}

// bestMarket is the region where the held inventory fetches the most.
func bestMarket(s *game.State, p *game.Player) string {
	best, bestValue := "", 0.0
	for _, id := range s.RegionOrder {
		reg := s.Regions[id]
		value := 0.0
		for _, k := range p.InventoryKeys() {
			if l := reg.Listings[k]; l != nil {
				value += l.SellPrice * float64(p.Inventory[k])
			}
		}
		if value > bestValue {
			best, bestValue = id, value
		}
	}
	return best
}
