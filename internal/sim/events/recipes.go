package events

import (
	"fmt"
	"math"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/market"
)

func rangeOr(r [2]float64, def float64) (float64, float64) {
	if r[0] == 0 && r[1] == 0 {
		return def, def
	}
	return r[0], r[1]
}

func (c *Context) uniform(r [2]float64, def float64) float64 {
	lo, hi := rangeOr(r, def)
	return c.Rng.Uniform(lo, hi)
}

func (c *Context) intRange(r [2]int, def int) int {
	if r[0] == 0 && r[1] == 0 {
		return def
	}
	return c.Rng.IntRange(r[0], r[1])
}

func (c *Context) addEffect(r *game.Region, e game.Effect, days int) {
	if days < 1 {
		days = 1
	}
	e.ID = c.nextEffectID()
	e.ExpiresDay = c.Day + days
	r.Effects = append(r.Effects, e)
	market.Refresh(c.Tune.Market, r)
}

func (c *Context) pickCommodity(r *game.Region, def catalogs.EventDef) string {
	cs := commoditiesOfTier(r, def)
	if len(cs) == 0 {
		return ""
	}
	return cs[c.Rng.Intn(len(cs))]
}

func scaleStock(r *game.Region, commodity string, mult float64) {
	for _, k := range r.Order {
		l := r.Listings[k]
		if l.Commodity != commodity {
			continue
		}
		n := int(math.Floor(float64(l.Stock) * mult))
		if n < 1 {
			n = 1
		}
		if n > l.MaxStock {
			n = l.MaxStock
		}
		l.Stock = n
	}
}

func marketEvent(def catalogs.EventDef, r *game.Region, line string) *Event {
	return &Event{Type: def.ID, Kind: game.EventKind(def.Kind), Region: r.ID, Log: []string{line}}
}

func applyDemandSpike(c *Context, def catalogs.EventDef) *Event {
	r := c.Target
	com := c.pickCommodity(r, def)
	days := c.intRange(def.Duration, 3)
	buy := c.uniform(def.BuyMult, 1)
	sell := c.uniform(def.SellMult, 1.5)
	c.addEffect(r, game.Effect{Event: def.ID, Commodity: com, BuyMult: buy, SellMult: sell}, days)
	return marketEvent(def, r, fmt.Sprintf("Demand for %s is spiking in %s: buyers pay up to %.0f%% more for %d days.", com, r.Name, (sell-1)*100, days))
}

func applySupplyDisruption(c *Context, def catalogs.EventDef) *Event {
	r := c.Target
	com := c.pickCommodity(r, def)
	days := c.intRange(def.Duration, 2)
	mult := def.StockMult
	if mult <= 0 {
		mult = 0.25
	}
	scaleStock(r, com, mult)
	c.addEffect(r, game.Effect{Event: def.ID, Commodity: com, BuyMult: c.uniform(def.BuyMult, 1.25), SellMult: c.uniform(def.SellMult, 1)}, days)
	return marketEvent(def, r, fmt.Sprintf("A shipment of %s into %s was intercepted. Supply is thin.", com, r.Name))
}

func applyMarketCrash(c *Context, def catalogs.EventDef) *Event {
	r := c.Target
	com := c.pickCommodity(r, def)
	days := c.intRange(def.Duration, 2)
	c.addEffect(r, game.Effect{Event: def.ID, Commodity: com, BuyMult: c.uniform(def.BuyMult, 0.4), SellMult: c.uniform(def.SellMult, 0.4)}, days)
	return marketEvent(def, r, fmt.Sprintf("The %s market in %s has crashed.", com, r.Name))
}

func applyCheapStash(c *Context, def catalogs.EventDef) *Event {
	r := c.Target
	com := c.pickCommodity(r, def)
	days := c.intRange(def.Duration, 1)
	add := c.intRange(def.StockAdd, 50)
	for _, k := range r.Order {
		l := r.Listings[k]
		if l.Commodity == com {
			l.Stock = min(l.MaxStock, l.Stock+add)
		}
	}
	c.addEffect(r, game.Effect{Event: def.ID, Commodity: com, BuyMult: c.uniform(def.BuyMult, 0.7), SellMult: 1}, days)
	return marketEvent(def, r, fmt.Sprintf("Someone dumped a stash of %s in %s. Prices are soft.", com, r.Name))
}

func applyCrackdown(c *Context, def catalogs.EventDef) *Event {
	r := c.Target
	days := c.intRange(def.Duration, 3)
	added := c.Heat.AddHeat(r, c.intRange(def.Heat, 20))
	c.addEffect(r, game.Effect{Event: def.ID, BuyMult: 1, SellMult: 1, EncounterBonus: def.EncounterBonus}, days)
	return marketEvent(def, r, fmt.Sprintf("Police crackdown in %s: heat +%d, patrols doubled for %d days.", r.Name, added, days))
}

func applyRivalBusted(c *Context, def catalogs.EventDef) *Event {
	var active []*game.Rival
	for _, rv := range c.State.Rivals {
		if !rv.Busted {
			active = append(active, rv)
		}
	}
	rv := active[c.Rng.Intn(len(active))]
	days := c.intRange(def.Duration, 7)
	if err := ApplyRivalBust(c.State, rv.ID, days); err != nil {
		return nil
	}
	return &Event{
		Type: def.ID, Kind: game.KindEcosystem, Region: rv.Region,
		Log: []string{fmt.Sprintf("%s got busted and is off the street for %d days.", rv.Name, days)},
	}
}

// ApplyRivalBust takes a rival out of the market for days day-advances.
func ApplyRivalBust(s *game.State, rivalID string, days int) error {
	rv := s.Rival(rivalID)
	if rv == nil {
		return game.Validationf(game.CodeBadArgument, "unknown rival %q", rivalID)
	}
	if days < 1 {
		return game.Validationf(game.CodeBadArgument, "bust duration must be positive, got %d", days)
	}
	rv.Busted = true
	rv.BustedDaysRemaining = days
	return nil
}

// turfParams unifies the registry event and the per-region roll.
type turfParams struct {
	days       int
	heat       int
	priceMult  [2]float64
	stockMult  [2]float64
	maxTargets int
}

func applyTurfWarEvent(c *Context, def catalogs.EventDef) *Event {
	tw := c.Tune.TurfWar
	sm := [2]float64{tw.StockMultMin, tw.StockMultMax}
	if def.StockMult > 0 {
		sm = [2]float64{def.StockMult, def.StockMult}
	}
	p := turfParams{
		days:       c.intRange(def.Duration, tw.DurationMin),
		heat:       c.intRange(def.Heat, tw.HeatMin),
		priceMult:  def.BuyMult,
		stockMult:  sm,
		maxTargets: tw.MaxCommodities,
	}
	if p.priceMult == [2]float64{} {
		p.priceMult = [2]float64{tw.PriceMultMin, tw.PriceMultMax}
	}
	return c.startTurfWar(c.Target, def.ID, p)
}

// RollTurfWars gives every region without an active war a small chance to
// start one.
func RollTurfWars(c *Context) []*Event {
	tw := c.Tune.TurfWar
	var out []*Event
	for _, id := range c.State.RegionOrder {
		r := c.State.Regions[id]
		if hasEffect(r, "TURF_WAR") || !c.Rng.Chance(tw.ChancePerRegion) {
			continue
		}
		p := turfParams{
			days:       c.Rng.IntRange(tw.DurationMin, tw.DurationMax),
			heat:       c.Rng.IntRange(tw.HeatMin, tw.HeatMax),
			priceMult:  [2]float64{tw.PriceMultMin, tw.PriceMultMax},
			stockMult:  [2]float64{tw.StockMultMin, tw.StockMultMax},
			maxTargets: tw.MaxCommodities,
		}
		out = append(out, c.startTurfWar(r, "TURF_WAR", p))
	}
	return out
}

func (c *Context) startTurfWar(r *game.Region, id string, p turfParams) *Event {
	added := c.Heat.AddHeat(r, p.heat)
	pool := commoditiesOfTier(r, catalogs.EventDef{})
	n := min(len(pool), max(1, p.maxTargets))
	if n > 1 {
		n = c.Rng.IntRange(1, n)
	}
	var hit []string
	for i := 0; i < n; i++ {
		j := c.Rng.Intn(len(pool))
		com := pool[j]
		pool = append(pool[:j], pool[j+1:]...)
		mult := c.Rng.Uniform(p.priceMult[0], p.priceMult[1])
		scaleStock(r, com, c.Rng.Uniform(p.stockMult[0], p.stockMult[1]))
		c.addEffect(r, game.Effect{Event: id, Commodity: com, BuyMult: mult, SellMult: mult}, p.days)
		hit = append(hit, com)
	}
	return &Event{
		Type: id, Kind: game.KindEcosystem, Region: r.ID,
		Log: []string{fmt.Sprintf("Turf war in %s over %v: heat +%d for %d days.", r.Name, hit, added, p.days)},
	}
}

func riskEvent(def catalogs.EventDef, pc *game.PendingChoice) *Event {
	return &Event{
		Type: def.ID, Kind: game.EventKind(def.Kind), Region: pc.Region, Choice: pc,
		Log: []string{pc.Prompt},
	}
}

func applySetup(c *Context, def catalogs.EventDef) *Event {
	s := c.State
	p := &s.Player
	r := s.CurrentRegion()

	if n := p.InventoryTotal(); n > 0 && n >= c.Tune.Events.SetupMinInventory {
		// Offer to take the player's goods at a suspicious premium.
		keys := p.InventoryKeys()
		k := keys[c.Rng.Intn(len(keys))]
		com, q := k.Split()
		ref := p.AvgCost[k]
		if l := r.Listing(com, q); l != nil {
			ref = l.SellPrice
		}
		price := math.Max(1, ref*c.uniform(def.SellMult, 2.5))
		qty := min(p.Inventory[k], c.intRange(def.Qty, 20))
		pc := c.Offer(game.PendingChoice{
			Event: def.ID, Kind: game.KindRisk, Region: r.ID,
			Prompt:    fmt.Sprintf("A stranger offers $%.0f each for %d %s %s. Sounds too good.", price, qty, q, com),
			Options:   []string{"DECLINE", "ACCEPT"},
			Commodity: com, Quality: q, Direction: game.Sell, Qty: qty, Price: price,
		})
		return riskEvent(def, pc)
	}

	com := c.pickCommodity(r, def)
	if com == "" {
		return nil
	}
	var l *game.Listing
	for _, k := range r.Order {
		if r.Listings[k].Commodity == com {
			l = r.Listings[k]
			break
		}
	}
	price := math.Max(1, l.BuyPrice*c.uniform(def.BuyMult, 0.3))
	qty := min(c.intRange(def.Qty, 20), int(p.Cash/price), p.FreeCapacity())
	if qty < 1 {
		return nil
	}
	pc := c.Offer(game.PendingChoice{
		Event: def.ID, Kind: game.KindRisk, Region: r.ID,
		Prompt:    fmt.Sprintf("A supplier offers %d %s %s at $%.0f each. Way under market.", qty, l.Quality, com, price),
		Options:   []string{"DECLINE", "ACCEPT"},
		Commodity: com, Quality: l.Quality, Direction: game.Buy, Qty: qty, Price: price,
	})
	return riskEvent(def, pc)
}

func applyMugging(c *Context, def catalogs.EventDef) *Event {
	s := c.State
	amt := math.Floor(s.Player.Cash * c.uniform(def.CashPct, 0.1))
	pc := c.Offer(game.PendingChoice{
		Event: def.ID, Kind: game.KindRisk, Region: s.Player.Region,
		Prompt:  fmt.Sprintf("Two guys corner you and want $%.0f.", amt),
		Options: []string{"HAND_OVER", "RUN"},
		Amount:  amt,
	})
	return riskEvent(def, pc)
}

func applyFireSale(c *Context, def catalogs.EventDef) *Event {
	s := c.State
	pc := c.Offer(game.PendingChoice{
		Event: def.ID, Kind: game.KindRisk, Region: s.Player.Region,
		Prompt:  fmt.Sprintf("Word is the cops are coming. Dump %.0f%% of every stack at a %.0f%% discount?", def.SellShare*100, def.Penalty*100),
		Options: []string{"COMPLY", "REFUSE"},
		Heat:    c.Tune.Events.FireSaleRefuseHeat,
	})
	return riskEvent(def, pc)
}

func applyBlackMarket(c *Context, def catalogs.EventDef) *Event {
	s := c.State
	r := s.CurrentRegion()
	com := c.pickCommodity(r, def)
	var l *game.Listing
	for _, k := range r.Order {
		if r.Listings[k].Commodity == com {
			l = r.Listings[k]
			break
		}
	}
	penalty := def.Penalty
	if penalty <= 0 {
		penalty = 0.5
	}
	price := math.Max(c.Tune.Market.PriceFloor, l.BuyPrice*(1-penalty))
	qty := c.intRange(def.Qty, 20)
	pc := c.Offer(game.PendingChoice{
		Event: def.ID, Kind: game.KindOpportunity, Region: r.ID,
		Prompt:    fmt.Sprintf("A contact has %d %s %s off the books at $%.0f each.", qty, l.Quality, com, price),
		Options:   []string{"DECLINE", "BUY"},
		Commodity: com, Quality: l.Quality, Direction: game.Buy, Qty: qty, Price: price,
	})
	return riskEvent(def, pc)
}

// fireSaleShare is read at response time from the catalog definition.
func fireSaleShare(def catalogs.EventDef) (share, penalty float64) {
	share, penalty = def.SellShare, def.Penalty
	if share <= 0 {
		share = 0.15
	}
	if penalty <= 0 {
		penalty = 0.3
	}
	return share, penalty
}
