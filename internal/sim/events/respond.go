package events

import (
	"fmt"
	"math"
	"strings"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
)

func (r *Registry) def(id string) catalogs.EventDef {
	for _, e := range r.entries {
		if e.def.ID == id {
			return e.def
		}
	}
	return catalogs.EventDef{ID: id}
}

// Handles reports whether Respond knows how to resolve choices of this type.
func (r *Registry) Handles(event string) bool {
	switch event {
	case "THE_SETUP", "MUGGING", "FORCED_FIRE_SALE", "BLACK_MARKET":
		return true
	}
	return false
}

// Respond applies option to pending choice id and removes it. A failed
// response leaves the choice pending.
func (r *Registry) Respond(c *Context, id, option string) ([]string, error) {
	s := c.State
	pc := s.Choice(id)
	if pc == nil {
		return nil, game.InvalidStatef(game.CodeUnknownEvent, "no pending event %q", id)
	}
	option = strings.ToUpper(strings.TrimSpace(option))
	if !pc.HasOption(option) {
		return nil, game.Validationf(game.CodeBadArgument, "%q is not an option for %s (options: %s)", option, pc.Event, strings.Join(pc.Options, ", "))
	}

	var (
		log []string
		err error
	)
	switch pc.Event {
	case "THE_SETUP":
		log, err = respondSetup(c, pc, option)
	case "MUGGING":
		log = respondMugging(c, pc, option)
	case "FORCED_FIRE_SALE":
		log = respondFireSale(c, pc, option, r.def(pc.Event))
	case "BLACK_MARKET":
		log, err = respondBlackMarket(c, pc, option)
	default:
		return nil, game.InvalidStatef(game.CodeUnknownEvent, "event %s cannot be answered here", pc.Event)
	}
	if err != nil {
		return nil, err
	}
	s.RemoveChoice(id)
	return log, nil
}

func buyOffBook(p *game.Player, pc *game.PendingChoice) (game.ItemKey, error) {
	k := game.Key(pc.Commodity, pc.Quality)
	cost := pc.Price * float64(pc.Qty)
	if p.Cash < cost {
		return k, game.Insufficientf(game.CodeInsufficientFunds, "need $%.0f, have $%.0f", cost, p.Cash)
	}
	if free := p.FreeCapacity(); pc.Qty > free {
		return k, game.Insufficientf(game.CodeCapacityExceeded, "only room for %d more units", free)
	}
	p.Cash -= cost
	p.AddItems(k, pc.Qty, pc.Price)
	return k, nil
}

func respondSetup(c *Context, pc *game.PendingChoice, option string) ([]string, error) {
	if option != "ACCEPT" {
		return []string{"You walk away from the deal."}, nil
	}
	p := &c.State.Player
	k := game.Key(pc.Commodity, pc.Quality)
	var line string
	switch pc.Direction {
	case game.Buy:
		if _, err := buyOffBook(p, pc); err != nil {
			return nil, err
		}
		line = fmt.Sprintf("You buy %d %s %s for $%.0f.", pc.Qty, pc.Quality, pc.Commodity, pc.Price*float64(pc.Qty))
	default:
		if held := p.Inventory[k]; held < pc.Qty {
			return nil, game.Insufficientf(game.CodeInsufficientInventory, "you hold %d, the deal needs %d", held, pc.Qty)
		}
		p.SellItems(k, pc.Qty, pc.Price, pc.Region)
		line = fmt.Sprintf("You sell %d %s %s for $%.0f.", pc.Qty, pc.Quality, pc.Commodity, pc.Price*float64(pc.Qty))
	}
	p.SetupExposure = max(1, c.Tune.Events.SetupExposureDays)
	p.SetupItem = k
	return []string{line, "Something about that deal felt wrong."}, nil
}

func respondMugging(c *Context, pc *game.PendingChoice, option string) []string {
	p := &c.State.Player
	loss := pc.Amount
	if option == "RUN" {
		if c.Rng.Chance(c.Tune.Events.RunEscapeChance) {
			return []string{"You outrun them."}
		}
		loss *= 2
	}
	loss = math.Min(loss, math.Max(0, p.Cash))
	p.Cash -= loss
	return []string{fmt.Sprintf("You lose $%.0f.", loss)}
}

func respondFireSale(c *Context, pc *game.PendingChoice, option string, def catalogs.EventDef) []string {
	p := &c.State.Player
	r := c.State.Region(pc.Region)
	if option == "REFUSE" {
		added := 0
		if r != nil {
			added = c.Heat.AddHeat(r, pc.Heat)
		}
		return []string{fmt.Sprintf("You sit tight. Heat +%d.", added)}
	}
	share, penalty := fireSaleShare(def)
	var total float64
	for _, k := range p.InventoryKeys() {
		held := p.Inventory[k]
		n := int(math.Ceil(float64(held) * share))
		if n < 1 {
			continue
		}
		com, q := k.Split()
		price := p.AvgCost[k]
		if r != nil {
			if l := r.Listing(com, q); l != nil {
				price = l.SellPrice
			}
		}
		unit := price * (1 - penalty)
		sold, _ := p.SellItems(k, n, unit, pc.Region)
		total += unit * float64(sold)
	}
	return []string{fmt.Sprintf("You dump product for $%.0f.", total)}
}

func respondBlackMarket(c *Context, pc *game.PendingChoice, option string) ([]string, error) {
	if option != "BUY" {
		return []string{"You pass."}, nil
	}
	if _, err := buyOffBook(&c.State.Player, pc); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("You take %d %s %s off the books.", pc.Qty, pc.Quality, pc.Commodity)}, nil
}
