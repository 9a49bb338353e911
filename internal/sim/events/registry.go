package events

import (
	"fmt"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

// Context is everything an event recipe may read or mutate. Day is the day
// the event takes effect.
type Context struct {
	State *game.State
	Tune  tuning.Tuning
	Heat  *heat.Rules
	Rng   *rng.Source
	Day   int

	// Target is the region drawn for region-scoped events.
	Target *game.Region
}

// Event is the outcome of a triggered event. Choice is set for RISK and
// OPPORTUNITY kinds and has already been stored on State.
type Event struct {
	Type   string
	Kind   game.EventKind
	Region string
	Choice *game.PendingChoice
	Log    []string
}

type recipe struct {
	eligible func(c *Context, def catalogs.EventDef) bool
	apply    func(c *Context, def catalogs.EventDef) *Event
}

var recipes = map[string]recipe{
	"DEMAND_SPIKE":      {eligible: hasTierInTarget, apply: applyDemandSpike},
	"SUPPLY_DISRUPTION": {eligible: hasTierInTarget, apply: applySupplyDisruption},
	"DRUG_MARKET_CRASH": {eligible: hasTierInTarget, apply: applyMarketCrash},
	"CHEAP_STASH":       {eligible: hasTierInTarget, apply: applyCheapStash},
	"POLICE_CRACKDOWN":  {eligible: always, apply: applyCrackdown},
	"RIVAL_BUSTED":      {eligible: hasActiveRival, apply: applyRivalBusted},
	"TURF_WAR":          {eligible: noTurfWarInTarget, apply: applyTurfWarEvent},
	"THE_SETUP":         {eligible: setupEligible, apply: applySetup},
	"MUGGING":           {eligible: hasCash, apply: applyMugging},
	"FORCED_FIRE_SALE":  {eligible: hasInventory, apply: applyFireSale},
	"BLACK_MARKET":      {eligible: hasTierAtPlayer, apply: applyBlackMarket},
}

type entry struct {
	def catalogs.EventDef
	recipe
}

// Registry holds event kinds in registration order.
type Registry struct {
	entries []entry
}

func NewRegistry(cats *catalogs.Catalogs) (*Registry, error) {
	reg := &Registry{}
	for _, id := range cats.Events.Order {
		def := cats.Events.ByID[id]
		r, ok := recipes[id]
		if !ok {
			return nil, fmt.Errorf("event %s: no recipe registered", id)
		}
		if want := recipeKind(id); want != "" && want != game.EventKind(def.Kind) {
			return nil, fmt.Errorf("event %s: kind %s, want %s", id, def.Kind, want)
		}
		reg.entries = append(reg.entries, entry{def: def, recipe: r})
	}
	return reg, nil
}

func recipeKind(id string) game.EventKind {
	switch id {
	case "THE_SETUP", "MUGGING", "FORCED_FIRE_SALE":
		return game.KindRisk
	case "BLACK_MARKET":
		return game.KindOpportunity
	case "POLICE_CRACKDOWN", "RIVAL_BUSTED", "TURF_WAR":
		return game.KindEcosystem
	default:
		return game.KindMarket
	}
}

// Types lists registered event ids in order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.def.ID
	}
	return out
}

// Eligible returns the ids of kinds whose preconditions hold for c.
func (r *Registry) Eligible(c *Context) []string {
	var out []string
	for _, e := range r.entries {
		if e.eligible(c, e.def) {
			out = append(out, e.def.ID)
		}
	}
	return out
}

// TriggerRandomEvent draws once against the trigger chance and then picks one
// eligible kind by weight. Draw order is fixed, so a seed fixes the outcome.
func (r *Registry) TriggerRandomEvent(c *Context) *Event {
	if !c.Rng.Chance(c.Tune.Events.TriggerChance) {
		return nil
	}
	s := c.State
	if len(s.RegionOrder) == 0 {
		return nil
	}
	c.Target = s.Regions[s.RegionOrder[c.Rng.Intn(len(s.RegionOrder))]]

	weights := make([]float64, len(r.entries))
	for i, e := range r.entries {
		if e.eligible(c, e.def) {
			weights[i] = e.def.Weight
		}
	}
	i := c.Rng.Pick(weights)
	if i < 0 {
		return nil
	}
	return r.entries[i].apply(c, r.entries[i].def)
}

// Fire applies one kind directly, bypassing the trigger roll. It reports
// nil when the kind is not eligible.
func (r *Registry) Fire(c *Context, id string) (*Event, error) {
	for _, e := range r.entries {
		if e.def.ID != id {
			continue
		}
		if c.Target == nil {
			c.Target = c.State.CurrentRegion()
		}
		if !e.eligible(c, e.def) {
			return nil, nil
		}
		return e.apply(c, e.def), nil
	}
	return nil, game.Validationf(game.CodeUnknownEvent, "unknown event type %q", id)
}

func always(*Context, catalogs.EventDef) bool { return true }

func hasTierInTarget(c *Context, def catalogs.EventDef) bool {
	return len(commoditiesOfTier(c.Target, def)) > 0
}

func hasTierAtPlayer(c *Context, def catalogs.EventDef) bool {
	return len(commoditiesOfTier(c.State.CurrentRegion(), def)) > 0
}

func hasActiveRival(c *Context, _ catalogs.EventDef) bool {
	for _, rv := range c.State.Rivals {
		if !rv.Busted {
			return true
		}
	}
	return false
}

func noTurfWarInTarget(c *Context, _ catalogs.EventDef) bool {
	return c.Target != nil && !hasEffect(c.Target, "TURF_WAR")
}

func setupEligible(c *Context, def catalogs.EventDef) bool {
	p := &c.State.Player
	if p.SetupExposure > 0 {
		return false
	}
	return p.InventoryTotal() >= c.Tune.Events.SetupMinInventory || p.Cash >= c.Tune.Events.SetupMinCash
}

func hasCash(c *Context, _ catalogs.EventDef) bool { return c.State.Player.Cash > 0 }

func hasInventory(c *Context, _ catalogs.EventDef) bool { return c.State.Player.InventoryTotal() > 0 }

func hasEffect(r *game.Region, event string) bool {
	for _, e := range r.Effects {
		if e.Event == event {
			return true
		}
	}
	return false
}

// commoditiesOfTier lists distinct commodities in r matching def's tiers, in
// listing order.
func commoditiesOfTier(r *game.Region, def catalogs.EventDef) []string {
	if r == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, k := range r.Order {
		l := r.Listings[k]
		if seen[l.Commodity] || !def.HasTier(l.Tier) {
			continue
		}
		seen[l.Commodity] = true
		out = append(out, l.Commodity)
	}
	return out
}

func (c *Context) nextEffectID() string {
	c.State.NextEffectSeq++
	return fmt.Sprintf("FX%d", c.State.NextEffectSeq)
}

func (c *Context) nextChoiceID() string {
	c.State.NextChoiceSeq++
	return fmt.Sprintf("EV%d", c.State.NextChoiceSeq)
}

// Offer stores a pending choice on State and returns it.
func (c *Context) Offer(pc game.PendingChoice) *game.PendingChoice {
	pc.ID = c.nextChoiceID()
	pc.Day = c.Day
	out := &pc
	c.State.Choices = append(c.State.Choices, out)
	return out
}
