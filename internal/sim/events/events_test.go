package events

import (
	"errors"
	"testing"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/market"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func setup(t *testing.T, seed int64) (*Registry, *Context) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tune := tuning.Defaults()
	src := rng.New(seed)
	s, err := game.New(cats, tune, seed, src)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	for _, id := range s.RegionOrder {
		market.Refresh(tune.Market, s.Regions[id])
	}
	reg, err := NewRegistry(cats)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg, &Context{State: s, Tune: tune, Heat: heat.NewRules(tune, cats), Rng: src, Day: 2}
}

func TestRegistry_OrderFollowsCatalog(t *testing.T) {
	reg, _ := setup(t, 1)
	got := reg.Types()
	if len(got) != 11 || got[0] != "DEMAND_SPIKE" || got[2] != "POLICE_CRACKDOWN" || got[10] != "TURF_WAR" {
		t.Fatalf("order=%v", got)
	}
}

func TestTrigger_DeterministicForSeed(t *testing.T) {
	regA, a := setup(t, 77)
	regB, b := setup(t, 77)
	a.Tune.Events.TriggerChance = 1
	b.Tune.Events.TriggerChance = 1
	fired := 0
	for day := 2; day < 60; day++ {
		a.Day, b.Day = day, day
		ea := regA.TriggerRandomEvent(a)
		eb := regB.TriggerRandomEvent(b)
		if (ea == nil) != (eb == nil) {
			t.Fatalf("day %d: one side fired", day)
		}
		if ea != nil {
			fired++
			if ea.Type != eb.Type || ea.Region != eb.Region {
				t.Fatalf("day %d: %s@%s vs %s@%s", day, ea.Type, ea.Region, eb.Type, eb.Region)
			}
		}
	}
	if fired == 0 {
		t.Fatalf("nothing fired with trigger chance 1")
	}
	if game.Digest(a.State) != game.Digest(b.State) {
		t.Fatalf("states diverged")
	}
}

func TestEligibility(t *testing.T) {
	reg, c := setup(t, 3)
	c.Target = c.State.CurrentRegion()
	c.State.Player.Cash = 0
	for _, rv := range c.State.Rivals {
		rv.Busted, rv.BustedDaysRemaining = true, 3
	}
	for _, id := range reg.Eligible(c) {
		switch id {
		case "THE_SETUP", "MUGGING", "FORCED_FIRE_SALE", "RIVAL_BUSTED":
			t.Fatalf("%s should not be eligible", id)
		}
	}
	ev, err := reg.Fire(c, "MUGGING")
	if err != nil || ev != nil {
		t.Fatalf("ineligible fire: ev=%v err=%v", ev, err)
	}
	if _, err := reg.Fire(c, "ALIENS"); !errors.Is(err, game.ErrValidation) {
		t.Fatalf("unknown type: %v", err)
	}
}

func TestRivalBust_Duration(t *testing.T) {
	reg, c := setup(t, 5)
	c.Day = 10
	ev, err := reg.Fire(c, "RIVAL_BUSTED")
	if err != nil || ev == nil {
		t.Fatalf("fire: %v %v", ev, err)
	}
	busted := 0
	for _, rv := range c.State.Rivals {
		if rv.Busted {
			busted++
			if rv.BustedDaysRemaining < 5 || rv.BustedDaysRemaining > 10 {
				t.Fatalf("duration %d out of [5,10]", rv.BustedDaysRemaining)
			}
		}
	}
	if busted != 1 {
		t.Fatalf("busted=%d want 1", busted)
	}
	if err := ApplyRivalBust(c.State, "nobody", 3); err == nil {
		t.Fatalf("unknown rival should fail")
	}
	if err := ApplyRivalBust(c.State, c.State.Rivals[0].ID, 0); err == nil {
		t.Fatalf("zero duration should fail")
	}
}

func TestMarketEffect_Window(t *testing.T) {
	reg, c := setup(t, 9)
	c.Day = 5
	c.Target = c.State.Region("downtown")
	before := len(c.Target.Effects)
	ev, err := reg.Fire(c, "DRUG_MARKET_CRASH")
	if err != nil || ev == nil {
		t.Fatalf("fire: %v %v", ev, err)
	}
	if len(c.Target.Effects) != before+1 {
		t.Fatalf("effect not added")
	}
	e := c.Target.Effects[len(c.Target.Effects)-1]
	if e.ExpiresDay != 7 {
		t.Fatalf("2-day crash entering day 5 expires on %d, want 7", e.ExpiresDay)
	}
	l := c.Target.Listing(e.Commodity, c.Target.Listings[c.Target.Order[0]].Quality)
	if l != nil && l.BuyPrice > l.BasePrice {
		t.Fatalf("crash should be priced in immediately: %v > %v", l.BuyPrice, l.BasePrice)
	}
}

func TestRespond(t *testing.T) {
	reg, c := setup(t, 11)
	c.State.Player.Cash = 1000
	ev, err := reg.Fire(c, "MUGGING")
	if err != nil || ev == nil || ev.Choice == nil {
		t.Fatalf("fire mugging: %v %v", ev, err)
	}
	id := ev.Choice.ID
	if id != "EV1" {
		t.Fatalf("choice id=%s want EV1", id)
	}
	if _, err := reg.Respond(c, id, "DANCE"); !errors.Is(err, game.ErrValidation) {
		t.Fatalf("bad option: %v", err)
	}
	if _, err := reg.Respond(c, "EV99", "RUN"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("unknown id: %v", err)
	}
	amt := ev.Choice.Amount
	if _, err := reg.Respond(c, id, "hand_over"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if c.State.Player.Cash != 1000-amt {
		t.Fatalf("cash=%v want %v", c.State.Player.Cash, 1000-amt)
	}
	if c.State.Choice(id) != nil {
		t.Fatalf("answered choice still pending")
	}

	c.State.Player.Cash = 0
	ev, err = reg.Fire(c, "BLACK_MARKET")
	if err != nil || ev == nil {
		t.Fatalf("fire black market: %v %v", ev, err)
	}
	if _, err := reg.Respond(c, ev.Choice.ID, "BUY"); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Fatalf("broke buy: %v", err)
	}
	if c.State.Choice(ev.Choice.ID) == nil {
		t.Fatalf("failed response must leave the choice pending")
	}
}

func TestSetupAccept_SetsExposure(t *testing.T) {
	reg, c := setup(t, 13)
	p := &c.State.Player
	p.Cash = 50000
	ev, err := reg.Fire(c, "THE_SETUP")
	if err != nil || ev == nil {
		t.Fatalf("fire setup: %v %v", ev, err)
	}
	pc := ev.Choice
	if pc.Default() != "DECLINE" || pc.Direction != game.Buy {
		t.Fatalf("unexpected offer: %+v", pc)
	}
	if _, err := reg.Respond(c, pc.ID, "ACCEPT"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	k := game.Key(pc.Commodity, pc.Quality)
	if p.Inventory[k] != pc.Qty || p.SetupExposure == 0 || p.SetupItem != k {
		t.Fatalf("after accept: inv=%d exposure=%d item=%s", p.Inventory[k], p.SetupExposure, p.SetupItem)
	}
}

func TestRollTurfWars(t *testing.T) {
	_, c := setup(t, 21)
	c.Tune.TurfWar.ChancePerRegion = 1
	evs := RollTurfWars(c)
	if len(evs) != len(c.State.RegionOrder) {
		t.Fatalf("wars=%d want one per region", len(evs))
	}
	for _, id := range c.State.RegionOrder {
		r := c.State.Regions[id]
		if r.Heat < c.Tune.TurfWar.HeatMin {
			t.Fatalf("%s heat %d", id, r.Heat)
		}
	}
	if again := RollTurfWars(c); len(again) != 0 {
		t.Fatalf("regions at war must not start another: %d", len(again))
	}
}
