package market

import (
	"errors"
	"testing"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func testRegion() *game.Region {
	r := &game.Region{ID: "a", Name: "A", Listings: map[game.ItemKey]*game.Listing{}}
	add := func(c string, tier int, base float64, stock int) {
		k := game.Key(c, game.QualityStandard)
		r.Listings[k] = &game.Listing{
			Commodity: c, Quality: game.QualityStandard, Tier: tier, BasePrice: base,
			Stock: stock, BaselineStock: stock, MaxStock: stock * 2, Pressure: 1,
		}
		r.Order = append(r.Order, k)
	}
	add("weed", 1, 50, 200)
	add("coke", 3, 1200, 40)
	Refresh(tuning.Defaults().Market, r)
	return r
}

func TestBuyScenario_StartingCash(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	cash := 2000.0

	price, err := GetPrice(r, "weed", game.QualityStandard)
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	unit, total, err := ApplyTrade(tm, r, "weed", game.QualityStandard, 10, game.Buy)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if unit != price || total != price*10 {
		t.Fatalf("unit=%v total=%v listed=%v", unit, total, price)
	}
	cash -= total
	if cash != 2000-price*10 {
		t.Fatalf("cash=%v", cash)
	}
	if got := r.Listing("weed", game.QualityStandard).Stock; got != 190 {
		t.Fatalf("stock=%d want 190", got)
	}

	AdvanceDay(tm, r, 2)
	next, _ := GetPrice(r, "weed", game.QualityStandard)
	if !(next > price) {
		t.Fatalf("next price %v should exceed %v", next, price)
	}
}

func TestSell_LowersNextPrice(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	before, _ := SellPrice(r, "weed", game.QualityStandard)
	if _, _, err := ApplyTrade(tm, r, "weed", game.QualityStandard, 30, game.Sell); err != nil {
		t.Fatalf("sell: %v", err)
	}
	AdvanceDay(tm, r, 2)
	after, _ := SellPrice(r, "weed", game.QualityStandard)
	if !(after < before) {
		t.Fatalf("sell price %v should be below %v", after, before)
	}
	if got := r.Listing("weed", game.QualityStandard).Stock; got > 400 {
		t.Fatalf("stock %d above max", got)
	}
}

func TestApplyTrade_Errors(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	if _, _, err := ApplyTrade(tm, r, "weed", game.QualityStandard, 201, game.Buy); !errors.Is(err, game.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, _, err := ApplyTrade(tm, r, "weed", game.QualityPure, 1, game.Buy); !errors.Is(err, game.ErrValidation) {
		t.Fatalf("expected validation for unlisted quality, got %v", err)
	}
	if _, _, err := ApplyTrade(tm, r, "weed", game.QualityStandard, 0, game.Buy); !errors.Is(err, game.ErrValidation) {
		t.Fatalf("expected validation for zero qty, got %v", err)
	}
	if r.Listing("weed", game.QualityStandard).Stock != 200 {
		t.Fatalf("failed trades must not move stock")
	}
}

func TestHeatThinsHighTierStock(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	r.Heat = 65
	coke := r.Listing("coke", game.QualityStandard)
	weed := r.Listing("weed", game.QualityStandard)
	if got := AvailableStock(tm, r, coke); got != 20 {
		t.Fatalf("coke available=%d want 20", got)
	}
	if got := AvailableStock(tm, r, weed); got != 200 {
		t.Fatalf("tier 1 stock must not be thinned, got %d", got)
	}
	if _, _, err := ApplyTrade(tm, r, "coke", game.QualityStandard, 21, game.Buy); !errors.Is(err, game.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestPressureDecaysWhenUnreinforced(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	l := r.Listing("weed", game.QualityStandard)
	ApplyPressure(tm, l, 100, game.Buy, 1)
	p0 := l.Pressure
	AdvanceDay(tm, r, 2) // reinforced today, so no decay
	if l.Pressure != p0 {
		t.Fatalf("reinforced pressure decayed: %v -> %v", p0, l.Pressure)
	}
	AdvanceDay(tm, r, 3)
	want := p0 + (1-p0)*tm.PressureDecay
	if l.Pressure != want {
		t.Fatalf("pressure=%v want %v", l.Pressure, want)
	}
}

func TestPricesClampedAndEffectsExpire(t *testing.T) {
	tm := tuning.Defaults().Market
	r := testRegion()
	r.Effects = []game.Effect{{ID: "E1", Event: "DRUG_MARKET_CRASH", BuyMult: 0.0001, SellMult: 0.0001, ExpiresDay: 3}}
	AdvanceDay(tm, r, 2)
	for _, k := range r.Order {
		l := r.Listings[k]
		if l.BuyPrice < tm.PriceFloor || l.SellPrice < tm.PriceFloor {
			t.Fatalf("%s below floor: %v/%v", k, l.BuyPrice, l.SellPrice)
		}
	}
	expired := AdvanceDay(tm, r, 3)
	if len(expired) != 1 || len(r.Effects) != 0 {
		t.Fatalf("effect should expire on day 3: expired=%v left=%v", expired, r.Effects)
	}

	r.Effects = []game.Effect{{ID: "E2", Event: "DEMAND_SPIKE", BuyMult: 100, SellMult: 100, ExpiresDay: 10}}
	Refresh(tm, r)
	l := r.Listing("weed", game.QualityStandard)
	if l.BuyPrice > l.BasePrice*tm.CeilingFactor {
		t.Fatalf("buy above ceiling: %v", l.BuyPrice)
	}
}

func TestAdvanceCurrencies_Deterministic(t *testing.T) {
	mk := func() *game.State {
		return &game.State{
			Currencies: map[string]*game.Currency{
				"DC": {ID: "DC", Price: 10, Volatility: 0.2, MinPrice: 1},
			},
			CurrOrder: []string{"DC"},
		}
	}
	a, b := mk(), mk()
	ra, rb := rng.New(7), rng.New(7)
	for i := 0; i < 50; i++ {
		AdvanceCurrencies(a, ra, 30)
		AdvanceCurrencies(b, rb, 30)
	}
	ca, cb := a.Currencies["DC"], b.Currencies["DC"]
	if ca.Price != cb.Price {
		t.Fatalf("same seed diverged: %v vs %v", ca.Price, cb.Price)
	}
	if len(ca.History) != 30 {
		t.Fatalf("history len=%d want 30", len(ca.History))
	}
	if ca.Price < ca.MinPrice {
		t.Fatalf("price below min: %v", ca.Price)
	}
}
