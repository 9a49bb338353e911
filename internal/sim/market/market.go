package market

import (
	"math"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func qualityMult(table map[string]float64, q game.Quality) float64 {
	if m, ok := table[string(q)]; ok && m > 0 {
		return m
	}
	return 1
}

// Quote computes buy and sell prices for a listing from its base price and
// the region's current modifiers. Heat enters at the level the day opened with.
func Quote(t tuning.Market, r *game.Region, l *game.Listing) (buy, sell float64) {
	heat := tuning.MultAt(t.HeatPrice, r.PriceHeat)
	eb, es := r.EffectMults(l.Commodity)
	qb := qualityMult(t.QualityBuy, l.Quality)
	qs := qualityMult(t.QualitySell, l.Quality)

	buyCeil := l.BasePrice * qb * t.CeilingFactor
	sellCeil := l.BasePrice * qs * t.SellSpread * t.CeilingFactor

	buy = clamp(l.BasePrice*qb*heat*eb*l.Pressure, t.PriceFloor, buyCeil)
	sell = clamp(l.BasePrice*qs*t.SellSpread*heat*es*l.Pressure, t.PriceFloor, sellCeil)
	return buy, sell
}

// Refresh recomputes every listing's current quote without rotating history.
func Refresh(t tuning.Market, r *game.Region) {
	for _, k := range r.Order {
		l := r.Listings[k]
		l.BuyPrice, l.SellPrice = Quote(t, r, l)
	}
}

func listing(r *game.Region, commodity string, q game.Quality) (*game.Listing, error) {
	l := r.Listing(commodity, q)
	if l == nil {
		return nil, game.Validationf(game.CodeUnknownCommodity, "%s %s is not traded in %s", q, commodity, r.Name)
	}
	return l, nil
}

// GetPrice returns the listed buy price.
func GetPrice(r *game.Region, commodity string, q game.Quality) (float64, error) {
	l, err := listing(r, commodity, q)
	if err != nil {
		return 0, err
	}
	return l.BuyPrice, nil
}

// SellPrice returns the listed sell price.
func SellPrice(r *game.Region, commodity string, q game.Quality) (float64, error) {
	l, err := listing(r, commodity, q)
	if err != nil {
		return 0, err
	}
	return l.SellPrice, nil
}

// AvailableStock is what the market will sell right now. Regional heat
// thins out tier 2+ supply without touching the stored stock.
func AvailableStock(t tuning.Market, r *game.Region, l *game.Listing) int {
	if l.Tier < 2 {
		return l.Stock
	}
	return int(math.Floor(float64(l.Stock) * tuning.MultAt(t.HeatStock, r.Heat)))
}

// ApplyTrade executes a trade at the listed price and feeds the volume into
// the listing's pressure. Player funds and inventory are the caller's concern.
func ApplyTrade(t tuning.Market, r *game.Region, commodity string, q game.Quality, qty int, dir game.Direction) (unit, total float64, err error) {
	if qty <= 0 {
		return 0, 0, game.Validationf(game.CodeBadArgument, "quantity must be positive, got %d", qty)
	}
	l, err := listing(r, commodity, q)
	if err != nil {
		return 0, 0, err
	}
	switch dir {
	case game.Buy:
		if avail := AvailableStock(t, r, l); qty > avail {
			return 0, 0, game.Insufficientf(game.CodeInsufficientStock, "only %d %s available", avail, commodity)
		}
		unit = l.BuyPrice
		ApplyPressure(t, l, qty, game.Buy, 1)
		l.Stock -= qty
	case game.Sell:
		unit = l.SellPrice
		ApplyPressure(t, l, qty, game.Sell, 1)
		l.Stock += qty
		if l.Stock > l.MaxStock {
			l.Stock = l.MaxStock
		}
	default:
		return 0, 0, game.Validationf(game.CodeBadArgument, "unknown direction %q", dir)
	}
	return unit, unit * float64(qty), nil
}

// ApplyPressure nudges a listing's pressure by volume relative to its stock.
// Buying pushes it up, selling pushes it down.
func ApplyPressure(t tuning.Market, l *game.Listing, qty int, dir game.Direction, weight float64) {
	if qty <= 0 || weight <= 0 {
		return
	}
	ref := l.Stock
	if ref < t.PressureRefMin {
		ref = t.PressureRefMin
	}
	if ref < 1 {
		ref = 1
	}
	delta := t.PressureImpact * weight * float64(qty) / float64(ref)
	if dir == game.Sell {
		delta = -delta
	}
	l.Pressure = clamp(l.Pressure+delta, t.PressureMin, t.PressureMax)
	l.Reinforced = true
}

// OpenDay fixes the heat that quotes use until the next day opens.
func OpenDay(r *game.Region) { r.PriceHeat = r.Heat }

// AdvanceDay expires effects ending by day, rotates quotes into history,
// relaxes unreinforced pressure, restocks, and reprices.
func AdvanceDay(t tuning.Market, r *game.Region, day int) (expired []game.Effect) {
	kept := r.Effects[:0]
	for _, e := range r.Effects {
		if e.ExpiresDay <= day {
			expired = append(expired, e)
			continue
		}
		kept = append(kept, e)
	}
	r.Effects = kept

	for _, k := range r.Order {
		l := r.Listings[k]
		l.PrevBuy, l.PrevSell = l.BuyPrice, l.SellPrice
		if !l.Reinforced {
			l.Pressure += (1 - l.Pressure) * t.PressureDecay
			if math.Abs(l.Pressure-1) < 1e-9 {
				l.Pressure = 1
			}
		}
		l.Reinforced = false
		restock(t, l)
		l.BuyPrice, l.SellPrice = Quote(t, r, l)
	}
	return expired
}

func restock(t tuning.Market, l *game.Listing) {
	gap := l.BaselineStock - l.Stock
	if gap == 0 || t.RestockRate <= 0 {
		return
	}
	step := int(math.Ceil(math.Abs(float64(gap)) * t.RestockRate))
	if gap < 0 {
		step = -step
		if l.Stock+step < l.BaselineStock {
			step = gap
		}
	} else if l.Stock+step > l.BaselineStock {
		step = gap
	}
	l.Stock += step
	if l.Stock > l.MaxStock {
		l.Stock = l.MaxStock
	}
	if l.Stock < 0 {
		l.Stock = 0
	}
}

// AdvanceCurrencies moves each currency by a bounded random step.
func AdvanceCurrencies(s *game.State, r *rng.Source, historyLen int) {
	for _, id := range s.CurrOrder {
		c := s.Currencies[id]
		u := r.Uniform(-1, 1)
		c.Price = math.Max(c.MinPrice, c.Price*(1+c.Volatility*u))
		c.History = append(c.History, c.Price)
		if historyLen > 0 && len(c.History) > historyLen {
			c.History = append([]float64(nil), c.History[len(c.History)-historyLen:]...)
		}
	}
}

type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

func ListingTrend(l *game.Listing) Trend {
	switch {
	case l.PrevBuy == 0 || math.Abs(l.BuyPrice-l.PrevBuy) < 1e-6:
		return TrendFlat
	case l.BuyPrice > l.PrevBuy:
		return TrendUp
	default:
		return TrendDown
	}
}
