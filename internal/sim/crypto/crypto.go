package crypto

import (
	"fmt"
	"math"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/tuning"
)

type Rules struct {
	Crypto tuning.Crypto
	Heat   *heat.Rules
}

func NewRules(t tuning.Tuning, h *heat.Rules) *Rules {
	return &Rules{Crypto: t.Crypto, Heat: h}
}

type Trade struct {
	Currency  string
	Direction game.Direction
	Amount    float64
	Price     float64
	Value     float64
	Fee       float64
	Heat      int
	Large     bool
}

func (t Trade) String() string {
	verb := "Bought"
	if t.Direction == game.Sell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %.4f %s at $%.2f (fee $%.2f, heat +%d).", verb, t.Amount, t.Currency, t.Price, t.Fee, t.Heat)
}

func validAmount(amount float64) error {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return game.Validationf(game.CodeBadArgument, "amount must be a positive number, got %v", amount)
	}
	return nil
}

func (r *Rules) currency(s *game.State, id string) (*game.Currency, error) {
	c := s.Currencies[id]
	if c == nil {
		return nil, game.Validationf(game.CodeUnknownCurrency, "unknown currency %q", id)
	}
	return c, nil
}

func (r *Rules) addHeat(s *game.State, base float64) int {
	h := r.Heat.PlayerCryptoHeat(&s.Player, base)
	if reg := s.CurrentRegion(); reg != nil {
		return r.Heat.AddHeat(reg, h)
	}
	return 0
}

// TradeCrypto buys or sells amount units of currency at the current price.
// fee is the fractional fee charged on the trade value.
func (r *Rules) TradeCrypto(s *game.State, currency string, amount float64, dir game.Direction, fee float64) (Trade, error) {
	if err := validAmount(amount); err != nil {
		return Trade{}, err
	}
	c, err := r.currency(s, currency)
	if err != nil {
		return Trade{}, err
	}
	p := &s.Player
	value := amount * c.Price
	t := Trade{Currency: c.ID, Direction: dir, Amount: amount, Price: c.Price, Value: value, Fee: value * fee}

	switch dir {
	case game.Buy:
		cost := value + t.Fee
		if p.Cash < cost {
			return Trade{}, game.Insufficientf(game.CodeInsufficientFunds, "need $%.2f, have $%.2f", cost, p.Cash)
		}
		p.Cash -= cost
		p.Wallet[c.ID] += amount
	case game.Sell:
		if have := p.Wallet[c.ID]; have < amount {
			return Trade{}, game.Insufficientf(game.CodeInsufficientBalance, "wallet holds %.4f %s", have, c.ID)
		}
		p.Wallet[c.ID] -= amount
		p.Cash += value - t.Fee
	default:
		return Trade{}, game.Validationf(game.CodeBadArgument, "unknown direction %q", dir)
	}

	t.Heat = r.addHeat(s, r.Crypto.TradeHeatBase+value*r.Crypto.TradeHeatPerValue)
	if r.Crypto.LargeTradeValue > 0 && value >= r.Crypto.LargeTradeValue {
		t.Large = true
		p.LargeCryptoTrades++
	}
	return t, nil
}

func (r *Rules) Stake(s *game.State, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	p := &s.Player
	id := r.Crypto.StakeCurrency
	if have := p.Wallet[id]; have < amount {
		return game.Insufficientf(game.CodeInsufficientBalance, "wallet holds %.4f %s", have, id)
	}
	p.Wallet[id] -= amount
	p.StakedDC += amount
	return nil
}

func (r *Rules) Unstake(s *game.State, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	p := &s.Player
	if p.StakedDC < amount {
		return game.Insufficientf(game.CodeInsufficientBalance, "only %.4f staked", p.StakedDC)
	}
	p.StakedDC -= amount
	p.Wallet[r.Crypto.StakeCurrency] += amount
	return nil
}

// ApplyStakingYield compounds one day of yield and returns the gain.
func (r *Rules) ApplyStakingYield(s *game.State) float64 {
	p := &s.Player
	if p.StakedDC <= 0 || r.Crypto.StakingDailyRate <= 0 {
		return 0
	}
	next := p.StakedDC * (1 + r.Crypto.StakingDailyRate)
	if limit := r.Crypto.StakeCap; limit > 0 && next > limit {
		next = math.Max(limit, p.StakedDC)
	}
	gain := next - p.StakedDC
	p.StakedDC = next
	return gain
}

type Laundering struct {
	Cash       float64
	Fee        float64
	Pending    float64
	ArrivalDay int
	Heat       int
}

// Launder converts cash into the laundering currency, delivered after the
// configured delay. Only one laundering may be in flight.
func (r *Rules) Launder(s *game.State, cash float64) (Laundering, error) {
	if err := validAmount(cash); err != nil {
		return Laundering{}, err
	}
	p := &s.Player
	if p.PendingArrivalDay > 0 {
		return Laundering{}, game.InvalidStatef(game.CodeLaunderPending, "a laundering is already pending until day %d", p.PendingArrivalDay)
	}
	if p.Cash < cash {
		return Laundering{}, game.Insufficientf(game.CodeInsufficientFunds, "need $%.2f, have $%.2f", cash, p.Cash)
	}
	c, err := r.currency(s, r.Crypto.LaunderCurrency)
	if err != nil {
		return Laundering{}, err
	}
	l := Laundering{
		Cash:       cash,
		Fee:        cash * r.Crypto.LaunderFee,
		ArrivalDay: s.Day + r.Crypto.LaunderDelayDays,
	}
	l.Pending = (cash - l.Fee) / c.Price

	p.Cash -= cash
	p.PendingLaunderedSC = l.Pending
	p.PendingArrivalDay = l.ArrivalDay
	p.TotalLaundered += cash
	l.Heat = r.addHeat(s, cash*r.Crypto.LaunderHeatPerCash)
	return l, nil
}

// SettleLaundering credits a matured laundering once. Later calls credit
// nothing.
func (r *Rules) SettleLaundering(s *game.State, enteringDay int) float64 {
	p := &s.Player
	if p.PendingArrivalDay == 0 || enteringDay < p.PendingArrivalDay {
		return 0
	}
	amt := p.PendingLaunderedSC
	p.Wallet[r.Crypto.LaunderCurrency] += amt
	p.PendingLaunderedSC = 0
	p.PendingArrivalDay = 0
	return amt
}

// PortfolioValue is the market value of wallet, stake and in-flight funds.
func PortfolioValue(s *game.State, stakeCurrency, launderCurrency string) float64 {
	p := &s.Player
	var v float64
	for _, id := range s.CurrOrder {
		v += p.Wallet[id] * s.Currencies[id].Price
	}
	if c := s.Currencies[stakeCurrency]; c != nil {
		v += p.StakedDC * c.Price
	}
	if c := s.Currencies[launderCurrency]; c != nil {
		v += p.PendingLaunderedSC * c.Price
	}
	return v
}
