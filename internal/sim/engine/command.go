package engine

import (
	"errors"
	"fmt"
	"strings"

	"narcosim.ai/internal/sim/contacts"
	"narcosim.ai/internal/sim/events"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/market"
	"narcosim.ai/internal/sim/rng"
)

const (
	CmdTravel         = "TRAVEL"
	CmdBuy            = "BUY"
	CmdSell           = "SELL"
	CmdTradeCrypto    = "TRADE_CRYPTO"
	CmdStake          = "STAKE"
	CmdUnstake        = "UNSTAKE"
	CmdLaunder        = "LAUNDER"
	CmdBuyUpgrade     = "BUY_UPGRADE"
	CmdUnlockSkill    = "UNLOCK_SKILL"
	CmdVisitContact   = "VISIT_CONTACT"
	CmdRespondToEvent = "RESPOND_TO_EVENT"
	CmdEndTurn        = "END_TURN"
)

// CommandTypes lists every command in protocol order.
var CommandTypes = []string{
	CmdTravel, CmdBuy, CmdSell, CmdTradeCrypto, CmdStake, CmdUnstake, CmdLaunder,
	CmdBuyUpgrade, CmdUnlockSkill, CmdVisitContact, CmdRespondToEvent, CmdEndTurn,
}

const eventPoliceStop = "POLICE_STOP"

// Command is one player intent. Only the fields its Type reads are used.
type Command struct {
	Type      string            `json:"type"`
	Region    string            `json:"region,omitempty"`
	Commodity string            `json:"commodity,omitempty"`
	Quality   string            `json:"quality,omitempty"`
	Qty       int               `json:"qty,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	Amount    float64           `json:"amount,omitempty"`
	Direction string            `json:"direction,omitempty"`
	Upgrade   string            `json:"upgrade,omitempty"`
	Skill     string            `json:"skill,omitempty"`
	Contact   string            `json:"contact,omitempty"`
	Action    string            `json:"action,omitempty"`
	Args      map[string]string `json:"args,omitempty"`
	EventID   string            `json:"event_id,omitempty"`
	Choice    string            `json:"choice,omitempty"`
}

type Result struct {
	OK      bool         `json:"ok"`
	Code    string       `json:"code,omitempty"`
	Kind    string       `json:"kind,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Log     []string     `json:"log,omitempty"`
	Outcome game.Outcome `json:"outcome,omitempty"`
	Day     int          `json:"day"`
}

func failure(err error, day int) Result {
	res := Result{Day: day, Kind: game.KindOf(err).String(), Reason: err.Error()}
	var ge *game.Error
	if errors.As(err, &ge) {
		res.Code = ge.Code
	} else {
		res.Code = game.CodeInvariant
	}
	return res
}

// mutation runs against a staged copy of state and randomness.
type mutation func(s *game.State, src *rng.Source) ([]string, error)

// transact stages s and rng, runs fn, checks invariants and commits only on
// success. A panic inside fn is reported as an invariant violation.
func (e *Engine) transact(fn mutation) (lines []string, err error) {
	stage := e.state.Clone()
	src := e.rng.Clone()

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = game.Invariantf("panic: %v", r)
			}
		}()
		lines, err = fn(stage, src)
	}()
	if err != nil {
		return nil, err
	}
	if err := game.CheckInvariants(stage, e.tune.Heat.Max, e.tune.Market.PriceFloor); err != nil {
		return nil, err
	}
	e.state, e.rng = stage, src
	e.day.Store(int64(stage.Day))
	return lines, nil
}

// Do executes one command to completion. Every outcome, including errors, is
// reported through the Result.
func (e *Engine) Do(cmd Command) Result {
	cmd.Type = strings.ToUpper(strings.TrimSpace(cmd.Type))
	seq := e.seq.Add(1)
	res := e.do(cmd)
	if !res.OK && res.Code == game.CodeInvariant {
		e.log.Printf("command %d %s aborted: %s", seq, cmd.Type, res.Reason)
	}
	if e.commandLogger != nil {
		_ = e.commandLogger.WriteCommand(CommandLogEntry{
			GameID: e.cfg.GameID,
			Seq:    seq,
			Day:    e.state.Day,
			Cmd:    cmd,
			OK:     res.OK,
			Code:   res.Code,
			Digest: e.Digest(),
		})
	}
	return res
}

func (e *Engine) do(cmd Command) Result {
	s := e.state
	if s.GameOver {
		return failure(game.InvalidStatef(game.CodeGameOver, "the game is over (%s: %s)", s.Outcome, s.Reason), s.Day)
	}
	if cmd.Type == CmdEndTurn {
		return e.endTurn()
	}
	if s.Player.Jailed() {
		return failure(game.InvalidStatef(game.CodeJailed, "you're in jail for %d more days; only END_TURN is allowed", s.Player.JailDaysRemaining), s.Day)
	}
	if pc := pendingStop(s); pc != nil && cmd.Type != CmdRespondToEvent {
		return failure(game.InvalidStatef(game.CodeBusy, "answer police stop %s first (%s)", pc.ID, strings.Join(pc.Options, ", ")), s.Day)
	}

	var fn mutation
	switch cmd.Type {
	case CmdTravel:
		fn = func(s *game.State, src *rng.Source) ([]string, error) { return e.travel(s, src, cmd) }
	case CmdBuy:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) { return e.buy(s, cmd) }
	case CmdSell:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) { return e.sell(s, cmd) }
	case CmdTradeCrypto:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			dir, ok := game.ParseDirection(cmd.Direction)
			if !ok {
				return nil, game.Validationf(game.CodeBadArgument, "direction must be BUY or SELL, got %q", cmd.Direction)
			}
			t, err := e.crypto.TradeCrypto(s, strings.ToUpper(cmd.Currency), cmd.Amount, dir, e.tune.Crypto.Fee)
			if err != nil {
				return nil, err
			}
			return []string{t.String()}, nil
		}
	case CmdStake:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			if err := e.crypto.Stake(s, cmd.Amount); err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("Staked %.4f. Total staked: %.4f.", cmd.Amount, s.Player.StakedDC)}, nil
		}
	case CmdUnstake:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			if err := e.crypto.Unstake(s, cmd.Amount); err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("Unstaked %.4f. Total staked: %.4f.", cmd.Amount, s.Player.StakedDC)}, nil
		}
	case CmdLaunder:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			l, err := e.crypto.Launder(s, cmd.Amount)
			if err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("Laundering $%.0f (fee $%.0f). %.4f %s arrives on day %d.",
				l.Cash, l.Fee, l.Pending, e.tune.Crypto.LaunderCurrency, l.ArrivalDay)}, nil
		}
	case CmdBuyUpgrade:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			line, err := e.progress.BuyUpgrade(s, strings.ToUpper(strings.TrimSpace(cmd.Upgrade)))
			return []string{line}, err
		}
	case CmdUnlockSkill:
		fn = func(s *game.State, _ *rng.Source) ([]string, error) {
			line, err := e.progress.UnlockSkill(s, strings.ToUpper(strings.TrimSpace(cmd.Skill)))
			return []string{line}, err
		}
	case CmdVisitContact:
		fn = func(s *game.State, src *rng.Source) ([]string, error) {
			return e.contacts.Visit(s, src, contacts.Request{Contact: cmd.Contact, Action: cmd.Action, Args: cmd.Args})
		}
	case CmdRespondToEvent:
		fn = func(s *game.State, src *rng.Source) ([]string, error) { return e.respond(s, src, cmd.EventID, cmd.Choice) }
	default:
		return failure(game.Validationf(game.CodeBadArgument, "unknown command %q", cmd.Type), s.Day)
	}

	lines, err := e.transact(fn)
	if err != nil {
		return failure(err, e.state.Day)
	}
	return Result{OK: true, Log: lines, Day: e.state.Day}
}

func pendingStop(s *game.State) *game.PendingChoice {
	for _, c := range s.Choices {
		if c.Event == eventPoliceStop {
			return c
		}
	}
	return nil
}

func (e *Engine) eventContext(s *game.State, src *rng.Source, day int) *events.Context {
	return &events.Context{State: s, Tune: e.tune, Heat: e.heat, Rng: src, Day: day}
}

func (e *Engine) travel(s *game.State, src *rng.Source, cmd Command) ([]string, error) {
	dest := s.Region(strings.ToLower(strings.TrimSpace(cmd.Region)))
	if dest == nil {
		return nil, game.Validationf(game.CodeUnknownRegion, "unknown region %q", cmd.Region)
	}
	p := &s.Player
	if dest.ID == p.Region {
		return nil, game.Validationf(game.CodeBadArgument, "you're already in %s", dest.Name)
	}
	cost := e.tune.Player.TravelCost
	if p.Cash < cost {
		return nil, game.Insufficientf(game.CodeInsufficientFunds, "travel costs $%.0f, you have $%.0f", cost, p.Cash)
	}
	p.Cash -= cost

	origin := s.CurrentRegion()
	switch e.heat.RollEncounter(origin, p, src) {
	case heat.EncounterPoliceStop:
		pc := e.eventContext(s, src, s.Day).Offer(game.PendingChoice{
			Event:       eventPoliceStop,
			Kind:        game.KindRisk,
			Region:      origin.ID,
			Prompt:      fmt.Sprintf("Police stop you on the way out of %s.", origin.Name),
			Options:     append([]string(nil), heat.StopOptions...),
			Destination: dest.ID,
		})
		return []string{fmt.Sprintf("Police stop you on the way out of %s. Respond to %s with %s.", origin.Name, pc.ID, strings.Join(pc.Options, ", "))}, nil
	case heat.EncounterSting:
		res := e.heat.ResolveSting(p, origin, src)
		lines := res.Log
		if res.Free() {
			p.Region = dest.ID
			lines = append(lines, fmt.Sprintf("You make it to %s.", dest.Name))
		}
		return lines, nil
	}
	p.Region = dest.ID
	return []string{fmt.Sprintf("You travel to %s for $%.0f.", dest.Name, cost)}, nil
}

func (e *Engine) tradeTarget(s *game.State, cmd Command) (*game.Region, game.Quality, error) {
	reg := s.CurrentRegion()
	if cmd.Region != "" && !strings.EqualFold(cmd.Region, reg.ID) {
		return nil, "", game.Validationf(game.CodeBadArgument, "you're in %s, not %s", reg.Name, cmd.Region)
	}
	q := game.QualityStandard
	if cmd.Quality != "" {
		var ok bool
		if q, ok = game.ParseQuality(cmd.Quality); !ok {
			return nil, "", game.Validationf(game.CodeBadArgument, "unknown quality %q", cmd.Quality)
		}
	}
	if cmd.Qty <= 0 {
		return nil, "", game.Validationf(game.CodeBadArgument, "quantity must be positive, got %d", cmd.Qty)
	}
	return reg, q, nil
}

func (e *Engine) buy(s *game.State, cmd Command) ([]string, error) {
	reg, q, err := e.tradeTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	commodity := strings.ToLower(strings.TrimSpace(cmd.Commodity))
	price, err := market.GetPrice(reg, commodity, q)
	if err != nil {
		return nil, err
	}
	p := &s.Player
	if free := p.FreeCapacity(); cmd.Qty > free {
		return nil, game.Insufficientf(game.CodeCapacityExceeded, "room for %d more units, asked for %d", free, cmd.Qty)
	}
	if cost := price * float64(cmd.Qty); p.Cash < cost {
		return nil, game.Insufficientf(game.CodeInsufficientFunds, "%d %s costs $%.0f, you have $%.0f", cmd.Qty, commodity, cost, p.Cash)
	}
	unit, total, err := market.ApplyTrade(e.tune.Market, reg, commodity, q, cmd.Qty, game.Buy)
	if err != nil {
		return nil, err
	}
	p.Cash -= total
	p.AddItems(game.Key(commodity, q), cmd.Qty, unit)
	return []string{fmt.Sprintf("Bought %d %s %s at $%.0f for $%.0f.", cmd.Qty, q, commodity, unit, total)}, nil
}

func (e *Engine) sell(s *game.State, cmd Command) ([]string, error) {
	reg, q, err := e.tradeTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	commodity := strings.ToLower(strings.TrimSpace(cmd.Commodity))
	k := game.Key(commodity, q)
	p := &s.Player
	if held := p.Inventory[k]; held < cmd.Qty {
		return nil, game.Insufficientf(game.CodeInsufficientInventory, "you hold %d %s %s", held, q, commodity)
	}
	unit, _, err := market.ApplyTrade(e.tune.Market, reg, commodity, q, cmd.Qty, game.Sell)
	if err != nil {
		return nil, err
	}
	sold, profit := p.SellItems(k, cmd.Qty, unit, reg.ID)
	added := e.heat.AddHeat(reg, e.heat.SaleHeat(p, commodity, q, sold))
	return []string{fmt.Sprintf("Sold %d %s %s at $%.0f (profit $%.0f). Heat +%d.", sold, q, commodity, unit, profit, added)}, nil
}

// respond answers a pending choice. Police stops are resolved here; every
// other kind belongs to the event system.
func (e *Engine) respond(s *game.State, src *rng.Source, id, option string) ([]string, error) {
	pc := s.Choice(id)
	if pc == nil {
		return nil, game.InvalidStatef(game.CodeUnknownEvent, "no pending event %q", id)
	}
	if pc.Event != eventPoliceStop {
		return e.events.Respond(e.eventContext(s, src, s.Day), id, option)
	}
	option = strings.ToUpper(strings.TrimSpace(option))
	if !pc.HasOption(option) {
		return nil, game.Validationf(game.CodeBadArgument, "%q is not an option (options: %s)", option, strings.Join(pc.Options, ", "))
	}
	reg := s.Region(pc.Region)
	if reg == nil {
		reg = s.CurrentRegion()
	}
	res, err := e.heat.ResolvePoliceStop(heat.StopChoice(option), &s.Player, reg, src)
	if err != nil {
		return nil, err
	}
	s.RemoveChoice(id)
	lines := res.Log
	if res.Free() && pc.Destination != "" {
		if dest := s.Region(pc.Destination); dest != nil {
			s.Player.Region = dest.ID
			lines = append(lines, fmt.Sprintf("You continue to %s.", dest.Name))
		}
	}
	return lines, nil
}
