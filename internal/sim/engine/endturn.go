package engine

import (
	"fmt"
	"strings"

	"narcosim.ai/internal/sim/events"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/market"
	"narcosim.ai/internal/sim/rivals"
	"narcosim.ai/internal/sim/rng"
)

// endTurn resolves the day as one transaction and advances to the next.
func (e *Engine) endTurn() Result {
	e.phase = PhaseResolving
	defer func() { e.phase = PhaseAwaiting }()

	endedDay := e.state.Day
	lines, err := e.transact(e.resolveDay)
	if err != nil {
		e.log.Printf("day %d: turn aborted, state kept: %v", endedDay, err)
		return failure(err, e.state.Day)
	}
	e.phase = PhaseAdvanced
	s := e.state
	res := Result{OK: true, Log: lines, Day: s.Day}
	if s.GameOver {
		res.Outcome = s.Outcome
		e.log.Printf("game %s over on day %d: %s (%s)", e.cfg.GameID, s.Day, s.Outcome, s.Reason)
	}

	if e.turnLogger != nil {
		_ = e.turnLogger.WriteTurn(TurnLogEntry{
			GameID:   e.cfg.GameID,
			Day:      s.Day,
			Log:      lines,
			Outcome:  s.Outcome,
			Reason:   s.Reason,
			Cash:     s.Player.Cash,
			NetWorth: e.progress.NetWorth(s),
			AvgHeat:  s.AverageHeat(),
			Digest:   e.Digest(),
		})
	}
	every := e.tune.SnapshotEveryDays
	if e.snapshotSink != nil && every > 0 && (s.Day%every == 0 || s.GameOver) {
		snap := e.ExportSnapshot()
		select {
		case e.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
		}
	}
	return res
}

// resolveDay runs the end-of-day steps in their fixed order on a stage.
func (e *Engine) resolveDay(s *game.State, src *rng.Source) ([]string, error) {
	var out []string
	next := s.Day + 1
	// Only a sentence already running when the day opened counts this day.
	serving := s.Player.Jailed()

	// 1. Unanswered choices take their default.
	lines, err := e.resolveDefaults(s, src)
	if err != nil {
		return nil, err
	}
	out = append(out, lines...)

	// 2. Markets.
	for _, id := range s.RegionOrder {
		reg := s.Regions[id]
		for _, fx := range market.AdvanceDay(e.tune.Market, reg, next) {
			out = append(out, fmt.Sprintf("%s in %s has ended.", humanize(fx.Event), reg.Name))
		}
	}
	market.AdvanceCurrencies(s, src, e.tune.Crypto.PriceHistoryLen)

	// 3. Rivals.
	_, rl := rivals.AdvanceDay(s, e.tune.Rivals, e.tune.Market, src, s.Day)
	out = append(out, rl...)

	// 4. Heat.
	out = append(out, e.heatStep(s, src, next)...)

	// 5. Laundering.
	if got := e.crypto.SettleLaundering(s, next); got > 0 {
		out = append(out, fmt.Sprintf("%.4f %s cleared laundering.", got, e.tune.Crypto.LaunderCurrency))
	}

	// 6. Staking.
	if y := e.crypto.ApplyStakingYield(s); y > 0 {
		out = append(out, fmt.Sprintf("Staking paid %.4f %s.", y, e.tune.Crypto.StakeCurrency))
	}

	// 7. Random event for tomorrow.
	if ev := e.events.TriggerRandomEvent(e.eventContext(s, src, next)); ev != nil {
		out = append(out, ev.Log...)
	}

	// 8. Tomorrow.
	out = append(out, e.advanceDay(s, serving)...)

	// 9. Debts and bankruptcy.
	out = append(out, e.settleDebts(s)...)

	// 10. Legacy and win.
	if !s.GameOver {
		out = append(out, e.progress.CheckLegacy(s, e.heat.AddHeat)...)
		if won, why := e.progress.CheckWin(s); won {
			s.End(game.OutcomeWon, why)
			out = append(out, fmt.Sprintf("You win: %s.", why))
		}
	}

	// Heat gained today reaches quotes from tomorrow on.
	for _, id := range s.RegionOrder {
		market.OpenDay(s.Regions[id])
	}
	return out, nil
}

func (e *Engine) resolveDefaults(s *game.State, src *rng.Source) ([]string, error) {
	var out []string
	pending := append([]*game.PendingChoice(nil), s.Choices...)
	for _, pc := range pending {
		opt := pc.Default()
		lines, err := e.respond(s, src, pc.ID, opt)
		if err != nil {
			if game.KindOf(err) == game.KindInvariant {
				return nil, err
			}
			s.RemoveChoice(pc.ID)
			out = append(out, fmt.Sprintf("%s lapsed.", humanize(pc.Event)))
			continue
		}
		out = append(out, fmt.Sprintf("No answer to %s; you %s.", humanize(pc.Event), lowerWord(opt)))
		out = append(out, lines...)
	}
	return out, nil
}

func (e *Engine) heatStep(s *game.State, src *rng.Source, next int) []string {
	var out []string
	p := &s.Player
	if reg := s.CurrentRegion(); !p.Jailed() {
		switch e.heat.RollEncounter(reg, p, src) {
		case heat.EncounterPoliceStop:
			res, _ := e.heat.ResolvePoliceStop(heat.ChoiceAuto, p, reg, src)
			out = append(out, "Police pick you up overnight.")
			out = append(out, res.Log...)
		case heat.EncounterSting:
			out = append(out, e.heat.ResolveSting(p, reg, src).Log...)
		}
	}

	ghost := p.HasSkill(game.SkillGhostProtocol)
	for _, id := range s.RegionOrder {
		e.heat.DecayHeat(s.Regions[id], ghost)
	}

	if p.SetupExposure > 0 {
		p.SetupExposure--
		if p.SetupExposure == 0 {
			p.SetupItem = ""
		}
	}

	for _, ev := range events.RollTurfWars(e.eventContext(s, src, next)) {
		out = append(out, ev.Log...)
	}
	return out
}

func (e *Engine) advanceDay(s *game.State, serving bool) []string {
	var out []string
	s.Day++
	p := &s.Player
	if serving && p.JailDaysRemaining > 0 {
		p.JailDaysRemaining--
		if p.JailDaysRemaining == 0 {
			out = append(out, "You're released from jail.")
		}
	}
	if e.progress.AwardSkillPoint(s) {
		out = append(out, fmt.Sprintf("You earned a skill point (%d available).", p.SkillPoints))
	}
	s.HeatSum += s.AverageHeat()
	s.HeatDays++
	return out
}

func (e *Engine) settleDebts(s *game.State) []string {
	var out []string
	p := &s.Player
	for i := range s.Debts {
		d := &s.Debts[i]
		if d.Paid || d.DueDay > s.Day {
			continue
		}
		if p.Cash < d.Amount {
			s.End(game.OutcomeLost, "debt_default")
			out = append(out, fmt.Sprintf("You couldn't cover the $%.0f payment due on day %d. The lender collects in other ways.", d.Amount, d.DueDay))
			return out
		}
		p.Cash -= d.Amount
		d.Paid = true
		out = append(out, fmt.Sprintf("The lender collected $%.0f.", d.Amount))
	}
	if p.Cash < e.tune.Player.BankruptcyThreshold {
		s.End(game.OutcomeLost, "bankrupt")
		out = append(out, "You're bankrupt.")
	}
	return out
}

// humanize turns an id like DRUG_MARKET_CRASH into "Drug market crash".
func humanize(id string) string {
	if id == "" {
		return id
	}
	s := strings.ToLower(strings.ReplaceAll(id, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerWord(opt string) string {
	return strings.ToLower(strings.ReplaceAll(opt, "_", " "))
}
