package engine

import (
	"strings"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
)

// InjectEvent fires event id now, bypassing the daily trigger roll. region
// picks the target for region-scoped kinds; empty means the player's region.
// Used by operators and scenario tests.
func (e *Engine) InjectEvent(id, region string) Result {
	if e.state.GameOver {
		return failure(game.InvalidStatef(game.CodeGameOver, "the game is over"), e.state.Day)
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	lines, err := e.transact(func(s *game.State, src *rng.Source) ([]string, error) {
		c := e.eventContext(s, src, s.Day)
		if region != "" {
			c.Target = s.Region(region)
			if c.Target == nil {
				return nil, game.Validationf(game.CodeUnknownRegion, "unknown region %q", region)
			}
		}
		ev, err := e.events.Fire(c, id)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, game.InvalidStatef(game.CodeUnavailable, "%s is not possible right now", id)
		}
		return ev.Log, nil
	})
	if err != nil {
		return failure(err, e.state.Day)
	}
	e.log.Printf("injected %s: %v", id, lines)
	return Result{OK: true, Log: lines, Day: e.state.Day}
}
