package engine

import (
	"fmt"

	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
)

func catalogDigests(c *catalogs.Catalogs) map[string]string {
	return map[string]string{
		"commodities": c.Commodities.Digest,
		"regions":     c.Regions.Digest,
		"currencies":  c.Currencies.Digest,
		"rivals":      c.Rivals.Digest,
		"skills":      c.Skills.Digest,
		"events":      c.Events.Digest,
	}
}

// ExportSnapshot captures committed state, randomness and the command
// counter. The returned value shares nothing with the engine.
func (e *Engine) ExportSnapshot() snapshot.SnapshotV1 {
	s := e.state.Clone()
	return snapshot.SnapshotV1{
		Header:         snapshot.Header{Version: snapshot.Version, GameID: e.cfg.GameID, Day: s.Day},
		Seed:           s.Seed,
		RngState:       e.rng.State(),
		CommandSeq:     e.seq.Load(),
		Digest:         game.Digest(s),
		CatalogDigests: catalogDigests(e.cats),
		State:          *s,
	}
}

// Resume builds an engine from a snapshot. Catalogs must match the ones the
// snapshot was taken with.
func Resume(cfg Config, snap snapshot.SnapshotV1) (*Engine, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("engine: catalogs required")
	}
	for name, want := range snap.CatalogDigests {
		if got := catalogDigests(cfg.Catalogs)[name]; got != want {
			return nil, fmt.Errorf("engine: %s catalog changed since snapshot (have %s, snapshot %s)", name, got, want)
		}
	}
	cfg.Seed = snap.Seed
	if snap.Header.GameID != "" {
		cfg.GameID = snap.Header.GameID
	}
	cfg.LegacyGoal = snap.State.LegacyGoal

	e, err := build(cfg)
	if err != nil {
		return nil, err
	}
	s := snap.State.Clone()
	s.Normalize()
	if err := game.CheckInvariants(s, cfg.Tuning.Heat.Max, cfg.Tuning.Market.PriceFloor); err != nil {
		return nil, fmt.Errorf("engine: snapshot state: %w", err)
	}
	if snap.Digest != "" {
		if got := game.Digest(s); got != snap.Digest {
			return nil, fmt.Errorf("engine: snapshot digest mismatch (have %s, want %s)", got, snap.Digest)
		}
	}
	e.state = s
	e.rng = rng.FromState(snap.RngState)
	e.seq.Store(snap.CommandSeq)
	e.day.Store(int64(s.Day))
	return e, nil
}
