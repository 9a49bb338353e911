package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/contacts"
	"narcosim.ai/internal/sim/crypto"
	"narcosim.ai/internal/sim/events"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/heat"
	"narcosim.ai/internal/sim/market"
	"narcosim.ai/internal/sim/progress"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

type Config struct {
	GameID     string
	Seed       int64
	LegacyGoal string

	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// Logger receives operator-facing lines. Nil discards them.
	Logger *log.Logger
}

type Phase string

const (
	PhaseAwaiting  Phase = "AWAITING_PLAYER_ACTIONS"
	PhaseResolving Phase = "RESOLVING"
	PhaseAdvanced  Phase = "ADVANCED"
)

// Request is one inbox item for Run. A nil Cmd only asks for the current view.
type Request struct {
	Cmd  *Command
	Resp chan Reply
}

type Reply struct {
	Result *Result
	View   View
}

// Engine is a single-threaded authoritative game.
// State must be accessed only from the Run goroutine, or through Do when Run
// is not running.
type Engine struct {
	cfg  Config
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	heat     *heat.Rules
	crypto   *crypto.Rules
	events   *events.Registry
	contacts *contacts.Rules
	progress *progress.Rules

	state *game.State
	rng   *rng.Source
	phase Phase

	seq atomic.Uint64
	day atomic.Int64

	inbox chan Request
	stop  chan struct{}

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	turnLogger    TurnLogger
	commandLogger CommandLogger
	snapshotSink  chan<- snapshot.SnapshotV1
}

type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

type CommandLogger interface {
	WriteCommand(entry CommandLogEntry) error
}

type TurnLogEntry struct {
	GameID   string       `json:"game_id"`
	Day      int          `json:"day"`
	Log      []string     `json:"log,omitempty"`
	Outcome  game.Outcome `json:"outcome,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Cash     float64      `json:"cash"`
	NetWorth float64      `json:"net_worth"`
	AvgHeat  float64      `json:"avg_heat"`
	Digest   string       `json:"digest"`
}

type CommandLogEntry struct {
	GameID string  `json:"game_id"`
	Seq    uint64  `json:"seq"`
	Day    int     `json:"day"`
	Cmd    Command `json:"cmd"`
	OK     bool    `json:"ok"`
	Code   string  `json:"code,omitempty"`
	Digest string  `json:"digest"`
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("engine: catalogs required")
	}
	if cfg.LegacyGoal != "" && !progress.ValidLegacyGoal(cfg.LegacyGoal) {
		return nil, fmt.Errorf("engine: unknown legacy goal %q", cfg.LegacyGoal)
	}
	e, err := build(cfg)
	if err != nil {
		return nil, err
	}
	src := rng.New(cfg.Seed)
	s, err := game.New(cfg.Catalogs, cfg.Tuning, cfg.Seed, src)
	if err != nil {
		return nil, err
	}
	s.LegacyGoal = cfg.LegacyGoal
	for _, id := range s.RegionOrder {
		market.OpenDay(s.Regions[id])
		market.Refresh(cfg.Tuning.Market, s.Regions[id])
	}
	if err := game.CheckInvariants(s, cfg.Tuning.Heat.Max, cfg.Tuning.Market.PriceFloor); err != nil {
		return nil, fmt.Errorf("engine: initial state: %w", err)
	}
	e.state, e.rng = s, src
	e.day.Store(int64(s.Day))
	return e, nil
}

func build(cfg Config) (*Engine, error) {
	reg, err := events.NewRegistry(cfg.Catalogs)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	h := heat.NewRules(cfg.Tuning, cfg.Catalogs)
	c := crypto.NewRules(cfg.Tuning, h)
	return &Engine{
		cfg:      cfg,
		cats:     cfg.Catalogs,
		tune:     cfg.Tuning,
		log:      logger,
		heat:     h,
		crypto:   c,
		events:   reg,
		contacts: contacts.NewRules(cfg.Tuning, h, c),
		progress: progress.NewRules(cfg.Tuning, cfg.Catalogs),
		phase:    PhaseAwaiting,
		inbox:    make(chan Request, 64),
		stop:     make(chan struct{}),
	}, nil
}

func (e *Engine) SetTurnLogger(l TurnLogger)                    { e.turnLogger = l }
func (e *Engine) SetCommandLogger(l CommandLogger)              { e.commandLogger = l }
func (e *Engine) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { e.snapshotSink = ch }

func (e *Engine) Inbox() chan<- Request { return e.inbox }

// QueueDepth is safe to call from any goroutine.
func (e *Engine) QueueDepth() int { return len(e.inbox) }

// CurrentDay is safe to call from any goroutine.
func (e *Engine) CurrentDay() int { return int(e.day.Load()) }

func (e *Engine) CommandSeq() uint64 { return e.seq.Load() }

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) GameID() string { return e.cfg.GameID }

func (e *Engine) Tuning() tuning.Tuning { return e.tune }

func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats }

func (e *Engine) Run(ctx context.Context) error {
	e.log.Printf("game %s running at day %d", e.cfg.GameID, e.state.Day)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.inbox:
			var rep Reply
			if req.Cmd != nil {
				res := e.Do(*req.Cmd)
				rep.Result = &res
			}
			rep.View = e.View()
			if req.Resp != nil {
				req.Resp <- rep
			}
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// Digest hashes the committed state.
func (e *Engine) Digest() string { return game.Digest(e.state) }

func (e *Engine) NetWorth() float64 { return e.progress.NetWorth(e.state) }
