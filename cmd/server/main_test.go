package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

func newRunningEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	e, err := engine.New(engine.Config{GameID: "metrics", Seed: 3, Tuning: tuning.Defaults(), Catalogs: cats})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.Run(ctx) }()
	return e
}

func TestMetricsHandler(t *testing.T) {
	e := newRunningEngine(t)
	rec := httptest.NewRecorder()
	metricsHandler(e, nil)(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`narcosim_game_day{game="metrics"} 1`,
		`narcosim_region_heat{game="metrics",region="downtown"}`,
		`narcosim_player_net_worth{game="metrics"}`,
		`narcosim_engine_queue_depth{game="metrics"}`,
		"# TYPE narcosim_commands_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "narcosim_index_") {
		t.Fatalf("index metrics rendered without an index")
	}
}

func TestMetricsHandler_WithIndex(t *testing.T) {
	e := newRunningEngine(t)
	idx, err := openRuntimeIndex(t.TempDir(), false)
	if err != nil {
		t.Fatalf("openRuntimeIndex: %v", err)
	}
	defer idx.Close()
	rec := httptest.NewRecorder()
	metricsHandler(e, idx)(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `narcosim_index_dropped_total{kind="turn"} 0`) {
		t.Fatalf("index metrics missing:\n%s", rec.Body.String())
	}
}

func TestOpenRuntimeIndex_Backends(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), true)
	if err != nil || idx != nil {
		t.Fatalf("disabled db: idx=%v err=%v", idx, err)
	}
	t.Setenv("NS_INDEX_BACKEND", "none")
	if idx, err := openRuntimeIndex(t.TempDir(), false); err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}
	t.Setenv("NS_INDEX_BACKEND", "postgres")
	if _, err := openRuntimeIndex(t.TempDir(), false); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

type countingTurns struct{ n int }

func (c *countingTurns) WriteTurn(engine.TurnLogEntry) error { c.n++; return nil }

type countingCommands struct{ n int }

func (c *countingCommands) WriteCommand(engine.CommandLogEntry) error { c.n++; return nil }

func TestMultiLoggersFanOut(t *testing.T) {
	a, b := &countingTurns{}, &countingTurns{}
	_ = multiTurnLogger{a: a, b: b}.WriteTurn(engine.TurnLogEntry{})
	_ = multiTurnLogger{a: a}.WriteTurn(engine.TurnLogEntry{})
	if a.n != 2 || b.n != 1 {
		t.Fatalf("turn fan-out a=%d b=%d", a.n, b.n)
	}
	c := &countingCommands{}
	_ = multiCommandLogger{b: c}.WriteCommand(engine.CommandLogEntry{})
	if c.n != 1 {
		t.Fatalf("command fan-out = %d", c.n)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:443":   false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q) = %v", in, got)
		}
	}
}

func TestWriteGameMetrics_NilState(t *testing.T) {
	var sb strings.Builder
	writeGameMetrics(&sb, "g", 0, 0, engine.View{})
	if sb.Len() != 0 {
		t.Fatalf("expected no output for empty view")
	}
}
