package main

import (
	"testing"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

func TestBot_PlaysScriptedDays(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	e, err := engine.New(engine.Config{GameID: "bot", Seed: 99, Tuning: tuning.Defaults(), Catalogs: cats})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	b := &bot{maxDays: 10}
	var trades, ends int
	for i := 0; i < 500; i++ {
		cmd, ok := b.next(e.View())
		if !ok {
			break
		}
		res := e.Do(cmd)
		switch cmd.Type {
		case engine.CmdBuy, engine.CmdSell:
			if res.OK {
				trades++
			}
		case engine.CmdEndTurn:
			ends++
		}
	}
	if _, ok := b.next(e.View()); ok && !e.View().State.GameOver {
		t.Fatalf("bot did not stop after %d days", b.maxDays)
	}
	if ends == 0 || ends > 10 {
		t.Fatalf("end turns = %d", ends)
	}
	if trades == 0 {
		t.Fatalf("bot never traded")
	}
}

func TestBot_TriesEachActionOncePerDay(t *testing.T) {
	b := &bot{tried: map[string]bool{}}
	if !b.attempt("buy:weed:STANDARD") {
		t.Fatalf("first attempt refused")
	}
	if b.attempt("buy:weed:STANDARD") {
		t.Fatalf("second attempt allowed")
	}
}
