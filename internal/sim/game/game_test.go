package game

import (
	"errors"
	"testing"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	s, err := New(cats, tuning.Defaults(), 42, rng.New(42))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Prices are normally filled by the market engine.
	for _, id := range s.RegionOrder {
		for _, l := range s.Regions[id].Listings {
			l.BuyPrice, l.SellPrice = l.BasePrice, l.BasePrice*0.85
		}
	}
	return s
}

func TestNew_Day1(t *testing.T) {
	s := newTestState(t)
	if s.Day != 1 {
		t.Fatalf("day=%d want 1", s.Day)
	}
	if s.Player.Cash != 2000 || s.Player.Capacity != 150 {
		t.Fatalf("player=%+v", s.Player)
	}
	if len(s.Debts) != 3 || s.Debts[0].DueDay != 15 {
		t.Fatalf("debts=%+v", s.Debts)
	}
	if err := CheckInvariants(s, 100, 1); err != nil {
		t.Fatalf("fresh state violates invariants: %v", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := newTestState(t)
	s.Player.AddItems(Key("weed", QualityStandard), 5, 50)
	before := Digest(s)

	c := s.Clone()
	if Digest(c) != before {
		t.Fatalf("clone digest differs")
	}
	c.Regions["downtown"].Heat = 40
	c.Player.Inventory[Key("weed", QualityStandard)] = 99
	c.Player.Wallet["DC"] = 7
	c.Rivals[0].Busted = true
	c.Currencies["DC"].History[0] = 1234

	if Digest(s) != before {
		t.Fatalf("mutating clone changed the original")
	}
}

func TestCheckInvariants_Violations(t *testing.T) {
	cases := []struct {
		name string
		mut  func(s *State)
	}{
		{"heat above max", func(s *State) { s.Regions["downtown"].Heat = 101 }},
		{"heat below zero", func(s *State) { s.Regions["docks"].Heat = -1 }},
		{"busted without days", func(s *State) { s.Rivals[0].Busted = true }},
		{"days without busted", func(s *State) { s.Rivals[0].BustedDaysRemaining = 2 }},
		{"over capacity", func(s *State) { s.Player.Inventory[Key("weed", QualityCut)] = 151 }},
		{"negative price", func(s *State) {
			for _, l := range s.Regions["downtown"].Listings {
				l.BuyPrice = -1
				break
			}
		}},
		{"half pending laundering", func(s *State) { s.Player.PendingLaunderedSC = 10 }},
	}
	for _, c := range cases {
		s := newTestState(t)
		c.mut(s)
		err := CheckInvariants(s, 100, 1)
		if err == nil {
			t.Fatalf("%s: expected violation", c.name)
		}
		if !errors.Is(err, ErrInvariant) {
			t.Fatalf("%s: expected invariant kind, got %v", c.name, err)
		}
	}
}

func TestError_Is(t *testing.T) {
	err := Insufficientf(CodeInsufficientStock, "only %d left", 3)
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected kind match")
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected code match")
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("different code must not match")
	}
	if KindOf(errors.New("boom")) != KindInvariant {
		t.Fatalf("unclassified errors are invariant violations")
	}
}

func TestState_EndLatches(t *testing.T) {
	s := newTestState(t)
	if !s.End(OutcomeLost, "debt_default") {
		t.Fatalf("first End should report")
	}
	if s.End(OutcomeWon, "net_worth") {
		t.Fatalf("second End must be ignored")
	}
	if s.Outcome != OutcomeLost || s.Reason != "debt_default" {
		t.Fatalf("outcome overwritten: %s %s", s.Outcome, s.Reason)
	}
}

func TestPlayer_AvgCost(t *testing.T) {
	s := newTestState(t)
	k := Key("weed", QualityStandard)
	s.Player.AddItems(k, 10, 40)
	s.Player.AddItems(k, 10, 60)
	if got := s.Player.AvgCost[k]; got != 50 {
		t.Fatalf("avg cost=%v want 50", got)
	}
	if n := s.Player.RemoveItems(k, 25); n != 20 {
		t.Fatalf("removed %d want 20", n)
	}
	if _, ok := s.Player.Inventory[k]; ok {
		t.Fatalf("empty stack should be deleted")
	}
}
