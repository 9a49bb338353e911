package rivals

import (
	"testing"

	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func testState() *game.State {
	reg := &game.Region{ID: "docks", Name: "Docks", Listings: map[game.ItemKey]*game.Listing{}}
	for _, c := range []string{"speed", "weed"} {
		k := game.Key(c, game.QualityStandard)
		reg.Listings[k] = &game.Listing{Commodity: c, Quality: game.QualityStandard, Tier: 1, BasePrice: 100, Stock: 100, BaselineStock: 100, MaxStock: 200, Pressure: 1}
		reg.Order = append(reg.Order, k)
	}
	return &game.State{
		Regions:     map[string]*game.Region{"docks": reg},
		RegionOrder: []string{"docks"},
		Rivals: []*game.Rival{{
			ID: "dockmaster", Name: "Dockmaster", Profile: game.ProfileBalanced, Region: "docks",
			Commodity: "speed", Aggression: 0.5, Activity: 1, ImpactWeight: 0.5,
		}},
	}
}

func pressureMoved(s *game.State) bool {
	for _, l := range s.Regions["docks"].Listings {
		if l.Pressure != 1 {
			return true
		}
	}
	return false
}

func resetPressure(s *game.State) {
	for _, l := range s.Regions["docks"].Listings {
		l.Pressure = 1
		l.Reinforced = false
	}
}

func TestBustedRival_NoPressureAndResumes(t *testing.T) {
	s := testState()
	tr, tm := tuning.Defaults().Rivals, tuning.Defaults().Market
	src := rng.New(1)
	rv := s.Rivals[0]

	// Busted during the end of day 9 with duration 5: out for days 10..14.
	rv.Busted, rv.BustedDaysRemaining = true, 5
	for day := 10; day <= 14; day++ {
		acts, _ := AdvanceDay(s, tr, tm, src, day)
		if len(acts) != 0 || pressureMoved(s) {
			t.Fatalf("day %d: busted rival traded", day)
		}
		if day < 14 && !rv.Busted {
			t.Fatalf("day %d: released early", day)
		}
	}
	if rv.Busted || rv.BustedDaysRemaining != 0 {
		t.Fatalf("should be released with 0 days entering day 15, got %v/%d", rv.Busted, rv.BustedDaysRemaining)
	}
	acts, _ := AdvanceDay(s, tr, tm, src, 15)
	if len(acts) != 1 || !pressureMoved(s) {
		t.Fatalf("rival should trade on day 15: %v", acts)
	}
	if rv.LastActiveDay != 15 {
		t.Fatalf("last active=%d", rv.LastActiveDay)
	}
}

func TestAdvanceDay_DeterministicAndPrefersPrimary(t *testing.T) {
	tr, tm := tuning.Defaults().Rivals, tuning.Defaults().Market
	a, b := testState(), testState()
	ra, rb := rng.New(99), rng.New(99)
	primary, total := 0, 0
	for day := 1; day <= 200; day++ {
		aa, _ := AdvanceDay(a, tr, tm, ra, day)
		ab, _ := AdvanceDay(b, tr, tm, rb, day)
		if len(aa) != len(ab) || (len(aa) == 1 && aa[0] != ab[0]) {
			t.Fatalf("day %d diverged: %v vs %v", day, aa, ab)
		}
		total += len(aa)
		for _, act := range aa {
			if act.Qty < 1 {
				t.Fatalf("qty %d", act.Qty)
			}
			if c, _ := act.Item.Split(); c == "speed" {
				primary++
			}
		}
		resetPressure(a)
		resetPressure(b)
	}
	if total < 50 || primary*2 <= total {
		t.Fatalf("primary commodity picked %d/%d times, expected a clear majority", primary, total)
	}
}

func TestCooldownGatesRepeatActions(t *testing.T) {
	tm := tuning.Defaults().Market
	tr := tuning.Defaults().Rivals
	tr.CooldownMin, tr.CooldownMax = 3, 3
	s := testState()
	src := rng.New(7)
	rv := s.Rivals[0]

	var acted []int
	for day := 1; day <= 10; day++ {
		acts, _ := AdvanceDay(s, tr, tm, src, day)
		if len(acts) > 0 {
			acted = append(acted, day)
		}
	}
	want := []int{1, 4, 7, 10}
	if len(acted) != len(want) {
		t.Fatalf("acted on %v, want %v", acted, want)
	}
	for i := range want {
		if acted[i] != want[i] {
			t.Fatalf("acted on %v, want %v", acted, want)
		}
	}
	if rv.LastActiveDay != 10 {
		t.Fatalf("last active=%d", rv.LastActiveDay)
	}

	tr.CooldownMin, tr.CooldownMax = 0, 0
	s = testState()
	for day := 1; day <= 5; day++ {
		if acts, _ := AdvanceDay(s, tr, tm, src, day); len(acts) != 1 {
			t.Fatalf("day %d: no cooldown but rival idle", day)
		}
	}
}
