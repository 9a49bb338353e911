package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "narcosim.ai/internal/persistence/log"
	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst to start from (optional; default starts a fresh game)")
		gameDir    = flag.String("game_dir", "", "game data dir containing commands/ (e.g. ./data/games/game_1)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		gameID     = flag.String("game", "game_1", "game id for a fresh replay")
		seed       = flag.Int64("seed", 1337, "seed for a fresh replay")
		legacy     = flag.String("legacy", "", "legacy goal for a fresh replay")
		toSeq      = flag.Uint64("to_seq", 0, "stop after command seq (inclusive, optional)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	cfg := engine.Config{GameID: *gameID, Seed: *seed, LegacyGoal: strings.ToUpper(*legacy), Tuning: tune, Catalogs: cats}
	var e *engine.Engine
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d game=%s day=%d seed=%d command_seq=%d digest=%s\n",
			snap.Header.Version, snap.Header.GameID, snap.Header.Day, snap.Seed, snap.CommandSeq, snap.Digest)
		e, err = engine.Resume(cfg, snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "resume:", err)
			os.Exit(1)
		}
	} else {
		e, err = engine.New(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "engine:", err)
			os.Exit(1)
		}
	}

	if *gameDir == "" {
		return
	}
	entries, err := persistlog.ReadCommands(*gameDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read commands:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no command log found in", *gameDir)
		os.Exit(1)
	}

	startSeq := e.CommandSeq()
	checked, err := replay(e, entries, *toSeq)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d commands (from seq=%d) day=%d digest=%s\n", checked, startSeq, e.CurrentDay(), e.Digest())
}

// replay re-applies logged commands after the engine's current seq and
// compares each outcome and state digest against the log.
func replay(e *engine.Engine, entries []engine.CommandLogEntry, toSeq uint64) (int, error) {
	checked := 0
	for _, entry := range entries {
		if entry.Seq <= e.CommandSeq() {
			continue
		}
		if toSeq != 0 && entry.Seq > toSeq {
			break
		}
		if want := e.CommandSeq() + 1; entry.Seq != want {
			return checked, fmt.Errorf("seq gap: want=%d got=%d", want, entry.Seq)
		}
		res := e.Do(entry.Cmd)
		if res.OK != entry.OK || res.Code != entry.Code {
			return checked, fmt.Errorf("outcome mismatch at seq %d (%s): got ok=%v code=%s want ok=%v code=%s",
				entry.Seq, entry.Cmd.Type, res.OK, res.Code, entry.OK, entry.Code)
		}
		if got := e.Digest(); got != entry.Digest {
			return checked, fmt.Errorf("digest mismatch at seq %d (%s): got=%s want=%s", entry.Seq, entry.Cmd.Type, got, entry.Digest)
		}
		checked++
	}
	return checked, nil
}
