package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/tuning"
)

func TestSQLiteIndex_WritesRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteCommand(engine.CommandLogEntry{GameID: "g1", Seq: 1, Day: 1, Cmd: engine.Command{Type: engine.CmdBuy, Commodity: "weed", Qty: 5}, OK: true, Digest: "d1"})
	_ = idx.WriteCommand(engine.CommandLogEntry{GameID: "g1", Seq: 2, Day: 1, Cmd: engine.Command{Type: "sell"}, OK: false, Code: "BAD_ARGUMENT", Digest: "d1"})
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "g1", Day: 2, Log: []string{"a", "b"}, Cash: 1500, NetWorth: 1800, AvgHeat: 3, Digest: "d2"})
	idx.RecordSnapshot("/data/g1/snapshots/day-000002.snap.zst", snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, GameID: "g1", Day: 2},
		Seed:       42,
		CommandSeq: 3,
		Digest:     "d2",
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "g1", Day: 3})

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM commands WHERE game_id='g1'`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("commands: n=%d err=%v", n, err)
	}
	var typ, code string
	if err := db.QueryRow(`SELECT type,code FROM commands WHERE seq=2`).Scan(&typ, &code); err != nil {
		t.Fatalf("command row: %v", err)
	}
	if typ != "SELL" || code != "BAD_ARGUMENT" {
		t.Fatalf("command row mismatch: %s %s", typ, code)
	}
	var lines int
	var worth float64
	if err := db.QueryRow(`SELECT log_lines,net_worth FROM turns WHERE game_id='g1' AND day=2`).Scan(&lines, &worth); err != nil {
		t.Fatalf("turn row: %v", err)
	}
	if lines != 2 || worth != 1800 {
		t.Fatalf("turn row mismatch: lines=%d worth=%v", lines, worth)
	}
	var snapPath string
	var seed, seq int64
	if err := db.QueryRow(`SELECT path,seed,command_seq FROM snapshots WHERE game_id='g1' AND day=2`).Scan(&snapPath, &seed, &seq); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if snapPath != "/data/g1/snapshots/day-000002.snap.zst" || seed != 42 || seq != 3 {
		t.Fatalf("snapshot row mismatch: %s %d %d", snapPath, seed, seq)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("turns after close: n=%d err=%v", n, err)
	}
}

func TestSQLiteIndex_TopRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "a", Day: 15, Outcome: game.OutcomeLost, Reason: "debt_default", NetWorth: 900})
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "b", Day: 60, Outcome: game.OutcomeWon, Reason: "net_worth", NetWorth: 1_200_000})
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "c", Day: 5, NetWorth: 5_000_000})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	runs, err := idx.TopRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("want 2 finished runs, got %d", len(runs))
	}
	if runs[0].GameID != "b" || runs[0].Outcome != "WON" || runs[0].FinalDay != 60 {
		t.Fatalf("best run = %+v", runs[0])
	}
	if runs[1].GameID != "a" || runs[1].Reason != "debt_default" {
		t.Fatalf("second run = %+v", runs[1])
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	// Idempotent.
	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs again: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 {
		t.Fatalf("catalog rows = %d, want 7", n)
	}
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='regions'`).Scan(&digest); err != nil {
		t.Fatalf("regions row: %v", err)
	}
	if digest != cats.Regions.Digest {
		t.Fatalf("regions digest %s, want %s", digest, cats.Regions.Digest)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	idx := &SQLiteIndex{ch: make(chan req, 1)}

	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "g", Day: 1})
	_ = idx.WriteTurn(engine.TurnLogEntry{GameID: "g", Day: 2})
	_ = idx.WriteCommand(engine.CommandLogEntry{GameID: "g", Seq: 1})
	idx.RecordSnapshot("p", snapshot.SnapshotV1{})

	st := idx.Stats()
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue depth/capacity = %d/%d", st.QueueDepth, st.QueueCapacity)
	}
	if st.DropTurnTotal != 1 || st.DropCommandTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops = %+v", st)
	}

	var nilIdx *SQLiteIndex
	if nilIdx.Stats() != (Stats{}) {
		t.Fatalf("nil index stats should be zero")
	}
}
