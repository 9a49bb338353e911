package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index over turns, commands, snapshots
// and finished runs. Writes are queued and applied by one goroutine; the
// JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn     atomic.Uint64
	dropCommand  atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqCommand
	reqSnapshot
)

type req struct {
	kind reqKind

	turn     engine.TurnLogEntry
	command  engine.CommandLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	GameID     string
	Day        int
	Path       string
	Seed       int64
	Digest     string
	CommandSeq uint64
}

// Stats reports queue pressure for metrics.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTurnTotal     uint64
	DropCommandTotal  uint64
	DropSnapshotTotal uint64
	WriteErrorTotal   uint64
}

// Run is one finished game.
type Run struct {
	GameID     string  `json:"game_id"`
	Outcome    string  `json:"outcome"`
	Reason     string  `json:"reason"`
	FinalDay   int     `json:"final_day"`
	NetWorth   float64 `json:"net_worth"`
	Cash       float64 `json:"cash"`
	RecordedAt string  `json:"recorded_at"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			game_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			digest TEXT NOT NULL,
			outcome TEXT,
			reason TEXT,
			cash REAL NOT NULL,
			net_worth REAL NOT NULL,
			avg_heat REAL NOT NULL,
			log_lines INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (game_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			game_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			day INTEGER NOT NULL,
			type TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			digest TEXT NOT NULL,
			cmd_json TEXT NOT NULL,
			PRIMARY KEY (game_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_type_day ON commands(game_id, type, day);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			game_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			digest TEXT NOT NULL,
			command_seq INTEGER NOT NULL,
			PRIMARY KEY (game_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			game_id TEXT PRIMARY KEY,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			final_day INTEGER NOT NULL,
			net_worth REAL NOT NULL,
			cash REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_net_worth ON runs(net_worth);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTurn(entry engine.TurnLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteCommand(entry engine.CommandLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqCommand, command: entry}:
	default:
		s.dropCommand.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		GameID:     snap.Header.GameID,
		Day:        snap.Header.Day,
		Path:       path,
		Seed:       snap.Seed,
		Digest:     snap.Digest,
		CommandSeq: snap.CommandSeq,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTurnTotal:     s.dropTurn.Load(),
		DropCommandTotal:  s.dropCommand.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// TopRuns lists finished games by final net worth, best first.
func (s *SQLiteIndex) TopRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id,outcome,reason,final_day,net_worth,cash,recorded_at FROM runs ORDER BY net_worth DESC, game_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.GameID, &r.Outcome, &r.Reason, &r.FinalDay, &r.NetWorth, &r.Cash, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertCatalogs stores the catalogs and tuning a game runs with, so index
// rows can be interpreted later.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		for _, f := range []struct{ name, digest string }{
			{"commodities", cats.Commodities.Digest},
			{"regions", cats.Regions.Digest},
			{"currencies", cats.Currencies.Digest},
			{"rivals", cats.Rivals.Digest},
			{"skills", cats.Skills.Digest},
		} {
			b, err := os.ReadFile(filepath.Join(configDir, f.name+".json"))
			if err != nil {
				continue
			}
			rows = append(rows, kv{name: f.name, digest: f.digest, json: b})
		}
	}
	{
		// Events come from a directory; store them canonicalized.
		evs := make([]catalogs.EventDef, 0, len(cats.Events.ByID))
		for _, ev := range cats.Events.ByID {
			evs = append(evs, ev)
		}
		sort.Slice(evs, func(i, j int) bool { return evs[i].ID < evs[j].ID })
		if b, _ := json.Marshal(evs); len(b) > 0 {
			rows = append(rows, kv{name: "events", digest: cats.Events.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(game_id,day,digest,outcome,reason,cash,net_worth,avg_heat,log_lines,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(game_id,outcome,reason,final_day,net_worth,cash,recorded_at) VALUES(?,?,?,?,?,?,?)`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(game_id,seq,day,type,ok,code,digest,cmd_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(game_id,day,path,seed,digest,command_seq) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertRun, insertCommand, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
		s.writeErrors.Add(1)
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.writeErrors.Add(1)
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			raw, _ := json.Marshal(t)
			if !exec(insertTurn, t.GameID, t.Day, t.Digest, string(t.Outcome), t.Reason, t.Cash, t.NetWorth, t.AvgHeat, len(t.Log), string(raw)) {
				continue
			}
			if t.Outcome != "" {
				exec(insertRun, t.GameID, string(t.Outcome), t.Reason, t.Day, t.NetWorth, t.Cash, time.Now().UTC().Format(time.RFC3339Nano))
			}

		case reqCommand:
			c := r.command
			cmdJSON, _ := json.Marshal(c.Cmd)
			ok := 0
			if c.OK {
				ok = 1
			}
			exec(insertCommand, c.GameID, int64(c.Seq), c.Day, strings.ToUpper(c.Cmd.Type), ok, c.Code, c.Digest, string(cmdJSON))

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.GameID, sn.Day, sn.Path, sn.Seed, sn.Digest, int64(sn.CommandSeq))
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
