package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"narcosim.ai/internal/persistence/archive"
	persistlog "narcosim.ai/internal/persistence/log"
	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
	"narcosim.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gameID     = flag.String("game", "game_1", "game id")
		seed       = flag.Int64("seed", 1337, "game seed (used only when starting a fresh game)")
		legacy     = flag.String("legacy", "", "legacy goal for a fresh game (REGIONAL_BARON, CRYPTO_WHALE, THE_CLEANER)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (turns/commands + catalogs + snapshot metadata)")
		schemaDir  = flag.String("schemas", "./schemas", "json schema directory")
		validate   = flag.Bool("validate_schemas", false, "validate inbound CMD messages against cmd.schema.json")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	gameDir := filepath.Join(*dataDir, "games", *gameID)
	_ = os.MkdirAll(gameDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(gameDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad, err = snapshot.Latest(filepath.Join(gameDir, "snapshots"))
		if err != nil {
			logger.Fatalf("find latest snapshot: %v", err)
		}
	}

	cfg := engine.Config{
		GameID:     *gameID,
		Seed:       *seed,
		LegacyGoal: strings.ToUpper(strings.TrimSpace(*legacy)),
		Tuning:     tune,
		Catalogs:   cats,
		Logger:     log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lmicroseconds),
	}
	var e *engine.Engine
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.GameID != "" && snap.Header.GameID != *gameID {
			logger.Fatalf("snapshot game id mismatch: flag=%s snap=%s", *gameID, snap.Header.GameID)
		}
		e, err = engine.Resume(cfg, snap)
		if err != nil {
			logger.Fatalf("resume: %v", err)
		}
		logger.Printf("resumed from snapshot=%s day=%d", filepath.Base(snapshotToLoad), e.CurrentDay())
	} else {
		e, err = engine.New(cfg)
		if err != nil {
			logger.Fatalf("engine: %v", err)
		}
		logger.Printf("new game %s seed=%d", *gameID, *seed)
	}

	ctx, cancel := signalContext()
	defer cancel()

	turnLog := persistlog.NewTurnLogger(gameDir)
	cmdLog := persistlog.NewCommandLogger(gameDir)
	defer turnLog.Close()
	defer cmdLog.Close()
	if idx != nil {
		e.SetTurnLogger(multiTurnLogger{a: turnLog, b: idx})
		e.SetCommandLogger(multiCommandLogger{a: cmdLog, b: idx})
	} else {
		e.SetTurnLogger(turnLog)
		e.SetCommandLogger(cmdLog)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	e.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(gameDir, "snapshots", snapshot.FileName(snap.Header.Day))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if archivedPath, ok, err := archive.ArchiveFinalSnapshot(gameDir, path, snap); err != nil {
					logger.Printf("archive final snapshot: %v", err)
				} else if ok {
					logger.Printf("game over: %s (%s), archived %s", snap.State.Outcome, snap.State.Reason, archivedPath)
				}
			}
		}
	}()

	go func() {
		if err := e.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(e, logger)
	if *validate {
		if err := wsSrv.ValidateCommands(*schemaDir); err != nil {
			logger.Fatalf("schemas: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(e, idx))

	enableAdminHTTP := envBool("NS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("NS_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			v, err := currentView(r.Context(), e)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(v)
		})
		if idx != nil {
			mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
				if !isLoopbackRemote(r.RemoteAddr) {
					http.Error(rw, "forbidden", http.StatusForbidden)
					return
				}
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				runs, err := idx.TopRuns(r.Context(), limit)
				if err != nil {
					http.Error(rw, err.Error(), http.StatusInternalServerError)
					return
				}
				rw.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(rw).Encode(runs)
			})
		}
	} else {
		logger.Printf("admin endpoints disabled (NS_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (NS_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// currentView asks the engine loop for a consistent copy of the game.
func currentView(ctx context.Context, e *engine.Engine) (engine.View, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	resp := make(chan engine.Reply, 1)
	select {
	case e.Inbox() <- engine.Request{Resp: resp}:
	case <-ctx.Done():
		return engine.View{}, ctx.Err()
	}
	select {
	case rep := <-resp:
		return rep.View, nil
	case <-ctx.Done():
		return engine.View{}, ctx.Err()
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTurnLogger struct {
	a engine.TurnLogger
	b engine.TurnLogger
}

func (m multiTurnLogger) WriteTurn(entry engine.TurnLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTurn(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTurn(entry)
	}
	return nil
}

type multiCommandLogger struct {
	a engine.CommandLogger
	b engine.CommandLogger
}

func (m multiCommandLogger) WriteCommand(entry engine.CommandLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteCommand(entry)
	}
	if m.b != nil {
		_ = m.b.WriteCommand(entry)
	}
	return nil
}
