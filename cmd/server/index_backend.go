package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"narcosim.ai/internal/persistence/indexdb"
	"narcosim.ai/internal/persistence/snapshot"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	engine.TurnLogger
	engine.CommandLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	TopRuns(ctx context.Context, limit int) ([]indexdb.Run, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(gameDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("NS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(gameDir, "index", "game.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported NS_INDEX_BACKEND: %s", backend)
	}
}
