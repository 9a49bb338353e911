package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"narcosim.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	GameID     string   `json:"game_id"`
	Outcome    string   `json:"outcome"`
	Reason     string   `json:"reason"`
	FinalDay   int      `json:"final_day"`
	Seed       int64    `json:"seed"`
	Snapshot   string   `json:"snapshot"`
	Digest     string   `json:"digest"`
	CommandSeq uint64   `json:"command_seq"`
	LegacyGoal string   `json:"legacy_goal,omitempty"`
	Legacy     []string `json:"achieved_legacy,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// ArchiveFinalSnapshot copies the snapshot of a finished game into
// `gameDir/archives/<outcome>_day_<NNNN>/` next to a meta.json.
// It returns archived=false for snapshots of a game still in progress.
func ArchiveFinalSnapshot(gameDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	st := snap.State
	if !st.GameOver || st.Outcome == "" {
		return "", false, nil
	}

	archiveDir := filepath.Join(gameDir, "archives", fmt.Sprintf("%s_day_%04d", st.Outcome, st.Day))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RunArchiveMeta{
		GameID:     snap.Header.GameID,
		Outcome:    string(st.Outcome),
		Reason:     st.Reason,
		FinalDay:   st.Day,
		Seed:       snap.Seed,
		Snapshot:   filepath.Base(dst),
		Digest:     snap.Digest,
		CommandSeq: snap.CommandSeq,
		LegacyGoal: st.LegacyGoal,
		Legacy:     st.AchievedLegacy,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
