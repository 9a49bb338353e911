package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/game"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

func TestWriteReadSnapshot_PreservesDigest(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	src := rng.New(5)
	st, err := game.New(cats, tuning.Defaults(), 5, src)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	snap := SnapshotV1{
		Header:         Header{Version: Version, GameID: "g1", Day: st.Day},
		Seed:           5,
		RngState:       src.State(),
		CommandSeq:     12,
		Digest:         game.Digest(st),
		CatalogDigests: map[string]string{"regions": cats.Regions.Digest},
		State:          *st,
	}

	path := filepath.Join(t.TempDir(), "snapshots", FileName(st.Day))
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Header != snap.Header || got.Seed != 5 || got.RngState != snap.RngState || got.CommandSeq != 12 {
		t.Fatalf("header fields mismatch: %+v", got.Header)
	}
	if d := game.Digest(&got.State); d != snap.Digest {
		t.Fatalf("digest after round trip = %s, want %s", d, snap.Digest)
	}
	if got.CatalogDigests["regions"] != cats.Regions.Digest {
		t.Fatalf("catalog digests lost")
	}
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc, _ := zstd.NewWriter(f)
	_, _ = enc.Write([]byte(`{"version":99,"game_id":"g","day":1}` + "\n"))
	_ = enc.Close()
	_ = f.Close()

	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if p, err := Latest(filepath.Join(dir, "missing")); err != nil || p != "" {
		t.Fatalf("missing dir: p=%q err=%v", p, err)
	}
	for _, name := range []string{FileName(2), FileName(10), FileName(9), "notes.txt", "day-xx.snap.zst"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	p, err := Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if filepath.Base(p) != "day-000010.snap.zst" {
		t.Fatalf("Latest = %s", p)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestEncodeSurfacesWriteErrors(t *testing.T) {
	diskFull := errors.New("no space left on device")
	snap := SnapshotV1{Header: Header{Version: Version, GameID: "g1", Day: 3}}
	if err := encode(failingWriter{err: diskFull}, snap); !errors.Is(err, diskFull) {
		t.Fatalf("encode to a failing writer returned %v", err)
	}
}

func TestWriteSnapshot_NoFileOnError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "snapshots")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := filepath.Join(blocker, FileName(1))
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: Version}}); err == nil {
		t.Fatalf("expected error writing under a file")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("snapshot file left behind")
	}
}
