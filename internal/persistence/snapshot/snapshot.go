package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"narcosim.ai/internal/sim/game"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Day     int    `json:"day"`
}

// SnapshotV1 is everything needed to resume a game and replay from it.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed       int64  `json:"seed"`
	RngState   uint64 `json:"rng_state"`
	CommandSeq uint64 `json:"command_seq"`
	Digest     string `json:"digest"`

	// Catalog digests at save time; a resume with different catalogs is refused.
	CatalogDigests map[string]string `json:"catalog_digests,omitempty"`

	State game.State `json:"state"`
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return encode(f, snap)
}

// encode writes the header line and gob body through zstd. Flush and close
// errors are returned.
func encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported (want %d)", h.Version, Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	// gob drops empty maps.
	snap.State.Normalize()
	return snap, nil
}

// FileName is the on-disk name for a snapshot taken at the end of day.
func FileName(day int) string { return fmt.Sprintf("day-%06d.snap.zst", day) }

// Latest returns the newest snapshot in dir, or "" when there is none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	type cand struct {
		day  int
		name string
	}
	var cs []cand
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "day-") || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "day-"), ".snap.zst"))
		if err != nil {
			continue
		}
		cs = append(cs, cand{day: d, name: name})
	}
	if len(cs) == 0 {
		return "", nil
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].day > cs[j].day })
	return filepath.Join(dir, cs[0].name), nil
}
