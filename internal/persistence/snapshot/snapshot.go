// Package snapshot defines the versioned full-state save format: a zstd
// stream holding a JSON header line followed by a gob body.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/civilzones/internal/agents"
	"github.com/talgya/civilzones/internal/economy"
	"github.com/talgya/civilzones/internal/geology"
	"github.com/talgya/civilzones/internal/world"
)

// Version is the format written by this package.
const Version = 1

// ErrVersion is returned for snapshots this build cannot read.
var ErrVersion = errors.New("unsupported snapshot version")

const bufSize = 256 * 1024

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Year    int    `json:"year"`
	Phase   string `json:"phase"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// Config is the YAML the world was created with.
	Config []byte `json:"config"`
	Seed   int64  `json:"seed"`
	RNG    []byte `json:"rng"`

	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Revision uint64            `json:"revision"`
	Tiles    []world.Tile      `json:"tiles"`
	Structs  []world.Structure `json:"structures"`

	Creatures     []CreatureV1  `json:"creatures"`
	CreatureSlots int           `json:"creature_slots"`
	Nomads        []NomadV1     `json:"nomads"`
	NomadSlots    int           `json:"nomad_slots"`
	Player        agents.Player `json:"player"`

	Ledger   economy.Ledger     `json:"ledger"`
	LastTurn economy.TurnReport `json:"last_turn"`
	Geology  geology.State      `json:"geology"`

	Phase   uint8 `json:"phase"`
	Cause   uint8 `json:"cause"`
	Settled bool  `json:"settled"`

	Events []EventV1 `json:"events,omitempty"`
}

// CreatureV1 keeps the pool slot so indices survive a round trip.
type CreatureV1 struct {
	Slot     int             `json:"slot"`
	Creature agents.Creature `json:"creature"`
}

type NomadV1 struct {
	Slot  int          `json:"slot"`
	Nomad agents.Nomad `json:"nomad"`
}

type EventV1 struct {
	Seq         uint64 `json:"seq"`
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Encode writes snap to w.
func Encode(w io.Writer, snap *SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, bufSize)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*SnapshotV1, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	br := bufio.NewReaderSize(dec, bufSize)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}

	var snap SnapshotV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &snap, nil
}

// ReadHeader returns only the header, without decoding the body.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}

// Marshal encodes snap into memory.
func Marshal(snap *SnapshotV1) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot from b.
func Unmarshal(b []byte) (*SnapshotV1, error) {
	return Decode(bytes.NewReader(b))
}

// WriteFile writes snap to path, creating parent directories.
func WriteFile(path string, snap *SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (*SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
