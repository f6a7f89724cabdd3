// Package persistence stores world snapshots, the event log, and world
// metadata in SQLite.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/civilzones/internal/engine"
	"github.com/talgya/civilzones/internal/persistence/snapshot"
)

// ErrNoSave is returned when no snapshot has been stored yet.
var ErrNoSave = errors.New("no saved world")

// keepSaves is how many snapshots per world survive pruning.
const keepSaves = 5

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// SaveInfo describes a stored snapshot without its body.
type SaveInfo struct {
	ID      int64     `db:"id" json:"id"`
	WorldID string    `db:"world_id" json:"world_id"`
	Tick    uint64    `db:"tick" json:"tick"`
	Year    int       `db:"year" json:"year"`
	Phase   string    `db:"phase" json:"phase"`
	Size    int       `db:"size" json:"size"`
	Created time.Time `db:"created" json:"created"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		year INTEGER NOT NULL,
		phase TEXT NOT NULL,
		size INTEGER NOT NULL,
		created TIMESTAMP NOT NULL,
		body BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_world ON saves(world_id, id);
	CREATE INDEX IF NOT EXISTS idx_events_world_tick ON events(world_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot stores snap and prunes older saves of the same world.
func (db *DB) SaveSnapshot(snap *snapshot.SnapshotV1) (SaveInfo, error) {
	body, err := snapshot.Marshal(snap)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("encode snapshot: %w", err)
	}
	h := snap.Header
	info := SaveInfo{
		WorldID: h.WorldID,
		Tick:    h.Tick,
		Year:    h.Year,
		Phase:   h.Phase,
		Size:    len(body),
		Created: time.Now().UTC(),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return SaveInfo{}, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO saves (world_id, tick, year, phase, size, created, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.WorldID, info.Tick, info.Year, info.Phase, info.Size, info.Created, body,
	)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("insert save: %w", err)
	}
	if info.ID, err = res.LastInsertId(); err != nil {
		return SaveInfo{}, err
	}
	if _, err := tx.Exec(`DELETE FROM saves WHERE world_id = ? AND id NOT IN
		(SELECT id FROM saves WHERE world_id = ? ORDER BY id DESC LIMIT ?)`,
		info.WorldID, info.WorldID, keepSaves,
	); err != nil {
		return SaveInfo{}, fmt.Errorf("prune saves: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES ('current_world', ?)", info.WorldID); err != nil {
		return SaveInfo{}, err
	}
	return info, tx.Commit()
}

// LatestSnapshot loads the newest save of the current world.
func (db *DB) LatestSnapshot() (*snapshot.SnapshotV1, SaveInfo, error) {
	var row struct {
		SaveInfo
		Body []byte `db:"body"`
	}
	err := db.conn.Get(&row, `SELECT s.id, s.world_id, s.tick, s.year, s.phase, s.size, s.created, s.body
		FROM saves s JOIN world_meta m ON m.key = 'current_world' AND m.value = s.world_id
		ORDER BY s.id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, SaveInfo{}, ErrNoSave
	}
	if err != nil {
		return nil, SaveInfo{}, err
	}
	snap, err := snapshot.Unmarshal(row.Body)
	if err != nil {
		return nil, row.SaveInfo, fmt.Errorf("save %d: %w", row.ID, err)
	}
	return snap, row.SaveInfo, nil
}

// Saves lists stored snapshots of a world, newest first.
func (db *DB) Saves(worldID string) ([]SaveInfo, error) {
	var saves []SaveInfo
	err := db.conn.Select(&saves,
		"SELECT id, world_id, tick, year, phase, size, created FROM saves WHERE world_id = ? ORDER BY id DESC",
		worldID,
	)
	return saves, err
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(worldID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (world_id, seq, tick, description, category) VALUES (?, ?, ?, ?, ?)",
			worldID, e.Seq, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState snapshots sim and flushes its pending events.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	snap, err := sim.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	info, err := db.SaveSnapshot(snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := db.SaveEvents(info.WorldID, sim.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", info.Tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved", "world_id", info.WorldID, "tick", info.Tick, "bytes", info.Size)
	return nil
}

// RecentEvents returns the most recent N events of a world, newest first.
func (db *DB) RecentEvents(worldID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events WHERE world_id = ? ORDER BY id DESC LIMIT ?",
		worldID, limit,
	)
	return events, err
}
