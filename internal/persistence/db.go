// Package persistence keeps the public draw ledger in SQLite. Every
// completed draw is recorded so past results stay verifiable; live
// simulation state is deliberately not persisted.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cosmic-lottery/internal/sim"
)

// DB wraps a SQLite connection for the draw ledger.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

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
	CREATE TABLE IF NOT EXISTS draws (
		id TEXT PRIMARY KEY,
		drawn_at TEXT NOT NULL,
		policy TEXT NOT NULL,
		entropy TEXT NOT NULL,
		selected_ids TEXT NOT NULL,
		sum INTEGER NOT NULL,
		digit INTEGER NOT NULL,
		meaning TEXT NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_draws_drawn_at ON draws(drawn_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// DrawRecord is one ledger row.
type DrawRecord struct {
	ID          string    `db:"id" json:"id"`
	DrawnAt     time.Time `db:"-" json:"drawn_at"`
	Policy      string    `db:"policy" json:"policy"`
	Entropy     string    `db:"entropy" json:"entropy"`
	SelectedIDs []int     `db:"-" json:"selected_ids"`
	Sum         int       `db:"sum" json:"sum"`
	Digit       int       `db:"digit" json:"digit"`
	Meaning     string    `db:"meaning" json:"meaning"`
	Degraded    bool      `db:"degraded" json:"degraded,omitempty"`
}

// RecordDraw appends a finalized draw to the ledger.
func (db *DB) RecordDraw(r sim.DrawResult) error {
	ids, err := json.Marshal(r.SelectedIDs)
	if err != nil {
		return fmt.Errorf("marshal ids: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO draws (id, drawn_at, policy, entropy, selected_ids, sum, digit, meaning, degraded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DrawnAt.UTC().Format(time.RFC3339Nano), r.Policy, r.Entropy,
		string(ids), r.Sum, r.Digit, r.Meaning, r.Degraded,
	)
	if err != nil {
		return fmt.Errorf("record draw: %w", err)
	}
	return nil
}

// ListDraws returns up to limit most recent draws, newest first.
func (db *DB) ListDraws(limit int) ([]DrawRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Queryx(
		`SELECT id, drawn_at, policy, entropy, selected_ids, sum, digit, meaning, degraded
		 FROM draws ORDER BY drawn_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	defer rows.Close()

	var out []DrawRecord
	for rows.Next() {
		var (
			rec     DrawRecord
			at, ids string
		)
		if err := rows.Scan(&rec.ID, &at, &rec.Policy, &rec.Entropy, &ids,
			&rec.Sum, &rec.Digit, &rec.Meaning, &rec.Degraded); err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			rec.DrawnAt = t
		}
		if err := json.Unmarshal([]byte(ids), &rec.SelectedIDs); err != nil {
			return nil, fmt.Errorf("unmarshal ids: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountDraws returns the total number of ledger rows.
func (db *DB) CountDraws() (int, error) {
	var n int
	if err := db.conn.Get(&n, `SELECT COUNT(*) FROM draws`); err != nil {
		return 0, fmt.Errorf("count draws: %w", err)
	}
	return n, nil
}

// SetMeta stores a key/value metadata pair.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetMeta fetches a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var v string
	if err := db.conn.Get(&v, `SELECT value FROM meta WHERE key = ?`, key); err != nil {
		return "", err
	}
	return v, nil
}
