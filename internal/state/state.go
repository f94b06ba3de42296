// Package state persists the server's playlist and player settings in sqlite.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "cadence"
	dbFileName = "state.db"
)

// Snapshot is everything the server restores on start.
type Snapshot struct {
	Playlist     []string
	CurrentIndex int
	Volume       int
	Shuffle      bool
	Repeat       bool
	AutoNext     bool
}

type Manager struct {
	db *sql.DB
}

// DefaultPath is the database location under XDG_DATA_HOME.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// ResolvePath returns configured when set, else DefaultPath.
func ResolvePath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return DefaultPath()
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func Open(path string) (*Manager, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state schema: %w", err)
	}

	return &Manager{db: db}, nil
}

// OpenReadOnly opens an existing database without creating files or
// schema. Writes through the returned Manager fail.
func OpenReadOnly(path string) (*Manager, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// Load returns the saved snapshot, or nil when nothing was saved yet.
func (m *Manager) Load() (*Snapshot, error) {
	var snap Snapshot
	row := m.db.QueryRow(`
		SELECT current_index, volume, shuffle, repeat, autonext
		FROM player_state WHERE id = 1
	`)
	err := row.Scan(&snap.CurrentIndex, &snap.Volume, &snap.Shuffle, &snap.Repeat, &snap.AutoNext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query(`SELECT path FROM playlist_tracks ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		snap.Playlist = append(snap.Playlist, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// Save replaces the stored snapshot in one transaction.
func (m *Manager) Save(snap Snapshot) error {
	return withTx(m.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM playlist_tracks`); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO player_state (id, current_index, volume, shuffle, repeat, autonext)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				volume = excluded.volume,
				shuffle = excluded.shuffle,
				repeat = excluded.repeat,
				autonext = excluded.autonext
		`, snap.CurrentIndex, snap.Volume, snap.Shuffle, snap.Repeat, snap.AutoNext)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`INSERT INTO playlist_tracks (position, path) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, path := range snap.Playlist {
			if _, err := stmt.Exec(i, path); err != nil {
				return err
			}
		}
		return nil
	})
}

func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
