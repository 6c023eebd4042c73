package assets

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"storyreel/types"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS assets (
	identifier   TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	local_path   TEXT NOT NULL,
	source_ref   TEXT NOT NULL,
	duration_sec REAL NOT NULL DEFAULT 0,
	width        INTEGER NOT NULL DEFAULT 0,
	height       INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);`

// Index is the persistent cache index: identifier → resolved asset.
// Rows are only ever inserted; eviction is an external concern.
type Index struct {
	conn *sql.DB
}

// OpenIndex opens (creating if needed) the sqlite index under the cache root.
// The layout is stable across restarts: a later run with the same identifier
// hits cache instead of re-downloading.
func OpenIndex(cacheDir string) (*Index, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "index.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(indexSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Index{conn: conn}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.conn.Close()
}

// Lookup returns the cached asset for an identifier. A row whose payload file
// has disappeared from disk is treated as a miss.
func (ix *Index) Lookup(identifier string) (types.Asset, bool, error) {
	var a types.Asset
	var kind string
	err := ix.conn.QueryRow(
		`SELECT kind, local_path, duration_sec, width, height FROM assets WHERE identifier = ?`,
		identifier,
	).Scan(&kind, &a.LocalPath, &a.NativeDuration, &a.Width, &a.Height)
	if err == sql.ErrNoRows {
		return types.Asset{}, false, nil
	}
	if err != nil {
		return types.Asset{}, false, fmt.Errorf("cache lookup %s: %w", identifier, err)
	}

	if _, err := os.Stat(a.LocalPath); err != nil {
		return types.Asset{}, false, nil
	}

	a.Kind = types.SourceKind(kind)
	a.Identifier = identifier
	return a, true, nil
}

// Put records a freshly downloaded asset.
func (ix *Index) Put(a types.Asset, sourceRef string) error {
	_, err := ix.conn.Exec(
		`INSERT OR REPLACE INTO assets (identifier, kind, local_path, source_ref, duration_sec, width, height)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Identifier, string(a.Kind), a.LocalPath, sourceRef, a.NativeDuration, a.Width, a.Height,
	)
	if err != nil {
		return fmt.Errorf("cache put %s: %w", a.Identifier, err)
	}
	return nil
}
