// Package index maintains a derived SQLite copy of the store for ad-hoc SQL.
//
// The text store stays the source of truth. The index is rebuilt from the
// whole sequence, so it can always be deleted and recreated.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/timelog/internal/item"
)

// schemaVersion is stored in PRAGMA user_version. Bump it when the table
// layout changes; Rebuild recreates the table either way.
const schemaVersion = 1

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 5000 // milliseconds

var errPathEmpty = errors.New("index path is empty")

const (
	dropTableSQL   = `DROP TABLE IF EXISTS items`
	createTableSQL = `CREATE TABLE items (
		seq        INTEGER PRIMARY KEY,
		activity   TEXT    NOT NULL,
		start_unix INTEGER NOT NULL,
		end_unix   INTEGER,
		started_at TEXT    NOT NULL,
		ended_at   TEXT,
		day        TEXT    NOT NULL
	)`
	createIndexSQL = `CREATE INDEX items_activity ON items (activity)`
	insertSQL      = `INSERT INTO items (seq, activity, start_unix, end_unix, started_at, ended_at, day) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// Index is an open SQLite index database.
type Index struct {
	db   *sql.DB
	path string
}

// ActivityTotal is the tracked time of one activity over finished items.
type ActivityTotal struct {
	Activity string
	Items    int
	Total    time.Duration
}

// Open opens or creates the index database at path.
func Open(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, errPathEmpty
	}

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// Ensure per-connection PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping index: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`, sqliteBusyTimeout))
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return &Index{db: db, path: path}, nil
}

// Path returns the database file path.
func (ix *Index) Path() string {
	return ix.path
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Rebuild replaces the indexed rows with items in one transaction.
func (ix *Index) Rebuild(ctx context.Context, items []item.Item) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{dropTableSQL, createTableSQL, createIndexSQL} {
		_, err = tx.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("recreate table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	defer func() { _ = insert.Close() }()

	for i, it := range items {
		var endUnix, endText any

		if end, ok := it.End(); ok {
			endUnix = end.Unix()
			endText = item.FormatTimestamp(end)
		}

		_, err = insert.ExecContext(ctx,
			i+1,
			it.Activity(),
			it.Start().Unix(),
			endUnix,
			item.FormatTimestamp(it.Start()),
			endText,
			it.Start().Format(time.DateOnly),
		)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", i+1, err)
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Count returns the number of indexed items.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int

	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}

	return n, nil
}

// ActivityTotals sums finished items per activity, longest first.
func (ix *Index) ActivityTotals(ctx context.Context) ([]ActivityTotal, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT activity, COUNT(*), SUM(end_unix - start_unix)
		FROM items
		WHERE end_unix IS NOT NULL
		GROUP BY activity
		ORDER BY SUM(end_unix - start_unix) DESC, activity`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var totals []ActivityTotal

	for rows.Next() {
		var (
			total   ActivityTotal
			seconds int64
		)

		err = rows.Scan(&total.Activity, &total.Items, &seconds)
		if err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}

		total.Total = time.Duration(seconds) * time.Second
		totals = append(totals, total)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	return totals, nil
}

// SchemaVersion returns the stored PRAGMA user_version.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var version int

	err := ix.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}
