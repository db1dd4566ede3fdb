package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const metaBlockHeight = "block_height"

// Store is the SQLite-backed call journal
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath with WAL mode and runs migrations.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, err
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection, so a ":memory:" database is visible to every query
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// runMigrations creates the necessary tables
func (s *Store) runMigrations() error {
	callsTable := `
		CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_id TEXT UNIQUE NOT NULL,
			block INTEGER NOT NULL,
			caller TEXT NOT NULL,
			function TEXT NOT NULL,
			args TEXT NOT NULL,
			result TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	metaTable := `
		CREATE TABLE IF NOT EXISTS chain_meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`

	createIndexes := `
		CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller);
		CREATE INDEX IF NOT EXISTS idx_calls_function ON calls(function);
	`

	for _, stmt := range []string{callsTable, metaTable, createIndexes} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendCall writes a committed call and sets rec.ID
func (s *Store) AppendCall(ctx context.Context, rec *CallRecord) error {
	result := sql.NullString{String: string(rec.Result), Valid: len(rec.Result) > 0}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (tx_id, block, caller, function, args, result)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.TxID, int64(rec.Block), rec.Caller, rec.Function, string(rec.Args), result)
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListCalls returns journaled calls with id > afterID in commit order.
// limit <= 0 returns all of them.
func (s *Store) ListCalls(ctx context.Context, afterID int64, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_id, block, caller, function, args, result, created_at
		FROM calls
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()
	return scanCalls(rows)
}

// CallsByCaller returns the most recent calls made by caller, newest first
func (s *Store) CallsByCaller(ctx context.Context, caller string, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_id, block, caller, function, args, result, created_at
		FROM calls
		WHERE caller = ?
		ORDER BY id DESC
		LIMIT ?
	`, caller, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get calls by caller: %w", err)
	}
	defer rows.Close()
	return scanCalls(rows)
}

// CountCalls returns the number of journaled calls
func (s *Store) CountCalls(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count calls: %w", err)
	}
	return n, nil
}

func scanCalls(rows *sql.Rows) ([]CallRecord, error) {
	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		var block int64
		var args string
		var result sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.TxID,
			&block,
			&rec.Caller,
			&rec.Function,
			&args,
			&result,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		rec.Block = uint64(block)
		rec.Args = []byte(args)
		if result.Valid {
			rec.Result = []byte(result.String)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}
	return out, nil
}

// BlockHeight returns the persisted chain head. ok is false on a fresh
// database.
func (s *Store) BlockHeight(ctx context.Context) (height uint64, ok bool, err error) {
	var v int64
	err = s.db.QueryRowContext(ctx, `SELECT value FROM chain_meta WHERE key = ?`, metaBlockHeight).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get block height: %w", err)
	}
	return uint64(v), true, nil
}

// SetBlockHeight persists the chain head
func (s *Store) SetBlockHeight(ctx context.Context, height uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaBlockHeight, int64(height))
	if err != nil {
		return fmt.Errorf("failed to set block height: %w", err)
	}
	return nil
}
