package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/medlock/internal/program"
	"github.com/hengadev/medlock/internal/types"
)

const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		address BLOB PRIMARY KEY,
		data BLOB NOT NULL,
		slot INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_slot ON accounts(slot);
`

// SQLiteStore is a program.AccountStore in a SQLite database. Every Mutate runs
// in an immediate transaction, so writers are serialized by the database lock.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the account database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory '%s': %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL", url.PathEscape(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database at '%s': %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger database connection test failed for '%s': %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema in '%s': %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, addr types.Address) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM accounts WHERE address = ?`, addr[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", types.ErrNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read account %s: %w", types.ErrLedgerUnavailable, addr, err)
	}
	return data, nil
}

func (s *SQLiteStore) Mutate(ctx context.Context, addr types.Address, fn program.MutateFunc) (slot uint64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", types.ErrLedgerUnavailable, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var cur []byte
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT data FROM accounts WHERE address = ?`, addr[:]).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		exists, err = false, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read account %s: %w", types.ErrLedgerUnavailable, addr, err)
	}

	next, err := fn(cur, exists)
	if err != nil {
		return 0, err
	}

	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(slot), 0) + 1 FROM accounts`).Scan(&slot); err != nil {
		return 0, fmt.Errorf("%w: next slot: %w", types.ErrLedgerUnavailable, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (address, data, slot) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET data = excluded.data, slot = excluded.slot, updated_at = CURRENT_TIMESTAMP
	`, addr[:], next, slot)
	if err != nil {
		return 0, fmt.Errorf("%w: write account %s: %w", types.ErrLedgerUnavailable, addr, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", types.ErrLedgerUnavailable, err)
	}
	return slot, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
