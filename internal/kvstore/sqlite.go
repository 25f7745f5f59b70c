package kvstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT    PRIMARY KEY,
	value      BLOB    NOT NULL,
	updated_at INTEGER NOT NULL
);
`

const kvUpsert = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// SQLiteStore is the default backend. The database file is created on first
// open; ":memory:" gives a throwaway store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, sqliteError("open", err).WithContext("path", path).Build()
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, sqliteError("migrate", err).WithContext("path", path).Build()
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, notFound(key)
	case err != nil:
		return nil, sqliteError("read", err).WithContext("key", key).Build()
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, kvUpsert, key, value, time.Now().Unix()); err != nil {
		return sqliteError("write", err).WithContext("key", key).Build()
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteError(op string, cause error) *errors.ErrorBuilder {
	return errors.StorageError("sqlite "+op+" failed").WithCause(cause).WithContext("op", op)
}
