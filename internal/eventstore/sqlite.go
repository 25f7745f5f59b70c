package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	type       TEXT    NOT NULL,
	at_ms      INTEGER NOT NULL,
	payload    BLOB    NOT NULL,
	tags       TEXT
);
CREATE INDEX IF NOT EXISTS events_session ON events(session_id);
CREATE INDEX IF NOT EXISTS events_at ON events(at_ms);
`

const selectEvents = `SELECT seq, session_id, type, at_ms, payload, tags FROM events `

// SQLiteStore keeps the history in a SQLite file, or in memory for ":memory:".
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeError("open", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storeError("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, evt *Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	payload := []byte(evt.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var tags []byte
	if len(evt.Tags) > 0 {
		var err error
		if tags, err = json.Marshal(evt.Tags); err != nil {
			return storeError("encode tags", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, type, at_ms, payload, tags) VALUES (?, ?, ?, ?, ?)`,
		evt.SessionID, evt.Type, evt.At.UnixMilli(), payload, tags)
	if err != nil {
		return storeError("append", err)
	}
	if evt.Seq, err = res.LastInsertId(); err != nil {
		return storeError("append", err)
	}
	return nil
}

func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string) ([]*Event, error) {
	return s.query(ctx, selectEvents+`WHERE session_id = ? ORDER BY seq`, sessionID)
}

func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]*Event, error) {
	return s.query(ctx, selectEvents+`WHERE at_ms BETWEEN ? AND ? ORDER BY seq`, start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeError("query", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Event
	for rows.Next() {
		var (
			e             Event
			atMS          int64
			payload, tags []byte
		)
		if err := rows.Scan(&e.Seq, &e.SessionID, &e.Type, &atMS, &payload, &tags); err != nil {
			return nil, storeError("scan", err)
		}
		e.At = time.UnixMilli(atMS)
		e.Payload = payload
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &e.Tags); err != nil {
				return nil, storeError("decode tags", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
