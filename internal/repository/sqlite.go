package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			source TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			event_count INTEGER NOT NULL,
			events BLOB NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	events, err := json.Marshal(snap.Events)
	if err != nil {
		return fmt.Errorf("error encoding events: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (source, request_id, fetched_at, event_count, events)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			request_id = excluded.request_id,
			fetched_at = excluded.fetched_at,
			event_count = excluded.event_count,
			events = excluded.events
		WHERE excluded.fetched_at >= snapshots.fetched_at`,
		snap.SourceKey, snap.RequestID, snap.FetchedAt.UnixMilli(), len(snap.Events), events,
	)
	if err != nil {
		return fmt.Errorf("error saving snapshot for %s: %w", snap.SourceKey, err)
	}
	return nil
}

func (s *SQLiteDB) LatestSnapshot(ctx context.Context, source string) (*models.Snapshot, error) {
	var (
		requestID string
		fetchedAt int64
		events    []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, fetched_at, events FROM snapshots WHERE source = ?`, source,
	).Scan(&requestID, &fetchedAt, &events)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading snapshot for %s: %w", source, err)
	}

	snap := &models.Snapshot{
		SourceKey: source,
		FetchedAt: time.UnixMilli(fetchedAt).UTC(),
		RequestID: requestID,
	}
	if err := json.Unmarshal(events, &snap.Events); err != nil {
		return nil, fmt.Errorf("error decoding events for %s: %w", source, err)
	}
	return snap, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
