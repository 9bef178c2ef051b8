package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glizzus/voice-bridge/internal/eventsink"
)

// EventLister reads back the journal of one session.
type EventLister interface {
	List(ctx context.Context, sessionID string) ([]eventsink.Record, error)
}

// PostgresEventRepository journals session lifecycle events.
type PostgresEventRepository struct {
	db *pgxpool.Pool
}

func NewPostgresEventRepository(db *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

var (
	_ eventsink.Handler = (*PostgresEventRepository)(nil)
	_ EventLister       = (*PostgresEventRepository)(nil)
)

// HandleEvents inserts every record in a single transaction.
func (r *PostgresEventRepository) HandleEvents(ctx context.Context, records ...eventsink.Record) error {
	if len(records) == 0 {
		return nil
	}

	const insertQuery = `
	INSERT INTO session_event (session_id, name, payload, created_at)
	VALUES ($1, $2, $3::jsonb, $4)
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertQuery, rec.SessionID, rec.Name, string(rec.Payload), rec.At)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert session events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns the events of a session in the order they were recorded.
func (r *PostgresEventRepository) List(ctx context.Context, sessionID string) ([]eventsink.Record, error) {
	const listQuery = `
	SELECT session_id, name, payload::text, created_at
	FROM session_event
	WHERE session_id = $1
	ORDER BY id
	`

	rows, err := r.db.Query(ctx, listQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (eventsink.Record, error) {
		var (
			rec     eventsink.Record
			payload string
		)
		if err := row.Scan(&rec.SessionID, &rec.Name, &payload, &rec.At); err != nil {
			return rec, err
		}
		rec.Payload = json.RawMessage(payload)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan session events: %w", err)
	}
	return records, nil
}
