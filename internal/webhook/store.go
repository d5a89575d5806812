package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRecord is one sighting of an external provider event. The
// (provider, reference) pair is the natural idempotency key: the associated
// effect is applied at most once no matter how often the event is delivered.
type EventRecord struct {
	ID        string
	Provider  string
	Reference string
	Payload   []byte
	Processed bool
	CreatedAt time.Time
}

// Store is the durable external-event log backing the idempotency guard.
type Store interface {
	// RecordIfNew atomically inserts the event unless the (provider,
	// reference) key already exists, reporting whether this sighting is the
	// first. Callers perform the side effect only when isNew is true.
	RecordIfNew(ctx context.Context, provider, reference string, payload []byte) (bool, error)

	// MarkProcessed flips the processed flag once the effect is finalized.
	MarkProcessed(ctx context.Context, provider, reference string) error
}

// PostgresStore persists event records under a unique (provider, reference)
// constraint; insert-if-absent is a single ON CONFLICT DO NOTHING statement.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed event store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RecordIfNew inserts the event record, reporting false on conflict.
func (s *PostgresStore) RecordIfNew(ctx context.Context, provider, reference string, payload []byte) (bool, error) {
	tag, err := s.db.Exec(ctx, `INSERT INTO webhook_events (id, provider, reference, payload, processed)
        VALUES ($1, $2, $3, $4, false)
        ON CONFLICT (provider, reference) DO NOTHING`, uuid.New(), provider, reference, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkProcessed flags the record once its effect is durably applied.
func (s *PostgresStore) MarkProcessed(ctx context.Context, provider, reference string) error {
	_, err := s.db.Exec(ctx, `UPDATE webhook_events SET processed = true, updated_at = now()
        WHERE provider = $1 AND reference = $2`, provider, reference)
	return err
}
