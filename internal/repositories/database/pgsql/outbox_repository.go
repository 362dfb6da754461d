package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxOutboxRepository implements the ledger event outbox on Postgres.
type PgxOutboxRepository struct {
	db Querier
}

func newPgxOutboxRepository(db Querier) portsrepo.OutboxRepository {
	return &PgxOutboxRepository{db: db}
}

var _ portsrepo.OutboxRepository = (*PgxOutboxRepository)(nil)

// WithTx binds the repository to tx so events commit atomically with the ledger change.
func (r *PgxOutboxRepository) WithTx(tx pgx.Tx) portsrepo.OutboxRepository {
	return &PgxOutboxRepository{db: tx}
}

// Create stores a new pending event.
func (r *PgxOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	query := `
		INSERT INTO ledger_outbox (event_id, aggregate_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		event.EventID,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.Status,
		event.Attempts,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create outbox event %s: %w", event.EventType, err)
	}
	return nil
}

// FetchPending locks up to limit pending events in FIFO order, skipping rows
// already locked by another poller.
func (r *PgxOutboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT id, event_id, aggregate_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED;
	`
	rows, err := r.db.Query(ctx, query, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.Status,
			&e.Attempts,
			&e.CreatedAt,
			&e.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished records a successful delivery.
func (r *PgxOutboxRepository) MarkPublished(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE ledger_outbox SET status = $1, attempts = attempts + 1, last_attempt_at = $2 WHERE id = $3;`
	if _, err := r.db.Exec(ctx, query, domain.OutboxStatusPublished, now, id); err != nil {
		return fmt.Errorf("failed to mark outbox event %d published: %w", id, err)
	}
	return nil
}

// RecordFailure counts a failed delivery, giving up once maxAttempts is reached.
func (r *PgxOutboxRepository) RecordFailure(ctx context.Context, id int64, now time.Time, maxAttempts int) error {
	query := `
		UPDATE ledger_outbox
		SET attempts = attempts + 1,
			last_attempt_at = $1,
			status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4;
	`
	if _, err := r.db.Exec(ctx, query, now, maxAttempts, domain.OutboxStatusFailed, id); err != nil {
		return fmt.Errorf("failed to record outbox failure for event %d: %w", id, err)
	}
	return nil
}
