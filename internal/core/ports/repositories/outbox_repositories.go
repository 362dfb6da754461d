package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository stores ledger events until they are published.
type OutboxRepository interface {
	// Create appends a pending event and sets its generated id.
	Create(ctx context.Context, event *domain.OutboxEvent) error

	// FetchPending locks and returns up to limit pending events, oldest first.
	// Rows locked by another poller are skipped.
	FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)

	// MarkPublished records a successful delivery.
	MarkPublished(ctx context.Context, id int64, now time.Time) error

	// RecordFailure increments the attempt count and marks the event FAILED
	// once maxAttempts is reached.
	RecordFailure(ctx context.Context, id int64, now time.Time, maxAttempts int) error

	// WithTx returns a repository bound to tx.
	WithTx(tx pgx.Tx) OutboxRepository
}
