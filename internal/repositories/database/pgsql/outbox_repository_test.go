package pgsql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgxOutboxRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxOutboxRepository{db: mock}
	now := time.Now()
	event := &domain.OutboxEvent{
		EventID:     uuid.New(),
		AggregateID: 12,
		EventType:   domain.EventJournalPosted,
		Payload:     []byte(`{"journalEntryID":12}`),
		Status:      domain.OutboxStatusPending,
		CreatedAt:   now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_outbox")).
		WithArgs(event.EventID, int64(12), domain.EventJournalPosted, event.Payload, domain.OutboxStatusPending, 0, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, int64(1), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxOutboxRepository_FetchPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxOutboxRepository{db: mock}
	now := time.Now()
	eventID := uuid.New()

	rows := pgxmock.NewRows([]string{"id", "event_id", "aggregate_id", "event_type", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
		AddRow(int64(3), eventID, int64(12), domain.EventJournalCreated, []byte(`{}`), domain.OutboxStatusPending, 1, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(domain.OutboxStatusPending, 25).
		WillReturnRows(rows)

	events, err := repo.FetchPending(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].EventID)
	assert.Equal(t, 1, events[0].Attempts)
	assert.Nil(t, events[0].LastAttemptAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxOutboxRepository_StatusUpdates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxOutboxRepository{db: mock}
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_outbox SET status = $1")).
		WithArgs(domain.OutboxStatusPublished, now, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("CASE WHEN attempts + 1 >= $2")).
		WithArgs(now, 5, domain.OutboxStatusFailed, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkPublished(context.Background(), 3, now))
	require.NoError(t, repo.RecordFailure(context.Background(), 4, now, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
