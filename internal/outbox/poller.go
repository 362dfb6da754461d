package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerbook/internal/platform/config"
	"github.com/SscSPs/ledgerbook/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
)

// Publisher delivers one encoded event under a partition key.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Envelope is the message written to the ledger topic.
type Envelope struct {
	EventID     uuid.UUID        `json:"eventId"`
	EventType   domain.EventType `json:"eventType"`
	AggregateID int64            `json:"aggregateId"`
	OccurredAt  time.Time        `json:"occurredAt"`
	Payload     json.RawMessage  `json:"payload"`
}

// NewEnvelope wraps a stored outbox event for publication.
func NewEnvelope(e domain.OutboxEvent) Envelope {
	return Envelope{
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		OccurredAt:  e.CreatedAt,
		Payload:     json.RawMessage(e.Payload),
	}
}

// Poller publishes pending outbox events. Each batch is claimed with
// SKIP LOCKED inside one transaction, so several pollers can run side by side.
type Poller struct {
	txManager   portsrepo.TransactionManager
	outboxRepo  portsrepo.OutboxRepository
	publisher   Publisher
	pool        *ants.Pool
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

// NewPoller creates a poller with a worker pool of cfg.WorkerPoolSize publishers.
func NewPoller(
	cfg config.OutboxConfig,
	txManager portsrepo.TransactionManager,
	outboxRepo portsrepo.OutboxRepository,
	publisher Publisher,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox worker pool: %w", err)
	}

	return &Poller{
		txManager:   txManager,
		outboxRepo:  outboxRepo,
		publisher:   publisher,
		pool:        pool,
		logger:      logger,
		interval:    cfg.PollInterval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start polls until ctx is canceled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.interval.String(),
		"batch_size", p.batchSize,
		"max_attempts", p.maxAttempts,
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Outbox batch failed", "error", err)
			}
		}
	}
}

// Stop releases the worker pool. Call it after Start has returned.
func (p *Poller) Stop() {
	p.logger.Info("Shutting down outbox worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

type publishResult struct {
	event domain.OutboxEvent
	err   error
	// skipped is set when an earlier event of the same aggregate failed in this batch.
	skipped bool
}

// ProcessBatch publishes one batch of pending events and returns how many were published.
// Each aggregate's events are published in id order by a single pool task; status updates
// run on the batch transaction afterwards. Events queued behind a failure stay pending untouched.
func (p *Poller) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.OutboxBatchDuration.Observe(time.Since(start).Seconds()) }()

	published := 0
	err := p.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := p.outboxRepo.WithTx(tx)
		events, err := repo.FetchPending(ctx, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch pending outbox events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		results := p.publishAll(ctx, events)

		now := p.now()
		for _, r := range results {
			if r.skipped {
				p.logger.Debug("Deferred outbox event behind failed predecessor",
					"outbox_id", r.event.ID, "aggregate_id", r.event.AggregateID)
				continue
			}
			if r.err != nil {
				p.logger.Warn("Failed to publish outbox event",
					"outbox_id", r.event.ID,
					"event_type", r.event.EventType,
					"attempts", r.event.Attempts+1,
					"error", r.err,
				)
				metrics.OutboxEvents.WithLabelValues(metrics.ResultFailed).Inc()
				if err := repo.RecordFailure(ctx, r.event.ID, now, p.maxAttempts); err != nil {
					return err
				}
				if r.event.Attempts+1 >= p.maxAttempts {
					p.logger.Error("Outbox event exhausted its attempts", "outbox_id", r.event.ID, "event_id", r.event.EventID.String())
				}
				continue
			}
			metrics.OutboxEvents.WithLabelValues(metrics.ResultPublished).Inc()
			if err := repo.MarkPublished(ctx, r.event.ID, now); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		p.logger.Info("Published outbox events", "count", published)
	}
	return published, nil
}

func (p *Poller) publishAll(ctx context.Context, events []domain.OutboxEvent) []publishResult {
	results := make([]publishResult, len(events))
	for i := range events {
		results[i].event = events[i]
	}

	// Indexes per aggregate, in fetch order.
	var order []int64
	groups := make(map[int64][]int)
	for i, e := range events {
		if _, ok := groups[e.AggregateID]; !ok {
			order = append(order, e.AggregateID)
		}
		groups[e.AggregateID] = append(groups[e.AggregateID], i)
	}

	var wg sync.WaitGroup
	for _, aggregateID := range order {
		idxs := groups[aggregateID]
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.publishSequence(ctx, results, idxs)
		}); err != nil {
			wg.Done()
			results[idxs[0]].err = fmt.Errorf("failed to submit outbox events to worker pool: %w", err)
			for _, i := range idxs[1:] {
				results[i].skipped = true
			}
		}
	}
	wg.Wait()
	return results
}

// publishSequence publishes the events at idxs one after another and stops at the first failure.
func (p *Poller) publishSequence(ctx context.Context, results []publishResult, idxs []int) {
	for n, i := range idxs {
		event := results[i].event
		err := p.publisher.Publish(ctx, strconv.FormatInt(event.AggregateID, 10), NewEnvelope(event))
		if err == nil {
			continue
		}
		results[i].err = err
		for _, rest := range idxs[n+1:] {
			results[rest].skipped = true
		}
		return
	}
}
