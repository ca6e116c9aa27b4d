// Package outbox relays audit events from the postgres outbox table to
// Kafka. The relay is the only writer of published_at, and SKIP LOCKED
// keeps multiple replicas from double-publishing within a poll.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	audit "idswyft/pkg/platform/audit"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultBatchSize    = 100
)

// Producer publishes one record to a Kafka topic.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

type Relay struct {
	db       *sql.DB
	producer Producer
	logger   *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

type Option func(*Relay)

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(db *sql.DB, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:           db,
		producer:     producer,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		batchSize:    DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id        string
	eventType string
	payload   []byte
}

func (r *Relay) relayBatch(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox batch: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.eventType, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	published := make([]string, 0, len(batch))
	for _, row := range batch {
		topic := audit.TopicFor(audit.AuditEvent(row.eventType).Category())
		if err := r.producer.Produce(ctx, topic, []byte(row.id), row.payload); err != nil {
			// Leave the row unpublished; the next poll retries it. Rows
			// already produced in this batch still get marked below.
			r.logger.ErrorContext(ctx, "outbox publish failed",
				"outbox_id", row.id,
				"topic", topic,
				"error", err,
			)
			break
		}
		published = append(published, row.id)
	}
	if len(published) == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)
	`, pq.Array(published)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox batch: %w", err)
	}

	r.logger.DebugContext(ctx, "outbox batch relayed", "count", len(published))
	return nil
}
