// Package postgres persists engine entities as JSONB documents and records
// every committed mutation in a change_log outbox table. A poller replays the
// outbox as the store's change feed, so capture survives process restarts.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"mercato/internal/store/feed"
	"mercato/pkg/platform/tx"
)

const (
	defaultFeedBuffer   = 256
	defaultPollInterval = 250 * time.Millisecond
	pollBatchSize       = 100
)

// DB wraps the SQL handle plus the outbox poller that serves the change feed.
type DB struct {
	sql          *sql.DB
	logger       *slog.Logger
	changes      chan feed.Change
	pollInterval time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) { d.logger = logger }
}

// WithPollInterval overrides how often the change log is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(d *DB) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// Open connects to postgres and verifies the connection.
func Open(dsn string, opts ...Option) (*DB, error) {
	handle, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	d := &DB{
		sql:          handle,
		changes:      make(chan feed.Change, defaultFeedBuffer),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SQL exposes the underlying handle for migrations and tests.
func (d *DB) SQL() *sql.DB { return d.sql }

// Close closes the SQL handle. StartFeed's poller must be cancelled first.
func (d *DB) Close() error { return d.sql.Close() }

// RunInTx executes fn inside a SQL transaction carried on the context. Nested
// calls join the enclosing transaction, so composed lifecycle operations
// commit or roll back as one unit.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && d.logger != nil {
			d.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// recordChange appends an outbox row in the same transaction as the mutation
// it describes, so the feed never sees uncommitted changes.
func (d *DB) recordChange(ctx context.Context, q tx.Querier, entity feed.EntityType, op feed.Op, entityID string, document any) error {
	doc, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal change document: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO change_log (entity, op, entity_id, doc, source_time)
		VALUES ($1, $2, $3, $4, $5)
	`, string(entity), string(op), entityID, doc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record change: %w", err)
	}
	return nil
}

// Changes implements feed.Source.
func (d *DB) Changes() <-chan feed.Change { return d.changes }

// StartFeed launches the outbox poller. It runs until ctx is cancelled.
// afterID resumes from a known position; pass 0 to replay the whole log.
func (d *DB) StartFeed(ctx context.Context, afterID int64) {
	go d.poll(ctx, afterID)
}

func (d *DB) poll(ctx context.Context, cursor int64) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, err := d.drain(ctx, cursor)
			if err != nil {
				if d.logger != nil {
					d.logger.Error("change log poll failed", "error", err)
				}
				continue
			}
			cursor = next
		}
	}
}

// drain emits all outbox rows past the cursor and returns the new cursor.
func (d *DB) drain(ctx context.Context, cursor int64) (int64, error) {
	for {
		rows, err := d.sql.QueryContext(ctx, `
			SELECT id, entity, op, entity_id, doc, source_time
			FROM change_log
			WHERE id > $1
			ORDER BY id
			LIMIT $2
		`, cursor, pollBatchSize)
		if err != nil {
			return cursor, fmt.Errorf("query change log: %w", err)
		}
		batch, err := scanChanges(rows)
		if err != nil {
			return cursor, err
		}
		if len(batch) == 0 {
			return cursor, nil
		}
		for _, row := range batch {
			select {
			case d.changes <- row.change:
				cursor = row.id
			case <-ctx.Done():
				return cursor, nil
			}
		}
		if len(batch) < pollBatchSize {
			return cursor, nil
		}
	}
}

type changeRow struct {
	id     int64
	change feed.Change
}

func scanChanges(rows *sql.Rows) ([]changeRow, error) {
	defer rows.Close()
	var out []changeRow
	for rows.Next() {
		var (
			row    changeRow
			entity string
			op     string
			doc    []byte
		)
		if err := rows.Scan(&row.id, &entity, &op, &row.change.EntityID, &doc, &row.change.SourceTime); err != nil {
			return nil, fmt.Errorf("scan change log row: %w", err)
		}
		row.change.Entity = feed.EntityType(entity)
		row.change.Op = feed.Op(op)
		var document map[string]any
		if err := json.Unmarshal(doc, &document); err != nil {
			return nil, fmt.Errorf("decode change document: %w", err)
		}
		row.change.Document = document
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change log: %w", err)
	}
	return out, nil
}

// Migrate applies the schema. Idempotent; intended for tests and local runs.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
