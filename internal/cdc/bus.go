// Package cdc implements the change capture bus: an explicitly constructed,
// injectable consumer of committed store mutations. It observes, buffers, and
// fans out changes; it never mutates domain state and never fails the
// transaction that produced a change.
package cdc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercato/internal/store/feed"
	dErrors "mercato/pkg/domain-errors"
)

// DefaultCapacity bounds the change buffer: the most recent 1000 captured
// changes are queryable, oldest evicted first.
const DefaultCapacity = 1000

// defaultSubscriberBuffer sizes subscriber channels. A subscriber that falls
// further behind loses changes rather than slowing capture down.
const defaultSubscriberBuffer = 64

// ChangeRecord is a captured change: the store's post-image stamped with the
// bus's capture time. When two records describe the same logical entity, the
// later capture time is authoritative (last write wins) — an advisory rule
// for downstream consumers, never a rollback.
type ChangeRecord struct {
	feed.Change
	CaptureTime time.Time `json:"capture_time"`
}

// Sink receives every captured change for out-of-process fan-out. Sink errors
// are logged and dropped.
type Sink interface {
	Publish(ctx context.Context, record ChangeRecord) error
}

type subscriber struct {
	ch chan ChangeRecord
}

// Bus ingests store change feeds and redistributes records to per-entity,
// per-operation, and global subscriber channels. Construct with New, then
// Start; the zero value is not usable.
type Bus struct {
	sources  []feed.Source
	sinks    []Sink
	buffer   *RingBuffer
	logger   *slog.Logger
	metrics  *Metrics
	subBuf   int
	capacity int

	mu         sync.RWMutex
	nextSubID  uint64
	entitySubs map[feed.EntityType]map[uint64]*subscriber
	opSubs     map[feed.Op]map[uint64]*subscriber
	globalSubs map[uint64]*subscriber
	latest     map[string]ChangeRecord
	seen       map[string]struct{}
	seenOrder  []string

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Bus.
type Option func(*Bus)

// WithSource adds a store change feed to consume.
func WithSource(source feed.Source) Option {
	return func(b *Bus) { b.sources = append(b.sources, source) }
}

// WithSink adds an out-of-process publication sink.
func WithSink(sink Sink) Option {
	return func(b *Bus) { b.sinks = append(b.sinks, sink) }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithMetrics attaches bus metrics.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithCapacity overrides the buffer capacity.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithSubscriberBuffer overrides the subscriber channel buffer size.
func WithSubscriberBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.subBuf = n
		}
	}
}

// New constructs a stopped Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subBuf:     defaultSubscriberBuffer,
		capacity:   DefaultCapacity,
		entitySubs: make(map[feed.EntityType]map[uint64]*subscriber),
		opSubs:     make(map[feed.Op]map[uint64]*subscriber),
		globalSubs: make(map[uint64]*subscriber),
		latest:     make(map[string]ChangeRecord),
		seen:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.buffer = NewRingBuffer(b.capacity)
	return b
}

// Start launches one consumer goroutine per source. It is an error to start
// a running bus.
func (b *Bus) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return dErrors.New(dErrors.CodeInvalidState, "change capture bus already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.stopped = make(chan struct{})

	for _, source := range b.sources {
		b.wg.Add(1)
		go b.consume(runCtx, source)
	}
	go func() {
		b.wg.Wait()
		close(b.stopped)
	}()
	return nil
}

// Stop halts consumption and waits for in-flight ingestion to finish.
// Subscriber channels stay open; buffered records remain queryable.
func (b *Bus) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.stopped
	b.cancel = nil
	b.stopped = nil
}

func (b *Bus) consume(ctx context.Context, source feed.Source) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-source.Changes():
			if !ok {
				return
			}
			b.ingest(ctx, change)
		}
	}
}

// Inject feeds a synthetic change through the normal capture path, for
// initial synchronization and tests. It is processed synchronously.
func (b *Bus) Inject(entity feed.EntityType, op feed.Op, entityID string, document any) ChangeRecord {
	change := feed.Change{
		Entity:     entity,
		Op:         op,
		EntityID:   entityID,
		Document:   document,
		SourceTime: time.Now().UTC(),
	}
	return b.ingest(context.Background(), change)
}

// ingest stamps, dedupes, buffers, and publishes one change.
func (b *Bus) ingest(ctx context.Context, change feed.Change) ChangeRecord {
	record := ChangeRecord{Change: change, CaptureTime: time.Now().UTC()}

	b.mu.Lock()
	if b.isDuplicateLocked(change.Key()) {
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.Deduplicated.Inc()
		}
		return record
	}
	b.rememberLocked(change.Key())

	latestKey := string(change.Entity) + "|" + change.EntityID
	if prev, ok := b.latest[latestKey]; !ok || record.CaptureTime.After(prev.CaptureTime) {
		b.latest[latestKey] = record
	}

	entitySubs := collect(b.entitySubs[change.Entity])
	opSubs := collect(b.opSubs[change.Op])
	globalSubs := collect(b.globalSubs)
	b.mu.Unlock()

	b.buffer.Append(record)
	if b.metrics != nil {
		b.metrics.Captured.Inc()
	}

	for _, sub := range entitySubs {
		b.deliver(sub, record)
	}
	for _, sub := range opSubs {
		b.deliver(sub, record)
	}
	for _, sub := range globalSubs {
		b.deliver(sub, record)
	}
	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, record); err != nil {
			if b.metrics != nil {
				b.metrics.SinkErrors.Inc()
			}
			if b.logger != nil {
				b.logger.Warn("cdc sink publication failed",
					"entity", string(change.Entity), "entity_id", change.EntityID, "error", err)
			}
		}
	}
	return record
}

// deliver never blocks: a full subscriber loses the record.
func (b *Bus) deliver(sub *subscriber, record ChangeRecord) {
	select {
	case sub.ch <- record:
	default:
		if b.metrics != nil {
			b.metrics.SubscriberDropped.Inc()
		}
		if b.logger != nil {
			b.logger.Warn("cdc subscriber full, dropping change",
				"entity", string(record.Entity), "entity_id", record.EntityID)
		}
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// SubscribeEntity returns a channel of changes for one entity type and an
// unsubscribe function.
func (b *Bus) SubscribeEntity(entity feed.EntityType) (<-chan ChangeRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	sub := &subscriber{ch: make(chan ChangeRecord, b.subBuf)}
	if b.entitySubs[entity] == nil {
		b.entitySubs[entity] = make(map[uint64]*subscriber)
	}
	b.entitySubs[entity][id] = sub
	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.entitySubs[entity], id)
	}
}

// SubscribeOperation returns a channel of changes for one operation kind and
// an unsubscribe function.
func (b *Bus) SubscribeOperation(op feed.Op) (<-chan ChangeRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	sub := &subscriber{ch: make(chan ChangeRecord, b.subBuf)}
	if b.opSubs[op] == nil {
		b.opSubs[op] = make(map[uint64]*subscriber)
	}
	b.opSubs[op][id] = sub
	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.opSubs[op], id)
	}
}

// SubscribeGlobal returns a channel of all changes and an unsubscribe function.
func (b *Bus) SubscribeGlobal() (<-chan ChangeRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	sub := &subscriber{ch: make(chan ChangeRecord, b.subBuf)}
	b.globalSubs[id] = sub
	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.globalSubs, id)
	}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Recent returns up to limit captured changes, newest first.
func (b *Bus) Recent(limit int) []ChangeRecord {
	return b.buffer.LastN(limit)
}

// RecentByEntity returns up to limit captured changes for one entity type,
// newest first.
func (b *Bus) RecentByEntity(entity feed.EntityType, limit int) []ChangeRecord {
	return b.buffer.LastNWhere(limit, func(r ChangeRecord) bool { return r.Entity == entity })
}

// Latest returns the authoritative (last-write-wins) record for an entity, if
// one has been captured.
func (b *Bus) Latest(entity feed.EntityType, entityID string) (ChangeRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	record, ok := b.latest[string(entity)+"|"+entityID]
	return record, ok
}

// -----------------------------------------------------------------------------
// Dedupe bookkeeping (caller holds b.mu)
// -----------------------------------------------------------------------------

func (b *Bus) isDuplicateLocked(key string) bool {
	_, dup := b.seen[key]
	return dup
}

func (b *Bus) rememberLocked(key string) {
	b.seen[key] = struct{}{}
	b.seenOrder = append(b.seenOrder, key)
	if maxSeen := b.capacity * 2; len(b.seenOrder) > maxSeen {
		evict := b.seenOrder[0]
		b.seenOrder = b.seenOrder[1:]
		delete(b.seen, evict)
	}
}

func collect(subs map[uint64]*subscriber) []*subscriber {
	if len(subs) == 0 {
		return nil
	}
	out := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub)
	}
	return out
}
