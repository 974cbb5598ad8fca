// Package memory implements the engine's document store in process memory.
//
// A single mutex serializes transactions, so every lifecycle operation is
// strictly serializable: reads and read-then-write checks inside RunInTx
// cannot race with other transactions. Writes are staged in an overlay and
// only applied on commit; an error or context cancellation discards the
// overlay, leaving no partial effect. Committed mutations are emitted on the
// change feed after they are applied.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	contractmodels "mercato/internal/contract/models"
	rostermodels "mercato/internal/roster/models"
	"mercato/internal/store/feed"
	transfermodels "mercato/internal/transfer/models"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// defaultFeedBuffer bounds the change feed channel. Emission never blocks a
// commit; changes beyond the buffer are dropped and counted.
const defaultFeedBuffer = 1024

// defaultTxTimeout caps a transaction when the caller supplied no deadline.
const defaultTxTimeout = 5 * time.Second

// DB is an in-memory transactional document store with a change feed.
type DB struct {
	mu        sync.Mutex
	players   map[id.PlayerID]*rostermodels.Player
	clubs     map[id.ClubID]*rostermodels.Club
	contracts map[id.ContractID]*contractmodels.Contract
	transfers map[id.TransferID]*transfermodels.Transfer

	changes      chan feed.Change
	feedDropped  int64
	logger       *slog.Logger
	closeOnce    sync.Once
	timeout      time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithLogger attaches a logger for dropped-change warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// WithFeedBuffer overrides the change feed buffer size.
func WithFeedBuffer(n int) Option {
	return func(db *DB) {
		if n > 0 {
			db.changes = make(chan feed.Change, n)
		}
	}
}

// WithTxTimeout overrides the default transaction timeout.
func WithTxTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.timeout = d
		}
	}
}

// NewDB constructs an empty store.
func NewDB(opts ...Option) *DB {
	db := &DB{
		players:   make(map[id.PlayerID]*rostermodels.Player),
		clubs:     make(map[id.ClubID]*rostermodels.Club),
		contracts: make(map[id.ContractID]*contractmodels.Contract),
		transfers: make(map[id.TransferID]*transfermodels.Transfer),
		changes:   make(chan feed.Change, defaultFeedBuffer),
		timeout:   defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Changes implements feed.Source.
func (db *DB) Changes() <-chan feed.Change { return db.changes }

// Close shuts the change feed. Pending transactions must have finished.
func (db *DB) Close() {
	db.closeOnce.Do(func() { close(db.changes) })
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

type txnKey struct{}

// txn stages writes until commit. Staged documents shadow the base maps for
// reads within the same transaction.
type txn struct {
	db *DB

	players   map[id.PlayerID]*rostermodels.Player
	clubs     map[id.ClubID]*rostermodels.Club
	contracts map[id.ContractID]*contractmodels.Contract
	transfers map[id.TransferID]*transfermodels.Transfer

	// ops records the first operation kind per staged document so an
	// insert-then-update inside one transaction surfaces as a single insert.
	ops map[string]feed.Op
}

func newTxn(db *DB) *txn {
	return &txn{
		db:        db,
		players:   make(map[id.PlayerID]*rostermodels.Player),
		clubs:     make(map[id.ClubID]*rostermodels.Club),
		contracts: make(map[id.ContractID]*contractmodels.Contract),
		transfers: make(map[id.TransferID]*transfermodels.Transfer),
		ops:       make(map[string]feed.Op),
	}
}

func txnFrom(ctx context.Context) (*txn, bool) {
	t, ok := ctx.Value(txnKey{}).(*txn)
	return t, ok
}

// RunInTx executes fn inside one atomic transaction. A nested call joins the
// enclosing transaction, so a transfer completion can drive contract
// terminations without opening its own scope. On any error the staged writes
// are discarded.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := txnFrom(ctx); ok {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	t := newTxn(db)
	if err := fn(context.WithValue(ctx, txnKey{}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	db.commitLocked(t)
	return nil
}

// commitLocked applies staged documents to the base maps and emits one change
// per staged document. Caller holds db.mu.
func (db *DB) commitLocked(t *txn) {
	now := time.Now().UTC()

	for pid, p := range t.players {
		db.players[pid] = p
		db.emit(feed.Change{Entity: feed.EntityPlayer, Op: t.ops[pid.String()], EntityID: pid.String(), Document: p.Clone(), SourceTime: now})
	}
	for cid, c := range t.clubs {
		db.clubs[cid] = c
		db.emit(feed.Change{Entity: feed.EntityClub, Op: t.ops[cid.String()], EntityID: cid.String(), Document: c.Clone(), SourceTime: now})
	}
	for cid, c := range t.contracts {
		db.contracts[cid] = c
		db.emit(feed.Change{Entity: feed.EntityContract, Op: t.ops[cid.String()], EntityID: cid.String(), Document: c.Clone(), SourceTime: now})
	}
	for tid, tr := range t.transfers {
		db.transfers[tid] = tr
		db.emit(feed.Change{Entity: feed.EntityTransfer, Op: t.ops[tid.String()], EntityID: tid.String(), Document: tr.Clone(), SourceTime: now})
	}
}

// emit publishes a committed change without ever blocking the transaction.
func (db *DB) emit(change feed.Change) {
	select {
	case db.changes <- change:
	default:
		db.feedDropped++
		if db.logger != nil {
			db.logger.Warn("change feed full, dropping change",
				"entity", string(change.Entity), "entity_id", change.EntityID)
		}
	}
}

// FeedDropped reports how many committed changes were dropped because the
// feed buffer was full.
func (db *DB) FeedDropped() int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.feedDropped
}

func (t *txn) recordOp(key string, existed bool) {
	if _, seen := t.ops[key]; seen {
		return
	}
	if existed {
		t.ops[key] = feed.OpUpdate
	} else {
		t.ops[key] = feed.OpInsert
	}
}
