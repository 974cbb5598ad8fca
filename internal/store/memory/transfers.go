package memory

import (
	"context"
	"sort"

	transfermodels "mercato/internal/transfer/models"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
)

// TransferStore implements the transfer store interfaces over the shared DB.
type TransferStore struct {
	db *DB
}

// NewTransferStore constructs a transfer store bound to db.
func NewTransferStore(db *DB) *TransferStore { return &TransferStore{db: db} }

// FindByID returns a snapshot of the transfer or sentinel.ErrNotFound.
func (s *TransferStore) FindByID(ctx context.Context, transferID id.TransferID) (*transfermodels.Transfer, error) {
	if t, ok := txnFrom(ctx); ok {
		return s.findLocked(t, transferID)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.findLocked(nil, transferID)
}

func (s *TransferStore) findLocked(t *txn, transferID id.TransferID) (*transfermodels.Transfer, error) {
	if t != nil {
		if tr, ok := t.transfers[transferID]; ok {
			return tr.Clone(), nil
		}
	}
	if tr, ok := s.db.transfers[transferID]; ok {
		return tr.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Save upserts the transfer. Outside a transaction it commits as its own
// single-write transaction.
func (s *TransferStore) Save(ctx context.Context, transfer *transfermodels.Transfer) error {
	t, ok := txnFrom(ctx)
	if !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, transfer) })
	}
	_, staged := t.transfers[transfer.ID]
	_, base := s.db.transfers[transfer.ID]
	t.recordOp(transfer.ID.String(), staged || base)
	t.transfers[transfer.ID] = transfer.Clone()
	return nil
}

// ListByPlayer returns the player's transfer history, newest first.
func (s *TransferStore) ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*transfermodels.Transfer, error) {
	t, ok := txnFrom(ctx)
	if !ok {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	var out []*transfermodels.Transfer
	for tid, tr := range s.db.transfers {
		if t != nil {
			if _, shadowed := t.transfers[tid]; shadowed {
				continue
			}
		}
		if tr.PlayerID == playerID {
			out = append(out, tr.Clone())
		}
	}
	if t != nil {
		for _, tr := range t.transfers {
			if tr.PlayerID == playerID {
				out = append(out, tr.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
