package memory

import (
	"context"
	"sort"
	"time"

	contractmodels "mercato/internal/contract/models"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
)

// ContractStore implements the contract store interfaces over the shared DB.
type ContractStore struct {
	db *DB
}

// NewContractStore constructs a contract store bound to db.
func NewContractStore(db *DB) *ContractStore { return &ContractStore{db: db} }

// FindByID returns a snapshot of the contract or sentinel.ErrNotFound.
func (s *ContractStore) FindByID(ctx context.Context, contractID id.ContractID) (*contractmodels.Contract, error) {
	if t, ok := txnFrom(ctx); ok {
		return s.findLocked(t, contractID)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.findLocked(nil, contractID)
}

func (s *ContractStore) findLocked(t *txn, contractID id.ContractID) (*contractmodels.Contract, error) {
	if t != nil {
		if c, ok := t.contracts[contractID]; ok {
			return c.Clone(), nil
		}
	}
	if c, ok := s.db.contracts[contractID]; ok {
		return c.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Save upserts the contract. Outside a transaction it commits as its own
// single-write transaction.
func (s *ContractStore) Save(ctx context.Context, contract *contractmodels.Contract) error {
	t, ok := txnFrom(ctx)
	if !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, contract) })
	}
	_, staged := t.contracts[contract.ID]
	_, base := s.db.contracts[contract.ID]
	t.recordOp(contract.ID.String(), staged || base)
	t.contracts[contract.ID] = contract.Clone()
	return nil
}

// ActiveByPlayer returns the player's Active contract or sentinel.ErrNotFound.
func (s *ContractStore) ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*contractmodels.Contract, error) {
	var found *contractmodels.Contract
	s.forEach(ctx, func(c *contractmodels.Contract) {
		if c.PlayerID == playerID && c.IsActive() {
			found = c
		}
	})
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

// ListByPlayer returns the player's full contract history, oldest first.
func (s *ContractStore) ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*contractmodels.Contract, error) {
	var out []*contractmodels.Contract
	s.forEach(ctx, func(c *contractmodels.Contract) {
		if c.PlayerID == playerID {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListActiveByClub returns all Active contracts held with the club.
func (s *ContractStore) ListActiveByClub(ctx context.Context, clubID id.ClubID) ([]*contractmodels.Contract, error) {
	var out []*contractmodels.Contract
	s.forEach(ctx, func(c *contractmodels.Contract) {
		if c.ClubID == clubID && c.IsActive() {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListActiveEndingBefore returns Active contracts whose end date is strictly
// before cutoff. The expiry sweep and the expiring-soon read both use it.
func (s *ContractStore) ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]*contractmodels.Contract, error) {
	var out []*contractmodels.Contract
	s.forEach(ctx, func(c *contractmodels.Contract) {
		if c.IsActive() && c.EndDate.Before(cutoff) {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

// forEach visits a merged snapshot: staged documents shadow base documents.
func (s *ContractStore) forEach(ctx context.Context, visit func(*contractmodels.Contract)) {
	t, ok := txnFrom(ctx)
	if !ok {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	for cid, c := range s.db.contracts {
		if t != nil {
			if _, shadowed := t.contracts[cid]; shadowed {
				continue
			}
		}
		visit(c.Clone())
	}
	if t != nil {
		for _, c := range t.contracts {
			visit(c.Clone())
		}
	}
}
