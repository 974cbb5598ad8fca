package memory

import (
	"context"

	rostermodels "mercato/internal/roster/models"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
)

// PlayerStore implements the player store interfaces over the shared DB.
type PlayerStore struct {
	db *DB
}

// NewPlayerStore constructs a player store bound to db.
func NewPlayerStore(db *DB) *PlayerStore { return &PlayerStore{db: db} }

// FindByID returns a snapshot of the player or sentinel.ErrNotFound.
func (s *PlayerStore) FindByID(ctx context.Context, playerID id.PlayerID) (*rostermodels.Player, error) {
	if t, ok := txnFrom(ctx); ok {
		return s.findLocked(t, playerID)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.findLocked(nil, playerID)
}

func (s *PlayerStore) findLocked(t *txn, playerID id.PlayerID) (*rostermodels.Player, error) {
	if t != nil {
		if p, ok := t.players[playerID]; ok {
			return p.Clone(), nil
		}
	}
	if p, ok := s.db.players[playerID]; ok {
		return p.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Save upserts the player. Outside a transaction it commits as its own
// single-write transaction.
func (s *PlayerStore) Save(ctx context.Context, player *rostermodels.Player) error {
	t, ok := txnFrom(ctx)
	if !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, player) })
	}
	_, staged := t.players[player.ID]
	_, base := s.db.players[player.ID]
	t.recordOp(player.ID.String(), staged || base)
	t.players[player.ID] = player.Clone()
	return nil
}
