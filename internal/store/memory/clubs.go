package memory

import (
	"context"

	rostermodels "mercato/internal/roster/models"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
)

// ClubStore implements the club store interfaces over the shared DB.
type ClubStore struct {
	db *DB
}

// NewClubStore constructs a club store bound to db.
func NewClubStore(db *DB) *ClubStore { return &ClubStore{db: db} }

// FindByID returns a snapshot of the club or sentinel.ErrNotFound.
func (s *ClubStore) FindByID(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error) {
	if t, ok := txnFrom(ctx); ok {
		return s.findLocked(t, clubID)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.findLocked(nil, clubID)
}

func (s *ClubStore) findLocked(t *txn, clubID id.ClubID) (*rostermodels.Club, error) {
	if t != nil {
		if c, ok := t.clubs[clubID]; ok {
			return c.Clone(), nil
		}
	}
	if c, ok := s.db.clubs[clubID]; ok {
		return c.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Save upserts the club. Outside a transaction it commits as its own
// single-write transaction.
func (s *ClubStore) Save(ctx context.Context, club *rostermodels.Club) error {
	t, ok := txnFrom(ctx)
	if !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, club) })
	}
	_, staged := t.clubs[club.ID]
	_, base := s.db.clubs[club.ID]
	t.recordOp(club.ID.String(), staged || base)
	t.clubs[club.ID] = club.Clone()
	return nil
}
