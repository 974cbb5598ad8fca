package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	rostermodels "mercato/internal/roster/models"
	"mercato/internal/store/feed"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/platform/tx"
)

// ClubStore persists clubs as JSONB documents.
type ClubStore struct {
	db *DB
}

// NewClubStore constructs a club store bound to db.
func NewClubStore(db *DB) *ClubStore { return &ClubStore{db: db} }

// FindByID returns the club or sentinel.ErrNotFound.
func (s *ClubStore) FindByID(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM clubs WHERE id = $1`, clubID.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find club: %w", err)
	}
	var club rostermodels.Club
	if err := json.Unmarshal(doc, &club); err != nil {
		return nil, fmt.Errorf("decode club: %w", err)
	}
	return &club, nil
}

// Save upserts the club and records the change in the outbox.
func (s *ClubStore) Save(ctx context.Context, club *rostermodels.Club) error {
	if _, ok := tx.From(ctx); !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, club) })
	}
	q := tx.QuerierFrom(ctx, s.db.sql)
	doc, err := json.Marshal(club)
	if err != nil {
		return fmt.Errorf("encode club: %w", err)
	}
	var inserted bool
	err = q.QueryRowContext(ctx, `
		INSERT INTO clubs (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING (xmax = 0)
	`, club.ID.String(), doc).Scan(&inserted)
	if err != nil {
		return fmt.Errorf("save club: %w", err)
	}
	op := feed.OpUpdate
	if inserted {
		op = feed.OpInsert
	}
	return s.db.recordChange(ctx, q, feed.EntityClub, op, club.ID.String(), club)
}
