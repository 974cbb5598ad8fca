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

// PlayerStore persists players as JSONB documents.
type PlayerStore struct {
	db *DB
}

// NewPlayerStore constructs a player store bound to db.
func NewPlayerStore(db *DB) *PlayerStore { return &PlayerStore{db: db} }

// FindByID returns the player or sentinel.ErrNotFound.
func (s *PlayerStore) FindByID(ctx context.Context, playerID id.PlayerID) (*rostermodels.Player, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM players WHERE id = $1`, playerID.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	var player rostermodels.Player
	if err := json.Unmarshal(doc, &player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &player, nil
}

// Save upserts the player and records the change in the outbox. Outside a
// transaction it commits as its own single-write transaction.
func (s *PlayerStore) Save(ctx context.Context, player *rostermodels.Player) error {
	if _, ok := tx.From(ctx); !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, player) })
	}
	q := tx.QuerierFrom(ctx, s.db.sql)
	doc, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	var inserted bool
	err = q.QueryRowContext(ctx, `
		INSERT INTO players (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING (xmax = 0)
	`, player.ID.String(), doc).Scan(&inserted)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	op := feed.OpUpdate
	if inserted {
		op = feed.OpInsert
	}
	return s.db.recordChange(ctx, q, feed.EntityPlayer, op, player.ID.String(), player)
}
