package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mercato/internal/store/feed"
	transfermodels "mercato/internal/transfer/models"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/platform/tx"
)

// TransferStore persists transfers as JSONB documents.
type TransferStore struct {
	db *DB
}

// NewTransferStore constructs a transfer store bound to db.
func NewTransferStore(db *DB) *TransferStore { return &TransferStore{db: db} }

// FindByID returns the transfer or sentinel.ErrNotFound.
func (s *TransferStore) FindByID(ctx context.Context, transferID id.TransferID) (*transfermodels.Transfer, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM transfers WHERE id = $1`, transferID.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	var transfer transfermodels.Transfer
	if err := json.Unmarshal(doc, &transfer); err != nil {
		return nil, fmt.Errorf("decode transfer: %w", err)
	}
	return &transfer, nil
}

// Save upserts the transfer and records the change in the outbox.
func (s *TransferStore) Save(ctx context.Context, transfer *transfermodels.Transfer) error {
	if _, ok := tx.From(ctx); !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, transfer) })
	}
	q := tx.QuerierFrom(ctx, s.db.sql)
	doc, err := json.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("encode transfer: %w", err)
	}
	var inserted bool
	err = q.QueryRowContext(ctx, `
		INSERT INTO transfers (id, player_id, created_at, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			player_id  = EXCLUDED.player_id,
			created_at = EXCLUDED.created_at,
			doc        = EXCLUDED.doc
		RETURNING (xmax = 0)
	`, transfer.ID.String(), transfer.PlayerID.String(), transfer.CreatedAt, doc).Scan(&inserted)
	if err != nil {
		return fmt.Errorf("save transfer: %w", err)
	}
	op := feed.OpUpdate
	if inserted {
		op = feed.OpInsert
	}
	return s.db.recordChange(ctx, q, feed.EntityTransfer, op, transfer.ID.String(), transfer)
}

// ListByPlayer returns the player's transfers, newest first.
func (s *TransferStore) ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*transfermodels.Transfer, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	rows, err := q.QueryContext(ctx, `
		SELECT doc FROM transfers
		WHERE player_id = $1
		ORDER BY created_at DESC
	`, playerID.String())
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var out []*transfermodels.Transfer
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		var transfer transfermodels.Transfer
		if err := json.Unmarshal(doc, &transfer); err != nil {
			return nil, fmt.Errorf("decode transfer: %w", err)
		}
		out = append(out, &transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}
