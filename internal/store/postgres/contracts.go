package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	contractmodels "mercato/internal/contract/models"
	"mercato/internal/store/feed"
	id "mercato/pkg/domain"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/platform/tx"
)

// ContractStore persists contracts with the lifecycle-query columns lifted
// out of the document.
type ContractStore struct {
	db *DB
}

// NewContractStore constructs a contract store bound to db.
func NewContractStore(db *DB) *ContractStore { return &ContractStore{db: db} }

// FindByID returns the contract or sentinel.ErrNotFound.
func (s *ContractStore) FindByID(ctx context.Context, contractID id.ContractID) (*contractmodels.Contract, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM contracts WHERE id = $1`, contractID.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return decodeContract(doc)
}

// Save upserts the contract and records the change in the outbox.
func (s *ContractStore) Save(ctx context.Context, contract *contractmodels.Contract) error {
	if _, ok := tx.From(ctx); !ok {
		return s.db.RunInTx(ctx, func(ctx context.Context) error { return s.Save(ctx, contract) })
	}
	q := tx.QuerierFrom(ctx, s.db.sql)
	doc, err := json.Marshal(contract)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	var inserted bool
	err = q.QueryRowContext(ctx, `
		INSERT INTO contracts (id, player_id, club_id, status, end_date, doc)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			player_id = EXCLUDED.player_id,
			club_id   = EXCLUDED.club_id,
			status    = EXCLUDED.status,
			end_date  = EXCLUDED.end_date,
			doc       = EXCLUDED.doc
		RETURNING (xmax = 0)
	`, contract.ID.String(), contract.PlayerID.String(), contract.ClubID.String(),
		string(contract.Status), contract.EndDate, doc).Scan(&inserted)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	op := feed.OpUpdate
	if inserted {
		op = feed.OpInsert
	}
	return s.db.recordChange(ctx, q, feed.EntityContract, op, contract.ID.String(), contract)
}

// ActiveByPlayer returns the player's single active contract or
// sentinel.ErrNotFound.
func (s *ContractStore) ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*contractmodels.Contract, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	var doc []byte
	err := q.QueryRowContext(ctx, `
		SELECT doc FROM contracts
		WHERE player_id = $1 AND status = $2
	`, playerID.String(), string(contractmodels.StatusActive)).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active contract: %w", err)
	}
	return decodeContract(doc)
}

// ListByPlayer returns all of the player's contracts, oldest first.
func (s *ContractStore) ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*contractmodels.Contract, error) {
	return s.list(ctx, `
		SELECT doc FROM contracts
		WHERE player_id = $1
		ORDER BY (doc->>'created_at') ASC
	`, playerID.String())
}

// ListActiveByClub returns the club's active contracts.
func (s *ContractStore) ListActiveByClub(ctx context.Context, clubID id.ClubID) ([]*contractmodels.Contract, error) {
	return s.list(ctx, `
		SELECT doc FROM contracts
		WHERE club_id = $1 AND status = $2
	`, clubID.String(), string(contractmodels.StatusActive))
}

// ListActiveEndingBefore returns active contracts whose end date precedes the
// cutoff. Used by the expiry sweep and the expiring-contracts report.
func (s *ContractStore) ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]*contractmodels.Contract, error) {
	return s.list(ctx, `
		SELECT doc FROM contracts
		WHERE status = $1 AND end_date < $2
		ORDER BY end_date ASC
	`, string(contractmodels.StatusActive), cutoff)
}

func (s *ContractStore) list(ctx context.Context, query string, args ...any) ([]*contractmodels.Contract, error) {
	q := tx.QuerierFrom(ctx, s.db.sql)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()
	var out []*contractmodels.Contract
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contract, err := decodeContract(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}

func decodeContract(doc []byte) (*contractmodels.Contract, error) {
	var contract contractmodels.Contract
	if err := json.Unmarshal(doc, &contract); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &contract, nil
}
