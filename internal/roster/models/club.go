package models

import (
	"time"

	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// SquadCap is the maximum number of players a club may register simultaneously.
const SquadCap = 25

// Club is a football club with a transfer budget and a registered squad.
//
// Invariants:
//   - Budget is never negative after a committed operation
//   - Squad holds at most SquadCap distinct player references
//
// The budget ledger owns budget mutation; the transfer manager owns squad
// membership. Both run inside the caller's transaction.
type Club struct {
	ID        id.ClubID     `json:"id"`
	Name      string        `json:"name"`
	Budget    int64         `json:"budget"`
	Squad     []id.PlayerID `json:"squad"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewClub constructs a club, validating invariants.
func NewClub(clubID id.ClubID, name string, budget int64, now time.Time) (*Club, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "club name cannot be empty")
	}
	if budget < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "club budget cannot be negative")
	}
	return &Club{
		ID:        clubID,
		Name:      name,
		Budget:    budget,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// InSquad reports whether the player is currently registered.
func (c *Club) InSquad(playerID id.PlayerID) bool {
	for _, p := range c.Squad {
		if p == playerID {
			return true
		}
	}
	return false
}

// CanAddToSquad checks the squad cap before registration.
func (c *Club) CanAddToSquad(playerID id.PlayerID) error {
	if c.InSquad(playerID) {
		return nil
	}
	if len(c.Squad) >= SquadCap {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "squad cap of %d players reached", SquadCap)
	}
	return nil
}

// ApplyAddToSquad registers the player; duplicates are ignored.
// Call CanAddToSquad first to validate the cap.
func (c *Club) ApplyAddToSquad(playerID id.PlayerID, now time.Time) {
	if c.InSquad(playerID) {
		return
	}
	c.Squad = append(c.Squad, playerID)
	c.UpdatedAt = now
}

// ApplyRemoveFromSquad deregisters the player if present.
func (c *Club) ApplyRemoveFromSquad(playerID id.PlayerID, now time.Time) {
	for i, p := range c.Squad {
		if p == playerID {
			c.Squad = append(c.Squad[:i], c.Squad[i+1:]...)
			c.UpdatedAt = now
			return
		}
	}
}

// CanDebit checks whether the budget covers a debit of amount.
func (c *Club) CanDebit(amount int64) error {
	if amount < 0 {
		return dErrors.New(dErrors.CodeValidation, "debit amount cannot be negative")
	}
	if amount > c.Budget {
		return dErrors.Newf(dErrors.CodeInsufficientFunds, "amount %d exceeds budget %d", amount, c.Budget)
	}
	return nil
}

// ApplyDebit reduces the budget. Call CanDebit first.
func (c *Club) ApplyDebit(amount int64, now time.Time) {
	c.Budget -= amount
	c.UpdatedAt = now
}

// ApplyCredit increases the budget.
func (c *Club) ApplyCredit(amount int64, now time.Time) {
	c.Budget += amount
	c.UpdatedAt = now
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (c *Club) Clone() *Club {
	cp := *c
	cp.Squad = append([]id.PlayerID(nil), c.Squad...)
	return &cp
}
