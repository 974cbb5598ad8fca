package models

import (
	"strconv"
	"time"

	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// Status is a contract lifecycle state. Active is the only non-terminal state.
type Status string

const (
	StatusActive     Status = "Active"
	StatusExpired    Status = "Expired"
	StatusTerminated Status = "Terminated"
)

// Contract duration bounds enforced at creation. The ceiling is a calendar
// bound so a five-year term spanning a leap day is still valid.
const (
	MinDurationDays  = 30
	MaxDurationYears = 5
)

// Clause keys appended when a contract reaches a terminal state. Terminal
// contracts are immutable except for these annotations, written at transition
// time.
const (
	ClauseTerminationReason = "termination_reason"
	ClauseTerminationDate   = "termination_date"
	ClauseCompensationFee   = "compensation_fee"
)

// Well-known termination reasons written by the lifecycle managers.
const (
	// TerminationReasonRenewal marks the old half of an atomic renewal.
	TerminationReasonRenewal = "Renewal"
	// TerminationReasonTransfer marks a contract ended by a completed transfer.
	TerminationReasonTransfer = "Transfer"
)

// Contract binds a player to a club for a salaried term.
//
// Invariants:
//   - EndDate is strictly after StartDate
//   - duration is at least MinDurationDays and at most MaxDurationYears
//     calendar years
//   - Salary is non-negative
//   - a player holds at most one Active contract at any time (enforced by the
//     lifecycle manager inside the creating transaction)
type Contract struct {
	ID        id.ContractID     `json:"id"`
	PlayerID  id.PlayerID       `json:"player_id"`
	ClubID    id.ClubID         `json:"club_id"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Salary    int64             `json:"salary"`
	Status    Status            `json:"status"`
	Clauses   map[string]string `json:"clauses,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewContract constructs an Active contract, validating field-level rules.
// Cross-entity rules (active-contract uniqueness, budget headroom) belong to
// the lifecycle manager, which checks them inside the same transaction.
func NewContract(contractID id.ContractID, playerID id.PlayerID, clubID id.ClubID, start, end time.Time, salary int64, clauses map[string]string, now time.Time) (*Contract, error) {
	if playerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "contract player is required")
	}
	if clubID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "contract club is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "contract start and end dates are required")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeValidation, "contract end date must be after start date")
	}
	if salary < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "contract salary cannot be negative")
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < MinDurationDays {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "contract duration must be at least %d days", MinDurationDays)
	}
	if end.After(start.AddDate(MaxDurationYears, 0, 0)) {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "contract duration must not exceed %d years", MaxDurationYears)
	}
	cl := make(map[string]string, len(clauses))
	for k, v := range clauses {
		cl[k] = v
	}
	return &Contract{
		ID:        contractID,
		PlayerID:  playerID,
		ClubID:    clubID,
		StartDate: start,
		EndDate:   end,
		Salary:    salary,
		Status:    StatusActive,
		Clauses:   cl,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the contract is in its only mutable state.
func (c *Contract) IsActive() bool { return c.Status == StatusActive }

// RemainingMonths returns whole months left until EndDate, never negative.
func (c *Contract) RemainingMonths(at time.Time) int {
	if !c.EndDate.After(at) {
		return 0
	}
	months := 0
	cursor := at
	for {
		next := cursor.AddDate(0, 1, 0)
		if next.After(c.EndDate) {
			return months
		}
		months++
		cursor = next
	}
}

// DurationYears returns the contract term in fractional years.
func (c *Contract) DurationYears() float64 {
	return c.EndDate.Sub(c.StartDate).Hours() / 24 / 365
}

// CanTerminate checks the Active -> Terminated transition.
func (c *Contract) CanTerminate() error {
	if c.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot terminate contract in state %s", c.Status)
	}
	return nil
}

// ApplyTermination transitions to Terminated and appends the terminal
// annotations. Call CanTerminate first.
func (c *Contract) ApplyTermination(reason string, compensationFee *int64, now time.Time) {
	c.Status = StatusTerminated
	if c.Clauses == nil {
		c.Clauses = make(map[string]string, 3)
	}
	c.Clauses[ClauseTerminationReason] = reason
	c.Clauses[ClauseTerminationDate] = now.UTC().Format(time.RFC3339)
	if compensationFee != nil {
		c.Clauses[ClauseCompensationFee] = strconv.FormatInt(*compensationFee, 10)
	}
	c.UpdatedAt = now
}

// CanExpire checks the Active -> Expired transition for the sweep.
func (c *Contract) CanExpire(asOf time.Time) error {
	if c.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot expire contract in state %s", c.Status)
	}
	if !c.EndDate.Before(asOf) {
		return dErrors.New(dErrors.CodeInvalidState, "contract end date has not passed")
	}
	return nil
}

// ApplyExpiry transitions to Expired. Call CanExpire first.
func (c *Contract) ApplyExpiry(now time.Time) {
	c.Status = StatusExpired
	c.UpdatedAt = now
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (c *Contract) Clone() *Contract {
	cp := *c
	if c.Clauses != nil {
		cp.Clauses = make(map[string]string, len(c.Clauses))
		for k, v := range c.Clauses {
			cp.Clauses[k] = v
		}
	}
	return &cp
}

