package models

import (
	"time"

	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// Status is a transfer lifecycle state. Completed and Cancelled are final.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusFailed    Status = "Failed"
)

// Type classifies the deal structure.
type Type string

const (
	TypePermanent Type = "Permanent"
	TypeLoan      Type = "Loan"
	TypeFree      Type = "Free"
	TypeSwap      Type = "Swap"
)

// Window is the calendar period a transfer is dated in.
type Window string

const (
	WindowSummer  Window = "Summer"
	WindowWinter  Window = "Winter"
	WindowOutside Window = "Outside"
)

// WindowFor classifies a transfer date. The summer window spans June through
// August; the winter window is January. Anything else is outside a window and
// rejected at initiation.
func WindowFor(date time.Time) Window {
	switch date.Month() {
	case time.June, time.July, time.August:
		return WindowSummer
	case time.January:
		return WindowWinter
	default:
		return WindowOutside
	}
}

// SellOnClause entitles a previous club to a percentage of a future fee.
// Where the deducted amount lands is deliberately left to a ledger extension
// point; the clause only reduces the selling club's credit here.
type SellOnClause struct {
	Percent float64 `json:"percent"`
	Active  bool    `json:"active"`
}

// PerformanceBonus is an agreed conditional payment attached to the deal.
type PerformanceBonus struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Condition   string `json:"condition"`
}

// Transfer moves a player between clubs for a fee.
//
// Invariants:
//   - Fee is non-negative
//   - FromClubID != ToClubID
//   - Date falls inside a recognized window at initiation
//   - Pending is the only state that admits Complete or Cancel
type Transfer struct {
	ID         id.TransferID      `json:"id"`
	PlayerID   id.PlayerID        `json:"player_id"`
	FromClubID id.ClubID          `json:"from_club_id"`
	ToClubID   id.ClubID          `json:"to_club_id"`
	Fee        int64              `json:"fee"`
	Type       Type               `json:"type"`
	Status     Status             `json:"status"`
	Window     Window             `json:"window"`
	Date       time.Time          `json:"date"`
	ContractID *id.ContractID     `json:"contract_id,omitempty"`
	SellOn     *SellOnClause      `json:"sell_on,omitempty"`
	Bonuses    []PerformanceBonus `json:"bonuses,omitempty"`
	// CancelReason and CompletedAt annotate terminal states.
	CancelReason string     `json:"cancel_reason,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTransfer constructs a Pending transfer, validating field-level rules.
// Cross-entity rules (player existence, budget, squad cap) belong to the
// lifecycle manager.
func NewTransfer(transferID id.TransferID, playerID id.PlayerID, from, to id.ClubID, fee int64, transferType Type, date time.Time, sellOn *SellOnClause, bonuses []PerformanceBonus, now time.Time) (*Transfer, error) {
	if playerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer player is required")
	}
	if from.IsZero() || to.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer origin and destination clubs are required")
	}
	if from == to {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer origin and destination clubs must differ")
	}
	if fee < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer fee cannot be negative")
	}
	switch transferType {
	case TypePermanent, TypeLoan, TypeFree, TypeSwap:
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unrecognized transfer type %q", transferType)
	}
	if sellOn != nil && (sellOn.Percent < 0 || sellOn.Percent > 100) {
		return nil, dErrors.New(dErrors.CodeValidation, "sell-on percentage must be between 0 and 100")
	}
	window := WindowFor(date)
	if window == WindowOutside {
		return nil, dErrors.Newf(dErrors.CodeValidation, "transfer date %s is outside a recognized window", date.Format("2006-01-02"))
	}
	return &Transfer{
		ID:         transferID,
		PlayerID:   playerID,
		FromClubID: from,
		ToClubID:   to,
		Fee:        fee,
		Type:       transferType,
		Status:     StatusPending,
		Window:     window,
		Date:       date,
		SellOn:     sellOn,
		Bonuses:    append([]PerformanceBonus(nil), bonuses...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanComplete checks the Pending -> Completed transition.
func (t *Transfer) CanComplete() error {
	if t.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot complete transfer in state %s", t.Status)
	}
	return nil
}

// ApplyCompletion transitions to Completed. Call CanComplete first.
func (t *Transfer) ApplyCompletion(contractID *id.ContractID, now time.Time) {
	t.Status = StatusCompleted
	t.ContractID = contractID
	completed := now
	t.CompletedAt = &completed
	t.UpdatedAt = now
}

// CanCancel checks the Pending -> Cancelled transition.
func (t *Transfer) CanCancel() error {
	if t.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot cancel transfer in state %s", t.Status)
	}
	return nil
}

// ApplyCancellation transitions to Cancelled, recording the reason.
func (t *Transfer) ApplyCancellation(reason string, now time.Time) {
	t.Status = StatusCancelled
	t.CancelReason = reason
	t.UpdatedAt = now
}

// SellOnDeduction returns the amount withheld from the selling club's credit
// under an active sell-on clause.
func (t *Transfer) SellOnDeduction() int64 {
	if t.SellOn == nil || !t.SellOn.Active {
		return 0
	}
	return int64(float64(t.Fee) * t.SellOn.Percent / 100)
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (t *Transfer) Clone() *Transfer {
	cp := *t
	if t.ContractID != nil {
		c := *t.ContractID
		cp.ContractID = &c
	}
	if t.SellOn != nil {
		s := *t.SellOn
		cp.SellOn = &s
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	cp.Bonuses = append([]PerformanceBonus(nil), t.Bonuses...)
	return &cp
}
