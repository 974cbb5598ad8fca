package models

import (
	"time"

	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// Position is a player's field position. Attacking positions weight scoring
// contribution in valuation; the rest weight appearances and caps.
type Position string

const (
	Goalkeeper        Position = "Goalkeeper"
	Defender          Position = "Defender"
	DefensiveMidfield Position = "Defensive Midfield"
	CentralMidfield   Position = "Central Midfield"
	AttackingMidfield Position = "Attacking Midfield"
	Winger            Position = "Winger"
	Forward           Position = "Forward"
	Striker           Position = "Striker"
)

// IsAttacking reports whether the position is valued on scoring contribution.
func (p Position) IsAttacking() bool {
	switch p {
	case AttackingMidfield, Winger, Forward, Striker:
		return true
	}
	return false
}

// Stats carries the performance signals the valuation engine consumes.
type Stats struct {
	Appearances       int `json:"appearances"`
	Goals             int `json:"goals"`
	Assists           int `json:"assists"`
	InternationalCaps int `json:"international_caps"`
}

// Player is a tracked football player.
//
// Invariants:
//   - Name is non-empty
//   - MarketValue is never negative
//   - ClubID is nil for free agents; only the contract and transfer managers set it
//
// Players are never deleted by the lifecycle engine.
type Player struct {
	ID          id.PlayerID `json:"id"`
	Name        string      `json:"name"`
	BirthDate   time.Time   `json:"birth_date"`
	Nationality string      `json:"nationality"`
	Position    Position    `json:"position"`
	ClubID      *id.ClubID  `json:"club_id,omitempty"`
	MarketValue int64       `json:"market_value"`
	Stats       Stats       `json:"stats"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewPlayer constructs a free-agent player, validating invariants.
func NewPlayer(playerID id.PlayerID, name string, birthDate time.Time, nationality string, position Position, marketValue int64, now time.Time) (*Player, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "player name cannot be empty")
	}
	if birthDate.IsZero() || birthDate.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "player birth date must be in the past")
	}
	if marketValue < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "player market value cannot be negative")
	}
	return &Player{
		ID:          playerID,
		Name:        name,
		BirthDate:   birthDate,
		Nationality: nationality,
		Position:    position,
		MarketValue: marketValue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Age returns the player's age in whole years at the given time.
func (p *Player) Age(at time.Time) int {
	years := at.Year() - p.BirthDate.Year()
	if at.YearDay() < p.BirthDate.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IsFreeAgent reports whether the player currently has no club.
func (p *Player) IsFreeAgent() bool { return p.ClubID == nil }

// ApplyClub sets the player's club reference.
func (p *Player) ApplyClub(clubID id.ClubID, now time.Time) {
	c := clubID
	p.ClubID = &c
	p.UpdatedAt = now
}

// ApplyFreeAgency clears the player's club reference.
func (p *Player) ApplyFreeAgency(now time.Time) {
	p.ClubID = nil
	p.UpdatedAt = now
}

// ApplyMarketValue sets a new engine-computed market value, clamped at zero.
func (p *Player) ApplyMarketValue(value int64, now time.Time) {
	if value < 0 {
		value = 0
	}
	p.MarketValue = value
	p.UpdatedAt = now
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (p *Player) Clone() *Player {
	cp := *p
	if p.ClubID != nil {
		club := *p.ClubID
		cp.ClubID = &club
	}
	return &cp
}
