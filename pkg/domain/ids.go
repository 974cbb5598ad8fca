// Package domain provides typed identifiers shared across the engine.
//
// Each entity gets its own UUID wrapper so the compiler rejects a PlayerID
// where a ClubID is expected. Parse helpers enforce the trust-boundary
// invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "mercato/pkg/domain-errors"
)

type (
	// PlayerID identifies a player.
	PlayerID uuid.UUID
	// ClubID identifies a club.
	ClubID uuid.UUID
	// ContractID identifies a contract.
	ContractID uuid.UUID
	// TransferID identifies a transfer.
	TransferID uuid.UUID
)

func (id PlayerID) String() string   { return uuid.UUID(id).String() }
func (id ClubID) String() string     { return uuid.UUID(id).String() }
func (id ContractID) String() string { return uuid.UUID(id).String() }
func (id TransferID) String() string { return uuid.UUID(id).String() }

func (id PlayerID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ClubID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id TransferID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps IDs as canonical UUID strings in JSON documents and
// on the change feed.

func (id PlayerID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ClubID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ContractID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id TransferID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *PlayerID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = PlayerID(u)
	return nil
}

func (id *ClubID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ClubID(u)
	return nil
}

func (id *ContractID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ContractID(u)
	return nil
}

func (id *TransferID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = TransferID(u)
	return nil
}

// NewPlayerID returns a fresh random PlayerID.
func NewPlayerID() PlayerID { return PlayerID(uuid.New()) }

// NewClubID returns a fresh random ClubID.
func NewClubID() ClubID { return ClubID(uuid.New()) }

// NewContractID returns a fresh random ContractID.
func NewContractID() ContractID { return ContractID(uuid.New()) }

// NewTransferID returns a fresh random TransferID.
func NewTransferID() TransferID { return TransferID(uuid.New()) }

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id must not be the nil uuid")
	}
	return u, nil
}

// ParsePlayerID parses and validates a player ID from its string form.
func ParsePlayerID(s string) (PlayerID, error) {
	u, err := parseUUID(s, "player")
	return PlayerID(u), err
}

// ParseClubID parses and validates a club ID from its string form.
func ParseClubID(s string) (ClubID, error) {
	u, err := parseUUID(s, "club")
	return ClubID(u), err
}

// ParseContractID parses and validates a contract ID from its string form.
func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract")
	return ContractID(u), err
}

// ParseTransferID parses and validates a transfer ID from its string form.
func ParseTransferID(s string) (TransferID, error) {
	u, err := parseUUID(s, "transfer")
	return TransferID(u), err
}
