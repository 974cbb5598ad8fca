package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

type TransferSuite struct {
	suite.Suite
	now time.Time
}

func TestTransferSuite(t *testing.T) {
	suite.Run(t, new(TransferSuite))
}

func (s *TransferSuite) SetupTest() {
	s.now = time.Date(2026, time.July, 10, 12, 0, 0, 0, time.UTC)
}

func (s *TransferSuite) newTransfer(date time.Time, sellOn *SellOnClause) (*Transfer, error) {
	return NewTransfer(id.NewTransferID(), id.NewPlayerID(), id.NewClubID(), id.NewClubID(),
		7_000_000, TypePermanent, date, sellOn, nil, s.now)
}

func (s *TransferSuite) TestWindowFor() {
	s.Run("june through august is summer", func() {
		for _, month := range []time.Month{time.June, time.July, time.August} {
			s.Equal(WindowSummer, WindowFor(time.Date(2026, month, 15, 0, 0, 0, 0, time.UTC)))
		}
	})

	s.Run("january is winter", func() {
		s.Equal(WindowWinter, WindowFor(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)))
	})

	s.Run("october is outside", func() {
		s.Equal(WindowOutside, WindowFor(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)))
	})
}

func (s *TransferSuite) TestNewTransfer() {
	s.Run("summer date yields a pending transfer", func() {
		transfer, err := s.newTransfer(s.now, nil)
		s.Require().NoError(err)
		s.Equal(StatusPending, transfer.Status)
		s.Equal(WindowSummer, transfer.Window)
	})

	s.Run("date outside a window is rejected", func() {
		_, err := s.newTransfer(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("same origin and destination is rejected", func() {
		club := id.NewClubID()
		_, err := NewTransfer(id.NewTransferID(), id.NewPlayerID(), club, club,
			1_000_000, TypePermanent, s.now, nil, nil, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("negative fee is rejected", func() {
		_, err := NewTransfer(id.NewTransferID(), id.NewPlayerID(), id.NewClubID(), id.NewClubID(),
			-1, TypePermanent, s.now, nil, nil, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unrecognized type is rejected", func() {
		_, err := NewTransfer(id.NewTransferID(), id.NewPlayerID(), id.NewClubID(), id.NewClubID(),
			1_000_000, Type("Barter"), s.now, nil, nil, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("sell-on percentage above 100 is rejected", func() {
		_, err := s.newTransfer(s.now, &SellOnClause{Percent: 120, Active: true})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TransferSuite) TestTransitions() {
	s.Run("complete sets terminal state and contract link", func() {
		transfer, err := s.newTransfer(s.now, nil)
		s.Require().NoError(err)
		s.Require().NoError(transfer.CanComplete())

		contractID := id.NewContractID()
		transfer.ApplyCompletion(&contractID, s.now)
		s.Equal(StatusCompleted, transfer.Status)
		s.NotNil(transfer.CompletedAt)
		s.Equal(contractID, *transfer.ContractID)
	})

	s.Run("completed transfer cannot be cancelled", func() {
		transfer, err := s.newTransfer(s.now, nil)
		s.Require().NoError(err)
		transfer.ApplyCompletion(nil, s.now)

		s.True(dErrors.HasCode(transfer.CanCancel(), dErrors.CodeInvalidState))
		s.True(dErrors.HasCode(transfer.CanComplete(), dErrors.CodeInvalidState))
	})

	s.Run("cancel records the reason", func() {
		transfer, err := s.newTransfer(s.now, nil)
		s.Require().NoError(err)
		s.Require().NoError(transfer.CanCancel())

		transfer.ApplyCancellation("deal collapsed", s.now)
		s.Equal(StatusCancelled, transfer.Status)
		s.Equal("deal collapsed", transfer.CancelReason)
	})
}

func (s *TransferSuite) TestSellOnDeduction() {
	s.Run("no clause deducts nothing", func() {
		transfer, err := s.newTransfer(s.now, nil)
		s.Require().NoError(err)
		s.Zero(transfer.SellOnDeduction())
	})

	s.Run("inactive clause deducts nothing", func() {
		transfer, err := s.newTransfer(s.now, &SellOnClause{Percent: 10, Active: false})
		s.Require().NoError(err)
		s.Zero(transfer.SellOnDeduction())
	})

	s.Run("active clause deducts the percentage of the fee", func() {
		transfer, err := s.newTransfer(s.now, &SellOnClause{Percent: 10, Active: true})
		s.Require().NoError(err)
		s.Equal(int64(700_000), transfer.SellOnDeduction())
	})
}
