package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	rostermodels "mercato/internal/roster/models"
	"mercato/internal/store/memory"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	db     *memory.DB
	clubs  *memory.ClubStore
	ledger *Ledger
	now    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.db = memory.NewDB()
	s.clubs = memory.NewClubStore(s.db)
	s.ledger = New(s.clubs)
	s.now = time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
}

func (s *LedgerSuite) newClub(budget int64) *rostermodels.Club {
	club, err := rostermodels.NewClub(id.NewClubID(), "Rovers", budget, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clubs.Save(context.Background(), club))
	return club
}

func (s *LedgerSuite) budget(clubID id.ClubID) int64 {
	club, err := s.clubs.FindByID(context.Background(), clubID)
	s.Require().NoError(err)
	return club.Budget
}

func (s *LedgerSuite) TestReserve() {
	ctx := context.Background()

	s.Run("debits the budget", func() {
		club := s.newClub(10_000_000)
		s.Require().NoError(s.ledger.Reserve(ctx, club.ID, 7_000_000))
		s.Equal(int64(3_000_000), s.budget(club.ID))
	})

	s.Run("insufficient budget leaves the club untouched", func() {
		club := s.newClub(5_000_000)
		err := s.ledger.Reserve(ctx, club.ID, 7_000_000)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.Equal(int64(5_000_000), s.budget(club.ID))
	})

	s.Run("unknown club is not found", func() {
		err := s.ledger.Reserve(ctx, id.NewClubID(), 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerSuite) TestRelease() {
	ctx := context.Background()

	s.Run("reserve then release restores the budget exactly", func() {
		club := s.newClub(10_000_000)
		s.Require().NoError(s.ledger.Reserve(ctx, club.ID, 7_000_000))
		s.Require().NoError(s.ledger.Release(ctx, club.ID, 7_000_000))
		s.Equal(int64(10_000_000), s.budget(club.ID))
	})

	s.Run("negative amount is rejected", func() {
		club := s.newClub(10_000_000)
		err := s.ledger.Release(ctx, club.ID, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LedgerSuite) TestSettle() {
	ctx := context.Background()

	s.Run("credits the seller without touching the buyer again", func() {
		seller := s.newClub(10_000_000)
		buyer := s.newClub(15_000_000)
		s.Require().NoError(s.ledger.Reserve(ctx, buyer.ID, 7_000_000))

		err := s.ledger.Settle(ctx, id.NewTransferID(), seller.ID, buyer.ID, 7_000_000, 7_000_000)
		s.Require().NoError(err)
		s.Equal(int64(17_000_000), s.budget(seller.ID))
		s.Equal(int64(8_000_000), s.budget(buyer.ID))
	})

	s.Run("sell-on deduction reduces the seller's credit", func() {
		seller := s.newClub(10_000_000)
		buyer := s.newClub(15_000_000)
		s.Require().NoError(s.ledger.Reserve(ctx, buyer.ID, 7_000_000))

		// 10% sell-on: seller gets 6,300,000
		err := s.ledger.Settle(ctx, id.NewTransferID(), seller.ID, buyer.ID, 7_000_000, 6_300_000)
		s.Require().NoError(err)
		s.Equal(int64(16_300_000), s.budget(seller.ID))
	})

	s.Run("deduction is routed to the configured beneficiary", func() {
		var got int64
		ledger := New(s.clubs, WithSellOnBeneficiary(func(_ context.Context, _ id.TransferID, amount int64) error {
			got = amount
			return nil
		}))
		seller := s.newClub(0)
		buyer := s.newClub(7_000_000)
		s.Require().NoError(ledger.Reserve(ctx, buyer.ID, 7_000_000))

		s.Require().NoError(ledger.Settle(ctx, id.NewTransferID(), seller.ID, buyer.ID, 7_000_000, 6_300_000))
		s.Equal(int64(700_000), got)
	})

	s.Run("origin credit above the fee is rejected", func() {
		seller := s.newClub(0)
		buyer := s.newClub(0)
		err := s.ledger.Settle(ctx, id.NewTransferID(), seller.ID, buyer.ID, 1_000_000, 2_000_000)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
