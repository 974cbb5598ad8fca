package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mercato/internal/contract/models"
	rostermodels "mercato/internal/roster/models"
	"mercato/internal/store/memory"
	"mercato/internal/valuation"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/requestcontext"
)

type ContractServiceSuite struct {
	suite.Suite
	db      *memory.DB
	players *memory.PlayerStore
	clubs   *memory.ClubStore
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestContractServiceSuite(t *testing.T) {
	suite.Run(t, new(ContractServiceSuite))
}

func (s *ContractServiceSuite) SetupTest() {
	s.db = memory.NewDB()
	s.players = memory.NewPlayerStore(s.db)
	s.clubs = memory.NewClubStore(s.db)

	var err error
	s.service, err = New(memory.NewContractStore(s.db), s.players, s.clubs, s.db, valuation.New())
	s.Require().NoError(err)

	s.now = time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ContractServiceSuite) newPlayer(age int, value int64) *rostermodels.Player {
	player, err := rostermodels.NewPlayer(id.NewPlayerID(), "Test Player", s.now.AddDate(-age, 0, -1), "Spain", rostermodels.CentralMidfield, value, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.players.Save(s.ctx, player))
	return player
}

func (s *ContractServiceSuite) newClub(budget int64) *rostermodels.Club {
	club, err := rostermodels.NewClub(id.NewClubID(), "Test FC", budget, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clubs.Save(s.ctx, club))
	return club
}

func (s *ContractServiceSuite) createContract(playerID id.PlayerID, clubID id.ClubID, salary int64, years int) *models.Contract {
	contract, err := s.service.Create(s.ctx, CreateParams{
		PlayerID:  playerID,
		ClubID:    clubID,
		StartDate: s.now,
		EndDate:   s.now.AddDate(years, 0, 0),
		Salary:    salary,
	})
	s.Require().NoError(err)
	return contract
}

func (s *ContractServiceSuite) TestNew() {
	s.Run("nil contract store returns error", func() {
		_, err := New(nil, s.players, s.clubs, s.db, valuation.New())
		s.Error(err)
		s.Contains(err.Error(), "contract store is required")
	})
}

func (s *ContractServiceSuite) TestCreate() {
	s.Run("creates an active contract and registers the player", func() {
		player := s.newPlayer(24, 5_000_000)
		club := s.newClub(10_000_000)

		contract := s.createContract(player.ID, club.ID, 200_000, 3)
		s.Equal(models.StatusActive, contract.Status)

		updatedPlayer, err := s.players.FindByID(s.ctx, player.ID)
		s.Require().NoError(err)
		s.Equal(club.ID, *updatedPlayer.ClubID)

		updatedClub, err := s.clubs.FindByID(s.ctx, club.ID)
		s.Require().NoError(err)
		s.True(updatedClub.InSquad(player.ID))
	})

	s.Run("unknown player is not found", func() {
		club := s.newClub(10_000_000)
		_, err := s.service.Create(s.ctx, CreateParams{
			PlayerID:  id.NewPlayerID(),
			ClubID:    club.ID,
			StartDate: s.now,
			EndDate:   s.now.AddDate(1, 0, 0),
			Salary:    100_000,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("end date before start leaves no record", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		_, err := s.service.Create(s.ctx, CreateParams{
			PlayerID:  player.ID,
			ClubID:    club.ID,
			StartDate: s.now,
			EndDate:   s.now.AddDate(-1, 0, 0),
			Salary:    100_000,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		history, err := s.service.HistoryByPlayer(s.ctx, player.ID)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("second active contract is an invariant violation", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		other := s.newClub(10_000_000)
		s.createContract(player.ID, club.ID, 200_000, 2)

		_, err := s.service.Create(s.ctx, CreateParams{
			PlayerID:  player.ID,
			ClubID:    other.ID,
			StartDate: s.now,
			EndDate:   s.now.AddDate(1, 0, 0),
			Salary:    100_000,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("salary beyond budget headroom is rejected", func() {
		player := s.newPlayer(24, 0)
		other := s.newPlayer(27, 0)
		club := s.newClub(500_000)
		s.createContract(other.ID, club.ID, 400_000, 2)

		_, err := s.service.Create(s.ctx, CreateParams{
			PlayerID:  player.ID,
			ClubID:    club.ID,
			StartDate: s.now,
			EndDate:   s.now.AddDate(1, 0, 0),
			Salary:    200_000,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("full squad rolls the contract back", func() {
		club := s.newClub(100_000_000)
		for i := 0; i < rostermodels.SquadCap; i++ {
			s.createContract(s.newPlayer(24, 0).ID, club.ID, 100_000, 2)
		}
		extra := s.newPlayer(24, 0)
		_, err := s.service.Create(s.ctx, CreateParams{
			PlayerID:  extra.ID,
			ClubID:    club.ID,
			StartDate: s.now,
			EndDate:   s.now.AddDate(1, 0, 0),
			Salary:    100_000,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		history, err := s.service.HistoryByPlayer(s.ctx, extra.ID)
		s.Require().NoError(err)
		s.Empty(history)
	})
}

func (s *ContractServiceSuite) TestTerminate() {
	s.Run("terminates with annotations", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		contract := s.createContract(player.ID, club.ID, 200_000, 2)

		fee := int64(300_000)
		terminated, err := s.service.Terminate(s.ctx, contract.ID, TerminateParams{
			Reason:          "Mutual agreement",
			CompensationFee: &fee,
			MakeFreeAgent:   true,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusTerminated, terminated.Status)
		s.Equal("Mutual agreement", terminated.Clauses[models.ClauseTerminationReason])

		updatedPlayer, err := s.players.FindByID(s.ctx, player.ID)
		s.Require().NoError(err)
		s.True(updatedPlayer.IsFreeAgent())
	})

	s.Run("terminating twice is an invalid state", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		contract := s.createContract(player.ID, club.ID, 200_000, 2)

		_, err := s.service.Terminate(s.ctx, contract.ID, TerminateParams{Reason: "First"})
		s.Require().NoError(err)
		_, err = s.service.Terminate(s.ctx, contract.ID, TerminateParams{Reason: "Second"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ContractServiceSuite) TestRenew() {
	s.Run("produces one terminated and one active contract", func() {
		player := s.newPlayer(22, 5_000_000)
		club := s.newClub(10_000_000)
		contract := s.createContract(player.ID, club.ID, 200_000, 2)

		renewed, err := s.service.Renew(s.ctx, contract.ID, RenewTerms{
			StartDate: s.now,
			EndDate:   s.now.AddDate(4, 0, 0),
			Salary:    300_000,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusActive, renewed.Status)
		s.NotEqual(contract.ID, renewed.ID)

		history, err := s.service.HistoryByPlayer(s.ctx, player.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 2)

		var active, terminated int
		for _, c := range history {
			switch c.Status {
			case models.StatusActive:
				active++
			case models.StatusTerminated:
				terminated++
				s.Equal(models.TerminationReasonRenewal, c.Clauses[models.ClauseTerminationReason])
			}
		}
		s.Equal(1, active)
		s.Equal(1, terminated)
	})

	s.Run("under 25 with a longer term strictly raises market value", func() {
		player := s.newPlayer(22, 5_000_000)
		club := s.newClub(10_000_000)
		contract := s.createContract(player.ID, club.ID, 200_000, 2)

		_, err := s.service.Renew(s.ctx, contract.ID, RenewTerms{
			StartDate: s.now,
			EndDate:   s.now.AddDate(5, 0, 0),
			Salary:    300_000,
		})
		s.Require().NoError(err)

		updated, err := s.players.FindByID(s.ctx, player.ID)
		s.Require().NoError(err)
		s.Greater(updated.MarketValue, int64(5_000_000))
	})

	s.Run("invalid replacement terms roll the whole renewal back", func() {
		player := s.newPlayer(22, 5_000_000)
		club := s.newClub(10_000_000)
		contract := s.createContract(player.ID, club.ID, 200_000, 2)

		_, err := s.service.Renew(s.ctx, contract.ID, RenewTerms{
			StartDate: s.now,
			EndDate:   s.now.AddDate(0, 0, 5), // below minimum duration
			Salary:    300_000,
		})
		s.Error(err)

		active, err := s.service.ActiveByPlayer(s.ctx, player.ID)
		s.Require().NoError(err)
		s.Equal(contract.ID, active.ID)
	})
}

func (s *ContractServiceSuite) TestSweepExpired() {
	s.Run("expires passed contracts and frees players", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		s.createContract(player.ID, club.ID, 200_000, 1)

		asOf := s.now.AddDate(1, 0, 1)
		count, err := s.service.SweepExpired(requestcontext.WithTime(s.ctx, asOf), asOf)
		s.Require().NoError(err)
		s.Equal(1, count)

		updated, err := s.players.FindByID(s.ctx, player.ID)
		s.Require().NoError(err)
		s.True(updated.IsFreeAgent())
	})

	s.Run("a failing contract is skipped and the rest still expire", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		s.createContract(player.ID, club.ID, 200_000, 1)

		// Staged directly in the store against a player that was never
		// registered, so its expiry transaction fails and rolls back.
		contracts := memory.NewContractStore(s.db)
		orphan, err := models.NewContract(id.NewContractID(), id.NewPlayerID(), club.ID, s.now, s.now.AddDate(1, 0, 0), 100_000, nil, s.now)
		s.Require().NoError(err)
		s.Require().NoError(contracts.Save(s.ctx, orphan))

		asOf := s.now.AddDate(1, 0, 1)
		count, err := s.service.SweepExpired(s.ctx, asOf)
		s.Require().NoError(err)
		s.Equal(1, count)

		stale, err := contracts.FindByID(s.ctx, orphan.ID)
		s.Require().NoError(err)
		s.True(stale.IsActive())

		freed, err := s.players.FindByID(s.ctx, player.ID)
		s.Require().NoError(err)
		s.True(freed.IsFreeAgent())
	})

	s.Run("second sweep with no new expirations returns zero", func() {
		player := s.newPlayer(24, 0)
		club := s.newClub(10_000_000)
		s.createContract(player.ID, club.ID, 200_000, 1)

		asOf := s.now.AddDate(1, 0, 1)
		first, err := s.service.SweepExpired(s.ctx, asOf)
		s.Require().NoError(err)
		s.Equal(1, first)

		second, err := s.service.SweepExpired(s.ctx, asOf)
		s.Require().NoError(err)
		s.Zero(second)
	})
}

func (s *ContractServiceSuite) TestReads() {
	s.Run("salary expense sums active contracts only", func() {
		club := s.newClub(10_000_000)
		first := s.newPlayer(24, 0)
		second := s.newPlayer(26, 0)
		s.createContract(first.ID, club.ID, 200_000, 2)
		contract := s.createContract(second.ID, club.ID, 300_000, 2)

		_, err := s.service.Terminate(s.ctx, contract.ID, TerminateParams{Reason: "Cut"})
		s.Require().NoError(err)

		expense, err := s.service.SalaryExpenseByClub(s.ctx, club.ID)
		s.Require().NoError(err)
		s.Equal(int64(200_000), expense)
	})

	s.Run("expiring within finds only near-term contracts", func() {
		club := s.newClub(10_000_000)
		near := s.newPlayer(24, 0)
		far := s.newPlayer(26, 0)
		nearContract := s.createContract(near.ID, club.ID, 100_000, 1)
		s.createContract(far.ID, club.ID, 100_000, 4)

		expiring, err := s.service.ExpiringWithin(s.ctx, 18)
		s.Require().NoError(err)
		s.Require().Len(expiring, 1)
		s.Equal(nearContract.ID, expiring[0].ID)
	})

	s.Run("no active contract is not found", func() {
		player := s.newPlayer(24, 0)
		_, err := s.service.ActiveByPlayer(s.ctx, player.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
