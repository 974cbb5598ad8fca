package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	contractmodels "mercato/internal/contract/models"
	contractservice "mercato/internal/contract/service"
	rostermodels "mercato/internal/roster/models"
	transfermetrics "mercato/internal/transfer/metrics"
	"mercato/internal/transfer/models"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/requestcontext"
)

// TransferStore is the transfer persistence the lifecycle manager needs.
type TransferStore interface {
	Save(ctx context.Context, transfer *models.Transfer) error
	FindByID(ctx context.Context, transferID id.TransferID) (*models.Transfer, error)
	ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Transfer, error)
}

// PlayerStore is the player persistence the lifecycle manager needs.
type PlayerStore interface {
	FindByID(ctx context.Context, playerID id.PlayerID) (*rostermodels.Player, error)
	Save(ctx context.Context, player *rostermodels.Player) error
}

// ClubStore is the club persistence the lifecycle manager needs.
type ClubStore interface {
	FindByID(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error)
	Save(ctx context.Context, club *rostermodels.Club) error
}

// ContractManager is the transaction-scoped slice of the contract lifecycle
// manager a transfer drives: terminating the origin contract and creating the
// destination one inside the transfer's own transaction.
type ContractManager interface {
	CreateTx(ctx context.Context, params contractservice.CreateParams) (*contractmodels.Contract, error)
	TerminateTx(ctx context.Context, contractID id.ContractID, params contractservice.TerminateParams) (*contractmodels.Contract, error)
	ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*contractmodels.Contract, error)
}

// Ledger is the budget ledger slice transfers consume.
type Ledger interface {
	Reserve(ctx context.Context, clubID id.ClubID, amount int64) error
	Release(ctx context.Context, clubID id.ClubID, amount int64) error
	Settle(ctx context.Context, transferID id.TransferID, fromClubID, toClubID id.ClubID, amount, originCredit int64) error
}

// Valuer is the slice of the valuation engine completions consume.
type Valuer interface {
	RevalueAfterFee(transferFee int64, age int) int64
}

// Service drives a transfer through Pending -> {Completed, Cancelled},
// coordinating contract and squad changes with the budget ledger. Every
// operation is one atomic transaction.
type Service struct {
	transfers TransferStore
	players   PlayerStore
	clubs     ClubStore
	contracts ContractManager
	ledger    Ledger
	valuer    Valuer
	tx        contractservice.StoreTx
	logger    *slog.Logger
	metrics   *transfermetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches transfer metrics.
func WithMetrics(m *transfermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a transfer lifecycle manager.
func New(transfers TransferStore, players PlayerStore, clubs ClubStore, contracts ContractManager, ledger Ledger, valuer Valuer, tx contractservice.StoreTx, opts ...Option) (*Service, error) {
	if transfers == nil {
		return nil, errors.New("transfer store is required")
	}
	if players == nil {
		return nil, errors.New("player store is required")
	}
	if clubs == nil {
		return nil, errors.New("club store is required")
	}
	if contracts == nil {
		return nil, errors.New("contract manager is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if valuer == nil {
		return nil, errors.New("valuer is required")
	}
	if tx == nil {
		return nil, errors.New("store tx is required")
	}
	s := &Service{transfers: transfers, players: players, clubs: clubs, contracts: contracts, ledger: ledger, valuer: valuer, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// InitiateParams carries the fields for a new transfer.
type InitiateParams struct {
	PlayerID   id.PlayerID
	FromClubID id.ClubID
	ToClubID   id.ClubID
	Fee        int64
	Type       models.Type
	Date       time.Time
	SellOn     *models.SellOnClause
	Bonuses    []models.PerformanceBonus
}

// ContractData carries the optional replacement contract terms supplied when
// completing a transfer.
type ContractData struct {
	StartDate time.Time
	EndDate   time.Time
	Salary    int64
	Clauses   map[string]string
}

// Initiate validates the transfer, reserves the fee against the destination
// club's budget, and records the transfer as Pending — all in one transaction.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (*models.Transfer, error) {
	var transfer *models.Transfer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		player, err := s.findPlayer(txCtx, params.PlayerID)
		if err != nil {
			return err
		}

		active, err := s.contracts.ActiveByPlayer(txCtx, params.PlayerID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeInvariantViolation, "player has no active contract to transfer")
			}
			return err
		}
		if active.ClubID != params.FromClubID {
			return dErrors.New(dErrors.CodeValidation, "origin club does not hold the player's active contract")
		}

		destination, err := s.findClub(txCtx, params.ToClubID)
		if err != nil {
			return err
		}
		if err := destination.CanAddToSquad(player.ID); err != nil {
			return err
		}

		transfer, err = models.NewTransfer(id.NewTransferID(), params.PlayerID, params.FromClubID, params.ToClubID, params.Fee, params.Type, params.Date, params.SellOn, params.Bonuses, now)
		if err != nil {
			return err
		}

		if err := s.ledger.Reserve(txCtx, params.ToClubID, params.Fee); err != nil {
			return err
		}
		if err := s.transfers.Save(txCtx, transfer); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transfer")
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.Rejected.Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Initiated.Inc()
	}
	return transfer, nil
}

// Complete moves a Pending transfer to Completed: the origin contract is
// terminated, an optional destination contract is created, the player changes
// squad and club reference, the market value is refreshed from the fee, and
// the ledger settles. Any failure rolls everything back.
func (s *Service) Complete(ctx context.Context, transferID id.TransferID, contractData *ContractData) (*models.Transfer, error) {
	start := time.Now()
	var transfer *models.Transfer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		var err error
		transfer, err = s.findTransfer(txCtx, transferID)
		if err != nil {
			return err
		}
		if err := transfer.CanComplete(); err != nil {
			return err
		}

		// Terminate the origin contract if one is still active. The player
		// stays attached: the destination assignment below replaces the club
		// reference in the same transaction.
		if active, err := s.contracts.ActiveByPlayer(txCtx, transfer.PlayerID); err == nil {
			if active.ClubID == transfer.FromClubID {
				if _, err := s.contracts.TerminateTx(txCtx, active.ID, contractservice.TerminateParams{
					Reason: contractmodels.TerminationReasonTransfer,
				}); err != nil {
					return err
				}
			}
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}

		origin, err := s.findClub(txCtx, transfer.FromClubID)
		if err != nil {
			return err
		}
		origin.ApplyRemoveFromSquad(transfer.PlayerID, now)
		if err := s.clubs.Save(txCtx, origin); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save origin squad")
		}

		var contractID *id.ContractID
		if contractData != nil {
			contract, err := s.contracts.CreateTx(txCtx, contractservice.CreateParams{
				PlayerID:  transfer.PlayerID,
				ClubID:    transfer.ToClubID,
				StartDate: contractData.StartDate,
				EndDate:   contractData.EndDate,
				Salary:    contractData.Salary,
				Clauses:   contractData.Clauses,
			})
			if err != nil {
				return err
			}
			contractID = &contract.ID
		} else {
			destination, err := s.findClub(txCtx, transfer.ToClubID)
			if err != nil {
				return err
			}
			if err := destination.CanAddToSquad(transfer.PlayerID); err != nil {
				return err
			}
			destination.ApplyAddToSquad(transfer.PlayerID, now)
			if err := s.clubs.Save(txCtx, destination); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save destination squad")
			}
		}

		// Re-fetch: the contract steps above may have rewritten the player.
		player, err := s.findPlayer(txCtx, transfer.PlayerID)
		if err != nil {
			return err
		}
		player.ApplyClub(transfer.ToClubID, now)
		if transfer.Fee > 0 {
			player.ApplyMarketValue(s.valuer.RevalueAfterFee(transfer.Fee, player.Age(now)), now)
		}
		if err := s.players.Save(txCtx, player); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save player")
		}

		originCredit := transfer.Fee - transfer.SellOnDeduction()
		if err := s.ledger.Settle(txCtx, transfer.ID, transfer.FromClubID, transfer.ToClubID, transfer.Fee, originCredit); err != nil {
			return err
		}

		transfer.ApplyCompletion(contractID, now)
		if err := s.transfers.Save(txCtx, transfer); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save completed transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Completed.Inc()
		s.metrics.AddFeesSettled(transfer.Fee)
		s.metrics.ObserveComplete(start)
	}
	return transfer, nil
}

// Cancel moves a Pending transfer to Cancelled, releasing the reserved funds
// back to the destination club and recording the reason.
func (s *Service) Cancel(ctx context.Context, transferID id.TransferID, reason string) (*models.Transfer, error) {
	var transfer *models.Transfer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		var err error
		transfer, err = s.findTransfer(txCtx, transferID)
		if err != nil {
			return err
		}
		if err := transfer.CanCancel(); err != nil {
			return err
		}
		if err := s.ledger.Release(txCtx, transfer.ToClubID, transfer.Fee); err != nil {
			return err
		}
		transfer.ApplyCancellation(reason, now)
		if err := s.transfers.Save(txCtx, transfer); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save cancelled transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Cancelled.Inc()
	}
	return transfer, nil
}

// Get returns transfer details.
func (s *Service) Get(ctx context.Context, transferID id.TransferID) (*models.Transfer, error) {
	return s.findTransfer(ctx, transferID)
}

// HistoryByPlayer returns the player's transfer history, newest first.
func (s *Service) HistoryByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Transfer, error) {
	transfers, err := s.transfers.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer history")
	}
	return transfers, nil
}

func (s *Service) findTransfer(ctx context.Context, transferID id.TransferID) (*models.Transfer, error) {
	transfer, err := s.transfers.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transfer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
	}
	return transfer, nil
}

func (s *Service) findPlayer(ctx context.Context, playerID id.PlayerID) (*rostermodels.Player, error) {
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "player not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load player")
	}
	return player, nil
}

func (s *Service) findClub(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error) {
	club, err := s.clubs.FindByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "club not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
	}
	return club, nil
}
