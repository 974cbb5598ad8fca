package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	contractmetrics "mercato/internal/contract/metrics"
	"mercato/internal/contract/models"
	rostermodels "mercato/internal/roster/models"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/requestcontext"
)

// ContractStore is the contract persistence the lifecycle manager needs.
type ContractStore interface {
	Save(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*models.Contract, error)
	ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Contract, error)
	ListActiveByClub(ctx context.Context, clubID id.ClubID) ([]*models.Contract, error)
	ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]*models.Contract, error)
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

// Valuer is the slice of the valuation engine renewals consume.
type Valuer interface {
	RevalueAfterRenewal(oldValue int64, durationYears float64, salary int64, age int) int64
}

// Service orchestrates the contract lifecycle: Active -> {Terminated, Expired}.
type Service struct {
	contracts ContractStore
	players   PlayerStore
	clubs     ClubStore
	tx        StoreTx
	valuer    Valuer
	logger    *slog.Logger
	metrics   *contractmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches contract metrics.
func WithMetrics(m *contractmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a contract lifecycle manager.
func New(contracts ContractStore, players PlayerStore, clubs ClubStore, tx StoreTx, valuer Valuer, opts ...Option) (*Service, error) {
	if contracts == nil {
		return nil, errors.New("contract store is required")
	}
	if players == nil {
		return nil, errors.New("player store is required")
	}
	if clubs == nil {
		return nil, errors.New("club store is required")
	}
	if tx == nil {
		return nil, errors.New("store tx is required")
	}
	if valuer == nil {
		return nil, errors.New("valuer is required")
	}
	s := &Service{contracts: contracts, players: players, clubs: clubs, tx: tx, valuer: valuer}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateParams carries the fields for a new contract.
type CreateParams struct {
	PlayerID  id.PlayerID
	ClubID    id.ClubID
	StartDate time.Time
	EndDate   time.Time
	Salary    int64
	Clauses   map[string]string
}

// RenewTerms carries the replacement terms for a renewal. Player and club
// identity are carried over from the contract being renewed.
type RenewTerms struct {
	StartDate time.Time
	EndDate   time.Time
	Salary    int64
	Clauses   map[string]string
}

// TerminateParams carries the annotation for a termination.
type TerminateParams struct {
	Reason          string
	CompensationFee *int64
	// MakeFreeAgent clears the player's club reference, signalled by callers
	// that are not about to re-attach the player elsewhere.
	MakeFreeAgent bool
}

// Create opens a transaction around CreateTx.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Contract, error) {
	start := time.Now()
	var contract *models.Contract
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		contract, err = s.CreateTx(txCtx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Created.Inc()
		s.metrics.ObserveCreate(start)
	}
	return contract, nil
}

// CreateTx validates and persists a new Active contract inside the caller's
// transaction. On success the player joins the club's squad and carries the
// club reference.
func (s *Service) CreateTx(ctx context.Context, params CreateParams) (*models.Contract, error) {
	now := requestcontext.Now(ctx)

	player, err := s.findPlayer(ctx, params.PlayerID)
	if err != nil {
		return nil, err
	}
	club, err := s.findClub(ctx, params.ClubID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.contracts.ActiveByPlayer(ctx, params.PlayerID); err == nil {
		if existing.ClubID != params.ClubID {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "player already holds an active contract with another club")
		}
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "player already holds an active contract")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active contract")
	}

	expense, err := s.salaryExpenseTx(ctx, params.ClubID)
	if err != nil {
		return nil, err
	}
	if params.Salary+expense > club.Budget {
		return nil, dErrors.Newf(dErrors.CodeInsufficientFunds, "salary %d exceeds club budget headroom %d", params.Salary, club.Budget-expense)
	}

	contract, err := models.NewContract(id.NewContractID(), params.PlayerID, params.ClubID, params.StartDate, params.EndDate, params.Salary, params.Clauses, now)
	if err != nil {
		return nil, err
	}
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	if !club.InSquad(params.PlayerID) {
		if err := club.CanAddToSquad(params.PlayerID); err != nil {
			return nil, err
		}
		club.ApplyAddToSquad(params.PlayerID, now)
		if err := s.clubs.Save(ctx, club); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save club squad")
		}
	}

	player.ApplyClub(params.ClubID, now)
	if err := s.players.Save(ctx, player); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save player club reference")
	}

	return contract, nil
}

// Terminate opens a transaction around TerminateTx.
func (s *Service) Terminate(ctx context.Context, contractID id.ContractID, params TerminateParams) (*models.Contract, error) {
	var contract *models.Contract
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		contract, err = s.TerminateTx(txCtx, contractID, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Terminated.Inc()
	}
	return contract, nil
}

// TerminateTx transitions an Active contract to Terminated inside the
// caller's transaction, recording reason, date, and compensation fee.
func (s *Service) TerminateTx(ctx context.Context, contractID id.ContractID, params TerminateParams) (*models.Contract, error) {
	now := requestcontext.Now(ctx)

	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := contract.CanTerminate(); err != nil {
		return nil, err
	}
	contract.ApplyTermination(params.Reason, params.CompensationFee, now)
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save terminated contract")
	}

	if params.MakeFreeAgent {
		player, err := s.findPlayer(ctx, contract.PlayerID)
		if err != nil {
			return nil, err
		}
		player.ApplyFreeAgency(now)
		if err := s.players.Save(ctx, player); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save player free agency")
		}
	}

	return contract, nil
}

// Renew atomically terminates the existing contract with reason "Renewal",
// creates its replacement, and persists the player's renewal revaluation.
// Any failure rolls back all three steps.
func (s *Service) Renew(ctx context.Context, contractID id.ContractID, terms RenewTerms) (*models.Contract, error) {
	start := time.Now()
	var renewed *models.Contract
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		old, err := s.findContract(txCtx, contractID)
		if err != nil {
			return err
		}
		if err := old.CanTerminate(); err != nil {
			return err
		}
		if _, err := s.TerminateTx(txCtx, contractID, TerminateParams{Reason: models.TerminationReasonRenewal}); err != nil {
			return err
		}

		renewed, err = s.CreateTx(txCtx, CreateParams{
			PlayerID:  old.PlayerID,
			ClubID:    old.ClubID,
			StartDate: terms.StartDate,
			EndDate:   terms.EndDate,
			Salary:    terms.Salary,
			Clauses:   terms.Clauses,
		})
		if err != nil {
			return err
		}

		player, err := s.findPlayer(txCtx, old.PlayerID)
		if err != nil {
			return err
		}
		value := s.valuer.RevalueAfterRenewal(player.MarketValue, renewed.DurationYears(), terms.Salary, player.Age(now))
		player.ApplyMarketValue(value, now)
		if err := s.players.Save(txCtx, player); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save renewal revaluation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Renewed.Inc()
		s.metrics.ObserveRenew(start)
	}
	return renewed, nil
}

// SweepExpired expires Active contracts whose end date has passed. Each
// contract gets its own transaction so one failure does not block the rest;
// failures are logged and counted, and the number of successfully expired
// contracts is returned.
func (s *Service) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.contracts.ListActiveEndingBefore(ctx, asOf)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring contracts")
	}

	expired := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, dErrors.Wrap(err, dErrors.CodeTimeout, "sweep aborted: context cancelled")
		}
		if err := s.expireOne(ctx, candidate.ID, asOf); err != nil {
			if s.logger != nil {
				s.logger.Error("expiry sweep: contract skipped",
					"contract_id", candidate.ID.String(), "error", err)
			}
			if s.metrics != nil {
				s.metrics.SweepFailures.Inc()
			}
			continue
		}
		expired++
		if s.metrics != nil {
			s.metrics.Expired.Inc()
		}
	}
	return expired, nil
}

func (s *Service) expireOne(ctx context.Context, contractID id.ContractID, asOf time.Time) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		contract, err := s.findContract(txCtx, contractID)
		if err != nil {
			return err
		}
		if err := contract.CanExpire(asOf); err != nil {
			return err
		}
		contract.ApplyExpiry(asOf)
		if err := s.contracts.Save(txCtx, contract); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save expired contract")
		}

		player, err := s.findPlayer(txCtx, contract.PlayerID)
		if err != nil {
			return err
		}
		// Only clear the club reference when the player still belongs to the
		// expiring contract's club; a transfer may have moved them since.
		if player.ClubID != nil && *player.ClubID == contract.ClubID {
			player.ApplyFreeAgency(asOf)
			if err := s.players.Save(txCtx, player); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save player free agency")
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// ActiveByPlayer returns the player's Active contract.
func (s *Service) ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*models.Contract, error) {
	contract, err := s.contracts.ActiveByPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "player has no active contract")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active contract")
	}
	return contract, nil
}

// HistoryByPlayer returns the player's full contract history, oldest first.
func (s *Service) HistoryByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Contract, error) {
	contracts, err := s.contracts.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract history")
	}
	return contracts, nil
}

// ActiveByClub returns the club's Active contracts.
func (s *Service) ActiveByClub(ctx context.Context, clubID id.ClubID) ([]*models.Contract, error) {
	if _, err := s.findClub(ctx, clubID); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListActiveByClub(ctx, clubID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club contracts")
	}
	return contracts, nil
}

// SalaryExpenseByClub returns the club's aggregate Active salary commitment.
func (s *Service) SalaryExpenseByClub(ctx context.Context, clubID id.ClubID) (int64, error) {
	if _, err := s.findClub(ctx, clubID); err != nil {
		return 0, err
	}
	return s.salaryExpenseTx(ctx, clubID)
}

// ExpiringWithin returns Active contracts ending within the next n months.
func (s *Service) ExpiringWithin(ctx context.Context, months int) ([]*models.Contract, error) {
	if months <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "months must be positive")
	}
	cutoff := requestcontext.Now(ctx).AddDate(0, months, 0)
	contracts, err := s.contracts.ListActiveEndingBefore(ctx, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load expiring contracts")
	}
	return contracts, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) salaryExpenseTx(ctx context.Context, clubID id.ClubID) (int64, error) {
	active, err := s.contracts.ListActiveByClub(ctx, clubID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum salary expense")
	}
	var total int64
	for _, c := range active {
		total += c.Salary
	}
	return total, nil
}

func (s *Service) findContract(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	return contract, nil
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
