// Package service manages player and club registration and exposes the
// on-demand market valuation read. The lifecycle managers own every mutation
// of club references, squads, and budgets; this service only registers
// entities and answers reads.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	contractmodels "mercato/internal/contract/models"
	rostermetrics "mercato/internal/roster/metrics"
	"mercato/internal/roster/models"
	transfermodels "mercato/internal/transfer/models"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/requestcontext"
)

// PlayerStore is the player persistence the roster service needs.
type PlayerStore interface {
	FindByID(ctx context.Context, playerID id.PlayerID) (*models.Player, error)
	Save(ctx context.Context, player *models.Player) error
}

// ClubStore is the club persistence the roster service needs.
type ClubStore interface {
	FindByID(ctx context.Context, clubID id.ClubID) (*models.Club, error)
	Save(ctx context.Context, club *models.Club) error
}

// ContractReader supplies the active contract used by valuation.
type ContractReader interface {
	ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*contractmodels.Contract, error)
}

// TransferReader supplies transfer history used by valuation.
type TransferReader interface {
	ListByPlayer(ctx context.Context, playerID id.PlayerID) ([]*transfermodels.Transfer, error)
}

// Valuer is the slice of the valuation engine the roster service consumes.
type Valuer interface {
	ComputeValue(player *models.Player, activeContract *contractmodels.Contract, recentTransfers []*transfermodels.Transfer, at time.Time) int64
}

// Service registers players and clubs and serves valuation reads.
type Service struct {
	players   PlayerStore
	clubs     ClubStore
	contracts ContractReader
	transfers TransferReader
	valuer    Valuer
	logger    *slog.Logger
	metrics   *rostermetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches roster metrics.
func WithMetrics(m *rostermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a roster service.
func New(players PlayerStore, clubs ClubStore, contracts ContractReader, transfers TransferReader, valuer Valuer, opts ...Option) (*Service, error) {
	if players == nil {
		return nil, errors.New("player store is required")
	}
	if clubs == nil {
		return nil, errors.New("club store is required")
	}
	if contracts == nil {
		return nil, errors.New("contract reader is required")
	}
	if transfers == nil {
		return nil, errors.New("transfer reader is required")
	}
	if valuer == nil {
		return nil, errors.New("valuer is required")
	}
	s := &Service{players: players, clubs: clubs, contracts: contracts, transfers: transfers, valuer: valuer}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterPlayerParams carries the fields for a new player.
type RegisterPlayerParams struct {
	Name        string
	BirthDate   time.Time
	Nationality string
	Position    models.Position
	MarketValue int64
	Stats       models.Stats
}

// RegisterPlayer creates a free-agent player.
func (s *Service) RegisterPlayer(ctx context.Context, params RegisterPlayerParams) (*models.Player, error) {
	now := requestcontext.Now(ctx)
	player, err := models.NewPlayer(id.NewPlayerID(), params.Name, params.BirthDate, params.Nationality, params.Position, params.MarketValue, now)
	if err != nil {
		return nil, err
	}
	player.Stats = params.Stats
	if err := s.players.Save(ctx, player); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save player")
	}
	if s.metrics != nil {
		s.metrics.PlayersRegistered.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "player registered", "player_id", player.ID.String(), "name", player.Name)
	}
	return player, nil
}

// RegisterClubParams carries the fields for a new club.
type RegisterClubParams struct {
	Name   string
	Budget int64
}

// RegisterClub creates a club with an empty squad.
func (s *Service) RegisterClub(ctx context.Context, params RegisterClubParams) (*models.Club, error) {
	now := requestcontext.Now(ctx)
	club, err := models.NewClub(id.NewClubID(), params.Name, params.Budget, now)
	if err != nil {
		return nil, err
	}
	if err := s.clubs.Save(ctx, club); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save club")
	}
	if s.metrics != nil {
		s.metrics.ClubsRegistered.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "club registered", "club_id", club.ID.String(), "name", club.Name)
	}
	return club, nil
}

// GetPlayer returns the player.
func (s *Service) GetPlayer(ctx context.Context, playerID id.PlayerID) (*models.Player, error) {
	player, err := s.players.FindByID(ctx, playerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "player not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find player")
	}
	return player, nil
}

// GetClub returns the club.
func (s *Service) GetClub(ctx context.Context, clubID id.ClubID) (*models.Club, error) {
	club, err := s.clubs.FindByID(ctx, clubID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "club not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find club")
	}
	return club, nil
}

// UpdateStats replaces a player's performance statistics. Stats feed the
// valuation engine but are not lifecycle state, so this is a plain write.
func (s *Service) UpdateStats(ctx context.Context, playerID id.PlayerID, stats models.Stats) (*models.Player, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if stats.Appearances < 0 || stats.Goals < 0 || stats.Assists < 0 || stats.InternationalCaps < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "player stats cannot be negative")
	}
	player.Stats = stats
	player.UpdatedAt = requestcontext.Now(ctx)
	if err := s.players.Save(ctx, player); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save player")
	}
	return player, nil
}

// Valuation is the result of an on-demand market value computation. The
// stored MarketValue is unchanged; only lifecycle events persist new values.
type Valuation struct {
	PlayerID      id.PlayerID `json:"player_id"`
	CurrentValue  int64       `json:"current_value"`
	ComputedValue int64       `json:"computed_value"`
	ComputedAt    time.Time   `json:"computed_at"`
}

// Value computes the player's market value from current age, contract
// situation, performance, and transfer recency.
func (s *Service) Value(ctx context.Context, playerID id.PlayerID) (*Valuation, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	active, err := s.contracts.ActiveByPlayer(ctx, playerID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find active contract")
	}
	transfers, err := s.transfers.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list transfers")
	}
	now := requestcontext.Now(ctx)
	computed := s.valuer.ComputeValue(player, active, transfers, now)
	if s.metrics != nil {
		s.metrics.Valuations.Inc()
	}
	return &Valuation{
		PlayerID:      player.ID,
		CurrentValue:  player.MarketValue,
		ComputedValue: computed,
		ComputedAt:    now,
	}, nil
}
