// Package handler exposes roster registration and valuation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	rostermodels "mercato/internal/roster/models"
	rosterservice "mercato/internal/roster/service"
	"mercato/internal/transport/http/shared"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// Service defines the interface for roster operations.
type Service interface {
	RegisterPlayer(ctx context.Context, params rosterservice.RegisterPlayerParams) (*rostermodels.Player, error)
	RegisterClub(ctx context.Context, params rosterservice.RegisterClubParams) (*rostermodels.Club, error)
	GetPlayer(ctx context.Context, playerID id.PlayerID) (*rostermodels.Player, error)
	GetClub(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error)
	UpdateStats(ctx context.Context, playerID id.PlayerID, stats rostermodels.Stats) (*rostermodels.Player, error)
	Value(ctx context.Context, playerID id.PlayerID) (*rosterservice.Valuation, error)
}

// Handler handles roster endpoints.
type Handler struct {
	roster Service
	logger *slog.Logger
}

// New creates a roster Handler.
func New(roster Service, logger *slog.Logger) *Handler {
	return &Handler{roster: roster, logger: logger}
}

// Register registers the roster routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/players", h.handleRegisterPlayer)
	r.Get("/players/{playerID}", h.handleGetPlayer)
	r.Put("/players/{playerID}/stats", h.handleUpdateStats)
	r.Get("/players/{playerID}/value", h.handleValue)
	r.Post("/clubs", h.handleRegisterClub)
	r.Get("/clubs/{clubID}", h.handleGetClub)
}

type registerPlayerRequest struct {
	Name        string                `json:"name"`
	BirthDate   time.Time             `json:"birth_date"`
	Nationality string                `json:"nationality"`
	Position    rostermodels.Position `json:"position"`
	MarketValue int64                 `json:"market_value"`
	Stats       rostermodels.Stats    `json:"stats"`
}

func (h *Handler) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	player, err := h.roster.RegisterPlayer(r.Context(), rosterservice.RegisterPlayerParams{
		Name:        req.Name,
		BirthDate:   req.BirthDate,
		Nationality: req.Nationality,
		Position:    req.Position,
		MarketValue: req.MarketValue,
		Stats:       req.Stats,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, player)
}

type registerClubRequest struct {
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
}

func (h *Handler) handleRegisterClub(w http.ResponseWriter, r *http.Request) {
	var req registerClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	club, err := h.roster.RegisterClub(r.Context(), rosterservice.RegisterClubParams{
		Name:   req.Name,
		Budget: req.Budget,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, club)
}

func (h *Handler) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	player, err := h.roster.GetPlayer(r.Context(), playerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, player)
}

func (h *Handler) handleGetClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := id.ParseClubID(chi.URLParam(r, "clubID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	club, err := h.roster.GetClub(r.Context(), clubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, club)
}

func (h *Handler) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var stats rostermodels.Stats
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	player, err := h.roster.UpdateStats(r.Context(), playerID, stats)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, player)
}

func (h *Handler) handleValue(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	valuation, err := h.roster.Value(r.Context(), playerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, valuation)
}
