// Package handler exposes the contract lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mercato/internal/contract/models"
	contractservice "mercato/internal/contract/service"
	"mercato/internal/transport/http/shared"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/requestcontext"
)

// Service defines the interface for contract lifecycle operations.
type Service interface {
	Create(ctx context.Context, params contractservice.CreateParams) (*models.Contract, error)
	Terminate(ctx context.Context, contractID id.ContractID, params contractservice.TerminateParams) (*models.Contract, error)
	Renew(ctx context.Context, contractID id.ContractID, terms contractservice.RenewTerms) (*models.Contract, error)
	SweepExpired(ctx context.Context, asOf time.Time) (int, error)
	ActiveByPlayer(ctx context.Context, playerID id.PlayerID) (*models.Contract, error)
	HistoryByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Contract, error)
	ActiveByClub(ctx context.Context, clubID id.ClubID) ([]*models.Contract, error)
	SalaryExpenseByClub(ctx context.Context, clubID id.ClubID) (int64, error)
	ExpiringWithin(ctx context.Context, months int) ([]*models.Contract, error)
}

// Handler handles contract endpoints.
type Handler struct {
	contracts Service
	logger    *slog.Logger
}

// New creates a contract Handler.
func New(contracts Service, logger *slog.Logger) *Handler {
	return &Handler{contracts: contracts, logger: logger}
}

// Register registers the contract routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contracts", h.handleCreate)
	r.Post("/contracts/{contractID}/terminate", h.handleTerminate)
	r.Post("/contracts/{contractID}/renew", h.handleRenew)
	r.Post("/contracts/sweep-expired", h.handleSweepExpired)
	r.Get("/contracts/expiring", h.handleExpiring)
	r.Get("/players/{playerID}/contract", h.handleActiveByPlayer)
	r.Get("/players/{playerID}/contracts", h.handleHistoryByPlayer)
	r.Get("/clubs/{clubID}/contracts", h.handleActiveByClub)
	r.Get("/clubs/{clubID}/salary-expense", h.handleSalaryExpense)
}

type createRequest struct {
	PlayerID  string            `json:"player_id"`
	ClubID    string            `json:"club_id"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Salary    int64             `json:"salary"`
	Clauses   map[string]string `json:"clauses,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	playerID, err := id.ParsePlayerID(req.PlayerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	clubID, err := id.ParseClubID(req.ClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.Create(r.Context(), contractservice.CreateParams{
		PlayerID:  playerID,
		ClubID:    clubID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Salary:    req.Salary,
		Clauses:   req.Clauses,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, contract)
}

type terminateRequest struct {
	Reason          string `json:"reason"`
	CompensationFee *int64 `json:"compensation_fee,omitempty"`
	MakeFreeAgent   bool   `json:"make_free_agent"`
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	contractID, err := id.ParseContractID(chi.URLParam(r, "contractID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req terminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	contract, err := h.contracts.Terminate(r.Context(), contractID, contractservice.TerminateParams{
		Reason:          req.Reason,
		CompensationFee: req.CompensationFee,
		MakeFreeAgent:   req.MakeFreeAgent,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contract)
}

type renewRequest struct {
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Salary    int64             `json:"salary"`
	Clauses   map[string]string `json:"clauses,omitempty"`
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	contractID, err := id.ParseContractID(chi.URLParam(r, "contractID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	contract, err := h.contracts.Renew(r.Context(), contractID, contractservice.RenewTerms{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Salary:    req.Salary,
		Clauses:   req.Clauses,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contract)
}

func (h *Handler) handleSweepExpired(w http.ResponseWriter, r *http.Request) {
	asOf := requestcontext.Now(r.Context())
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "as_of must be RFC3339"))
			return
		}
		asOf = parsed
	}
	count, err := h.contracts.SweepExpired(r.Context(), asOf)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"expired": count})
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "months must be a non-negative integer"))
			return
		}
		months = parsed
	}
	contracts, err := h.contracts.ExpiringWithin(r.Context(), months)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contracts)
}

func (h *Handler) handleActiveByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.ActiveByPlayer(r.Context(), playerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contract)
}

func (h *Handler) handleHistoryByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contracts, err := h.contracts.HistoryByPlayer(r.Context(), playerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contracts)
}

func (h *Handler) handleActiveByClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := id.ParseClubID(chi.URLParam(r, "clubID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contracts, err := h.contracts.ActiveByClub(r.Context(), clubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contracts)
}

func (h *Handler) handleSalaryExpense(w http.ResponseWriter, r *http.Request) {
	clubID, err := id.ParseClubID(chi.URLParam(r, "clubID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	total, err := h.contracts.SalaryExpenseByClub(r.Context(), clubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"salary_expense": total})
}
