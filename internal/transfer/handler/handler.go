// Package handler exposes the transfer lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mercato/internal/transfer/models"
	transferservice "mercato/internal/transfer/service"
	"mercato/internal/transport/http/shared"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// Service defines the interface for transfer lifecycle operations.
type Service interface {
	Initiate(ctx context.Context, params transferservice.InitiateParams) (*models.Transfer, error)
	Complete(ctx context.Context, transferID id.TransferID, contractData *transferservice.ContractData) (*models.Transfer, error)
	Cancel(ctx context.Context, transferID id.TransferID, reason string) (*models.Transfer, error)
	Get(ctx context.Context, transferID id.TransferID) (*models.Transfer, error)
	HistoryByPlayer(ctx context.Context, playerID id.PlayerID) ([]*models.Transfer, error)
}

// Handler handles transfer endpoints.
type Handler struct {
	transfers Service
	logger    *slog.Logger
}

// New creates a transfer Handler.
func New(transfers Service, logger *slog.Logger) *Handler {
	return &Handler{transfers: transfers, logger: logger}
}

// Register registers the transfer routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transfers", h.handleInitiate)
	r.Post("/transfers/{transferID}/complete", h.handleComplete)
	r.Post("/transfers/{transferID}/cancel", h.handleCancel)
	r.Get("/transfers/{transferID}", h.handleGet)
	r.Get("/players/{playerID}/transfers", h.handleHistoryByPlayer)
}

type initiateRequest struct {
	PlayerID   string                    `json:"player_id"`
	FromClubID string                    `json:"from_club_id"`
	ToClubID   string                    `json:"to_club_id"`
	Fee        int64                     `json:"fee"`
	Type       models.Type               `json:"type"`
	Date       time.Time                 `json:"date"`
	SellOn     *models.SellOnClause      `json:"sell_on,omitempty"`
	Bonuses    []models.PerformanceBonus `json:"bonuses,omitempty"`
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	playerID, err := id.ParsePlayerID(req.PlayerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	fromClubID, err := id.ParseClubID(req.FromClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	toClubID, err := id.ParseClubID(req.ToClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfer, err := h.transfers.Initiate(r.Context(), transferservice.InitiateParams{
		PlayerID:   playerID,
		FromClubID: fromClubID,
		ToClubID:   toClubID,
		Fee:        req.Fee,
		Type:       req.Type,
		Date:       req.Date,
		SellOn:     req.SellOn,
		Bonuses:    req.Bonuses,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, transfer)
}

type completeRequest struct {
	Contract *contractTerms `json:"contract,omitempty"`
}

type contractTerms struct {
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Salary    int64             `json:"salary"`
	Clauses   map[string]string `json:"clauses,omitempty"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var contractData *transferservice.ContractData
	if req.Contract != nil {
		contractData = &transferservice.ContractData{
			StartDate: req.Contract.StartDate,
			EndDate:   req.Contract.EndDate,
			Salary:    req.Contract.Salary,
			Clauses:   req.Contract.Clauses,
		}
	}
	transfer, err := h.transfers.Complete(r.Context(), transferID, contractData)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	transfer, err := h.transfers.Cancel(r.Context(), transferID, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfer, err := h.transfers.Get(r.Context(), transferID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleHistoryByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := id.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfers, err := h.transfers.HistoryByPlayer(r.Context(), playerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfers)
}
