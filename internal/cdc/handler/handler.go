// Package handler exposes change capture queries and manual injection over
// HTTP. Streaming subscriptions are an in-process API; the HTTP surface covers
// the buffered views.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mercato/internal/cdc"
	"mercato/internal/store/feed"
	"mercato/internal/transport/http/shared"
	dErrors "mercato/pkg/domain-errors"
)

const defaultRecentLimit = 50

// Handler handles change capture endpoints.
type Handler struct {
	bus    *cdc.Bus
	logger *slog.Logger
}

// New creates a change capture Handler.
func New(bus *cdc.Bus, logger *slog.Logger) *Handler {
	return &Handler{bus: bus, logger: logger}
}

// Register registers the change capture routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/changes", h.handleRecent)
	r.Get("/changes/{entity}/{entityID}/latest", h.handleLatest)
	r.Post("/changes/inject", h.handleInject)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	var records []cdc.ChangeRecord
	if raw := r.URL.Query().Get("entity"); raw != "" {
		entity, err := parseEntity(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		records = h.bus.RecentByEntity(entity, limit)
	} else {
		records = h.bus.Recent(limit)
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	entity, err := parseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, ok := h.bus.Latest(entity, chi.URLParam(r, "entityID"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no captured change for entity"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

type injectRequest struct {
	Entity   string          `json:"entity"`
	Op       string          `json:"op"`
	EntityID string          `json:"entity_id"`
	Document json.RawMessage `json:"document"`
}

func (h *Handler) handleInject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	entity, err := parseEntity(req.Entity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	op, err := parseOp(req.Op)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.EntityID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entity_id is required"))
		return
	}
	var document any
	if len(req.Document) > 0 {
		if err := json.Unmarshal(req.Document, &document); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document must be valid JSON"))
			return
		}
	}
	record := h.bus.Inject(entity, op, req.EntityID, document)
	shared.WriteJSON(w, http.StatusAccepted, record)
}

func parseEntity(raw string) (feed.EntityType, error) {
	switch entity := feed.EntityType(raw); entity {
	case feed.EntityPlayer, feed.EntityClub, feed.EntityContract, feed.EntityTransfer:
		return entity, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown entity type %q", raw)
	}
}

func parseOp(raw string) (feed.Op, error) {
	switch op := feed.Op(raw); op {
	case feed.OpInsert, feed.OpUpdate, feed.OpDelete:
		return op, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown operation %q", raw)
	}
}
