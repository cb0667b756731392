package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nssports/sportsbook-engine/internal/placement"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"go.uber.org/zap"
)

// BetsHandler handles HTTP requests for the bets API.
type BetsHandler struct {
	placement *placement.Service
	store     storage.Store
	logger    *zap.Logger
}

// NewBetsHandler creates a new bets handler.
func NewBetsHandler(svc *placement.Service, store storage.Store, logger *zap.Logger) *BetsHandler {
	return &BetsHandler{
		placement: svc,
		store:     store,
		logger:    logger,
	}
}

// BetResponse is the HTTP representation of a persisted bet and, for
// compound tickets, its constituent wagers.
type BetResponse struct {
	Bet      *types.Bet   `json:"bet"`
	Children []*types.Bet `json:"children,omitempty"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Rule  string `json:"rule,omitempty"`
}

// HandlePlaceBet handles POST /api/v1/bets requests.
func (h *BetsHandler) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placement.Request
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), "", http.StatusBadRequest)
		return
	}

	receipt, err := h.placement.Place(r.Context(), req)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}

	status := http.StatusCreated
	if receipt.Duplicate {
		// Idempotency key replay: the original placement, nothing written.
		status = http.StatusOK
	}
	h.writeJSON(w, status, receipt)
}

// HandleGetBet handles GET /api/v1/bets/{betID} requests.
func (h *BetsHandler) HandleGetBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "betID")

	bet, err := h.store.GetBet(r.Context(), betID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "bet not found", "", http.StatusNotFound)
			return
		}
		h.logger.Error("get-bet-failed", zap.String("bet-id", betID), zap.Error(err))
		h.writeError(w, "internal error", "", http.StatusInternalServerError)
		return
	}

	resp := BetResponse{Bet: bet}
	if bet.Type == types.BetTypeRoundRobin || bet.Type == types.BetTypeReverse {
		children, err := h.store.ChildBets(r.Context(), bet.ID)
		if err != nil {
			h.logger.Error("get-children-failed", zap.String("bet-id", betID), zap.Error(err))
			h.writeError(w, "internal error", "", http.StatusInternalServerError)
			return
		}
		resp.Children = children
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetAccount handles GET /api/v1/accounts/{userID} requests.
func (h *BetsHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	account, err := h.store.GetAccount(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "account not found", "", http.StatusNotFound)
			return
		}
		h.logger.Error("get-account-failed", zap.String("user-id", userID), zap.Error(err))
		h.writeError(w, "internal error", "", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// writePlacementError maps placement failures onto HTTP statuses:
// construction rule violations are 422, insufficient funds 402, anything
// else a 500.
func (h *BetsHandler) writePlacementError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	if errors.As(err, &validation) {
		h.writeError(w, validation.Message, validation.Rule, http.StatusUnprocessableEntity)
		return
	}

	var insufficient *types.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		h.writeError(w, insufficient.Error(), "", http.StatusPaymentRequired)
		return
	}

	var config *types.ConfigurationError
	if errors.As(err, &config) {
		h.writeError(w, config.Error(), "", http.StatusUnprocessableEntity)
		return
	}

	h.logger.Error("place-bet-failed", zap.Error(err))
	h.writeError(w, "internal error", "", http.StatusInternalServerError)
}

func (h *BetsHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *BetsHandler) writeError(w http.ResponseWriter, message, rule string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message, Rule: rule})
}
