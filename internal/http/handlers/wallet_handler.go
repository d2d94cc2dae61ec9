package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/billing"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/http/middleware"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/service"
)

// WalletHandler holds the credit endpoints.
type WalletHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewWalletHandler builds handler set.
func NewWalletHandler(svc *service.SessionsService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{svc: svc, logger: logger}
}

type topupRequest struct {
	// Amount in decimal currency units; converted to centavos at this edge.
	Amount float64 `json:"amount"`
}

// HandleWalletMe handles GET /wallet/me.
func (h *WalletHandler) HandleWalletMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.svc.Wallet(r.Context(), userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		writeError(w, http.StatusNotFound, "wallet not found")
		return
	}
	if err != nil {
		h.logger.Error("wallet lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch wallet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"wallet": wallet})
}

// HandleTopup handles POST /wallet/topup.
func (h *WalletHandler) HandleTopup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req topupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	amount := billing.RoundHalfUp(req.Amount)
	if amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	wallet, err := h.svc.Topup(r.Context(), userID, amount)
	if err != nil {
		h.logger.Error("topup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to top up wallet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"wallet": wallet})
}

// HandleWalletEntries handles GET /wallet/entries.
func (h *WalletHandler) HandleWalletEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.svc.WalletEntries(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error("wallet entries lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch wallet entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
