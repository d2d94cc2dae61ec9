package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/http/middleware"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/service"
)

// SessionsHandler holds the session lifecycle endpoints.
type SessionsHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc *service.SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type startSessionRequest struct {
	TableID      int64 `json:"table_id"`
	RateID       int64 `json:"rate_id"`
	PlannedHours int   `json:"planned_hours"`
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
}

type transferSessionRequest struct {
	SessionID     string `json:"session_id"`
	TargetTableID int64  `json:"target_table_id"`
}

type extendSessionRequest struct {
	SessionID  string `json:"session_id"`
	ExtraHours int    `json:"extra_hours"`
}

// HandleStart handles POST /sessions/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.TableID == 0 {
		writeError(w, http.StatusBadRequest, "table_id is required")
		return
	}

	session, err := h.svc.Start(r.Context(), service.StartSessionInput{
		UserID:       userID,
		TableID:      req.TableID,
		RateID:       req.RateID,
		PlannedHours: req.PlannedHours,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to start session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

// HandleEnd handles POST /sessions/end.
func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session_id")
		return
	}

	result, err := h.svc.End(r.Context(), userID, sessionID)
	if err != nil {
		h.writeServiceError(w, err, "failed to end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":          result.Session,
		"amount":           result.Amount,
		"duration_seconds": int64(result.Duration.Seconds()),
		"already_closed":   result.AlreadyClosed,
	})
}

// HandleTransfer handles POST /sessions/transfer.
func (h *SessionsHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req transferSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	if req.TargetTableID == 0 {
		writeError(w, http.StatusBadRequest, "target_table_id is required")
		return
	}

	result, err := h.svc.Transfer(r.Context(), userID, sessionID, req.TargetTableID)
	if err != nil {
		// The old session may already be closed and billed even when the
		// transfer failed; tell the caller what was charged.
		if result != nil && result.Closed != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":         "transfer failed after termination",
				"closed_amount": result.Closed.Amount,
			})
			return
		}
		h.writeServiceError(w, err, "failed to transfer session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"closed_session": result.Closed.Session,
		"closed_amount":  result.Closed.Amount,
		"session":        result.NewSession,
	})
}

// HandleExtend handles POST /sessions/extend.
func (h *SessionsHandler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req extendSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session_id")
		return
	}

	session, err := h.svc.Extend(r.Context(), userID, sessionID, req.ExtraHours)
	if err != nil {
		h.writeServiceError(w, err, "failed to extend session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// HandleSessionsMe handles GET /sessions/me.
func (h *SessionsHandler) HandleSessionsMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.svc.SessionsForUser(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// HandleActiveSessions handles GET /sessions/active.
func (h *SessionsHandler) HandleActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ActiveSessions(r.Context(), 50)
	if err != nil {
		h.logger.Error("list active sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch active sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// HandleTableSession handles GET /tables/session?table_id=N.
func (h *SessionsHandler) HandleTableSession(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.ParseInt(r.URL.Query().Get("table_id"), 10, 64)
	if err != nil || tableID == 0 {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	session, err := h.svc.ActiveSessionForTable(r.Context(), tableID)
	if err == redis.Nil {
		// Cache miss; report occupancy from the registry instead.
		table, err := h.svc.Table(r.Context(), tableID)
		if errors.Is(err, repository.ErrTableNotFound) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		if err != nil {
			h.logger.Error("table lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch table")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil, "table": table})
		return
	}
	if err != nil {
		h.logger.Error("table session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch table session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *SessionsHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionNotOwned):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, repository.ErrSessionNotActive):
		writeError(w, http.StatusConflict, "session not active")
	case errors.Is(err, repository.ErrTableNotFound):
		writeError(w, http.StatusNotFound, "table not found")
	case errors.Is(err, repository.ErrTableOccupied):
		writeError(w, http.StatusConflict, "table occupied")
	case errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrInsufficientCredit):
		writeError(w, http.StatusPaymentRequired, "insufficient credit")
	case errors.Is(err, repository.ErrRateNotFound):
		writeError(w, http.StatusBadRequest, "rate not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict, retry")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
