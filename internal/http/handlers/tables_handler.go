package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/service"
)

// NewTablesHandler returns GET /tables handler listing the registry with
// occupancy state.
func NewTablesHandler(svc *service.SessionsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := svc.Tables(r.Context())
		if err != nil {
			logger.Error("list tables failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch tables")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
	}
}
