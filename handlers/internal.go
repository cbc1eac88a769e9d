package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"trial-funnel/models"
	"trial-funnel/utils"
)

// OrphanLister is satisfied by *database.Connection.
type OrphanLister interface {
	ListOrphanReports(ctx context.Context, limit int) ([]models.OrphanReport, error)
}

type InternalHandler struct {
	orphans OrphanLister
	log     *zap.Logger
}

// NewInternalHandler accepts a nil lister when no database is configured.
func NewInternalHandler(orphans OrphanLister, log *zap.Logger) *InternalHandler {
	return &InternalHandler{orphans: orphans, log: log}
}

func (h *InternalHandler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	if h.orphans == nil {
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "Orphan ledger not configured")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	reports, err := h.orphans.ListOrphanReports(r.Context(), limit)
	if err != nil {
		h.log.Error("Error listing orphan reports", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Error listing orphan reports")
		return
	}

	utils.SendJSON(w, http.StatusOK, models.OrphanListResponse{Orphans: reports, Count: len(reports)})
}
