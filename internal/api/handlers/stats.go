package handlers

import (
	"net/http"

	"github.com/erpsync/backend/internal/api/dto"
	"github.com/erpsync/backend/internal/infrastructure/storage"
)

// StatsHandler serves aggregate sync statistics.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{Base: NewBase(repo)}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		Categories:      stats.Categories,
		ShippingClasses: stats.ShippingClasses,
		Customers:       stats.Customers,
		Products:        stats.Products,
		Orders:          stats.Orders,
		PendingEntities: stats.PendingEntities,
		LogOutcomes:     stats.LogOutcomes,
		JobStatuses:     stats.JobStatuses,
	})
}
