package handlers

import (
	"net/http"
	"time"

	"github.com/erpsync/backend/internal/api/dto"
	"github.com/erpsync/backend/internal/infrastructure/storage"
)

// LogsHandler serves the append-only sync ledger.
type LogsHandler struct {
	*Base
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(repo storage.Repository) *LogsHandler {
	return &LogsHandler{Base: NewBase(repo)}
}

// List handles GET /api/logs - lists ledger entries, newest first.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.SyncLogFilters{
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
		Outcome:    r.URL.Query().Get("outcome"),
		Limit:      ParseIntParam(r, "limit", 100),
	}

	entries, err := h.repo.ListSyncLogs(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncLogListResponse{
		Logs:  make([]dto.SyncLogResponse, 0, len(entries)),
		Count: len(entries),
	}
	for _, entry := range entries {
		response.Logs = append(response.Logs, dto.SyncLogResponse{
			ID:         entry.ID,
			Direction:  string(entry.Direction),
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Action:     string(entry.Action),
			Outcome:    string(entry.Outcome),
			Error:      entry.Error,
			DurationMs: entry.DurationMs,
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
