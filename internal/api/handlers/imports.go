package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/erpsync/backend/internal/api/dto"
	appsync "github.com/erpsync/backend/internal/application/sync"
)

// ImportsHandler handles bulk import requests.
type ImportsHandler struct {
	*Base
	orch *appsync.Orchestrator
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(orch *appsync.Orchestrator) *ImportsHandler {
	return &ImportsHandler{
		Base: &Base{},
		orch: orch,
	}
}

// Full handles POST /api/import/full - runs every stage in dependency order.
func (h *ImportsHandler) Full(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.orch.RunFullImport)
}

// Smart handles POST /api/import/smart - like full, but also reports the
// entities auto-created while resolving references.
func (h *ImportsHandler) Smart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.orch.RunSmartImport)
}

func (h *ImportsHandler) run(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, opts appsync.Options) (*appsync.Result, error)) {
	var req dto.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	for _, stage := range req.Stages {
		if !validStage(stage) {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unknown stage: "+stage))
			return
		}
	}

	start := time.Now()
	result, err := fn(r.Context(), appsync.Options{
		PageSize: req.PageSize,
		Stages:   req.Stages,
	})
	if err != nil && result == nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("import_failed", err.Error()))
		return
	}

	response := toImportResultResponse(result, time.Since(start))
	status := http.StatusOK
	if result.FailedStage != "" {
		status = http.StatusBadGateway
	}
	h.WriteJSON(w, status, response)
}

func validStage(stage string) bool {
	for _, known := range appsync.StageOrder {
		if stage == known {
			return true
		}
	}
	return false
}

func toImportResultResponse(result *appsync.Result, duration time.Duration) dto.ImportResultResponse {
	response := dto.ImportResultResponse{
		Stages:      make([]dto.StageResultResponse, 0, len(result.Stages)),
		Imported:    result.Imported,
		Updated:     result.Updated,
		Errors:      result.Errors,
		AutoCreated: result.AutoCreated,
		FailedStage: result.FailedStage,
		DurationMs:  duration.Milliseconds(),
	}
	for _, sr := range result.Stages {
		response.Stages = append(response.Stages, dto.StageResultResponse{
			Stage:    sr.Stage,
			Pages:    sr.Pages,
			Imported: sr.Imported,
			Updated:  sr.Updated,
			Errors:   sr.Errors,
			Messages: sr.Messages,
		})
	}
	return response
}
