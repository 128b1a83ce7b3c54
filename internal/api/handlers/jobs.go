package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erpsync/backend/internal/api/dto"
	"github.com/erpsync/backend/internal/application/service"
	"github.com/erpsync/backend/internal/infrastructure/storage"
)

// JobsHandler handles sync job control requests.
type JobsHandler struct {
	*Base
	jobs *service.JobService
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs *service.JobService) *JobsHandler {
	return &JobsHandler{
		Base: &Base{},
		jobs: jobs,
	}
}

// Start handles POST /api/jobs - starts a new paginated sync job.
func (h *JobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	kind := storage.JobKind(req.Kind)
	if !service.ValidKind(kind) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("kind must be one of: customers, products, orders"))
		return
	}

	jobID, existing, err := h.jobs.Start(r.Context(), kind)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.NewAPIError("start_failed", err.Error()))
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := toJobResponse(job)
	response.AlreadyRunning = existing
	status := http.StatusAccepted
	if existing {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, response)
}

// Get handles GET /api/jobs/{jobID} - gets one job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// List handles GET /api/jobs - lists jobs with optional kind/status filters.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.JobFilters{
		Kind:   storage.JobKind(r.URL.Query().Get("kind")),
		Status: storage.JobStatus(r.URL.Query().Get("status")),
		Limit:  ParseIntParam(r, "limit", 50),
	}

	jobs, err := h.jobs.ListJobs(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobListResponse(jobs))
}

// ListActive handles GET /api/jobs/active - lists running and paused jobs.
func (h *JobsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListActive(storage.JobKind(r.URL.Query().Get("kind")))
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobListResponse(jobs))
}

// ListResumable handles GET /api/jobs/resumable - lists paused and failed jobs.
func (h *JobsHandler) ListResumable(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListResumable(storage.JobKind(r.URL.Query().Get("kind")))
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobListResponse(jobs))
}

// Pause handles POST /api/jobs/{jobID}/pause.
func (h *JobsHandler) Pause(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := h.jobs.Pause(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "job paused"})
}

// Cancel handles POST /api/jobs/{jobID}/cancel.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := h.jobs.Cancel(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "job cancelled"})
}

// Resume handles POST /api/jobs/{jobID}/resume - creates a new job that
// continues from the paused or failed one.
func (h *JobsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	resumedID, err := h.jobs.Resume(r.Context(), jobID)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	job, err := h.jobs.GetJob(resumedID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, toJobResponse(job))
}

// DeleteOld handles DELETE /api/jobs/old - prunes terminal jobs older
// than the given number of days.
func (h *JobsHandler) DeleteOld(w http.ResponseWriter, r *http.Request) {
	days := ParseIntParam(r, "days", 30)
	if days < 1 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("days must be positive"))
		return
	}

	deleted, err := h.jobs.DeleteOldJobs(days)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.DeletedResponse{Deleted: deleted})
}

// toJobResponse converts a storage model to an API response.
func toJobResponse(job *storage.SyncJob) dto.JobResponse {
	response := dto.JobResponse{
		JobID:         job.ID,
		Kind:          string(job.Kind),
		Status:        string(job.Status),
		CurrentPage:   job.CurrentPage,
		TotalPages:    job.TotalPages,
		TotalItems:    job.TotalItems,
		ImportedCount: job.ImportedCount,
		UpdatedCount:  job.UpdatedCount,
		ErrorCount:    job.ErrorCount,
		Progress:      job.Progress(),
		ResumedFrom:   job.ResumedFromJobID,
		StartedAt:     job.StartedAt.Format(time.RFC3339),
	}

	for _, e := range job.ErrorLog {
		response.Errors = append(response.Errors, dto.JobErrorResponse{
			Page:      e.Page,
			Message:   e.Message,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		})
	}

	if job.PausedAt != nil {
		pausedAt := job.PausedAt.Format(time.RFC3339)
		response.PausedAt = &pausedAt
	}
	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	return response
}

func toJobListResponse(jobs []*storage.SyncJob) dto.JobListResponse {
	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}
	return response
}
