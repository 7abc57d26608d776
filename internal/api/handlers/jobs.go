package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/bank-recon-backend/internal/api/dto"
	"github.com/eshaffer321/bank-recon-backend/internal/application/service"
)

// JobsHandler handles live reconciliation job HTTP requests.
type JobsHandler struct {
	*Base
	reconService *service.ReconService
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(reconService *service.ReconService) *JobsHandler {
	return &JobsHandler{
		Base:         &Base{},
		reconService: reconService,
	}
}

// Start handles POST /api/reconcile - starts a new reconciliation job.
func (h *JobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.StatementPath == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("statement_path is required"))
		return
	}

	serviceReq := service.RunRequest{
		StatementPath: req.StatementPath,
		DryRun:        req.DryRun,
		Threshold:     req.Threshold,
	}

	jobID, err := h.reconService.StartRun(r.Context(), serviceReq)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	response := dto.StartRunResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	}

	h.WriteJSON(w, http.StatusAccepted, response)
}

// GetStatus handles GET /api/reconcile/{jobId} - gets a job's status.
func (h *JobsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.reconService.GetRunJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("job"))
		return
	}

	response := toRunJobResponse(job)
	h.WriteJSON(w, http.StatusOK, response)
}

// ListActive handles GET /api/reconcile/active - lists unfinished jobs.
func (h *JobsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	jobs := h.reconService.ListActiveRunJobs()

	response := dto.ActiveJobsResponse{
		Jobs:  make([]dto.RunJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}

	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toRunJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// ListAll handles GET /api/reconcile - lists all jobs.
func (h *JobsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	jobs := h.reconService.ListAllRunJobs()

	response := dto.AllJobsResponse{
		Jobs:  make([]dto.RunJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}

	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toRunJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/{jobId} - cancels a running job.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.reconService.CancelRun(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "job cancelled",
	})
}

// toRunJobResponse converts a service job to an API response.
func toRunJobResponse(job *service.RunJob) dto.RunJobResponse {
	response := dto.RunJobResponse{
		JobID:         job.ID,
		StatementPath: job.Request.StatementPath,
		Status:        string(job.Status),
		DryRun:        job.Request.DryRun,
		StartedAt:     job.StartedAt.Format(time.RFC3339),
		Progress:      toProgressResponse(job.Progress),
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Report != nil {
		response.Report = &dto.RunReportResponse{
			RunID:        job.Report.RunID,
			Total:        job.Report.Total,
			Reconciled:   job.Report.Reconciled,
			AutoCreated:  job.Report.AutoCreated,
			ManualReview: job.Report.ManualReview,
			Failed:       job.Report.Failed,
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}

// toProgressResponse converts progress to an API response.
func toProgressResponse(progress service.RunProgress) dto.RunProgressResponse {
	return dto.RunProgressResponse{
		CurrentPhase: progress.CurrentPhase,
		Total:        progress.Total,
		Processed:    progress.Processed,
		LastUpdate:   progress.LastUpdate.Format(time.RFC3339),
	}
}
