package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/bank-recon-backend/internal/api/dto"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// RunsHandler handles persisted reconciliation run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}

	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	response := toRunResponse(*run)
	h.WriteJSON(w, http.StatusOK, response)
}

// ListOutcomes handles GET /api/runs/{id}/outcomes - returns a run's
// per-transaction results in statement order.
func (h *RunsHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	outcomes, err := h.repo.ListOutcomes(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OutcomeListResponse{
		RunID:    id,
		Outcomes: make([]dto.OutcomeResponse, 0, len(outcomes)),
		Count:    len(outcomes),
	}

	for _, outcome := range outcomes {
		response.Outcomes = append(response.Outcomes, toOutcomeResponse(outcome))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toRunResponse converts a storage ReconRun to an API response.
func toRunResponse(run storage.ReconRun) dto.RunResponse {
	return dto.RunResponse{
		ID:            run.ID,
		StatementFile: run.StatementFile,
		PeriodStart:   run.PeriodStart,
		PeriodEnd:     run.PeriodEnd,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
		DryRun:        run.DryRun,
		Total:         run.Total,
		Reconciled:    run.Reconciled,
		AutoCreated:   run.AutoCreated,
		ManualReview:  run.ManualReview,
		Errored:       run.Errored,
		Status:        run.Status,
	}
}

// toOutcomeResponse converts a storage TransactionOutcome to an API response.
func toOutcomeResponse(outcome storage.TransactionOutcome) dto.OutcomeResponse {
	return dto.OutcomeResponse{
		ExternalID:     outcome.ExternalID,
		Date:           outcome.Date,
		Amount:         outcome.Amount,
		Description:    outcome.Description,
		Outcome:        outcome.Outcome,
		Category:       outcome.Category,
		Confidence:     outcome.Confidence,
		MatchedEntryID: outcome.MatchedEntryID,
		MatchTier:      outcome.MatchTier,
		ErrorMessage:   outcome.ErrorMessage,
	}
}
