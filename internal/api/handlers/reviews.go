package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/bank-recon-backend/internal/api/dto"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// ReviewsHandler handles the manual-review queue HTTP requests.
type ReviewsHandler struct {
	*Base
}

// NewReviewsHandler creates a new reviews handler.
func NewReviewsHandler(repo storage.Repository) *ReviewsHandler {
	return &ReviewsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/reviews - returns pending reviews, oldest first.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 50)

	reviews, err := h.repo.ListPendingReviews(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ReviewListResponse{
		Reviews: make([]dto.ReviewResponse, 0, len(reviews)),
		Count:   len(reviews),
	}

	for _, review := range reviews {
		response.Reviews = append(response.Reviews, toReviewResponse(review))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/reviews/{id} - returns a single review by ID.
func (h *ReviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reviewID(w, r)
	if !ok {
		return
	}

	review, err := h.repo.GetReview(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if review == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("review"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toReviewResponse(*review))
}

// Resolve handles POST /api/reviews/{id}/resolve - records the decision
// for a pending review. A category choice also appends a learning
// example so the next run's retrain picks it up.
func (h *ReviewsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reviewID(w, r)
	if !ok {
		return
	}

	var req dto.ResolveReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if !req.Skip && req.Category == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("category is required unless skipping"))
		return
	}

	review, err := h.repo.GetReview(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if review == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("review"))
		return
	}
	if review.Status != storage.ReviewStatusPending {
		h.WriteError(w, http.StatusConflict, dto.ConflictError("review is already resolved"))
		return
	}

	status := storage.ReviewStatusResolved
	if req.Skip {
		status = storage.ReviewStatusSkipped
	}

	decision, err := json.Marshal(req)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if err := h.repo.ResolveReview(id, status, string(decision)); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	if !req.Skip {
		h.appendExample(review, req)
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "review resolved",
	})
}

// appendExample turns a resolved review into a learning example. The
// review stays resolved even when the append fails; the decision is
// already recorded.
func (h *ReviewsHandler) appendExample(review *storage.ReviewRecord, req dto.ResolveReviewRequest) {
	var payload struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := json.Unmarshal([]byte(review.PayloadJSON), &payload); err != nil {
		return
	}

	_ = h.repo.AppendExample(&model.LearningExample{
		NormalizedDescription: model.NormalizeDescription(payload.Description),
		Amount:                payload.Amount,
		Category:              req.Category,
		Counterparty:          req.Counterparty,
		Confidence:            1.0,
	})
}

func (h *ReviewsHandler) reviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("review ID is required"))
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid review ID"))
		return 0, false
	}

	return id, true
}

// toReviewResponse converts a storage ReviewRecord to an API response.
func toReviewResponse(review storage.ReviewRecord) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:          review.ID,
		RunID:       review.RunID,
		ExternalID:  review.ExternalID,
		Kind:        review.Kind,
		PayloadJSON: review.PayloadJSON,
		Status:      review.Status,
		CreatedAt:   review.CreatedAt,
		ResolvedAt:  review.ResolvedAt,
	}
}
